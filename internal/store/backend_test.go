package store

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	b, err := NewBackend(gdb, Options{
		UploadDir:     t.TempDir(),
		PublicBaseURL: "http://localhost:8080/",
		TokenSecret:   "test-secret",
	})
	require.NoError(t, err)
	return b
}

func signIn(t *testing.T, b *Backend, email string) baas.Client {
	t.Helper()
	_, err := db.EnsureUser(b.db, email, "password123", "")
	require.NoError(t, err)
	c := b.Client(nil)
	_, err = c.AuthWithPassword(context.Background(), "users", email, "password123")
	require.NoError(t, err)
	return c
}

func createPublication(t *testing.T, c baas.Client, title string, public bool) *baas.Record {
	t.Helper()
	form := baas.NewForm().
		Set("user", c.AuthStore().Model().ID).
		Set("title", title).
		Set("type", "Article").
		Set("public", public).
		Set("views_count", 0)
	rec, err := c.Create(context.Background(), "publications", form)
	require.NoError(t, err)
	return rec
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	ce, ok := baas.AsClientError(err)
	require.True(t, ok, "expected ClientError, got %v", err)
	return ce.Status
}

func TestAuthWithPassword(t *testing.T) {
	b := newTestBackend(t)
	_, err := db.EnsureUser(b.db, "Ada@Example.com", "password123", "Ada")
	require.NoError(t, err)

	c := b.Client(nil)
	_, err = c.AuthWithPassword(context.Background(), "users", "ada@example.com", "wrong-pass")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Empty(t, c.AuthStore().Token())

	res, err := c.AuthWithPassword(context.Background(), "users", "ada@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada@example.com", res.Record.GetString("email"))
	assert.Equal(t, "Ada", res.Record.GetString("name"))
	assert.True(t, c.AuthStore().IsValid())
	assert.Equal(t, res.Record.ID, c.AuthStore().Model().ID)
}

func TestSignupValidation(t *testing.T) {
	b := newTestBackend(t)
	c := b.Client(nil)
	ctx := context.Background()

	_, err := c.Create(ctx, "users", baas.NewForm().
		Set("email", "new@example.com").
		Set("name", "New").
		Set("password", "password123").
		Set("passwordConfirm", "password124"))
	ce, ok := baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"passwordConfirm"}, ce.FieldNames())

	_, err = c.Create(ctx, "users", baas.NewForm().
		Set("email", "new@example.com").
		Set("name", "New").
		Set("password", "short").
		Set("passwordConfirm", "short"))
	ce, ok = baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, "validation_length_out_of_range", ce.Data["password"].Code)

	created, err := c.Create(ctx, "users", baas.NewForm().
		Set("email", "new@example.com").
		Set("name", "New").
		Set("researcher_type", "academic").
		Set("password", "password123").
		Set("passwordConfirm", "password123"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.GetString("email"), "email hidden from other callers")

	_, err = c.Create(ctx, "users", baas.NewForm().
		Set("email", "NEW@example.com").
		Set("name", "Dup").
		Set("password", "password123").
		Set("passwordConfirm", "password123"))
	ce, ok = baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, "validation_not_unique", ce.Data["email"].Code)

	_, err = c.AuthWithPassword(ctx, "users", "new@example.com", "password123")
	require.NoError(t, err)
}

func TestCreatePublicationValidation(t *testing.T) {
	b := newTestBackend(t)
	c := signIn(t, b, "owner@example.com")

	_, err := c.Create(context.Background(), "publications", baas.NewForm().
		Set("user", c.AuthStore().Model().ID).
		Set("type", "Novel"))
	ce, ok := baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ce.Status)
	assert.Equal(t, "Failed to create record.", ce.Message)
	assert.Equal(t, []string{"title", "type"}, ce.FieldNames())
	assert.Equal(t, "validation_required", ce.Data["title"].Code)
	assert.Equal(t, "validation_invalid_value", ce.Data["type"].Code)
}

func TestCreateRequiresOwnerMatch(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	other := signIn(t, b, "other@example.com")

	_, err := other.Create(context.Background(), "publications", baas.NewForm().
		Set("user", owner.AuthStore().Model().ID).
		Set("title", "Spoofed").
		Set("type", "Article"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	guest := b.Client(nil)
	_, err = guest.Create(context.Background(), "publications", baas.NewForm().
		Set("title", "Anonymous").
		Set("type", "Article"))
	ce, ok := baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"user"}, ce.FieldNames())
}

func TestVisibilityRules(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	ctx := context.Background()

	private := createPublication(t, owner, "Private draft", false)
	public := createPublication(t, owner, "Public paper", true)

	guest := b.Client(nil)
	_, err := guest.Get(ctx, "publications", private.ID, baas.GetOptions{})
	assert.True(t, baas.IsNotFound(err))

	got, err := guest.Get(ctx, "publications", public.ID, baas.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Public paper", got.GetString("title"))

	list, err := guest.List(ctx, "publications", 1, 10, baas.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalItems)

	list, err = owner.List(ctx, "publications", 1, 10, baas.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalItems)
}

func TestListFilterSortAndPagination(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		createPublication(t, owner, fmt.Sprintf("Paper %02d", i), true)
	}
	createPublication(t, owner, "Neural networks", true)
	createPublication(t, owner, "Hidden neural draft", false)

	guest := b.Client(nil)
	page1, err := guest.List(ctx, "publications", 1, 10, baas.ListOptions{Sort: "-created"})
	require.NoError(t, err)
	assert.Equal(t, 13, page1.TotalItems)
	assert.Equal(t, 2, page1.TotalPages)
	require.Len(t, page1.Items, 10)
	assert.Equal(t, "Neural networks", page1.Items[0].GetString("title"))
	assert.Equal(t, "Paper 12", page1.Items[1].GetString("title"))

	page2, err := guest.List(ctx, "publications", 2, 10, baas.ListOptions{Sort: "-created"})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 3)

	filter := baas.Filter("(title ~ {:q} || abstract ~ {:q} || keywords ~ {:q}) && public = true", baas.Params{"q": "NEURAL"})
	found, err := owner.List(ctx, "publications", 1, 10, baas.ListOptions{Filter: filter})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Neural networks", found.Items[0].GetString("title"))

	_, err = guest.List(ctx, "publications", 1, 10, baas.ListOptions{Filter: "title ~ 'x' &&"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestExpandAndEmailVisibility(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	ctx := context.Background()
	pub := createPublication(t, owner, "Expanded", true)

	co, err := owner.Create(ctx, "co_authors", baas.NewForm().
		Set("publication", pub.ID).
		Set("name", "Grace").
		Set("order", 1).
		Set("user", owner.AuthStore().Model().ID))
	require.NoError(t, err)

	_, err = owner.Update(ctx, "publications", pub.ID, baas.NewForm().Set("co_authors_list+", co.ID))
	require.NoError(t, err)

	guest := b.Client(nil)
	got, err := guest.Get(ctx, "publications", pub.ID, baas.GetOptions{
		Expand: "user,co_authors_list,co_authors_list.user,co_authors_via_publication",
	})
	require.NoError(t, err)

	user := got.ExpandOne("user")
	require.NotNil(t, user)
	assert.Equal(t, owner.AuthStore().Model().ID, user.ID)
	assert.Empty(t, user.GetString("email"))

	list := got.ExpandMany("co_authors_list")
	require.Len(t, list, 1)
	assert.Equal(t, "Grace", list[0].GetString("name"))
	assert.NotNil(t, list[0].ExpandOne("user"))

	via := got.ExpandMany("co_authors_via_publication")
	require.Len(t, via, 1)
	assert.Equal(t, co.ID, via[0].ID)

	self, err := owner.Get(ctx, "users", owner.AuthStore().Model().ID, baas.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", self.GetString("email"))
}

func TestNumberModifiers(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	pub := createPublication(t, owner, "Counted", true)

	for i := 0; i < 3; i++ {
		_, err := owner.Update(context.Background(), "publications", pub.ID, baas.NewForm().Set("views_count+", 1))
		require.NoError(t, err)
	}
	got, err := owner.Update(context.Background(), "publications", pub.ID, baas.NewForm().Set("views_count-", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, got.GetInt("views_count"))
}

func TestOwnershipRules(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	other := signIn(t, b, "other@example.com")
	ctx := context.Background()
	pub := createPublication(t, owner, "Owned", true)

	_, err := other.Update(ctx, "publications", pub.ID, baas.NewForm().Set("title", "Stolen"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = other.Create(ctx, "co_authors", baas.NewForm().Set("publication", pub.ID).Set("name", "Intruder"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = owner.Update(ctx, "publications", pub.ID, baas.NewForm().Set("user", other.AuthStore().Model().ID))
	ce, ok := baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, "validation_immutable", ce.Data["user"].Code)

	comment, err := other.Create(ctx, "comments", baas.NewForm().
		Set("publication", pub.ID).
		Set("user", other.AuthStore().Model().ID).
		Set("content", "Nice work"))
	require.NoError(t, err)

	_, err = other.Update(ctx, "comments", comment.ID, baas.NewForm().Set("content", "edited"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	assert.Equal(t, http.StatusForbidden, statusOf(t, other.Delete(ctx, "comments", comment.ID)))

	assert.Equal(t, http.StatusForbidden, statusOf(t, other.Delete(ctx, "publications", pub.ID)))
}

func TestFilesAndCascadeDelete(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	ctx := context.Background()
	pub := createPublication(t, owner, "With files", true)

	fileRec, err := owner.Create(ctx, "publication_files", baas.NewForm().
		Set("publication", pub.ID).
		Set("file_type", "Main file").
		Set("visibility", "Public").
		AddFile("file", baas.File{Name: "Paper Final.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}))
	require.NoError(t, err)

	name := fileRec.GetString("file")
	assert.True(t, strings.HasPrefix(name, "paper_final_"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.Equal(t, "http://localhost:8080/api/files/publication_files/"+fileRec.ID+"/"+name, owner.FileURL(fileRec, name))

	path := b.files.Path("publication_files", fileRec.ID, name)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = owner.Create(ctx, "publication_files", baas.NewForm().Set("publication", pub.ID))
	ce, ok := baas.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, "validation_required", ce.Data["file"].Code)

	_, err = owner.Create(ctx, "co_authors", baas.NewForm().Set("publication", pub.ID).Set("name", "Grace"))
	require.NoError(t, err)

	require.NoError(t, owner.Delete(ctx, "publications", pub.ID))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	files, err := owner.List(ctx, "publication_files", 1, 50, baas.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, files.TotalItems)
	coAuthors, err := owner.List(ctx, "co_authors", 1, 50, baas.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, coAuthors.TotalItems)

	assert.True(t, baas.IsNotFound(owner.Delete(ctx, "publications", pub.ID)))
}

func TestUpdateSelfRefreshesAuthModel(t *testing.T) {
	b := newTestBackend(t)
	c := signIn(t, b, "me@example.com")

	var notified int
	c.AuthStore().OnChange(func(token string, model *baas.Record) { notified++ })

	_, err := c.Update(context.Background(), "users", c.AuthStore().Model().ID, baas.NewForm().Set("bio", "Physicist"))
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
	assert.Equal(t, "Physicist", c.AuthStore().Model().GetString("bio"))
}

func TestCanceledContext(t *testing.T) {
	b := newTestBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Client(nil).List(ctx, "publications", 1, 10, baas.ListOptions{})
	assert.Equal(t, 0, statusOf(t, err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownCollection(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Client(nil).List(context.Background(), "posts", 1, 10, baas.ListOptions{})
	assert.True(t, baas.IsNotFound(err))
}

func TestVisitorsMayOnlyIncreaseCounters(t *testing.T) {
	b := newTestBackend(t)
	owner := signIn(t, b, "owner@example.com")
	pub := createPublication(t, owner, "Popular", true)
	guest := b.Client(nil)
	ctx := context.Background()

	got, err := guest.Update(ctx, "publications", pub.ID, baas.NewForm().Set("views_count", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, got.GetInt("views_count"))

	_, err = guest.Update(ctx, "publications", pub.ID, baas.NewForm().Set("views_count", 0))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = guest.Update(ctx, "publications", pub.ID, baas.NewForm().Set("title", "Vandalized"))
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}
