package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pubshare/internal/baas"
)

type call struct {
	Op         string
	Collection string
	ID         string
	Values     map[string]any
	Files      []string
}

// fakeClient keeps records in memory and logs every call.
type fakeClient struct {
	mu      sync.Mutex
	auth    *baas.AuthStore
	records map[string][]*baas.Record
	calls   []call
	seq     int

	// failCreate/failDelete inject errors before the record is touched.
	failCreate func(collection string, form *baas.Form) error
	failDelete func(collection, id string) error
}

func newFakeClient() *fakeClient {
	return &fakeClient{auth: baas.NewAuthStore(), records: map[string][]*baas.Record{}}
}

func testToken(t *testing.T, id string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  id,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// signIn stores a valid session for a user record seeded into the fake.
func (c *fakeClient) signIn(t *testing.T, id, name string) {
	t.Helper()
	user := c.seed(CollectionUsers, id, map[string]any{"name": name, "email": id + "@example.com"})
	c.auth.Save(testToken(t, id), user)
}

func (c *fakeClient) seed(collection, id string, data map[string]any) *baas.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := baas.NewRecord(collection)
	rec.ID = id
	for k, v := range data {
		rec.Set(k, v)
	}
	rec.Created = time.Date(2024, 1, 1, 0, 0, len(c.records[collection]), 0, time.UTC)
	c.records[collection] = append(c.records[collection], rec)
	return rec.Clone()
}

func (c *fakeClient) reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

// writes returns the create/update/delete calls in order.
func (c *fakeClient) writes() []call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []call
	for _, cl := range c.calls {
		if cl.Op != "list" && cl.Op != "get" {
			out = append(out, cl)
		}
	}
	return out
}

func (c *fakeClient) record(cl call) {
	c.calls = append(c.calls, cl)
}

func (c *fakeClient) find(collection, id string) (*baas.Record, int) {
	for i, rec := range c.records[collection] {
		if rec.ID == id {
			return rec, i
		}
	}
	return nil, -1
}

func fileNames(form *baas.Form) []string {
	var out []string
	for key, files := range form.Files() {
		for _, f := range files {
			out = append(out, key+"="+f.Name)
		}
	}
	sort.Strings(out)
	return out
}

func (c *fakeClient) List(ctx context.Context, collection string, page, perPage int, opts baas.ListOptions) (*baas.ListResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(call{Op: "list", Collection: collection})

	all := c.records[collection]
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	res := &baas.ListResult{Page: page, PerPage: perPage, TotalItems: len(all)}
	res.TotalPages = (len(all) + perPage - 1) / perPage
	for _, rec := range all[start:end] {
		res.Items = append(res.Items, rec.Clone())
	}
	return res, nil
}

func (c *fakeClient) Get(ctx context.Context, collection, id string, opts baas.GetOptions) (*baas.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(call{Op: "get", Collection: collection, ID: id})
	rec, _ := c.find(collection, id)
	if rec == nil {
		return nil, baas.NewClientError(http.StatusNotFound, "The requested resource wasn't found.", nil)
	}
	return rec.Clone(), nil
}

func (c *fakeClient) Create(ctx context.Context, collection string, form *baas.Form) (*baas.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(call{Op: "create", Collection: collection, Values: form.Values(), Files: fileNames(form)})
	if c.failCreate != nil {
		if err := c.failCreate(collection, form); err != nil {
			return nil, err
		}
	}
	c.seq++
	rec := baas.NewRecord(collection)
	rec.ID = fmt.Sprintf("%s_%d", collection, c.seq)
	for k, v := range form.Values() {
		rec.Set(k, v)
	}
	for key, files := range form.Files() {
		names := make([]any, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name)
		}
		if len(names) == 1 {
			rec.Set(key, names[0])
		} else {
			rec.Set(key, names)
		}
	}
	c.records[collection] = append(c.records[collection], rec)
	return rec.Clone(), nil
}

func (c *fakeClient) Update(ctx context.Context, collection, id string, form *baas.Form) (*baas.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(call{Op: "update", Collection: collection, ID: id, Values: form.Values(), Files: fileNames(form)})
	rec, _ := c.find(collection, id)
	if rec == nil {
		return nil, baas.NewClientError(http.StatusNotFound, "The requested resource wasn't found.", nil)
	}
	for k, v := range form.Values() {
		if field, ok := strings.CutSuffix(k, "+"); ok {
			delta, _ := baas.ToFloat(v)
			rec.Set(field, rec.GetFloat(field)+delta)
			continue
		}
		rec.Set(k, v)
	}
	return rec.Clone(), nil
}

func (c *fakeClient) Delete(ctx context.Context, collection, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(call{Op: "delete", Collection: collection, ID: id})
	if c.failDelete != nil {
		if err := c.failDelete(collection, id); err != nil {
			return err
		}
	}
	_, i := c.find(collection, id)
	if i < 0 {
		return baas.NewClientError(http.StatusNotFound, "The requested resource wasn't found.", nil)
	}
	c.records[collection] = append(c.records[collection][:i], c.records[collection][i+1:]...)
	return nil
}

func (c *fakeClient) FileURL(record *baas.Record, filename string) string {
	return "http://files.test/" + record.CollectionName + "/" + record.ID + "/" + filename
}

func (c *fakeClient) AuthWithPassword(ctx context.Context, collection, identity, password string) (*baas.AuthResult, error) {
	c.mu.Lock()
	c.record(call{Op: "auth", Collection: collection, ID: identity})
	var user *baas.Record
	for _, rec := range c.records[collection] {
		if rec.GetString("email") == identity && rec.GetString("password") == password {
			user = rec.Clone()
		}
	}
	c.mu.Unlock()

	if user == nil {
		return nil, baas.NewClientError(http.StatusBadRequest, "Failed to authenticate.", nil)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  user.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte("test"))
	if err != nil {
		return nil, err
	}
	c.auth.Save(raw, user)
	return &baas.AuthResult{Token: raw, Record: user}, nil
}

func (c *fakeClient) AuthStore() *baas.AuthStore {
	return c.auth
}
