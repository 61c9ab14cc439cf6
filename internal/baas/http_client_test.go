package baas

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientListSendsQuery(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/publications/records", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = io.WriteString(w, `{"page":2,"perPage":10,"totalItems":11,"totalPages":2,"items":[{"id":"p11","title":"T"}]}`)
	}))
	defer srv.Close()

	store := NewAuthStore()
	store.Load("tok", nil)
	client := NewHTTPClient(srv.URL, store)

	result, err := client.List(context.Background(), "publications", 2, 10, ListOptions{
		Sort:   "-created",
		Filter: "public = true",
		Expand: "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", gotAuth)
	assert.Equal(t, map[string]string{
		"page": "2", "perPage": "10", "sort": "-created", "filter": "public = true", "expand": "user",
	}, gotQuery)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "p11", result.Items[0].ID)
	assert.Equal(t, 11, result.TotalItems)
}

func TestHTTPClientCreateUsesMultipartForFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "pub1", r.FormValue("publication"))
		assert.Equal(t, "dataset", r.FormValue("file_type"))
		files := r.MultipartForm.File["file"]
		if assert.Len(t, files, 1) {
			assert.Equal(t, "data.csv", files[0].Filename)
		}
		_, _ = io.WriteString(w, `{"id":"f1","collectionId":"publication_files","file":"data_abc.csv"}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	form := NewForm().
		Set("publication", "pub1").
		Set("file_type", "dataset").
		AddFile("file", File{Name: "data.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")})

	rec, err := client.Create(context.Background(), "publication_files", form)
	require.NoError(t, err)
	assert.Equal(t, "f1", rec.ID)
	assert.Equal(t, srv.URL+"/api/files/publication_files/f1/data_abc.csv", client.FileURL(rec, rec.GetString("file")))
}

func TestHTTPClientCreateUsesJSONWithoutFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "C", body["name"])
		assert.Equal(t, true, body["is_corresponding"])
		_, _ = io.WriteString(w, `{"id":"ca9","name":"C"}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	rec, err := client.Create(context.Background(), "co_authors", NewForm().Set("name", "C").Set("is_corresponding", true))
	require.NoError(t, err)
	assert.Equal(t, "ca9", rec.ID)
}

func TestHTTPClientDecodesValidationErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"message":"Failed to create record.","data":{"title":{"code":"validation_required","message":"Missing required value."}}}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	_, err := client.Create(context.Background(), "publications", NewForm())
	require.Error(t, err)

	ce, ok := AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ce.Status)
	assert.Equal(t, "Failed to create record.", ce.Error())
	assert.Equal(t, []string{"title"}, ce.FieldNames())
	assert.Equal(t, "Missing required value.", ce.Data["title"].Message)
}

func TestHTTPClientNotFoundAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":404,"message":"The requested resource wasn't found.","data":{}}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	_, err := client.Get(context.Background(), "publications", "missing", GetOptions{})
	assert.True(t, IsNotFound(err))
	assert.NoError(t, client.Delete(context.Background(), "co_authors", "ca1"))
}

func TestHTTPClientAuthWithPasswordSavesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/users/auth-with-password", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["identity"])
		_, _ = io.WriteString(w, `{"token":"tok-1","record":{"id":"u1","email":"ada@example.com"}}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	var notified string
	client.AuthStore().OnChange(func(token string, _ *Record) { notified = token })

	res, err := client.AuthWithPassword(context.Background(), "users", "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, "tok-1", client.AuthStore().Token())
	assert.Equal(t, "u1", client.AuthStore().Model().ID)
	assert.Equal(t, "tok-1", notified)
}

func TestHTTPClientTransportErrorAndContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "publications", "p1", GetOptions{})
	require.Error(t, err)
	ce, ok := AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, 0, ce.Status)
}
