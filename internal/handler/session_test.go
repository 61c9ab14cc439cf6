package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	gsessions "github.com/gorilla/sessions"
	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/service"
)

// brokenCookieStore 模拟 cookie 写入失败
type brokenCookieStore struct{}

func (s brokenCookieStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

func (s brokenCookieStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	session.IsNew = true
	return session, nil
}

func (brokenCookieStore) Save(*http.Request, http.ResponseWriter, *gsessions.Session) error {
	return errors.New("securecookie: the value is too long")
}

func (brokenCookieStore) Options(sessions.Options) {}

func TestLargeProfileStaysSignedIn(t *testing.T) {
	b := newBrowser(t, setupTestServer(t))
	b.signup("ada@example.com")

	bio := strings.Repeat("x", 4000)
	w := b.multipart(http.MethodPut, "/api/profile", map[string]string{"name": "Ada", "bio": bio}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile update failed: %d %s", w.Code, w.Body.String())
	}

	b.json(http.MethodPost, "/api/auth/logout", nil)
	w = b.json(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	for _, c := range b.cookies {
		if len(c.Value) > 2048 {
			t.Fatalf("session cookie holds %d bytes", len(c.Value))
		}
	}

	var me service.User
	w = b.json(http.MethodGet, "/api/auth/me", nil)
	decodeEnvelope(t, w, &me)
	if me.Email != "ada@example.com" || len(me.Bio) != len(bio) {
		t.Fatalf("expected signed in user with full bio, got %s", w.Body.String())
	}
}

func TestLoginFailsWhenSessionCannotBeSaved(t *testing.T) {
	b := newBrowser(t, setupTestServerWithStore(t, brokenCookieStore{}))

	w := b.json(http.MethodPost, "/api/auth/signup", map[string]any{
		"email": "ada@example.com", "password": "password123", "passwordConfirm": "password123", "name": "Ada",
	})
	env := decodeEnvelope(t, w, nil)
	if w.Code != http.StatusInternalServerError || env.Success || env.Error != service.UnexpectedErrorMessage {
		t.Fatalf("expected signup to fail, got %d %s", w.Code, w.Body.String())
	}

	w = b.json(http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "password123"})
	env = decodeEnvelope(t, w, nil)
	if w.Code != http.StatusInternalServerError || env.Success {
		t.Fatalf("expected login to fail, got %d %s", w.Code, w.Body.String())
	}
}

func TestStaleSession(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		stale bool
	}{
		{name: "expired token", err: errSessionExpired, stale: true},
		{name: "user deleted", err: baas.NewClientError(http.StatusNotFound, "The requested resource wasn't found.", nil), stale: true},
		{name: "token rejected", err: baas.NewClientError(http.StatusUnauthorized, "Invalid token.", nil), stale: true},
		{name: "backend unreachable", err: baas.NewClientError(0, "connection refused", nil), stale: false},
		{name: "other", err: errors.New("boom"), stale: false},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			if got := staleSession(tt.err); got != tt.stale {
				t.Fatalf("staleSession = %v, want %v", got, tt.stale)
			}
		})
	}
}
