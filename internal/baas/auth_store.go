package baas

import (
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthStore keeps the current auth token and user record and notifies
// subscribers when either changes.
type AuthStore struct {
	mu        sync.RWMutex
	token     string
	model     *Record
	listeners map[int]func(token string, model *Record)
	nextID    int
	now       func() time.Time
}

// NewAuthStore creates an empty store.
func NewAuthStore() *AuthStore {
	return &AuthStore{listeners: map[int]func(string, *Record){}, now: time.Now}
}

// Token returns the raw token.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Model returns the authenticated user record, nil when signed out.
func (s *AuthStore) Model() *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// IsValid reports whether a token is present and not yet expired. The token
// signature is not checked here; the backend does that on every request.
func (s *AuthStore) IsValid() bool {
	s.mu.RLock()
	token := s.token
	now := s.now
	s.mu.RUnlock()

	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.After(now())
}

// Save stores a new token/model pair and notifies subscribers.
func (s *AuthStore) Save(token string, model *Record) {
	s.mu.Lock()
	s.token = token
	s.model = model
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(token, model)
	}
}

// Load restores state without notifying subscribers, used when rehydrating
// from persisted storage.
func (s *AuthStore) Load(token string, model *Record) {
	s.mu.Lock()
	s.token = token
	s.model = model
	s.mu.Unlock()
}

// Clear drops the token and model and notifies subscribers.
func (s *AuthStore) Clear() {
	s.Save("", nil)
}

// Refresh replaces the stored model when rec is the authenticated record.
// A nil rec with a matching id signals deletion and clears the store.
func (s *AuthStore) Refresh(collection, id string, rec *Record) {
	s.mu.RLock()
	token, model := s.token, s.model
	s.mu.RUnlock()

	if model == nil || model.ID != id || model.CollectionName != collection {
		return
	}
	if rec == nil {
		s.Clear()
		return
	}
	s.Save(token, rec)
}

// OnChange registers fn to be called after every Save/Clear and returns a
// function that removes the subscription.
func (s *AuthStore) OnChange(fn func(token string, model *Record)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthStore) snapshotListeners() []func(string, *Record) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	// 按注册顺序回调
	sort.Ints(ids)
	out := make([]func(string, *Record), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
