package service

import (
	"context"
	"strings"

	"github.com/pubshare/internal/baas"
)

// AuthService handles sign in, sign up and the current session.
type AuthService struct {
	client baas.Client
}

// NewAuthService creates an AuthService instance.
func NewAuthService(client baas.Client) *AuthService {
	return &AuthService{client: client}
}

// SignupInput 注册表单
type SignupInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Name            string
	ResearcherType  string
	Institution     string
	Department      string
	Company         string
	Position        string
	Bio             string
	OrcidID         string
	Website         string
	IsScientific    bool
}

func (in SignupInput) form() *baas.Form {
	return baas.NewForm().
		Set("email", strings.TrimSpace(in.Email)).
		Set("password", in.Password).
		Set("passwordConfirm", in.PasswordConfirm).
		Set("name", strings.TrimSpace(in.Name)).
		Set("researcher_type", strings.TrimSpace(in.ResearcherType)).
		Set("institution", strings.TrimSpace(in.Institution)).
		Set("department", strings.TrimSpace(in.Department)).
		Set("company", strings.TrimSpace(in.Company)).
		Set("position", strings.TrimSpace(in.Position)).
		Set("bio", strings.TrimSpace(in.Bio)).
		Set("orcid_id", strings.TrimSpace(in.OrcidID)).
		Set("website", strings.TrimSpace(in.Website)).
		Set("is_scientific", in.IsScientific)
}

// Login authenticates with email and password; the auth store is updated
// by the client.
func (s *AuthService) Login(ctx context.Context, email, password string) (*User, error) {
	res, err := s.client.AuthWithPassword(ctx, CollectionUsers, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return decodeUser(s.client, res.Record), nil
}

// Signup creates the account and signs in with the same credentials.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if in.Password != in.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	rec, err := s.client.Create(ctx, CollectionUsers, in.form())
	if err != nil {
		return nil, err
	}
	res, err := s.client.AuthWithPassword(ctx, CollectionUsers, strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		return nil, err
	}
	if res.Record != nil {
		rec = res.Record
	}
	return decodeUser(s.client, rec), nil
}

// Logout clears the auth store.
func (s *AuthService) Logout() {
	s.client.AuthStore().Clear()
}

// Current returns the signed in user, nil for guests.
func (s *AuthService) Current() *User {
	if !s.IsAuthenticated() {
		return nil
	}
	return decodeUser(s.client, s.client.AuthStore().Model())
}

// IsAuthenticated reports whether a non-expired token is stored.
func (s *AuthService) IsAuthenticated() bool {
	return s.client.AuthStore().IsValid() && s.client.AuthStore().Model() != nil
}

// RequireUser returns the signed in user or ErrNotAuthenticated.
func (s *AuthService) RequireUser() (*User, error) {
	u := s.Current()
	if u == nil {
		return nil, ErrNotAuthenticated
	}
	return u, nil
}
