// Package baas wraps the record-collection API of the backend service that
// owns persistence, authentication and file storage.
package baas

import "context"

// ListOptions shapes a list query.
type ListOptions struct {
	Expand string
	Sort   string
	Filter string
}

// GetOptions shapes a single record lookup.
type GetOptions struct {
	Expand string
}

// ListResult is a page of records.
type ListResult struct {
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
	TotalItems int       `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
	Items      []*Record `json:"items"`
}

// AuthResult is returned by password authentication.
type AuthResult struct {
	Token  string  `json:"token"`
	Record *Record `json:"record"`
}

// Client is the record-collection API consumed by the domain layer.
type Client interface {
	List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error)
	Get(ctx context.Context, collection, id string, opts GetOptions) (*Record, error)
	Create(ctx context.Context, collection string, form *Form) (*Record, error)
	Update(ctx context.Context, collection, id string, form *Form) (*Record, error)
	Delete(ctx context.Context, collection, id string) error
	FileURL(record *Record, filename string) string
	AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResult, error)
	AuthStore() *AuthStore
}

// ClientFactory builds a client bound to the given auth store. The HTTP layer
// creates one client per request so that auth state never leaks between users.
type ClientFactory func(auth *AuthStore) Client
