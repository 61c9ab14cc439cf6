package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pubshare/internal/baas"
)

const (
	publicationExpand = "user,co_authors_list,co_authors_list.user"
	publicationSort   = "-created"
	defaultPerPage    = 20
)

// PublicationService wraps the publications collection.
type PublicationService struct {
	client baas.Client
}

// NewPublicationService creates a PublicationService instance.
func NewPublicationService(client baas.Client) *PublicationService {
	return &PublicationService{client: client}
}

// List returns the public feed, newest first.
func (s *PublicationService) List(ctx context.Context, page, perPage int) (Page[Publication], error) {
	return s.list(ctx, page, perPage, "public = true")
}

// Search matches q against title, abstract and keywords of public publications.
func (s *PublicationService) Search(ctx context.Context, q string, page, perPage int) (Page[Publication], error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Page[Publication]{}, ErrEmptyQuery
	}
	filter := baas.Filter(
		"(title ~ {:q} || abstract ~ {:q} || keywords ~ {:q}) && public = true",
		baas.Params{"q": q},
	)
	return s.list(ctx, page, perPage, filter)
}

// ListByUser returns the publications of a user visible to the caller.
func (s *PublicationService) ListByUser(ctx context.Context, userID string, page, perPage int) (Page[Publication], error) {
	return s.list(ctx, page, perPage, baas.Filter("user = {:user}", baas.Params{"user": userID}))
}

func (s *PublicationService) list(ctx context.Context, page, perPage int, filter string) (Page[Publication], error) {
	page, perPage = normalizePage(page, perPage)
	res, err := s.client.List(ctx, CollectionPublications, page, perPage, baas.ListOptions{
		Expand: publicationExpand,
		Sort:   publicationSort,
		Filter: filter,
	})
	if err != nil {
		return Page[Publication]{}, err
	}
	return newPage(res, func(rec *baas.Record) Publication {
		return decodePublication(s.client, rec)
	}), nil
}

// Get fetches a publication by id with its owner and co-authors expanded.
func (s *PublicationService) Get(ctx context.Context, id string) (*Publication, error) {
	rec, err := s.client.Get(ctx, CollectionPublications, id, baas.GetOptions{Expand: publicationExpand})
	if err != nil {
		return nil, err
	}
	p := decodePublication(s.client, rec)
	return &p, nil
}

// Create inserts a publication from a prepared form.
func (s *PublicationService) Create(ctx context.Context, form *baas.Form) (*Publication, error) {
	rec, err := s.client.Create(ctx, CollectionPublications, form)
	if err != nil {
		return nil, err
	}
	p := decodePublication(s.client, rec)
	return &p, nil
}

// Update patches a publication.
func (s *PublicationService) Update(ctx context.Context, id string, form *baas.Form) (*Publication, error) {
	rec, err := s.client.Update(ctx, CollectionPublications, id, form)
	if err != nil {
		return nil, err
	}
	p := decodePublication(s.client, rec)
	return &p, nil
}

// Delete removes a publication.
func (s *PublicationService) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, CollectionPublications, id); err != nil {
		return fmt.Errorf("delete publication %s: %w", id, err)
	}
	return nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	return page, perPage
}
