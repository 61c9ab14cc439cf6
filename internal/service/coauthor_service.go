package service

import (
	"context"

	"github.com/pubshare/internal/baas"
)

// childListSize 是合著者、文件与评论列表的固定大小
const childListSize = 50

// CoAuthorService wraps the co_authors collection.
type CoAuthorService struct {
	client baas.Client
}

// NewCoAuthorService creates a CoAuthorService instance.
func NewCoAuthorService(client baas.Client) *CoAuthorService {
	return &CoAuthorService{client: client}
}

// List returns the co-authors of a publication in display order.
func (s *CoAuthorService) List(ctx context.Context, publicationID string) ([]CoAuthor, error) {
	res, err := s.client.List(ctx, CollectionCoAuthors, 1, childListSize, baas.ListOptions{
		Expand: "user",
		Sort:   "order",
		Filter: baas.Filter("publication = {:id}", baas.Params{"id": publicationID}),
	})
	if err != nil {
		return nil, err
	}
	out := make([]CoAuthor, 0, len(res.Items))
	for _, rec := range res.Items {
		out = append(out, decodeCoAuthor(s.client, rec))
	}
	return out, nil
}

// Create adds a co-author to a publication.
func (s *CoAuthorService) Create(ctx context.Context, publicationID string, fields CoAuthorFields) (*CoAuthor, error) {
	rec, err := s.client.Create(ctx, CollectionCoAuthors, fields.Form(publicationID))
	if err != nil {
		return nil, err
	}
	c := decodeCoAuthor(s.client, rec)
	return &c, nil
}

// Update rewrites the fields of an existing co-author.
func (s *CoAuthorService) Update(ctx context.Context, id, publicationID string, fields CoAuthorFields) (*CoAuthor, error) {
	rec, err := s.client.Update(ctx, CollectionCoAuthors, id, fields.Form(publicationID))
	if err != nil {
		return nil, err
	}
	c := decodeCoAuthor(s.client, rec)
	return &c, nil
}

// Delete removes a co-author.
func (s *CoAuthorService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, CollectionCoAuthors, id)
}
