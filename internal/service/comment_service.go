package service

import (
	"context"
	"strings"

	"github.com/pubshare/internal/baas"
)

// CommentService wraps the comments collection.
type CommentService struct {
	client baas.Client
}

// NewCommentService creates a CommentService instance.
func NewCommentService(client baas.Client) *CommentService {
	return &CommentService{client: client}
}

// List returns the first comments of a publication, oldest first.
func (s *CommentService) List(ctx context.Context, publicationID string) ([]Comment, error) {
	res, err := s.client.List(ctx, CollectionComments, 1, childListSize, baas.ListOptions{
		Expand: "user",
		Sort:   "created",
		Filter: baas.Filter("publication = {:id}", baas.Params{"id": publicationID}),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Comment, 0, len(res.Items))
	for _, rec := range res.Items {
		out = append(out, decodeComment(s.client, rec))
	}
	return out, nil
}

// Create posts a comment as the signed in user.
func (s *CommentService) Create(ctx context.Context, publicationID, content string) (*Comment, error) {
	model := s.client.AuthStore().Model()
	if model == nil || !s.client.AuthStore().IsValid() {
		return nil, ErrNotAuthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyComment
	}
	rec, err := s.client.Create(ctx, CollectionComments, baas.NewForm().
		Set("publication", publicationID).
		Set("user", model.ID).
		Set("content", content))
	if err != nil {
		return nil, err
	}
	c := decodeComment(s.client, rec)
	if c.Author == nil {
		c.Author = decodeUser(s.client, model)
	}
	return &c, nil
}
