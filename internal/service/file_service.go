package service

import (
	"context"

	"github.com/pubshare/internal/baas"
)

// FileService wraps the publication_files collection.
type FileService struct {
	client baas.Client
}

// NewFileService creates a FileService instance.
func NewFileService(client baas.Client) *FileService {
	return &FileService{client: client}
}

// List returns the files of a publication, oldest first.
func (s *FileService) List(ctx context.Context, publicationID string) ([]PublicationFile, error) {
	res, err := s.client.List(ctx, CollectionPublicationFiles, 1, childListSize, baas.ListOptions{
		Sort:   "created",
		Filter: baas.Filter("publication = {:id}", baas.Params{"id": publicationID}),
	})
	if err != nil {
		return nil, err
	}
	out := make([]PublicationFile, 0, len(res.Items))
	for _, rec := range res.Items {
		out = append(out, decodeFile(s.client, rec))
	}
	return out, nil
}

// Get returns a single file record.
func (s *FileService) Get(ctx context.Context, id string) (*PublicationFile, error) {
	rec, err := s.client.Get(ctx, CollectionPublicationFiles, id, baas.GetOptions{})
	if err != nil {
		return nil, err
	}
	f := decodeFile(s.client, rec)
	return &f, nil
}

// Create uploads a file for a publication.
func (s *FileService) Create(ctx context.Context, publicationID string, fields FileFields) (*PublicationFile, error) {
	rec, err := s.client.Create(ctx, CollectionPublicationFiles, fields.Form(publicationID))
	if err != nil {
		return nil, err
	}
	f := decodeFile(s.client, rec)
	return &f, nil
}

// UpdateMetadata rewrites the descriptive fields of a stored file.
func (s *FileService) UpdateMetadata(ctx context.Context, id string, fields FileFields) (*PublicationFile, error) {
	rec, err := s.client.Update(ctx, CollectionPublicationFiles, id, fields.metadataForm())
	if err != nil {
		return nil, err
	}
	f := decodeFile(s.client, rec)
	return &f, nil
}

// Delete removes a file.
func (s *FileService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, CollectionPublicationFiles, id)
}
