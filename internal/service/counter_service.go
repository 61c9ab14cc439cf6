package service

import (
	"context"
	"fmt"

	"github.com/pubshare/internal/baas"
)

// CounterMode selects how counters are incremented.
type CounterMode string

const (
	// CounterReadModifyWrite reads the record and writes count+1. Concurrent
	// increments from the same base value lose updates.
	CounterReadModifyWrite CounterMode = "rmw"
	// CounterAtomic sends the backend "field+" modifier.
	CounterAtomic CounterMode = "atomic"
)

const (
	fieldViews     = "views_count"
	fieldDownloads = "downloads_count"
)

// CounterService increments publication counters.
type CounterService struct {
	client baas.Client
	mode   CounterMode
}

// NewCounterService creates a CounterService instance.
func NewCounterService(client baas.Client, mode CounterMode) *CounterService {
	if mode != CounterAtomic {
		mode = CounterReadModifyWrite
	}
	return &CounterService{client: client, mode: mode}
}

// IncrementViews adds one view and returns the stored value.
func (s *CounterService) IncrementViews(ctx context.Context, publicationID string) (int, error) {
	return s.increment(ctx, publicationID, fieldViews)
}

// IncrementDownloads adds one download and returns the stored value.
func (s *CounterService) IncrementDownloads(ctx context.Context, publicationID string) (int, error) {
	return s.increment(ctx, publicationID, fieldDownloads)
}

func (s *CounterService) increment(ctx context.Context, id, field string) (int, error) {
	var form *baas.Form
	if s.mode == CounterAtomic {
		form = baas.NewForm().Set(field+"+", 1)
	} else {
		rec, err := s.client.Get(ctx, CollectionPublications, id, baas.GetOptions{})
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", field, err)
		}
		form = baas.NewForm().Set(field, rec.GetInt(field)+1)
	}
	updated, err := s.client.Update(ctx, CollectionPublications, id, form)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", field, err)
	}
	return updated.GetInt(field), nil
}
