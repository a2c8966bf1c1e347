// Package sequence hands out ticket numbers. Numbers are unique per category and increase
// monotonically; a number consumed by a submit that later fails is not reused.
package sequence

import (
	"context"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
)

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{
		store: store,
	}
}

func (s *Service) Next(ctx context.Context, category string) (int, error) {
	var value int
	if err := s.store.Tx(ctx, func(r repository.Repositories) (err error) {
		value, err = r.Counters().Next(ctx, category)
		return
	}); err != nil {
		return 0, fmt.Errorf("allocate sequence for %s: %w", category, err)
	}

	return value, nil
}
