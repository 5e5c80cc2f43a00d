package repository

import (
	"context"

	"github.com/tabletop-events/internal/domain"
)

// PlaceQueueStore holds places pending import into the self-hosted geocoding
// index. Enqueue is an idempotent upsert keyed by place id, so overlapping
// requests writing the same place are safe.
type PlaceQueueStore interface {
	Enqueue(ctx context.Context, place *domain.PendingPlace) error
	ListPending(ctx context.Context) ([]domain.PendingPlace, error)
	Clear(ctx context.Context, ids []string) error
}
