package repository

import (
	"context"
	"time"

	"github.com/tabletop-events/internal/domain"
)

// GeocacheStore persists resolved geocoding results. It is the source of
// truth for cached lookups, not a memory-only layer.
type GeocacheStore interface {
	// Get returns the entry for a normalized key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*domain.GeocacheEntry, error)

	// Put upserts an entry. Last write wins per key.
	Put(ctx context.Context, entry *domain.GeocacheEntry) error

	// Touch updates only the last-accessed timestamp of an existing entry.
	Touch(ctx context.Context, key string, at time.Time) error

	// Count returns the number of cached entries.
	Count(ctx context.Context) (int64, error)

	// DeleteOldest removes up to n entries in ascending last-accessed order
	// and returns how many were removed.
	DeleteOldest(ctx context.Context, n int) (int64, error)
}
