package repository

import (
	"context"
	"time"

	"github.com/tabletop-events/internal/domain"
)

// EventStore is the storage contract the geospatial query engine runs against.
// Any backend honoring these operations is substitutable; callers never branch
// on the backend type.
type EventStore interface {
	// GetShopsByCell returns all shops tagged with the given geohash cell,
	// at either index precision.
	GetShopsByCell(ctx context.Context, cell string) ([]domain.Shop, error)

	// GetEventsByDay returns all events whose start date falls on the given
	// day bucket (YYYY-MM-DD).
	GetEventsByDay(ctx context.Context, day string) ([]domain.Event, error)

	// GetEventsByShopAndDateRange returns a shop's events with start dates in
	// [from, to], ordered ascending by start date.
	GetEventsByShopAndDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Event, error)

	// SpatialIndexReady reports whether the cell index has been backfilled.
	// False or an error switches queries to the date-scan fallback.
	SpatialIndexReady(ctx context.Context) (bool, error)

	// UpsertShop writes a shop and maintains its cell tags. Idempotent,
	// keyed by shop id.
	UpsertShop(ctx context.Context, shop *domain.Shop) error

	// UpsertEvent writes an event and its day/shop secondary indexes.
	// Idempotent, keyed by event id.
	UpsertEvent(ctx context.Context, event *domain.Event) error

	// UpdateShopCity backfills the cached city label on a shop.
	UpdateShopCity(ctx context.Context, shopID, city string) error

	// ListShopsMissingCity returns up to limit geocoded shops whose city
	// label has not been backfilled yet.
	ListShopsMissingCity(ctx context.Context, limit int) ([]domain.Shop, error)
}
