package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/config"
	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/pkg/utils"
)

// testRedis connects to a local Redis or skips. Uses a high DB index to stay
// out of any real data.
func testRedis(t *testing.T) *Redis {
	t.Helper()

	r, err := NewRedis(&config.RedisConfig{Host: "localhost", Port: 6379, DB: 15}, zap.NewNop())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		r.Client().FlushDB(context.Background())
		r.Close()
	})
	return r
}

func ptr(v float64) *float64 { return &v }

func TestEventStore_ShopCellIndex(t *testing.T) {
	r := testRedis(t)
	store := NewEventStore(r, 30*24*time.Hour)
	ctx := context.Background()

	shop := &domain.Shop{
		ID:        uuid.NewString(),
		Name:      "Gamescape",
		Latitude:  ptr(37.7749),
		Longitude: ptr(-122.4194),
		City:      "San Francisco",
	}
	require.NoError(t, store.UpsertShop(ctx, shop))

	t.Run("tagged at both precisions", func(t *testing.T) {
		coarse := utils.EncodeCell(37.7749, -122.4194, utils.CoarseCellPrecision)
		fine := utils.EncodeCell(37.7749, -122.4194, utils.FineCellPrecision)

		shops, err := store.GetShopsByCell(ctx, coarse)
		require.NoError(t, err)
		require.Len(t, shops, 1)
		assert.Equal(t, shop.ID, shops[0].ID)

		shops, err = store.GetShopsByCell(ctx, fine)
		require.NoError(t, err)
		assert.Len(t, shops, 1)
	})

	t.Run("moving a shop drops the old cell membership", func(t *testing.T) {
		oldCoarse := shop.CellCoarse

		moved := *shop
		moved.Latitude = ptr(40.7128)
		moved.Longitude = ptr(-74.0060)
		moved.CellCoarse = ""
		moved.CellFine = ""
		require.NoError(t, store.UpsertShop(ctx, &moved))

		shops, err := store.GetShopsByCell(ctx, oldCoarse)
		require.NoError(t, err)
		assert.Empty(t, shops)

		newCoarse := utils.EncodeCell(40.7128, -74.0060, utils.CoarseCellPrecision)
		shops, err = store.GetShopsByCell(ctx, newCoarse)
		require.NoError(t, err)
		assert.Len(t, shops, 1)
	})

	t.Run("empty cell", func(t *testing.T) {
		shops, err := store.GetShopsByCell(ctx, "zzz")
		require.NoError(t, err)
		assert.Empty(t, shops)
	})
}

func TestEventStore_EventBuckets(t *testing.T) {
	r := testRedis(t)
	store := NewEventStore(r, 30*24*time.Hour)
	ctx := context.Background()

	shopID := uuid.NewString()
	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Hour)

	for i := 0; i < 3; i++ {
		event := &domain.Event{
			ID:            fmt.Sprintf("%s-%d", shopID, i),
			Name:          "Event",
			ShopID:        shopID,
			ShopLatitude:  ptr(37.7749),
			ShopLongitude: ptr(-122.4194),
			StartDate:     start.AddDate(0, 0, i),
		}
		require.NoError(t, store.UpsertEvent(ctx, event))
	}

	t.Run("day bucket", func(t *testing.T) {
		events, err := store.GetEventsByDay(ctx, start.Format("2006-01-02"))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, shopID+"-0", events[0].ID)
		// Cell derives from the shop coordinates.
		assert.Len(t, events[0].Cell, utils.CoarseCellPrecision)
	})

	t.Run("shop date range", func(t *testing.T) {
		events, err := store.GetEventsByShopAndDateRange(ctx, shopID, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		event := &domain.Event{
			ID:        shopID + "-0",
			Name:      "Event renamed",
			ShopID:    shopID,
			StartDate: start,
		}
		require.NoError(t, store.UpsertEvent(ctx, event))

		events, err := store.GetEventsByDay(ctx, start.Format("2006-01-02"))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Event renamed", events[0].Name)
	})

	t.Run("shop event set expires with its latest member", func(t *testing.T) {
		ttl, err := r.Client().TTL(ctx, shopEventsKey(shopID)).Result()
		require.NoError(t, err)
		require.Positive(t, ttl)
		// Latest member starts in 9 days, retention is 30.
		assert.Greater(t, ttl, 38*24*time.Hour)

		// Upserting an earlier event must not shorten the expiry.
		early := &domain.Event{
			ID:        shopID + "-early",
			Name:      "Event",
			ShopID:    shopID,
			StartDate: start.AddDate(0, 0, -5),
		}
		require.NoError(t, store.UpsertEvent(ctx, early))

		after, err := r.Client().TTL(ctx, shopEventsKey(shopID)).Result()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, after, ttl-time.Minute)
	})
}

func TestEventStore_SpatialIndexReady(t *testing.T) {
	r := testRedis(t)
	store := NewEventStore(r, 30*24*time.Hour)
	ctx := context.Background()

	t.Run("missing key means not ready", func(t *testing.T) {
		ready, err := store.SpatialIndexReady(ctx)
		require.NoError(t, err)
		assert.False(t, ready)
	})

	t.Run("flag set", func(t *testing.T) {
		require.NoError(t, r.Client().Set(ctx, "spatial:index:ready", "1", 0).Err())
		ready, err := store.SpatialIndexReady(ctx)
		require.NoError(t, err)
		assert.True(t, ready)
	})
}

func TestEventStore_CityBackfill(t *testing.T) {
	r := testRedis(t)
	store := NewEventStore(r, 30*24*time.Hour)
	ctx := context.Background()

	geocoded := &domain.Shop{
		ID:        uuid.NewString(),
		Name:      "No City Yet",
		Latitude:  ptr(37.7749),
		Longitude: ptr(-122.4194),
	}
	require.NoError(t, store.UpsertShop(ctx, geocoded))

	labeled := &domain.Shop{
		ID:        uuid.NewString(),
		Name:      "Labeled",
		Latitude:  ptr(37.7749),
		Longitude: ptr(-122.4194),
		City:      "San Francisco",
	}
	require.NoError(t, store.UpsertShop(ctx, labeled))

	t.Run("only unlabeled shops listed", func(t *testing.T) {
		shops, err := store.ListShopsMissingCity(ctx, 10)
		require.NoError(t, err)
		require.Len(t, shops, 1)
		assert.Equal(t, geocoded.ID, shops[0].ID)
	})

	t.Run("backfill removes the shop from the list", func(t *testing.T) {
		require.NoError(t, store.UpdateShopCity(ctx, geocoded.ID, "San Francisco"))

		shops, err := store.ListShopsMissingCity(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, shops)

		coarse := utils.EncodeCell(37.7749, -122.4194, utils.CoarseCellPrecision)
		found, err := store.GetShopsByCell(ctx, coarse)
		require.NoError(t, err)
		for _, s := range found {
			if s.ID == geocoded.ID {
				assert.Equal(t, "San Francisco", s.City)
			}
		}
	})
}
