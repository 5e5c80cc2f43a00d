package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
)

type fakePlaceQueueStore struct {
	mu         sync.Mutex
	pending    map[string]domain.PendingPlace
	enqueueErr error
}

func newFakePlaceQueueStore() *fakePlaceQueueStore {
	return &fakePlaceQueueStore{pending: make(map[string]domain.PendingPlace)}
}

func (f *fakePlaceQueueStore) Enqueue(ctx context.Context, place *domain.PendingPlace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.pending[place.ID] = *place
	return nil
}

func (f *fakePlaceQueueStore) ListPending(ctx context.Context) ([]domain.PendingPlace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	places := make([]domain.PendingPlace, 0, len(f.pending))
	for _, place := range f.pending {
		places = append(places, place)
	}
	return places, nil
}

func (f *fakePlaceQueueStore) Clear(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.pending, id)
	}
	return nil
}

func (f *fakePlaceQueueStore) single(t *testing.T) domain.PendingPlace {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.pending, 1)
	for _, place := range f.pending {
		return place
	}
	return domain.PendingPlace{}
}

func TestPlaceQueue_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("place-level result enqueued as-is", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		queue := NewPlaceQueue(store, zap.NewNop())

		err := queue.Enqueue(ctx, domain.GeocodeResult{
			Name:      "Chicago",
			Type:      "city",
			Latitude:  41.8781,
			Longitude: -87.6298,
			State:     "Illinois",
			Country:   "United States",
			PlaceID:   240109189,
		})
		require.NoError(t, err)

		place := store.single(t)
		assert.Equal(t, "240109189", place.ID)
		assert.Equal(t, "Chicago", place.Name)
		assert.Equal(t, "city", place.Type)
		assert.False(t, place.EnqueuedAt.IsZero())
	})

	t.Run("business result synthesizes most specific place level", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		queue := NewPlaceQueue(store, zap.NewNop())

		// No city on the result, so the county carries the entry.
		err := queue.Enqueue(ctx, domain.GeocodeResult{
			Name:      "Wayland Games Centre",
			Type:      "retail",
			Latitude:  51.5629,
			Longitude: 0.6306,
			County:    "Essex",
			Country:   "United Kingdom",
		})
		require.NoError(t, err)

		place := store.single(t)
		assert.Equal(t, "Essex", place.Name)
		assert.Equal(t, "county", place.Type)
		assert.Equal(t, "United Kingdom", place.Country)
	})

	t.Run("city outranks county in synthesis", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		queue := NewPlaceQueue(store, zap.NewNop())

		err := queue.Enqueue(ctx, domain.GeocodeResult{
			Name:   "Some Address 12",
			Type:   "house",
			City:   "Springfield",
			County: "Sangamon County",
			State:  "Illinois",
		})
		require.NoError(t, err)

		place := store.single(t)
		assert.Equal(t, "Springfield", place.Name)
		assert.Equal(t, "city", place.Type)
	})

	t.Run("result with no place attribute is dropped", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		queue := NewPlaceQueue(store, zap.NewNop())

		err := queue.Enqueue(ctx, domain.GeocodeResult{Name: "Mystery Pin", Type: "poi"})
		require.NoError(t, err)
		assert.Empty(t, store.pending)
	})

	t.Run("missing provider id gets a generated high-range id", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		queue := NewPlaceQueue(store, zap.NewNop())

		err := queue.Enqueue(ctx, domain.GeocodeResult{Name: "Springfield", Type: "city"})
		require.NoError(t, err)

		place := store.single(t)
		assert.NotEmpty(t, place.ID)
		assert.GreaterOrEqual(t, len(place.ID), 13)
	})
}

func TestPlaceQueue_EnqueueAsync(t *testing.T) {
	t.Run("persists in the background", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		queue := NewPlaceQueue(store, zap.NewNop())

		queue.EnqueueAsync(domain.GeocodeResult{Name: "Chicago", Type: "city", PlaceID: 7})
		queue.Wait()

		assert.Len(t, store.pending, 1)
	})

	t.Run("store failure never reaches the caller", func(t *testing.T) {
		store := newFakePlaceQueueStore()
		store.enqueueErr = errors.New("queue unavailable")
		queue := NewPlaceQueue(store, zap.NewNop())

		queue.EnqueueAsync(domain.GeocodeResult{Name: "Chicago", Type: "city", PlaceID: 7})
		queue.Wait()

		assert.Empty(t, store.pending)
	})
}
