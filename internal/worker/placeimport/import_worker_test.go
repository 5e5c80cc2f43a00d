package placeimport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/geocoder/nominatim"
	"github.com/tabletop-events/internal/usecase"
)

type fakeQueue struct {
	mu      sync.Mutex
	pending map[string]domain.PendingPlace
}

func (f *fakeQueue) Enqueue(ctx context.Context, place *domain.PendingPlace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[place.ID] = *place
	return nil
}

func (f *fakeQueue) ListPending(ctx context.Context) ([]domain.PendingPlace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	places := make([]domain.PendingPlace, 0, len(f.pending))
	for _, place := range f.pending {
		places = append(places, place)
	}
	return places, nil
}

func (f *fakeQueue) Clear(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.pending, id)
	}
	return nil
}

type fakeShops struct {
	mu    sync.Mutex
	shops map[string]domain.Shop
}

func (f *fakeShops) GetShopsByCell(ctx context.Context, cell string) ([]domain.Shop, error) {
	return nil, nil
}

func (f *fakeShops) GetEventsByDay(ctx context.Context, day string) ([]domain.Event, error) {
	return nil, nil
}

func (f *fakeShops) GetEventsByShopAndDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Event, error) {
	return nil, nil
}

func (f *fakeShops) SpatialIndexReady(ctx context.Context) (bool, error) { return false, nil }

func (f *fakeShops) UpsertShop(ctx context.Context, shop *domain.Shop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shops[shop.ID] = *shop
	return nil
}

func (f *fakeShops) UpsertEvent(ctx context.Context, event *domain.Event) error { return nil }

func (f *fakeShops) UpdateShopCity(ctx context.Context, shopID, city string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	shop := f.shops[shopID]
	shop.City = city
	f.shops[shopID] = shop
	return nil
}

func (f *fakeShops) ListShopsMissingCity(ctx context.Context, limit int) ([]domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var shops []domain.Shop
	for _, shop := range f.shops {
		if shop.City == "" && shop.HasCoordinates() {
			shops = append(shops, shop)
			if len(shops) == limit {
				break
			}
		}
	}
	return shops, nil
}

func TestImportWorker_DrainQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("imports and clears pending places", func(t *testing.T) {
		var imported []domain.PendingPlace
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/import" {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&imported))
				w.WriteHeader(http.StatusCreated)
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		queue := &fakeQueue{pending: map[string]domain.PendingPlace{
			"1": {ID: "1", Name: "Chicago", Type: "city"},
			"2": {ID: "2", Name: "Springfield", Type: "city"},
		}}

		worker := newTestWorker(t, queue, &fakeShops{shops: map[string]domain.Shop{}}, server.URL)
		require.NoError(t, worker.drainQueue(ctx))

		assert.Len(t, imported, 2)
		assert.Empty(t, queue.pending)
	})

	t.Run("failed import leaves the queue intact", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		queue := &fakeQueue{pending: map[string]domain.PendingPlace{
			"1": {ID: "1", Name: "Chicago", Type: "city"},
		}}

		worker := newTestWorker(t, queue, &fakeShops{shops: map[string]domain.Shop{}}, server.URL)
		assert.Error(t, worker.drainQueue(ctx))
		assert.Len(t, queue.pending, 1)
	})

	t.Run("empty queue makes no import call", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer server.Close()

		queue := &fakeQueue{pending: map[string]domain.PendingPlace{}}

		worker := newTestWorker(t, queue, &fakeShops{shops: map[string]domain.Shop{}}, server.URL)
		require.NoError(t, worker.drainQueue(ctx))
		assert.Zero(t, calls)
	})
}

func TestImportWorker_BackfillCities(t *testing.T) {
	ctx := context.Background()

	t.Run("labels geocoded shops via reverse lookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/reverse" {
				w.Write([]byte(`{
					"place_id": 7, "lat": "37.7749", "lon": "-122.4194",
					"display_name": "San Francisco, California, United States",
					"type": "city", "name": "San Francisco",
					"address": {"city": "San Francisco", "state": "California", "country": "United States"}
				}`))
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		lat, lon := 37.7749, -122.4194
		shops := &fakeShops{shops: map[string]domain.Shop{
			"s1": {ID: "s1", Latitude: &lat, Longitude: &lon},
			"s2": {ID: "s2", City: "Already Labeled", Latitude: &lat, Longitude: &lon},
		}}

		worker := newTestWorker(t, &fakeQueue{pending: map[string]domain.PendingPlace{}}, shops, server.URL)
		require.NoError(t, worker.backfillCities(ctx))

		assert.Equal(t, "San Francisco", shops.shops["s1"].City)
		assert.Equal(t, "Already Labeled", shops.shops["s2"].City)
	})

	t.Run("reverse failure skips the shop", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		lat, lon := 37.7749, -122.4194
		shops := &fakeShops{shops: map[string]domain.Shop{
			"s1": {ID: "s1", Latitude: &lat, Longitude: &lon},
		}}

		worker := newTestWorker(t, &fakeQueue{pending: map[string]domain.PendingPlace{}}, shops, server.URL)
		require.NoError(t, worker.backfillCities(ctx))
		assert.Empty(t, shops.shops["s1"].City)
	})
}

// newTestWorker wires the worker against a Nominatim stub serving both the
// provider chain and the import endpoint.
func newTestWorker(t *testing.T, queue *fakeQueue, shops *fakeShops, nominatimURL string) *ImportWorker {
	t.Helper()
	logger := zap.NewNop()

	client := nominatim.NewClient(nominatimURL, 5*time.Second, logger)
	geocodeUC := usecase.NewGeocodeUseCase(nil, noopCache(logger), usecase.NewPlaceQueue(queue, logger), nil, client, nil, logger)

	return NewImportWorker(queue, shops, client, geocodeUC, time.Minute, 10, logger)
}

func noopCache(logger *zap.Logger) *usecase.GeocodeCache {
	return usecase.NewGeocodeCache(discardStore{}, logger, 10, 1)
}

type discardStore struct{}

func (discardStore) Get(ctx context.Context, key string) (*domain.GeocacheEntry, error) {
	return nil, nil
}
func (discardStore) Put(ctx context.Context, entry *domain.GeocacheEntry) error  { return nil }
func (discardStore) Touch(ctx context.Context, key string, at time.Time) error   { return nil }
func (discardStore) Count(ctx context.Context) (int64, error)                    { return 0, nil }
func (discardStore) DeleteOldest(ctx context.Context, n int) (int64, error)      { return 0, nil }
