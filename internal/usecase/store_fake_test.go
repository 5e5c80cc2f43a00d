package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/pkg/utils"
)

// fakeEventStore is an in-memory EventStore honoring the same cell and
// day-bucket semantics as the real backends.
type fakeEventStore struct {
	mu     sync.Mutex
	shops  map[string]domain.Shop
	events map[string]domain.Event

	indexReady bool
	readyErr   error
	cellErr    error
	dayErr     error

	cellQueries int
	dayQueries  int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		shops:      make(map[string]domain.Shop),
		events:     make(map[string]domain.Event),
		indexReady: true,
	}
}

func (f *fakeEventStore) addShop(id string, lat, lon float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shops[id] = domain.Shop{
		ID:         id,
		Name:       "Shop " + id,
		Latitude:   &lat,
		Longitude:  &lon,
		CellCoarse: utils.EncodeCell(lat, lon, utils.CoarseCellPrecision),
		CellFine:   utils.EncodeCell(lat, lon, utils.FineCellPrecision),
	}
}

func (f *fakeEventStore) addEvent(event domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if shop, ok := f.shops[event.ShopID]; ok {
		event.ShopName = shop.Name
		event.ShopLatitude = shop.Latitude
		event.ShopLongitude = shop.Longitude
	}
	f.events[event.ID] = event
}

func (f *fakeEventStore) GetShopsByCell(ctx context.Context, cell string) ([]domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cellQueries++
	if f.cellErr != nil {
		return nil, f.cellErr
	}

	var shops []domain.Shop
	for _, shop := range f.shops {
		tag := shop.CellFine
		if len(cell) <= utils.CoarseCellPrecision {
			tag = shop.CellCoarse
		}
		if tag == cell {
			shops = append(shops, shop)
		}
	}
	return shops, nil
}

func (f *fakeEventStore) GetEventsByDay(ctx context.Context, day string) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dayQueries++
	if f.dayErr != nil {
		return nil, f.dayErr
	}

	var events []domain.Event
	for _, event := range f.events {
		if event.DateKey() == day {
			events = append(events, event)
		}
	}
	return events, nil
}

func (f *fakeEventStore) GetEventsByShopAndDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []domain.Event
	for _, event := range f.events {
		if event.ShopID != shopID {
			continue
		}
		if event.StartDate.Before(from) || event.StartDate.After(to) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (f *fakeEventStore) SpatialIndexReady(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexReady, f.readyErr
}

func (f *fakeEventStore) UpsertShop(ctx context.Context, shop *domain.Shop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shops[shop.ID] = *shop
	return nil
}

func (f *fakeEventStore) UpsertEvent(ctx context.Context, event *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = *event
	return nil
}

func (f *fakeEventStore) UpdateShopCity(ctx context.Context, shopID, city string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	shop, ok := f.shops[shopID]
	if !ok {
		return nil
	}
	shop.City = city
	f.shops[shopID] = shop
	return nil
}

func (f *fakeEventStore) ListShopsMissingCity(ctx context.Context, limit int) ([]domain.Shop, error) {
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
