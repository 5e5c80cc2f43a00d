package usecase

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
)

// highRangeIDBase keeps generated ids far above any id the providers assign,
// so synthesized entries can never collide with real ones.
const highRangeIDBase = int64(1) << 40

// placeLevelTypes are the feature classifications enqueued as-is. Anything
// else is reduced to its most specific place-level address attribute first.
var placeLevelTypes = map[string]bool{
	"city":           true,
	"town":           true,
	"village":        true,
	"hamlet":         true,
	"municipality":   true,
	"county":         true,
	"state":          true,
	"region":         true,
	"province":       true,
	"country":        true,
	"administrative": true,
	"place":          true,
	"locality":       true,
	"postcode":       true,
}

// PlaceQueue feeds places discovered through external providers back into
// the self-hosted geocoding index, so future lookups resolve locally.
// Enqueueing is best-effort and asynchronous; it never fails the resolution
// that triggered it. A separate batch step drains the queue.
type PlaceQueue struct {
	store  repository.PlaceQueueStore
	logger *zap.Logger

	bg sync.WaitGroup
}

func NewPlaceQueue(store repository.PlaceQueueStore, logger *zap.Logger) *PlaceQueue {
	return &PlaceQueue{
		store:  store,
		logger: logger,
	}
}

// EnqueueAsync schedules a durable enqueue without blocking the caller.
func (q *PlaceQueue) EnqueueAsync(result domain.GeocodeResult) {
	q.bg.Add(1)
	go func() {
		defer q.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error("Place enqueue panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundTaskTimeout)
		defer cancel()

		if err := q.Enqueue(ctx, result); err != nil {
			q.logger.Warn("Place enqueue failed",
				zap.String("name", result.Name), zap.Error(err))
		}
	}()
}

// Enqueue persists a pending-import record for the result, or for the
// place-level entry synthesized from it. Results carrying no usable place
// attribute are dropped silently.
func (q *PlaceQueue) Enqueue(ctx context.Context, result domain.GeocodeResult) error {
	place, ok := buildPendingPlace(result)
	if !ok {
		q.logger.Debug("Skipping result with no place-level attribute",
			zap.String("name", result.Name),
			zap.String("type", result.Type))
		return nil
	}

	return q.store.Enqueue(ctx, &place)
}

// Wait blocks until in-flight enqueues finish. Used on shutdown and by tests.
func (q *PlaceQueue) Wait() {
	q.bg.Wait()
}

func buildPendingPlace(result domain.GeocodeResult) (domain.PendingPlace, bool) {
	place := domain.PendingPlace{
		ID:         placeID(result),
		Latitude:   result.Latitude,
		Longitude:  result.Longitude,
		City:       result.City,
		County:     result.County,
		State:      result.State,
		Country:    result.Country,
		EnqueuedAt: time.Now().UTC(),
	}

	if placeLevelTypes[result.Type] {
		place.Name = result.Name
		place.Type = result.Type
		return place, true
	}

	// Non-place result (address, business, POI): synthesize the most
	// specific place-level entry its address carries, so e.g. a business
	// hit still contributes a county-level record.
	switch {
	case result.City != "":
		place.Name = result.City
		place.Type = "city"
	case result.County != "":
		place.Name = result.County
		place.Type = "county"
	case result.State != "":
		place.Name = result.State
		place.Type = "state"
	case result.Country != "":
		place.Name = result.Country
		place.Type = "country"
	default:
		return domain.PendingPlace{}, false
	}

	return place, true
}

func placeID(result domain.GeocodeResult) string {
	if result.PlaceID != 0 {
		return strconv.FormatInt(result.PlaceID, 10)
	}
	return strconv.FormatInt(highRangeIDBase+rand.Int63n(highRangeIDBase), 10)
}
