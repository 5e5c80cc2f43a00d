package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
)

const backgroundTaskTimeout = 5 * time.Second

// NormalizeQuery produces the cache key for a geocoding query. At most one
// entry exists per normalized key; last write wins.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// GeocodeCache is a bounded, persistently backed LRU over resolved geocoding
// queries. Recency bumps and eviction run as fire-and-forget tasks: they must
// never delay the read or write they accompany, and their failures are
// swallowed. The result is an approximate LRU, not an exact one.
type GeocodeCache struct {
	store      repository.GeocacheStore
	logger     *zap.Logger
	maxEntries int
	evictBatch int

	bg sync.WaitGroup
}

func NewGeocodeCache(
	store repository.GeocacheStore,
	logger *zap.Logger,
	maxEntries int,
	evictBatch int,
) *GeocodeCache {
	return &GeocodeCache{
		store:      store,
		logger:     logger,
		maxEntries: maxEntries,
		evictBatch: evictBatch,
	}
}

// Lookup returns the cached entry for a query, or nil on a miss. A hit bumps
// the entry's recency in the background; only the stored timestamp changes,
// never the resolved fields.
func (c *GeocodeCache) Lookup(ctx context.Context, query string) *domain.GeocacheEntry {
	key := NormalizeQuery(query)

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken cache read is a miss, not a failure.
		c.logger.Warn("Geocache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if entry == nil {
		return nil
	}

	c.background(func(bgCtx context.Context) {
		if err := c.store.Touch(bgCtx, key, time.Now().UTC()); err != nil {
			c.logger.Debug("Geocache recency bump failed", zap.String("key", key), zap.Error(err))
		}
	})

	return entry
}

// Store upserts a resolved location under the normalized query key and then
// schedules an eviction check. The whole operation is fire-and-forget, but
// the authoritative write is always attempted before the eviction check for
// the same key runs.
func (c *GeocodeCache) Store(ctx context.Context, query string, loc domain.Location) {
	key := NormalizeQuery(query)
	entry := &domain.GeocacheEntry{
		Key:          key,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		DisplayName:  loc.DisplayName,
		LastAccessed: time.Now().UTC(),
	}

	c.background(func(bgCtx context.Context) {
		if err := c.store.Put(bgCtx, entry); err != nil {
			c.logger.Warn("Geocache write failed", zap.String("key", key), zap.Error(err))
			return
		}
		c.evictIfOver(bgCtx)
	})
}

// evictIfOver trims the cache back toward the ceiling by deleting one batch
// of the least-recently-accessed entries. Losing capacity control is
// acceptable; blocking a write is not, so every failure here is swallowed.
func (c *GeocodeCache) evictIfOver(ctx context.Context) {
	count, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Debug("Geocache count failed", zap.Error(err))
		return
	}
	if count <= int64(c.maxEntries) {
		return
	}

	deleted, err := c.store.DeleteOldest(ctx, c.evictBatch)
	if err != nil {
		c.logger.Debug("Geocache eviction failed", zap.Error(err))
		return
	}

	c.logger.Info("Geocache evicted oldest entries",
		zap.Int64("count_before", count),
		zap.Int64("deleted", deleted))
}

func (c *GeocodeCache) background(fn func(context.Context)) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Geocache background task panicked", zap.Any("panic", r))
			}
		}()

		// Detached from the request context: the caller's response must
		// not wait on, or be cancelled with, these side effects.
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTaskTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until all in-flight background tasks finish. Used on shutdown
// and by tests.
func (c *GeocodeCache) Wait() {
	c.bg.Wait()
}
