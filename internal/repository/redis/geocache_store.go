package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
)

// geocacheStore persists geocoding results as JSON records plus a recency
// zset scored by last-accessed time. The zset is the only eviction ordering;
// it tolerates the bump-versus-evict race.
type geocacheStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewGeocacheStore(r *Redis) repository.GeocacheStore {
	return &geocacheStore{
		client: r.Client(),
		logger: r.logger,
	}
}

const recencyKey = "geocache:recency"

func entryKey(key string) string { return "geocache:entry:" + key }

func (s *geocacheStore) Get(ctx context.Context, key string) (*domain.GeocacheEntry, error) {
	raw, err := s.client.Get(ctx, entryKey(key)).Result()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		s.logger.Error("Failed to get geocache entry", zap.String("key", key), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	var entry domain.GeocacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocache entry: %w", err)
	}

	return &entry, nil
}

func (s *geocacheStore) Put(ctx context.Context, entry *domain.GeocacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geocache entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryKey(entry.Key), data, 0)
	pipe.ZAdd(ctx, recencyKey, redis.Z{
		Score:  float64(entry.LastAccessed.UnixMilli()),
		Member: entry.Key,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to put geocache entry", zap.String("key", entry.Key), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *geocacheStore) Touch(ctx context.Context, key string, at time.Time) error {
	// Only bump members that still exist; a touch must never resurrect an
	// entry the eviction just removed.
	err := s.client.ZAddArgs(ctx, recencyKey, redis.ZAddArgs{
		XX: true,
		Members: []redis.Z{{
			Score:  float64(at.UnixMilli()),
			Member: key,
		}},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to touch geocache entry: %w", err)
	}
	return nil
}

func (s *geocacheStore) Count(ctx context.Context) (int64, error) {
	count, err := s.client.ZCard(ctx, recencyKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count geocache entries: %w", err)
	}
	return count, nil
}

func (s *geocacheStore) DeleteOldest(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	keys, err := s.client.ZRange(ctx, recencyKey, 0, int64(n-1)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to range recency set: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	entryKeys := make([]string, len(keys))
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		entryKeys[i] = entryKey(k)
		members[i] = k
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, entryKeys...)
	pipe.ZRem(ctx, recencyKey, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete oldest entries: %w", err)
	}

	s.logger.Debug("Evicted geocache entries", zap.Int("count", len(keys)))
	return int64(len(keys)), nil
}
