package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
)

// placeQueueStore keeps pending place imports in a single hash keyed by place
// id, so duplicate enqueues from overlapping requests collapse into one row.
type placeQueueStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewPlaceQueueStore(r *Redis) repository.PlaceQueueStore {
	return &placeQueueStore{
		client: r.Client(),
		logger: r.logger,
	}
}

const pendingKey = "placequeue:pending"

func (s *placeQueueStore) Enqueue(ctx context.Context, place *domain.PendingPlace) error {
	data, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("failed to marshal pending place: %w", err)
	}

	if err := s.client.HSet(ctx, pendingKey, place.ID, data).Err(); err != nil {
		s.logger.Error("Failed to enqueue place", zap.String("place_id", place.ID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	s.logger.Debug("Place enqueued for import",
		zap.String("place_id", place.ID),
		zap.String("name", place.Name),
		zap.String("type", place.Type))
	return nil
}

func (s *placeQueueStore) ListPending(ctx context.Context) ([]domain.PendingPlace, error) {
	rows, err := s.client.HGetAll(ctx, pendingKey).Result()
	if err != nil {
		s.logger.Error("Failed to list pending places", zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	places := make([]domain.PendingPlace, 0, len(rows))
	for id, raw := range rows {
		var place domain.PendingPlace
		if err := json.Unmarshal([]byte(raw), &place); err != nil {
			s.logger.Warn("Skipping malformed pending place", zap.String("place_id", id), zap.Error(err))
			continue
		}
		places = append(places, place)
	}

	return places, nil
}

func (s *placeQueueStore) Clear(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.client.HDel(ctx, pendingKey, ids...).Err(); err != nil {
		s.logger.Error("Failed to clear pending places", zap.Int("count", len(ids)), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}
