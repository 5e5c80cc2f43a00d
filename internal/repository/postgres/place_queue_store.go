package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
)

type placeQueueStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPlaceQueueStore(db *DB) repository.PlaceQueueStore {
	return &placeQueueStore{
		db:     db.DB,
		logger: db.logger,
	}
}

func (s *placeQueueStore) Enqueue(ctx context.Context, place *domain.PendingPlace) error {
	query := `
		INSERT INTO place_queue (id, name, type, latitude, longitude, city, county, state, country, enqueued_at)
		VALUES (:id, :name, :type, :latitude, :longitude, :city, :county, :state, :country, :enqueued_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			city = EXCLUDED.city,
			county = EXCLUDED.county,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			enqueued_at = EXCLUDED.enqueued_at
	`

	if _, err := s.db.NamedExecContext(ctx, query, place); err != nil {
		s.logger.Error("Failed to enqueue place", zap.String("place_id", place.ID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *placeQueueStore) ListPending(ctx context.Context) ([]domain.PendingPlace, error) {
	var places []domain.PendingPlace
	err := s.db.SelectContext(ctx, &places,
		`SELECT id, name, type, latitude, longitude, city, county, state, country, enqueued_at
		 FROM place_queue ORDER BY enqueued_at`)
	if err != nil {
		s.logger.Error("Failed to list pending places", zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return places, nil
}

func (s *placeQueueStore) Clear(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM place_queue WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		s.logger.Error("Failed to clear pending places", zap.Int("count", len(ids)), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}
