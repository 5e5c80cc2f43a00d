package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
)

type geocacheStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewGeocacheStore(db *DB) repository.GeocacheStore {
	return &geocacheStore{
		db:     db.DB,
		logger: db.logger,
	}
}

func (s *geocacheStore) Get(ctx context.Context, key string) (*domain.GeocacheEntry, error) {
	var entry domain.GeocacheEntry
	err := s.db.GetContext(ctx, &entry,
		`SELECT key, latitude, longitude, display_name, last_accessed FROM geocache WHERE key = $1`,
		key)
	if err == sql.ErrNoRows {
		return nil, nil // cache miss
	}
	if err != nil {
		s.logger.Error("Failed to get geocache entry", zap.String("key", key), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return &entry, nil
}

func (s *geocacheStore) Put(ctx context.Context, entry *domain.GeocacheEntry) error {
	query := `
		INSERT INTO geocache (key, latitude, longitude, display_name, last_accessed)
		VALUES (:key, :latitude, :longitude, :display_name, :last_accessed)
		ON CONFLICT (key) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			display_name = EXCLUDED.display_name,
			last_accessed = EXCLUDED.last_accessed
	`

	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		s.logger.Error("Failed to put geocache entry", zap.String("key", entry.Key), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *geocacheStore) Touch(ctx context.Context, key string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE geocache SET last_accessed = $2 WHERE key = $1`, key, at); err != nil {
		s.logger.Error("Failed to touch geocache entry", zap.String("key", key), zap.Error(err))
		return apperrors.ErrDatabaseError
	}
	return nil
}

func (s *geocacheStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM geocache`); err != nil {
		return 0, apperrors.ErrDatabaseError
	}
	return count, nil
}

func (s *geocacheStore) DeleteOldest(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	var keys []string
	err := s.db.SelectContext(ctx, &keys,
		`SELECT key FROM geocache ORDER BY last_accessed ASC LIMIT $1`, n)
	if err != nil {
		return 0, apperrors.ErrDatabaseError
	}
	if len(keys) == 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM geocache WHERE key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return 0, apperrors.ErrDatabaseError
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}
