package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
	"github.com/tabletop-events/internal/pkg/utils"
)

// eventStore is the relational implementation of the storage contract. It
// honors the same cell/day-bucket operations as the key/value backend so the
// query engine never branches on backend type, even though SQL could answer
// the radius question directly.
type eventStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewEventStore(db *DB) repository.EventStore {
	return &eventStore{
		db:     db.DB,
		logger: db.logger,
	}
}

const eventColumns = `
	id, name, description, location, address, city, state, country,
	latitude, longitude, start_date, start_time, end_date, event_type,
	organizer, player_count, max_players, price, url, image_url,
	shop_id, shop_name, shop_latitude, shop_longitude, cell
`

func (s *eventStore) GetShopsByCell(ctx context.Context, cell string) ([]domain.Shop, error) {
	column := "cell_fine"
	if len(cell) <= utils.CoarseCellPrecision {
		column = "cell_coarse"
	}

	query := `
		SELECT id, name, address, latitude, longitude, city, cell_coarse, cell_fine
		FROM shops
		WHERE ` + column + ` = $1
	`

	var shops []domain.Shop
	if err := s.db.SelectContext(ctx, &shops, query, cell); err != nil {
		s.logger.Error("Failed to query shops by cell", zap.String("cell", cell), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return shops, nil
}

func (s *eventStore) GetEventsByDay(ctx context.Context, day string) ([]domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE start_date >= $1::date AND start_date < $1::date + INTERVAL '1 day'
		ORDER BY start_date
	`

	var events []domain.Event
	if err := s.db.SelectContext(ctx, &events, query, day); err != nil {
		s.logger.Error("Failed to query events by day", zap.String("day", day), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return events, nil
}

func (s *eventStore) GetEventsByShopAndDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE shop_id = $1 AND start_date BETWEEN $2 AND $3
		ORDER BY start_date
	`

	var events []domain.Event
	if err := s.db.SelectContext(ctx, &events, query, shopID, from, to); err != nil {
		s.logger.Error("Failed to query events by shop",
			zap.String("shop_id", shopID), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return events, nil
}

func (s *eventStore) SpatialIndexReady(ctx context.Context) (bool, error) {
	// Cell tags are written on every upsert in the relational backend, so
	// the index is ready as soon as any tagged shop exists.
	var ready bool
	err := s.db.GetContext(ctx, &ready,
		`SELECT EXISTS (SELECT 1 FROM shops WHERE cell_coarse <> '')`)
	if err != nil {
		return false, err
	}
	return ready, nil
}

func (s *eventStore) UpsertShop(ctx context.Context, shop *domain.Shop) error {
	if shop.HasCoordinates() {
		shop.CellCoarse = utils.EncodeCell(*shop.Latitude, *shop.Longitude, utils.CoarseCellPrecision)
		shop.CellFine = utils.EncodeCell(*shop.Latitude, *shop.Longitude, utils.FineCellPrecision)
	}

	query := `
		INSERT INTO shops (id, name, address, latitude, longitude, city, cell_coarse, cell_fine)
		VALUES (:id, :name, :address, :latitude, :longitude, :city, :cell_coarse, :cell_fine)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			city = EXCLUDED.city,
			cell_coarse = EXCLUDED.cell_coarse,
			cell_fine = EXCLUDED.cell_fine
	`

	if _, err := s.db.NamedExecContext(ctx, query, shop); err != nil {
		s.logger.Error("Failed to upsert shop", zap.String("shop_id", shop.ID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *eventStore) UpsertEvent(ctx context.Context, event *domain.Event) error {
	if event.ShopLatitude != nil && event.ShopLongitude != nil {
		event.Cell = utils.EncodeCell(*event.ShopLatitude, *event.ShopLongitude, utils.CoarseCellPrecision)
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (
			:id, :name, :description, :location, :address, :city, :state, :country,
			:latitude, :longitude, :start_date, :start_time, :end_date, :event_type,
			:organizer, :player_count, :max_players, :price, :url, :image_url,
			:shop_id, :shop_name, :shop_latitude, :shop_longitude, :cell
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			start_date = EXCLUDED.start_date,
			start_time = EXCLUDED.start_time,
			end_date = EXCLUDED.end_date,
			event_type = EXCLUDED.event_type,
			organizer = EXCLUDED.organizer,
			player_count = EXCLUDED.player_count,
			max_players = EXCLUDED.max_players,
			price = EXCLUDED.price,
			url = EXCLUDED.url,
			image_url = EXCLUDED.image_url,
			shop_id = EXCLUDED.shop_id,
			shop_name = EXCLUDED.shop_name,
			shop_latitude = EXCLUDED.shop_latitude,
			shop_longitude = EXCLUDED.shop_longitude,
			cell = EXCLUDED.cell
	`

	if _, err := s.db.NamedExecContext(ctx, query, event); err != nil {
		s.logger.Error("Failed to upsert event", zap.String("event_id", event.ID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *eventStore) UpdateShopCity(ctx context.Context, shopID, city string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE shops SET city = $2 WHERE id = $1`, shopID, city); err != nil {
		s.logger.Error("Failed to update shop city", zap.String("shop_id", shopID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}
	return nil
}

func (s *eventStore) ListShopsMissingCity(ctx context.Context, limit int) ([]domain.Shop, error) {
	query := `
		SELECT id, name, address, latitude, longitude, city, cell_coarse, cell_fine
		FROM shops
		WHERE city = '' AND latitude IS NOT NULL AND longitude IS NOT NULL
		LIMIT $1
	`

	var shops []domain.Shop
	if err := s.db.SelectContext(ctx, &shops, query, limit); err != nil {
		s.logger.Error("Failed to list shops missing city", zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return shops, nil
}
