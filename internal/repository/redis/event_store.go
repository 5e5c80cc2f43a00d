package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
	"github.com/tabletop-events/internal/pkg/utils"
)

// eventStore implements the storage contract on plain redis, which has no
// native geospatial query. Shops are tagged into geohash cell sets at both
// index precisions; events get a day-bucket set and a per-shop zset scored
// by start time.
type eventStore struct {
	client    *redis.Client
	logger    *zap.Logger
	retention time.Duration
}

func NewEventStore(r *Redis, retention time.Duration) repository.EventStore {
	return &eventStore{
		client:    r.Client(),
		logger:    r.logger,
		retention: retention,
	}
}

const (
	readyKey       = "spatial:index:ready"
	missingCityKey = "shops:missing_city"
)

func shopKey(id string) string   { return "shop:" + id }
func eventKey(id string) string  { return "event:" + id }
func dayKey(day string) string   { return "events:day:" + day }
func shopEventsKey(id string) string {
	return "events:shop:" + id
}

func cellKey(cell string) string {
	return "cell:" + strconv.Itoa(len(cell)) + ":" + cell
}

func (s *eventStore) GetShopsByCell(ctx context.Context, cell string) ([]domain.Shop, error) {
	ids, err := s.client.SMembers(ctx, cellKey(cell)).Result()
	if err != nil {
		s.logger.Error("Failed to read cell set", zap.String("cell", cell), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = shopKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.logger.Error("Failed to fetch shops", zap.Int("count", len(keys)), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	shops := make([]domain.Shop, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Shop record expired or deleted; the cell set entry is stale.
			continue
		}
		var shop domain.Shop
		if err := json.Unmarshal([]byte(raw), &shop); err != nil {
			s.logger.Warn("Skipping malformed shop record", zap.Error(err))
			continue
		}
		shops = append(shops, shop)
	}

	return shops, nil
}

func (s *eventStore) GetEventsByDay(ctx context.Context, day string) ([]domain.Event, error) {
	ids, err := s.client.SMembers(ctx, dayKey(day)).Result()
	if err != nil {
		s.logger.Error("Failed to read day bucket", zap.String("day", day), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return s.fetchEvents(ctx, ids)
}

func (s *eventStore) GetEventsByShopAndDateRange(ctx context.Context, shopID string, from, to time.Time) ([]domain.Event, error) {
	ids, err := s.client.ZRangeByScore(ctx, shopEventsKey(shopID), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.Unix(), 10),
		Max: strconv.FormatInt(to.Unix(), 10),
	}).Result()
	if err != nil {
		s.logger.Error("Failed to read shop event range",
			zap.String("shop_id", shopID), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	return s.fetchEvents(ctx, ids)
}

func (s *eventStore) fetchEvents(ctx context.Context, ids []string) ([]domain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = eventKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.logger.Error("Failed to fetch events", zap.Int("count", len(keys)), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	events := make([]domain.Event, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Expired by retention; index entries outlive the record.
			continue
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			s.logger.Warn("Skipping malformed event record", zap.Error(err))
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func (s *eventStore) SpatialIndexReady(ctx context.Context) (bool, error) {
	val, err := s.client.Get(ctx, readyKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read index readiness: %w", err)
	}
	return val == "1", nil
}

func (s *eventStore) UpsertShop(ctx context.Context, shop *domain.Shop) error {
	if shop.HasCoordinates() {
		shop.CellCoarse = utils.EncodeCell(*shop.Latitude, *shop.Longitude, utils.CoarseCellPrecision)
		shop.CellFine = utils.EncodeCell(*shop.Latitude, *shop.Longitude, utils.FineCellPrecision)
	}

	// A re-geocoded shop may have moved cells; drop the old memberships.
	var old domain.Shop
	if raw, err := s.client.Get(ctx, shopKey(shop.ID)).Result(); err == nil {
		_ = json.Unmarshal([]byte(raw), &old)
	}

	data, err := json.Marshal(shop)
	if err != nil {
		return fmt.Errorf("failed to marshal shop: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, shopKey(shop.ID), data, 0)

	if old.CellCoarse != "" && old.CellCoarse != shop.CellCoarse {
		pipe.SRem(ctx, cellKey(old.CellCoarse), shop.ID)
	}
	if old.CellFine != "" && old.CellFine != shop.CellFine {
		pipe.SRem(ctx, cellKey(old.CellFine), shop.ID)
	}
	if shop.CellCoarse != "" {
		pipe.SAdd(ctx, cellKey(shop.CellCoarse), shop.ID)
	}
	if shop.CellFine != "" {
		pipe.SAdd(ctx, cellKey(shop.CellFine), shop.ID)
	}

	if shop.HasCoordinates() && shop.City == "" {
		pipe.SAdd(ctx, missingCityKey, shop.ID)
	} else {
		pipe.SRem(ctx, missingCityKey, shop.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to upsert shop", zap.String("shop_id", shop.ID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *eventStore) UpsertEvent(ctx context.Context, event *domain.Event) error {
	if event.ShopLatitude != nil && event.ShopLongitude != nil {
		event.Cell = utils.EncodeCell(*event.ShopLatitude, *event.ShopLongitude, utils.CoarseCellPrecision)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Records expire a retention window past the event date; index entries
	// expire with their bucket and stale members are skipped on read.
	ttl := time.Until(event.StartDate.Add(s.retention))
	if ttl <= 0 {
		ttl = time.Hour
	}

	day := event.DateKey()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, eventKey(event.ID), data, ttl)
	pipe.SAdd(ctx, dayKey(day), event.ID)
	pipe.Expire(ctx, dayKey(day), ttl)
	if event.ShopID != "" {
		zsetKey := shopEventsKey(event.ShopID)
		pipe.ZAdd(ctx, zsetKey, redis.Z{
			Score:  float64(event.StartDate.Unix()),
			Member: event.ID,
		})
		// The zset must outlive its longest-lived member. NX seeds a TTL
		// on a fresh key; GT extends it when a later event arrives and is
		// a no-op when an earlier one would shorten it.
		pipe.ExpireNX(ctx, zsetKey, ttl)
		pipe.ExpireGT(ctx, zsetKey, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to upsert event", zap.String("event_id", event.ID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *eventStore) UpdateShopCity(ctx context.Context, shopID, city string) error {
	raw, err := s.client.Get(ctx, shopKey(shopID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperrors.ErrDatabaseError
	}

	var shop domain.Shop
	if err := json.Unmarshal([]byte(raw), &shop); err != nil {
		return fmt.Errorf("failed to unmarshal shop: %w", err)
	}
	shop.City = city

	data, err := json.Marshal(&shop)
	if err != nil {
		return fmt.Errorf("failed to marshal shop: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, shopKey(shopID), data, 0)
	pipe.SRem(ctx, missingCityKey, shopID)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to update shop city", zap.String("shop_id", shopID), zap.Error(err))
		return apperrors.ErrDatabaseError
	}

	return nil
}

func (s *eventStore) ListShopsMissingCity(ctx context.Context, limit int) ([]domain.Shop, error) {
	ids, err := s.client.SRandMemberN(ctx, missingCityKey, int64(limit)).Result()
	if err != nil {
		s.logger.Error("Failed to read missing-city set", zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = shopKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.ErrDatabaseError
	}

	shops := make([]domain.Shop, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var shop domain.Shop
		if err := json.Unmarshal([]byte(raw), &shop); err != nil {
			continue
		}
		if shop.HasCoordinates() && shop.City == "" {
			shops = append(shops, shop)
		}
	}

	return shops, nil
}
