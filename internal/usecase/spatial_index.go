package usecase

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	"github.com/tabletop-events/internal/pkg/utils"
)

const (
	// coarsePrecisionRadiusKm is the radius above which fine cells
	// (~39x20 km) would waste queries and coarse cells (~156 km) win.
	coarsePrecisionRadiusKm = 40.0

	// cellFanOutLimit bounds concurrent per-cell lookups.
	cellFanOutLimit = 10

	// shopFanOutLimit bounds concurrent per-shop event range lookups.
	shopFanOutLimit = 10
)

// SpatialEventIndex answers radius queries against a store with no native
// geospatial capability. Geohash cells prefilter candidate shops; exact
// haversine refinement decides membership. When the cell index is unusable
// the query degrades to a date-bounded scan, trading latency for
// correctness, never the other way around.
type SpatialEventIndex struct {
	store    repository.EventStore
	logger   *zap.Logger
	maxCells int
	dayBatch int
}

func NewSpatialEventIndex(
	store repository.EventStore,
	logger *zap.Logger,
	maxCells int,
	dayBatch int,
) *SpatialEventIndex {
	return &SpatialEventIndex{
		store:    store,
		logger:   logger,
		maxCells: maxCells,
		dayBatch: dayBatch,
	}
}

// PrecisionForRadius picks the geohash precision for a query radius.
func PrecisionForRadius(radiusKm float64) int {
	if radiusKm > coarsePrecisionRadiusKm {
		return utils.CoarseCellPrecision
	}
	return utils.FineCellPrecision
}

// CoverCells enumerates every cell of the given precision intersecting the
// bounding box of center±radius. Enumeration stops once limit+1 cells have
// been found: past the ceiling the caller falls back anyway, so finishing
// the walk is wasted work.
//
// The box is clamped at the antimeridian rather than wrapped, so a center
// near ±180 loses candidate cells on the far side. Cell coverage is
// best-effort; exact refinement never admits a false positive either way.
func CoverCells(lat, lon, radiusKm float64, precision, limit int) []string {
	latDelta := radiusKm / 111.0
	cosLat := math.Cos(lat * math.Pi / 180.0)
	if math.Abs(cosLat) < 0.01 {
		cosLat = 0.01
	}
	lonDelta := radiusKm / (111.0 * math.Abs(cosLat))

	box := domain.BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
		MinLon: math.Max(lon-lonDelta, -180),
		MaxLon: math.Min(lon+lonDelta, 180),
	}

	latSpan, lonSpan := utils.CellSpan(lat, lon, precision)

	seen := make(map[string]struct{})
	cells := make([]string, 0, 16)
	for la := box.MinLat; la <= box.MaxLat+latSpan/2; la += latSpan {
		for lo := box.MinLon; lo <= box.MaxLon+lonSpan/2; lo += lonSpan {
			cell := utils.EncodeCell(math.Min(la, 90), math.Min(lo, 180), precision)
			if _, ok := seen[cell]; ok {
				continue
			}
			seen[cell] = struct{}{}
			cells = append(cells, cell)
			if len(cells) > limit {
				return cells
			}
		}
	}

	return cells
}

// QueryRadius returns all events within radiusKm of the center whose start
// date falls in [from, to], sorted ascending by start date.
func (idx *SpatialEventIndex) QueryRadius(
	ctx context.Context,
	lat, lon, radiusKm float64,
	from, to time.Time,
) ([]domain.Event, error) {
	precision := PrecisionForRadius(radiusKm)

	ready, err := idx.store.SpatialIndexReady(ctx)
	if err != nil || !ready {
		idx.logger.Info("Spatial index not ready, using date scan",
			zap.Bool("ready", ready), zap.Error(err))
		return idx.dateScan(ctx, lat, lon, radiusKm, from, to)
	}

	cells := CoverCells(lat, lon, radiusKm, precision, idx.maxCells)
	if len(cells) > idx.maxCells {
		idx.logger.Info("Cell ceiling exceeded, using date scan",
			zap.Int("cells", len(cells)),
			zap.Int("ceiling", idx.maxCells),
			zap.Float64("radius_km", radiusKm))
		return idx.dateScan(ctx, lat, lon, radiusKm, from, to)
	}

	shops, err := idx.shopsInCells(ctx, cells)
	if err != nil {
		idx.logger.Warn("Cell lookup failed, using date scan", zap.Error(err))
		return idx.dateScan(ctx, lat, lon, radiusKm, from, to)
	}

	// An empty coarse cell over a populated region means the index has not
	// been backfilled yet, not that nothing is there.
	if len(shops) == 0 && precision == utils.CoarseCellPrecision {
		idx.logger.Info("Coarse cells empty, assuming index not backfilled")
		return idx.dateScan(ctx, lat, lon, radiusKm, from, to)
	}

	// Exact refinement: cell membership is only a candidate filter.
	near := make([]domain.Shop, 0, len(shops))
	for _, shop := range shops {
		if !shop.HasCoordinates() {
			continue
		}
		if utils.HaversineDistance(lat, lon, *shop.Latitude, *shop.Longitude) <= radiusKm {
			near = append(near, shop)
		}
	}

	events, err := idx.eventsForShops(ctx, near, from, to)
	if err != nil {
		return nil, err
	}

	sortEventsByStart(events)
	return events, nil
}

func (idx *SpatialEventIndex) shopsInCells(ctx context.Context, cells []string) ([]domain.Shop, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cellFanOutLimit)

	var mu sync.Mutex
	var shops []domain.Shop

	for _, cell := range cells {
		cell := cell
		g.Go(func() error {
			found, err := idx.store.GetShopsByCell(gctx, cell)
			if err != nil {
				return err
			}
			mu.Lock()
			shops = append(shops, found...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Cells are disjoint by construction, so no dedup pass is needed.
	return shops, nil
}

func (idx *SpatialEventIndex) eventsForShops(
	ctx context.Context,
	shops []domain.Shop,
	from, to time.Time,
) ([]domain.Event, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(shopFanOutLimit)

	var mu sync.Mutex
	var events []domain.Event

	for _, shop := range shops {
		shop := shop
		g.Go(func() error {
			found, err := idx.store.GetEventsByShopAndDateRange(gctx, shop.ID, from, to)
			if err != nil {
				return err
			}
			mu.Lock()
			events = append(events, found...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return events, nil
}

// CollectDateRange gathers every event in [from, to] by walking the day
// buckets in bounded parallel batches. Shared by location-less queries and
// the spatial fallback.
func (idx *SpatialEventIndex) CollectDateRange(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	days := enumerateDays(from, to)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.dayBatch)

	var mu sync.Mutex
	var events []domain.Event

	for _, day := range days {
		day := day
		g.Go(func() error {
			found, err := idx.store.GetEventsByDay(gctx, day)
			if err != nil {
				return err
			}
			mu.Lock()
			events = append(events, found...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return events, nil
}

// dateScan is the correctness-preserving fallback: every event in range,
// filtered by exact distance. Events with no shop link but their own
// coordinates stay eligible here; events with no coordinates at all are
// excluded from any location-filtered result.
func (idx *SpatialEventIndex) dateScan(
	ctx context.Context,
	lat, lon, radiusKm float64,
	from, to time.Time,
) ([]domain.Event, error) {
	all, err := idx.CollectDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(all))
	for _, event := range all {
		evLat, evLon, ok := event.Coords()
		if !ok {
			continue
		}
		if utils.HaversineDistance(lat, lon, evLat, evLon) <= radiusKm {
			events = append(events, event)
		}
	}

	sortEventsByStart(events)
	return events, nil
}

func enumerateDays(from, to time.Time) []string {
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC()

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

func sortEventsByStart(events []domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartDate.Before(events[j].StartDate)
	})
}
