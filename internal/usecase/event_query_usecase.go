package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/config"
	"github.com/tabletop-events/internal/domain"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
	"github.com/tabletop-events/internal/pkg/utils"
	"github.com/tabletop-events/internal/usecase/dto"
)

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 20
)

// EventQueryUseCase answers the events endpoint: it resolves the date range,
// picks the spatial or date-scan retrieval path, then applies attribute
// filters, ordering and pagination uniformly over whichever path ran.
type EventQueryUseCase struct {
	index  *SpatialEventIndex
	logger *zap.Logger

	defaultRadiusKm float64
	defaultWindow   time.Duration
	calendarWindow  int
	calendarCap     int
}

func NewEventQueryUseCase(index *SpatialEventIndex, cfg config.QueryConfig, logger *zap.Logger) *EventQueryUseCase {
	return &EventQueryUseCase{
		index:           index,
		logger:          logger,
		defaultRadiusKm: cfg.DefaultRadiusKm,
		defaultWindow:   time.Duration(cfg.DefaultWindowDays) * 24 * time.Hour,
		calendarWindow:  cfg.CalendarWindowMonths,
		calendarCap:     cfg.CalendarCap,
	}
}

// Query retrieves, filters and paginates events. Total reflects the
// post-filter count before the page slice.
func (uc *EventQueryUseCase) Query(ctx context.Context, req dto.EventQueryRequest) (*dto.EventQueryResponse, error) {
	from, to, err := uc.resolveDateRange(req)
	if err != nil {
		return nil, err
	}

	var events []domain.Event
	if req.HasCenter() {
		events, err = uc.spatialPath(ctx, req, from, to)
	} else {
		events, err = uc.index.CollectDateRange(ctx, from, to)
	}
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if matchesFilters(&event, req) {
			filtered = append(filtered, event)
		}
	}
	sortEventsByStart(filtered)

	total := len(filtered)
	page, limit := normalizePaging(req)

	if req.CalendarMode {
		// Calendar mode returns the whole window, capped.
		if len(filtered) > uc.calendarCap {
			filtered = filtered[:uc.calendarCap]
		}
		return &dto.EventQueryResponse{Events: filtered, Total: total, Page: 1, Limit: len(filtered)}, nil
	}

	offset := (page - 1) * limit
	if offset >= len(filtered) {
		filtered = []domain.Event{}
	} else {
		end := offset + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[offset:end]
	}

	return &dto.EventQueryResponse{Events: filtered, Total: total, Page: page, Limit: limit}, nil
}

func (uc *EventQueryUseCase) spatialPath(ctx context.Context, req dto.EventQueryRequest, from, to time.Time) ([]domain.Event, error) {
	lat, lon := *req.Lat, *req.Lng
	if !utils.ValidateCoordinates(lat, lon) {
		return nil, apperrors.ErrInvalidCoordinates
	}

	radius := req.RadiusKm
	if radius == 0 {
		radius = uc.defaultRadiusKm
	}
	if !utils.ValidateRadius(radius) {
		return nil, apperrors.ErrInvalidRadius
	}

	return uc.index.QueryRadius(ctx, lat, lon, radius, from, to)
}

// resolveDateRange applies the mode rules: calendar mode forces a fixed
// window centered on now; otherwise explicit bounds with defaults of
// [now, now+window].
func (uc *EventQueryUseCase) resolveDateRange(req dto.EventQueryRequest) (time.Time, time.Time, error) {
	now := time.Now().UTC()

	if req.CalendarMode {
		return now.AddDate(0, -uc.calendarWindow, 0), now.AddDate(0, uc.calendarWindow, 0), nil
	}

	from := now
	if req.StartDateFrom != "" {
		parsed, err := time.Parse(dateLayout, req.StartDateFrom)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.ErrInvalidDateRange
		}
		from = parsed
	}

	to := from.Add(uc.defaultWindow)
	if req.StartDateTo != "" {
		parsed, err := time.Parse(dateLayout, req.StartDateTo)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.ErrInvalidDateRange
		}
		to = parsed
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, apperrors.ErrInvalidDateRange
	}
	return from, to, nil
}

// matchesFilters applies the attribute filters uniformly, whichever
// retrieval path produced the event.
func matchesFilters(event *domain.Event, req dto.EventQueryRequest) bool {
	if req.City != "" && !containsFold(event.City, req.City) {
		return false
	}
	if req.State != "" && !containsFold(event.State, req.State) {
		return false
	}
	if req.Country != "" && !containsFold(event.Country, req.Country) {
		return false
	}
	if req.EventType != "" && !strings.EqualFold(event.EventType, req.EventType) {
		return false
	}
	if req.Search != "" {
		if !containsFold(event.Name, req.Search) &&
			!containsFold(event.Description, req.Search) &&
			!containsFold(event.Location, req.Search) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func normalizePaging(req dto.EventQueryRequest) (page, limit int) {
	page = req.Page
	if page < 1 {
		page = 1
	}
	limit = req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}
