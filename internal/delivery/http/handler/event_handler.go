package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/pkg/errors"
	"github.com/tabletop-events/internal/pkg/utils"
	"github.com/tabletop-events/internal/pkg/validator"
	"github.com/tabletop-events/internal/usecase"
	"github.com/tabletop-events/internal/usecase/dto"
)

// EventHandler serves the event listing endpoint.
type EventHandler struct {
	eventUC *usecase.EventQueryUseCase
	logger  *zap.Logger
}

func NewEventHandler(eventUC *usecase.EventQueryUseCase, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventUC: eventUC,
		logger:  logger,
	}
}

// Query handles GET /api/v1/events. Supplying lat and lng together switches
// the query to the radius search path.
func (h *EventHandler) Query(c *fiber.Ctx) error {
	var req dto.EventQueryRequest

	lat, ok, err := queryFloat(c, "lat")
	if err != nil {
		return utils.SendError(c, errors.ErrInvalidCoordinates)
	}
	if ok {
		req.Lat = &lat
	}
	lng, ok, err := queryFloat(c, "lng")
	if err != nil {
		return utils.SendError(c, errors.ErrInvalidCoordinates)
	}
	if ok {
		req.Lng = &lng
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return utils.SendError(c, errors.ErrInvalidCoordinates)
	}

	req.RadiusKm = c.QueryFloat("radius_km", 0)
	req.StartDateFrom = c.Query("start_date_from")
	req.StartDateTo = c.Query("start_date_to")
	req.CalendarMode = c.QueryBool("calendar_mode", false)
	req.City = c.Query("city")
	req.State = c.Query("state")
	req.Country = c.Query("country")
	req.EventType = c.Query("event_type")
	req.Search = c.Query("search")
	req.Page = c.QueryInt("page", 1)
	req.Limit = c.QueryInt("limit", 20)

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.eventUC.Query(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result.Events, &utils.Meta{
		Total: result.Total,
		Page:  result.Page,
		Limit: result.Limit,
	})
}

// queryFloat parses an optional float query parameter. ok is false when the
// parameter is absent or empty.
func queryFloat(c *fiber.Ctx, key string) (value float64, ok bool, err error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}
