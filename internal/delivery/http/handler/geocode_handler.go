package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/pkg/utils"
	"github.com/tabletop-events/internal/pkg/validator"
	"github.com/tabletop-events/internal/usecase"
	"github.com/tabletop-events/internal/usecase/dto"
)

// GeocodeHandler serves forward, autocomplete and reverse geocoding.
type GeocodeHandler struct {
	geocodeUC    *usecase.GeocodeUseCase
	suggestLimit int
	logger       *zap.Logger
}

func NewGeocodeHandler(geocodeUC *usecase.GeocodeUseCase, suggestLimit int, logger *zap.Logger) *GeocodeHandler {
	return &GeocodeHandler{
		geocodeUC:    geocodeUC,
		suggestLimit: suggestLimit,
		logger:       logger,
	}
}

// Resolve handles GET /api/v1/geocode.
func (h *GeocodeHandler) Resolve(c *fiber.Ctx) error {
	req := dto.GeocodeRequest{Query: c.Query("q")}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	location, err := h.geocodeUC.Resolve(c.Context(), req.Query)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.GeocodeResponse{Location: location}, nil)
}

// Suggest handles GET /api/v1/geocode/suggest.
func (h *GeocodeHandler) Suggest(c *fiber.Ctx) error {
	req := dto.SuggestRequest{
		Query: c.Query("q"),
		Limit: c.QueryInt("limit", h.suggestLimit),
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	suggestions, err := h.geocodeUC.Suggest(c.Context(), req.Query, req.Limit)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.SuggestResponse{Suggestions: suggestions}, &utils.Meta{
		Total: len(suggestions),
	})
}

// Reverse handles POST /api/v1/reverse-geocode.
func (h *GeocodeHandler) Reverse(c *fiber.Ctx) error {
	var req dto.ReverseGeocodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	location, err := h.geocodeUC.Reverse(c.Context(), *req.Lat, *req.Lon)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, dto.GeocodeResponse{Location: location}, nil)
}
