package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
)

type client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	logger      *zap.Logger
}

// NewClient builds the Mapbox geocoding provider. The access token must be
// non-empty; callers decide whether Mapbox participates in the chain at all.
func NewClient(baseURL, accessToken string, timeout time.Duration, logger *zap.Logger) repository.GeocodingProvider {
	return &client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

func (c *client) Name() string {
	return "mapbox"
}

// geocodingResponse mirrors the Mapbox Geocoding v5 schema; only the fields
// the normalization needs are decoded.
type geocodingResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	PlaceName string    `json:"place_name"`
	PlaceType []string  `json:"place_type"`
	Center    []float64 `json:"center"` // [lng, lat]
	Context   []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"context"`
}

func (c *client) Forward(ctx context.Context, query string, limit int, typeHint string) ([]domain.GeocodeResult, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json",
		c.baseURL, url.PathEscape(query))

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("limit", fmt.Sprintf("%d", limit))
	if typeHint != "" {
		params.Set("types", typeHint)
	}

	return c.fetch(ctx, endpoint+"?"+params.Encode())
}

func (c *client) Reverse(ctx context.Context, lat, lon float64) ([]domain.GeocodeResult, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json",
		c.baseURL, lon, lat)

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("limit", "1")

	return c.fetch(ctx, endpoint+"?"+params.Encode())
}

func (c *client) fetch(ctx context.Context, requestURL string) ([]domain.GeocodeResult, error) {
	c.logger.Debug("Calling Mapbox Geocoding API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		c.logger.Error("Failed to create request", zap.Error(err))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request", zap.Error(err))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Mapbox API returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("mapbox API error: status %d", resp.StatusCode)
	}

	var geoResp geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		c.logger.Error("Failed to decode response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]domain.GeocodeResult, 0, len(geoResp.Features))
	for _, f := range geoResp.Features {
		if len(f.Center) != 2 {
			continue
		}
		results = append(results, c.shape(f))
	}

	c.logger.Debug("Mapbox Geocoding API call successful",
		zap.Int("results", len(results)))

	return results, nil
}

// shape normalizes one Mapbox feature. Mapbox encodes address hierarchy in a
// context list keyed by id prefix: place.* is the city, district.* the
// county, region.* the state, country.* the country.
func (c *client) shape(f feature) domain.GeocodeResult {
	result := domain.GeocodeResult{
		Longitude:   f.Center[0],
		Latitude:    f.Center[1],
		Name:        f.Text,
		DisplayName: f.PlaceName,
		Source:      c.Name(),
	}

	if len(f.PlaceType) > 0 {
		result.Type = strings.ToLower(f.PlaceType[0])
	}
	// A feature that itself is a place contributes its own name.
	if result.Type == "place" || result.Type == "locality" {
		result.City = f.Text
	}

	for _, ctxEntry := range f.Context {
		switch {
		case strings.HasPrefix(ctxEntry.ID, "place."):
			result.City = ctxEntry.Text
		case strings.HasPrefix(ctxEntry.ID, "district."):
			result.County = ctxEntry.Text
		case strings.HasPrefix(ctxEntry.ID, "region."):
			result.State = ctxEntry.Text
		case strings.HasPrefix(ctxEntry.ID, "country."):
			result.Country = ctxEntry.Text
		}
	}

	return result
}
