package nominatim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
)

// Client talks to a Nominatim-compatible instance. The same client serves the
// self-hosted index and the shared public instance; the public one carries a
// rate limiter so autocomplete and scrape bursts stay inside its usage policy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	name       string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ repository.GeocodingProvider = (*Client)(nil)

// NewClient builds an unthrottled client for a self-hosted instance.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		name:       "nominatim",
		logger:     logger,
	}
}

// NewPublicClient builds a client for the shared public instance, throttled
// to rps requests per second with no burst headroom.
func NewPublicClient(baseURL string, timeout time.Duration, rps float64, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		name:       "nominatim-public",
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

func (c *Client) Name() string {
	return c.name
}

// rawResult mirrors the Nominatim JSON schema.
type rawResult struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

func (c *Client) Forward(ctx context.Context, query string, limit int, typeHint string) ([]domain.GeocodeResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))

	var raw []rawResult
	if err := c.get(ctx, c.baseURL+"/search?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	results := make([]domain.GeocodeResult, 0, len(raw))
	for _, r := range raw {
		shaped, err := c.shape(r)
		if err != nil {
			c.logger.Warn("Skipping malformed result",
				zap.String("provider", c.name), zap.Error(err))
			continue
		}
		results = append(results, shaped)
	}

	c.logger.Debug("Nominatim search successful",
		zap.String("provider", c.name),
		zap.Int("results", len(results)))

	return results, nil
}

func (c *Client) Reverse(ctx context.Context, lat, lon float64) ([]domain.GeocodeResult, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	// Reverse returns a single object, not an array.
	var raw rawResult
	if err := c.get(ctx, c.baseURL+"/reverse?"+params.Encode(), &raw); err != nil {
		return nil, err
	}
	if raw.PlaceID == 0 && raw.DisplayName == "" {
		return nil, nil
	}

	shaped, err := c.shape(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed reverse result: %w", err)
	}

	return []domain.GeocodeResult{shaped}, nil
}

// Import feeds place records into a self-hosted index. Only meaningful
// against the self-hosted instance; the import batch step uses it when
// draining the pending-place queue.
func (c *Client) Import(ctx context.Context, places []domain.PendingPlace) error {
	if len(places) == 0 {
		return nil
	}

	payload, err := json.Marshal(places)
	if err != nil {
		return fmt.Errorf("failed to marshal places: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/import", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("import error: status %d, body: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("Places imported into local index", zap.Int("count", len(places)))
	return nil
}

func (c *Client) get(ctx context.Context, requestURL string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		c.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Public instance policy requires an identifying agent.
	req.Header.Set("User-Agent", "tabletop-events/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to execute request",
			zap.String("provider", c.name), zap.Error(err))
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Nominatim returned error",
			zap.String("provider", c.name),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("nominatim error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode response",
			zap.String("provider", c.name), zap.Error(err))
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// shape normalizes one Nominatim result. Lat/lon arrive as strings; city may
// live in city, town, or village depending on the settlement size.
func (c *Client) shape(r rawResult) (domain.GeocodeResult, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("bad latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("bad longitude %q: %w", r.Lon, err)
	}

	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}
	if city == "" {
		city = r.Address.Village
	}

	name := r.Name
	if name == "" {
		// First component of the display name stands in for a missing name.
		if idx := strings.Index(r.DisplayName, ","); idx > 0 {
			name = r.DisplayName[:idx]
		} else {
			name = r.DisplayName
		}
	}

	return domain.GeocodeResult{
		Latitude:    lat,
		Longitude:   lon,
		Name:        name,
		DisplayName: r.DisplayName,
		Type:        strings.ToLower(r.Type),
		City:        city,
		County:      r.Address.County,
		State:       r.Address.State,
		Country:     r.Address.Country,
		PlaceID:     r.PlaceID,
		Source:      c.name,
	}, nil
}
