package repository

import (
	"context"

	"github.com/tabletop-events/internal/domain"
)

// GeocodingProvider is one external geocoding capability. Each client owns
// the shaping from its provider's schema into domain.GeocodeResult.
type GeocodingProvider interface {
	// Name identifies the provider in logs and result sources.
	Name() string

	// Forward geocodes free text. typeHint optionally narrows the feature
	// types a provider should return (provider-specific, may be ignored).
	Forward(ctx context.Context, query string, limit int, typeHint string) ([]domain.GeocodeResult, error)

	// Reverse geocodes coordinates to the places containing them.
	Reverse(ctx context.Context, lat, lon float64) ([]domain.GeocodeResult, error)
}
