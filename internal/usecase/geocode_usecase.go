package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
	"github.com/tabletop-events/internal/domain/repository"
	"github.com/tabletop-events/internal/geocoder/postal"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
	"github.com/tabletop-events/internal/pkg/utils"
)

// providerStep is one fallthrough stage in the resolution chain. skip lets a
// stage opt out per query; enqueue marks sources whose hits should feed the
// place-import queue.
type providerStep struct {
	provider repository.GeocodingProvider
	skip     func(query string) bool
	enqueue  bool
}

// GeocodeUseCase resolves free-text queries and coordinates through a chain
// of sources ordered by reliability and cost: static postal table, cache,
// commercial provider, self-hosted open-data provider, public open-data
// provider. The first success short-circuits the chain.
type GeocodeUseCase struct {
	postal  *postal.Table
	cache   *GeocodeCache
	queue   *PlaceQueue
	primary repository.GeocodingProvider
	local   repository.GeocodingProvider
	public  repository.GeocodingProvider
	logger  *zap.Logger
}

func NewGeocodeUseCase(
	postalTable *postal.Table,
	cache *GeocodeCache,
	queue *PlaceQueue,
	primary repository.GeocodingProvider,
	local repository.GeocodingProvider,
	public repository.GeocodingProvider,
	logger *zap.Logger,
) *GeocodeUseCase {
	return &GeocodeUseCase{
		postal:  postalTable,
		cache:   cache,
		queue:   queue,
		primary: primary,
		local:   local,
		public:  public,
		logger:  logger,
	}
}

// Resolve geocodes a free-text query to a single location.
func (uc *GeocodeUseCase) Resolve(ctx context.Context, query string) (domain.Location, error) {
	if uc.postal != nil && postal.IsZIPCode(query) {
		if entry, ok := uc.postal.Lookup(query); ok {
			result := entry.Result()
			loc := uc.finishResult(query, result)
			return loc, nil
		}
		// An unknown code still falls through: the table is static and
		// incomplete, the providers are not.
	}

	if entry := uc.cache.Lookup(ctx, query); entry != nil {
		uc.logger.Debug("Geocode cache hit", zap.String("query", query))
		return domain.Location{
			Latitude:    entry.Latitude,
			Longitude:   entry.Longitude,
			DisplayName: entry.DisplayName,
		}, nil
	}

	steps := []providerStep{
		{provider: uc.primary},
		{provider: uc.local, skip: likelyNonDomestic},
		{provider: uc.public, enqueue: true},
	}

	result, ok := uc.firstSuccess(ctx, query, steps)
	if !ok {
		return domain.Location{}, apperrors.ErrLocationNotFound
	}
	return uc.finishResult(query, result), nil
}

// Suggest returns up to limit autocomplete candidates. The public provider
// is never consulted here: autocomplete fires on every keystroke and would
// burn its rate limit for no benefit.
func (uc *GeocodeUseCase) Suggest(ctx context.Context, query string, limit int) ([]domain.Location, error) {
	if uc.postal != nil && postal.IsZIPCode(query) {
		if entry, ok := uc.postal.Lookup(query); ok {
			result := entry.Result()
			result.DisplayName = BuildDisplayName(result)
			return []domain.Location{result.Location()}, nil
		}
		// Unknown codes fall through like resolve does; the provider
		// below may still know them.
	}

	provider := uc.primary
	if provider == nil {
		provider = uc.local
	}
	if provider == nil {
		return []domain.Location{}, nil
	}

	results, err := provider.Forward(ctx, query, limit, "")
	if err != nil {
		uc.logger.Warn("Suggest provider failed",
			zap.String("provider", provider.Name()),
			zap.String("query", query),
			zap.Error(err))
		return []domain.Location{}, nil
	}

	locations := make([]domain.Location, 0, len(results))
	for i := range results {
		results[i].DisplayName = BuildDisplayName(results[i])
		locations = append(locations, results[i].Location())
	}
	return locations, nil
}

// Reverse resolves coordinates to the place containing them.
func (uc *GeocodeUseCase) Reverse(ctx context.Context, lat, lon float64) (domain.Location, error) {
	result, err := uc.ReverseFull(ctx, lat, lon)
	if err != nil {
		return domain.Location{}, err
	}
	return result.Location(), nil
}

// ReverseFull is Reverse with the full provider result, address components
// included. Used where a single display string is not enough, e.g. the shop
// city backfill.
func (uc *GeocodeUseCase) ReverseFull(ctx context.Context, lat, lon float64) (domain.GeocodeResult, error) {
	if !utils.ValidateCoordinates(lat, lon) {
		return domain.GeocodeResult{}, apperrors.ErrInvalidCoordinates
	}

	for _, provider := range []repository.GeocodingProvider{uc.primary, uc.local, uc.public} {
		if provider == nil {
			continue
		}
		results, err := provider.Reverse(ctx, lat, lon)
		if err != nil {
			uc.logger.Warn("Reverse provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		if len(results) == 0 {
			continue
		}
		result := results[0]
		result.DisplayName = BuildDisplayName(result)
		return result, nil
	}

	return domain.GeocodeResult{}, apperrors.ErrLocationNotFound
}

// firstSuccess walks the chain until a provider returns at least one result.
// Provider errors and empty answers both mean "next provider", never a fatal
// failure for the resolution as a whole.
func (uc *GeocodeUseCase) firstSuccess(ctx context.Context, query string, steps []providerStep) (domain.GeocodeResult, bool) {
	for _, step := range steps {
		if step.provider == nil {
			continue
		}
		if step.skip != nil && step.skip(query) {
			uc.logger.Debug("Skipping provider for query",
				zap.String("provider", step.provider.Name()),
				zap.String("query", query))
			continue
		}

		results, err := step.provider.Forward(ctx, query, 1, "")
		if err != nil {
			uc.logger.Warn("Geocode provider failed",
				zap.String("provider", step.provider.Name()),
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		if len(results) == 0 {
			continue
		}

		result := results[0]
		uc.logger.Info("Geocode resolved",
			zap.String("query", query),
			zap.String("provider", step.provider.Name()))

		if step.enqueue && uc.queue != nil {
			uc.queue.EnqueueAsync(result)
		}
		return result, true
	}

	return domain.GeocodeResult{}, false
}

// finishResult builds the display name and writes the resolution back into
// the cache so the next identical query never leaves the process.
func (uc *GeocodeUseCase) finishResult(query string, result domain.GeocodeResult) domain.Location {
	result.DisplayName = BuildDisplayName(result)
	loc := result.Location()
	uc.cache.Store(context.Background(), query, loc)
	return loc
}

// BuildDisplayName concatenates place name, city and state-or-country,
// dropping repeated components so "Chicago, Chicago, Illinois" collapses
// to "Chicago, Illinois".
func BuildDisplayName(result domain.GeocodeResult) string {
	region := result.State
	if region == "" {
		region = result.Country
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{result.Name, result.City, region} {
		if part == "" {
			continue
		}
		duplicate := false
		for _, seen := range parts {
			if strings.EqualFold(seen, part) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return result.DisplayName
	}
	return strings.Join(parts, ", ")
}
