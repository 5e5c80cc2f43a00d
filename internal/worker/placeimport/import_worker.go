package placeimport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain/repository"
	"github.com/tabletop-events/internal/geocoder/nominatim"
	"github.com/tabletop-events/internal/usecase"
	"github.com/tabletop-events/internal/worker"
)

// ImportWorker periodically drains the place queue into the self-hosted
// geocoding index, and backfills the city label on shops that were geocoded
// without one. Both steps are best-effort: a failed cycle leaves the queue
// intact and the next tick retries.
type ImportWorker struct {
	*worker.BaseWorker
	queue     repository.PlaceQueueStore
	events    repository.EventStore
	nominatim *nominatim.Client
	geocodeUC *usecase.GeocodeUseCase

	interval      time.Duration
	backfillBatch int
}

func NewImportWorker(
	queue repository.PlaceQueueStore,
	events repository.EventStore,
	nominatimClient *nominatim.Client,
	geocodeUC *usecase.GeocodeUseCase,
	interval time.Duration,
	backfillBatch int,
	logger *zap.Logger,
) *ImportWorker {
	return &ImportWorker{
		BaseWorker:    worker.NewBaseWorker("place-import", logger),
		queue:         queue,
		events:        events,
		nominatim:     nominatimClient,
		geocodeUC:     geocodeUC,
		interval:      interval,
		backfillBatch: backfillBatch,
	}
}

func (w *ImportWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting place import worker",
		zap.Duration("interval", w.interval),
		zap.Int("backfill_batch", w.backfillBatch))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		case <-ticker.C:
			if err := w.drainQueue(ctx); err != nil {
				logger.Error("Place import cycle failed", zap.Error(err))
			}
			if err := w.backfillCities(ctx); err != nil {
				logger.Error("City backfill cycle failed", zap.Error(err))
			}
		}
	}
}

// drainQueue imports every pending place and clears only what was imported.
func (w *ImportWorker) drainQueue(ctx context.Context) error {
	logger := w.Logger()

	pending, err := w.queue.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Info("Importing pending places", zap.Int("count", len(pending)))

	if err := w.nominatim.Import(ctx, pending); err != nil {
		return err
	}

	ids := make([]string, 0, len(pending))
	for _, place := range pending {
		ids = append(ids, place.ID)
	}
	if err := w.queue.Clear(ctx, ids); err != nil {
		return err
	}

	logger.Info("Imported places", zap.Int("count", len(ids)))
	return nil
}

// backfillCities reverse-geocodes shops whose coordinates resolved without a
// city label and stores the result, one bounded batch per cycle.
func (w *ImportWorker) backfillCities(ctx context.Context) error {
	logger := w.Logger()

	shops, err := w.events.ListShopsMissingCity(ctx, w.backfillBatch)
	if err != nil {
		return err
	}
	if len(shops) == 0 {
		return nil
	}

	updated := 0
	for _, shop := range shops {
		if !shop.HasCoordinates() {
			continue
		}

		result, err := w.geocodeUC.ReverseFull(ctx, *shop.Latitude, *shop.Longitude)
		if err != nil {
			logger.Debug("Reverse lookup failed for shop",
				zap.String("shop_id", shop.ID), zap.Error(err))
			continue
		}
		if result.City == "" {
			continue
		}

		if err := w.events.UpdateShopCity(ctx, shop.ID, result.City); err != nil {
			logger.Warn("Failed to update shop city",
				zap.String("shop_id", shop.ID), zap.Error(err))
			continue
		}
		updated++
	}

	if updated > 0 {
		logger.Info("Backfilled shop cities",
			zap.Int("candidates", len(shops)),
			zap.Int("updated", updated))
	}
	return nil
}
