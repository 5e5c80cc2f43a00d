package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/config"
	"github.com/tabletop-events/internal/domain/repository"
	"github.com/tabletop-events/internal/geocoder/mapbox"
	"github.com/tabletop-events/internal/geocoder/nominatim"
	"github.com/tabletop-events/internal/geocoder/postal"
	"github.com/tabletop-events/internal/pkg/logger"
	postgresRepo "github.com/tabletop-events/internal/repository/postgres"
	redisRepo "github.com/tabletop-events/internal/repository/redis"
	"github.com/tabletop-events/internal/usecase"
	"github.com/tabletop-events/internal/worker"
	"github.com/tabletop-events/internal/worker/placeimport"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}
	if !cfg.Geocoder.LocalNominatimEnabled {
		fmt.Println("Worker requires the self-hosted Nominatim instance. Set NOMINATIM_LOCAL_ENABLED=true.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting place import worker")
	log.Info("Configuration loaded",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Duration("import_interval", cfg.Worker.ImportInterval),
		zap.Int("backfill_batch", cfg.Worker.BackfillBatch))

	// 3. Initialize storage
	eventStore, geocacheStore, queueStore, closeStorage, err := buildStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStorage()

	// 4. Load postal table and providers
	postalTable, err := postal.NewTable(log)
	if err != nil {
		log.Fatal("Failed to load postal table", zap.Error(err))
	}

	var primary repository.GeocodingProvider
	if cfg.Geocoder.MapboxToken != "" {
		primary = mapbox.NewClient(cfg.Geocoder.MapboxBaseURL, cfg.Geocoder.MapboxToken, cfg.Geocoder.RequestTimeout, log)
	}

	localClient := nominatim.NewClient(cfg.Geocoder.LocalNominatimURL, cfg.Geocoder.RequestTimeout, log)
	public := nominatim.NewPublicClient(
		cfg.Geocoder.PublicNominatimURL,
		cfg.Geocoder.RequestTimeout,
		cfg.Geocoder.PublicRateRPS,
		log,
	)

	// 5. Initialize use cases
	geocodeCache := usecase.NewGeocodeCache(geocacheStore, log, cfg.Geocache.MaxEntries, cfg.Geocache.EvictBatch)
	placeQueue := usecase.NewPlaceQueue(queueStore, log)
	geocodeUC := usecase.NewGeocodeUseCase(
		postalTable,
		geocodeCache,
		placeQueue,
		primary,
		localClient,
		public,
		log,
	)

	// 6. Register and start workers
	manager := worker.NewWorkerManager(log)
	manager.Register(placeimport.NewImportWorker(
		queueStore,
		eventStore,
		localClient,
		geocodeUC,
		cfg.Worker.ImportInterval,
		cfg.Worker.BackfillBatch,
		log,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 7. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down workers gracefully...")
	cancel()

	if err := manager.Stop(); err != nil {
		log.Error("Worker shutdown error", zap.Error(err))
	}

	geocodeCache.Wait()
	placeQueue.Wait()

	log.Info("Workers stopped")
}

// buildStorage wires the stores for the configured backend.
func buildStorage(cfg *config.Config, log *zap.Logger) (
	repository.EventStore,
	repository.GeocacheStore,
	repository.PlaceQueueStore,
	func(),
	error,
) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := postgresRepo.New(&cfg.Database, log)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, nil, err
		}

		closeFn := func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close PostgreSQL connection", zap.Error(err))
			}
		}
		return postgresRepo.NewEventStore(db),
			postgresRepo.NewGeocacheStore(db),
			postgresRepo.NewPlaceQueueStore(db),
			closeFn, nil

	case "redis":
		client, err := redisRepo.NewRedis(&cfg.Redis, log)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}
		return redisRepo.NewEventStore(client, cfg.Query.EventRetention),
			redisRepo.NewGeocacheStore(client),
			redisRepo.NewPlaceQueueStore(client),
			closeFn, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}
