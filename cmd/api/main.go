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
	httpDelivery "github.com/tabletop-events/internal/delivery/http"
	"github.com/tabletop-events/internal/delivery/http/handler"
	"github.com/tabletop-events/internal/domain/repository"
	"github.com/tabletop-events/internal/geocoder/mapbox"
	"github.com/tabletop-events/internal/geocoder/nominatim"
	"github.com/tabletop-events/internal/geocoder/postal"
	"github.com/tabletop-events/internal/pkg/logger"
	postgresRepo "github.com/tabletop-events/internal/repository/postgres"
	redisRepo "github.com/tabletop-events/internal/repository/redis"
	"github.com/tabletop-events/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Tabletop Events API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	// 3. Initialize storage
	eventStore, geocacheStore, queueStore, closeStorage, err := buildStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStorage()

	log.Info("Storage initialized")

	// 4. Load postal table
	postalTable, err := postal.NewTable(log)
	if err != nil {
		log.Fatal("Failed to load postal table", zap.Error(err))
	}

	// 5. Initialize geocoding providers
	var primary repository.GeocodingProvider
	if cfg.Geocoder.MapboxToken != "" {
		primary = mapbox.NewClient(cfg.Geocoder.MapboxBaseURL, cfg.Geocoder.MapboxToken, cfg.Geocoder.RequestTimeout, log)
		log.Info("Mapbox provider enabled")
	}

	var local repository.GeocodingProvider
	if cfg.Geocoder.LocalNominatimEnabled {
		local = nominatim.NewClient(cfg.Geocoder.LocalNominatimURL, cfg.Geocoder.RequestTimeout, log)
		log.Info("Self-hosted Nominatim provider enabled",
			zap.String("url", cfg.Geocoder.LocalNominatimURL))
	}

	public := nominatim.NewPublicClient(
		cfg.Geocoder.PublicNominatimURL,
		cfg.Geocoder.RequestTimeout,
		cfg.Geocoder.PublicRateRPS,
		log,
	)

	// 6. Initialize use cases
	geocodeCache := usecase.NewGeocodeCache(geocacheStore, log, cfg.Geocache.MaxEntries, cfg.Geocache.EvictBatch)
	placeQueue := usecase.NewPlaceQueue(queueStore, log)

	geocodeUC := usecase.NewGeocodeUseCase(
		postalTable,
		geocodeCache,
		placeQueue,
		primary,
		local,
		public,
		log,
	)

	spatialIndex := usecase.NewSpatialEventIndex(eventStore, log, cfg.Query.MaxCells, cfg.Query.DayScanBatch)
	eventQueryUC := usecase.NewEventQueryUseCase(spatialIndex, cfg.Query, log)

	log.Info("Use cases initialized")

	// 7. Initialize HTTP handlers and server
	eventHandler := handler.NewEventHandler(eventQueryUC, log)
	geocodeHandler := handler.NewGeocodeHandler(geocodeUC, cfg.Geocoder.SuggestLimit, log)

	server := httpDelivery.NewServer(cfg, log, eventHandler, geocodeHandler)

	log.Info("HTTP server initialized")

	// 8. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	// Let in-flight cache writes and queue enqueues land before closing stores.
	geocodeCache.Wait()
	placeQueue.Wait()

	log.Info("Server stopped successfully")
}

// buildStorage wires the stores for the configured backend. Every backend
// honors the same store interfaces, so nothing above this call cares which
// one is active.
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
