package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/config"
	"github.com/tabletop-events/internal/delivery/http/handler"
	"github.com/tabletop-events/internal/delivery/http/middleware"
)

// Server is the Fiber HTTP front for the query subsystem.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	eventHandler   *handler.EventHandler
	geocodeHandler *handler.GeocodeHandler
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	eventHandler *handler.EventHandler,
	geocodeHandler *handler.GeocodeHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Tabletop Events API",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		eventHandler:   eventHandler,
		geocodeHandler: geocodeHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Get("/events", s.eventHandler.Query)

	api.Get("/geocode", s.geocodeHandler.Resolve)
	api.Get("/geocode/suggest", s.geocodeHandler.Suggest)
	api.Post("/reverse-geocode", s.geocodeHandler.Reverse)
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
