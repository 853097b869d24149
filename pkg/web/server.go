// Package web serves the rover's status API and live telemetry stream.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/rover"
)

// StatusProvider is the part of the rover the dashboard reads.
type StatusProvider interface {
	Status() rover.Status
	Controls() gamepad.Snapshot
	Shutdown()
}

// Config configures the server.
type Config struct {
	Addr      string
	AccessLog bool
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{Addr: ":8080"}
}

// Server is the operator dashboard server.
type Server struct {
	app    *fiber.App
	cfg    Config
	rover  StatusProvider
	hub    *hub.Hub
	logger *slog.Logger
}

// NewServer creates a server reading from p and streaming what h
// broadcasts. A nil hub gets a fresh one; a nil logger uses slog.Default.
func NewServer(cfg Config, p StatusProvider, h *hub.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if h == nil {
		h = hub.New("telemetry", log)
	}
	s := &Server{
		cfg:    cfg,
		rover:  p,
		hub:    h,
		logger: log,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-rover",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/controls", s.handleControls)
	api.Get("/telemetry", s.handleTelemetryStats)
	api.Post("/shutdown", s.handleShutdown)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// App returns the fiber app so other packages can mount routes on it.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the telemetry hub. It implements rover.Reporter.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
