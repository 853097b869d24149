package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-rover/pkg/hub"
)

// handleStatus returns task liveness, the last drive command and counters.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.rover.Status())
}

// handleControls returns the latest decoded gamepad snapshot.
func (s *Server) handleControls(c *fiber.Ctx) error {
	return c.JSON(s.rover.Controls())
}

func (s *Server) handleTelemetryStats(c *fiber.Ctx) error {
	return c.JSON(s.hub.GetStats())
}

// handleShutdown stops every task, as the controller's stop button would.
func (s *Server) handleShutdown(c *fiber.Ctx) error {
	s.logger.Warn("shutdown requested from dashboard", "remote", c.IP())
	s.rover.Shutdown()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "stopping"})
}

// handleTelemetryWS sends the current status, then streams telemetry.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.rover.Status()); err != nil {
		return
	}
	client := hub.NewClient(s.hub, c)
	if client == nil {
		return
	}
	client.Run()
}
