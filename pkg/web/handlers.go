package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-fixate/pkg/hub"
	"github.com/teslashibe/go-fixate/pkg/protocol"
)

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleStatus returns the session status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleEvents returns buffered transitions. ?limit=N keeps the newest N.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	events := s.Events()
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be >= 0"})
	}
	if limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	return c.JSON(fiber.Map{
		"events": events,
		"count":  len(events),
	})
}

// handleTargets returns the per-target status from the latest snapshot
func (s *Server) handleTargets(c *fiber.Ctx) error {
	targets := s.Gaze().Targets
	if targets == nil {
		targets = []protocol.TargetData{}
	}
	return c.JSON(targets)
}

// handleGaze returns the latest gaze snapshot
func (s *Server) handleGaze(c *fiber.Ctx) error {
	return c.JSON(s.Gaze())
}

// handleStatusWS sends the current status, then streams updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.Status()); err != nil {
		return
	}
	hub.NewClient(s.statusHub, c).Run()
}
