package webdash

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/sayantanmandal1/eyesonscreen/pkg/alert"
	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/hub"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	perf := s.lastPerf
	s.mu.RUnlock()

	st := Status{
		Running:      s.engine.IsRunning(),
		Risk:         s.alerts.Risk(),
		ActiveAlerts: len(s.alerts.GetActiveAlerts()),
		Performance:  perf,
	}
	if s.session != nil {
		st.SessionSeenAt = s.session.LastSeen()
	}
	return c.JSON(st)
}

func (s *Server) handleAlerts(c *fiber.Ctx) error {
	return c.JSON(s.alerts.GetActiveAlerts())
}

func (s *Server) handleClearAlerts(c *fiber.Ctx) error {
	s.alerts.ClearAllAlerts()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleAckAlert(c *fiber.Ctx) error {
	if err := s.alerts.AcknowledgeAlert(c.Params("id")); err != nil {
		return alertError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDismissAlert(c *fiber.Ctx) error {
	if err := s.alerts.DismissAlert(c.Params("id")); err != nil {
		return alertError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func alertError(c *fiber.Ctx, err error) error {
	if errors.Is(err, alert.ErrUnknownAlert) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleGetDetectorConfig(c *fiber.Ctx) error {
	return c.JSON(s.det.Config())
}

// handlePatchDetectorConfig applies a partial rule-threshold update.
func (s *Server) handlePatchDetectorConfig(c *fiber.Ctx) error {
	var patch detector.Patch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.det.UpdateConfig(patch)
	return c.JSON(s.det.Config())
}

func (s *Server) handleMonitorWS(conn *websocket.Conn) {
	client := hub.NewClient(s.monitor, conn)
	client.Run()
}

func (s *Server) handleSessionWS(conn *websocket.Conn) {
	s.session.Serve(conn, s.sessionIdle)
}
