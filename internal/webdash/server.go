// Package webdash serves the operator dashboard: session status, live
// alert/flag/signal streams over websocket, alert controls, the detector
// configuration API, and Prometheus metrics.
package webdash

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sayantanmandal1/eyesonscreen/internal/log"
	"github.com/sayantanmandal1/eyesonscreen/pkg/alert"
	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/engine"
	"github.com/sayantanmandal1/eyesonscreen/pkg/hub"
	"github.com/sayantanmandal1/eyesonscreen/pkg/ingest"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// Broadcast stream names on the monitor socket.
const (
	StreamSignals = "signals"
	StreamFlags   = "flags"
	StreamAlerts  = "alerts"
	StreamPerf    = "performance"
)

// Status is the dashboard's session snapshot.
type Status struct {
	Running       bool           `json:"running"`
	Risk          float64        `json:"risk"`
	ActiveAlerts  int            `json:"active_alerts"`
	SessionSeenAt time.Time      `json:"session_seen_at,omitempty"`
	Performance   engine.Metrics `json:"performance"`
}

// Server is the dashboard HTTP/websocket server.
type Server struct {
	app  *fiber.App
	addr string

	engine      *engine.Engine
	alerts      *alert.Engine
	det         *detector.Detector
	session     *ingest.Session
	sessionIdle time.Duration

	monitor *hub.Hub

	mu       sync.RWMutex
	lastPerf engine.Metrics
}

// NewServer builds the server around the pipeline components. session may
// be nil for camera-backed deployments. sessionIdle evicts remote sessions
// that stop sending for that long; <= 0 disables eviction.
func NewServer(addr string, eng *engine.Engine, alerts *alert.Engine, det *detector.Detector, session *ingest.Session, sessionIdle time.Duration) *Server {
	s := &Server{
		addr:        addr,
		engine:      eng,
		alerts:      alerts,
		det:         det,
		session:     session,
		sessionIdle: sessionIdle,
		monitor:     hub.New("monitor"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "EyesOnScreen Proctor",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/alerts", s.handleAlerts)
	api.Post("/alerts/clear", s.handleClearAlerts)
	api.Post("/alerts/:id/ack", s.handleAckAlert)
	api.Post("/alerts/:id/dismiss", s.handleDismissAlert)
	api.Get("/config/detector", s.handleGetDetectorConfig)
	api.Patch("/config/detector", s.handlePatchDetectorConfig)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/monitor", websocket.New(s.handleMonitorWS))
	if session != nil {
		app.Get("/ws/session", websocket.New(s.handleSessionWS))
	}

	s.app = app
	return s
}

// Start runs the hub and listens. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.monitor.Run()
	log.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the listener and the broadcast hub.
func (s *Server) Shutdown() error {
	s.monitor.Stop()
	return s.app.Shutdown()
}

// PublishSignals broadcasts a filtered-signals summary to monitor clients.
// The landmark array is stripped; dashboards only need the derived scores.
func (s *Server) PublishSignals(fs signals.FilteredSignals) {
	fs.Landmarks = nil
	s.monitor.Publish(StreamSignals, fs)
}

// PublishFlag broadcasts one flag event.
func (s *Server) PublishFlag(f signals.FlagEvent) {
	s.monitor.Publish(StreamFlags, f)
}

// PublishAlert broadcasts one alert transition.
func (s *Server) PublishAlert(st alert.State) {
	s.monitor.Publish(StreamAlerts, st)
}

// PublishPerformance records and broadcasts one telemetry snapshot.
func (s *Server) PublishPerformance(m engine.Metrics) {
	s.mu.Lock()
	s.lastPerf = m
	s.mu.Unlock()
	s.monitor.Publish(StreamPerf, m)
}
