// Package web serves the live monitoring surface: a JSON status API
// backed by the run history store and a websocket beat feed.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-groove/internal/history"
	"github.com/teslashibe/go-groove/internal/log"
	"github.com/teslashibe/go-groove/pkg/hub"
)

// Snapshot is what /api/status reports. The scheduler side fills it in
// through the StatusFunc callback so the server holds no run state of
// its own.
type Snapshot struct {
	State      string  `json:"state"`
	RunID      string  `json:"run_id,omitempty"`
	BPM        float64 `json:"bpm,omitempty"`
	BeatPeriod float64 `json:"beat_period_s,omitempty"`
	BeatCount  int     `json:"beat_count"`
}

// StatusFunc supplies the current snapshot for /api/status.
type StatusFunc func() Snapshot

// Server is the monitoring HTTP server.
type Server struct {
	app  *fiber.App
	port string

	feed    *hub.Hub
	status  StatusFunc
	history *history.Store
	moves   []string
}

// NewServer creates the server. status may be nil (reports idle),
// store may be nil (history endpoints return empty lists).
func NewServer(port string, status StatusFunc, store *history.Store, moves []string) *Server {
	s := &Server{
		port:    port,
		feed:    hub.New("beats"),
		status:  status,
		history: store,
		moves:   moves,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Groove Monitor",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/moves", s.handleMoves)
	api.Get("/runs", s.handleRuns)
	api.Get("/runs/:id/anomalies", s.handleAnomalies)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/feed", websocket.New(s.handleFeedWS))

	s.app = app
	return s
}

// Feed returns the hub the scheduler publishes events into.
func (s *Server) Feed() *hub.Hub {
	return s.feed
}

// Start runs the feed hub and blocks serving HTTP.
func (s *Server) Start() error {
	log.Info("monitor listening", "addr", "http://localhost:"+s.port)
	go s.feed.Run()
	return s.app.Listen(":" + s.port)
}

// StartAsync serves in a goroutine; errors are logged, not returned.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("monitor server failed", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
