// Package web serves the live experiment monitor: session status, state
// transitions and gaze snapshots over HTTP and websocket.
package web

import (
	_ "embed"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-fixate/pkg/hub"
	"github.com/teslashibe/go-fixate/pkg/protocol"
	"github.com/teslashibe/go-fixate/pkg/state"
)

//go:embed index.html
var indexHTML []byte

const (
	maxEvents = 500

	// DefaultGazeInterval limits gaze broadcasts to about 30 per second.
	DefaultGazeInterval = 33 * time.Millisecond
)

// Status is the monitor's view of the running session
type Status struct {
	SessionID  string    `json:"session_id"`
	Experiment string    `json:"experiment"`
	Running    bool      `json:"running"`
	Task       string    `json:"task"`
	State      string    `json:"state"`
	Trials     int       `json:"trials"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Option configures a Server.
type Option func(*Server)

// WithGazeInterval sets the minimum spacing between gaze broadcasts.
// Zero broadcasts every snapshot.
func WithGazeInterval(d time.Duration) Option {
	return func(s *Server) { s.gazeInterval = d }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server is the live monitor. It implements state.Listener and receives
// per-tick gaze snapshots through ObserveGaze.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	status   Status
	statusMu sync.RWMutex

	events   []protocol.EventData
	eventsMu sync.RWMutex

	gaze         protocol.GazeData
	lastGaze     time.Time
	gazeInterval time.Duration
	gazeMu       sync.RWMutex

	statusHub *hub.Hub
	eventHub  *hub.Hub
	gazeHub   *hub.Hub
}

var _ state.Listener = (*Server)(nil)

// NewServer creates a monitor that will listen on port
func NewServer(port string, opts ...Option) *Server {
	s := &Server{
		port:         port,
		logger:       slog.Default(),
		events:       make([]protocol.EventData, 0, maxEvents),
		gazeInterval: DefaultGazeInterval,
		statusHub:    hub.New("status"),
		eventHub:     hub.New("events"),
		gazeHub:      hub.New("gaze"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")

	app := fiber.New(fiber.Config{
		AppName:               "fixate monitor",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)
	api.Get("/targets", s.handleTargets)
	api.Get("/gaze", s.handleGaze)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/events", s.eventHub.Handler())
	app.Get("/ws/gaze", s.gazeHub.Handler())

	s.app = app
	go s.statusHub.Run()
	go s.eventHub.Run()
	go s.gazeHub.Run()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("monitor listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("monitor stopped", "error", err)
		}
	}()
}

// Shutdown stops the server and its hubs
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.eventHub.Stop()
	s.gazeHub.Stop()
	return s.app.Shutdown()
}

// SetSession records the session being monitored and broadcasts the status.
func (s *Server) SetSession(id, experiment string) {
	s.UpdateStatus(func(st *Status) {
		st.SessionID = id
		st.Experiment = experiment
		st.Trials = 0
	})
	s.eventsMu.Lock()
	s.events = s.events[:0]
	s.eventsMu.Unlock()
}

// UpdateStatus applies update and broadcasts the result.
func (s *Server) UpdateStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	s.status.UpdatedAt = time.Now()
	st := s.status
	s.statusMu.Unlock()

	s.statusHub.BroadcastJSON(st)
}

// Status returns a copy of the current status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// OnStateEvent records a transition and pushes it to event clients.
func (s *Server) OnStateEvent(e state.Event) {
	data := protocol.EventData{
		ID:      e.ID,
		RunID:   e.RunID,
		Kind:    string(e.Kind),
		Task:    e.Task,
		State:   e.State,
		Elapsed: e.Elapsed,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, data)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if msg, err := protocol.NewEventMessage(data); err == nil {
		if err := s.eventHub.Send(msg); err != nil {
			s.logger.Warn("event broadcast failed", "error", err)
		}
	}

	s.UpdateStatus(func(st *Status) {
		st.Task = e.Task
		switch e.Kind {
		case state.EventTaskStarted:
			st.Running = true
		case state.EventTaskFinished:
			st.Running = false
			st.State = ""
		case state.EventEntered:
			st.State = e.State
		case state.EventExited:
			st.State = ""
			st.Trials++
		case state.EventBypassed:
			st.Trials++
		}
	})
}

// ObserveGaze stores the latest snapshot and broadcasts it, at most once per
// gaze interval.
func (s *Server) ObserveGaze(g protocol.GazeData) {
	now := time.Now()
	s.gazeMu.Lock()
	s.gaze = g
	due := s.gazeInterval <= 0 || now.Sub(s.lastGaze) >= s.gazeInterval
	if due {
		s.lastGaze = now
	}
	s.gazeMu.Unlock()

	if !due {
		return
	}
	msg, err := protocol.NewGazeMessage(g)
	if err != nil {
		s.logger.Debug("gaze snapshot not encodable", "error", err)
		return
	}
	if err := s.gazeHub.Send(msg); err != nil {
		s.logger.Debug("gaze broadcast failed", "error", err)
	}
}

// Events returns a copy of the buffered transitions, oldest first.
func (s *Server) Events() []protocol.EventData {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	out := make([]protocol.EventData, len(s.events))
	copy(out, s.events)
	return out
}

// Gaze returns the latest gaze snapshot.
func (s *Server) Gaze() protocol.GazeData {
	s.gazeMu.RLock()
	defer s.gazeMu.RUnlock()
	return s.gaze
}
