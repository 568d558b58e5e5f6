// Package relay accepts remote gaze trackers over websocket and exposes each
// one as a pollable xy.Device.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-fixate/pkg/protocol"
	"github.com/teslashibe/go-fixate/pkg/xy"
)

var (
	// ErrTrackerOffline is returned by a Device whose tracker disconnected.
	ErrTrackerOffline = fmt.Errorf("%w: relay tracker offline", xy.ErrDevice)

	// ErrUnknownTracker is returned for a tracker that never connected.
	ErrUnknownTracker = errors.New("relay: unknown tracker")
)

// tracker is the relay's record of one tracker. Records outlive the
// connection so devices can report the disconnect.
type tracker struct {
	id        string
	conn      *websocket.Conn
	online    bool
	connected time.Time
	lastSeen  time.Time
	sample    protocol.SampleData
	seq       uint64
}

// Hub manages websocket connections from trackers
type Hub struct {
	mu       sync.RWMutex
	trackers map[string]*tracker
	logger   *slog.Logger

	onSample func(trackerID string, s *protocol.SampleData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	samplesReceived  atomic.Uint64
	parseErrors      atomic.Uint64
}

// NewHub creates a new tracker hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		trackers: make(map[string]*tracker),
		logger:   logger.With("component", "relay"),
	}
}

// OnSample sets a callback invoked for every sample received.
func (h *Hub) OnSample(callback func(trackerID string, s *protocol.SampleData)) {
	h.mu.Lock()
	h.onSample = callback
	h.mu.Unlock()
}

// RegisterRoutes registers websocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/tracker", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tracker", websocket.New(h.handleTracker))
	app.Get("/ws/tracker/:id", websocket.New(h.handleTracker))
}

// handleTracker runs the read loop for one tracker connection
func (h *Hub) handleTracker(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	h.mu.Lock()
	tr, ok := h.trackers[id]
	if !ok {
		tr = &tracker{id: id}
		h.trackers[id] = tr
	}
	tr.conn = c
	tr.online = true
	tr.connected = now
	tr.lastSeen = now
	online := h.onlineLocked()
	h.mu.Unlock()

	h.logger.Info("tracker connected", "tracker", id, "online", online)

	defer func() {
		h.mu.Lock()
		if tr.conn == c {
			tr.conn = nil
			tr.online = false
		}
		online := h.onlineLocked()
		h.mu.Unlock()
		h.logger.Info("tracker disconnected", "tracker", id, "online", online)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("tracker read ended", "tracker", id, "error", err)
			return
		}

		h.mu.Lock()
		tr.lastSeen = time.Now()
		h.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(tr, c, data)
	}
}

// handleMessage processes an incoming message from a tracker
func (h *Hub) handleMessage(tr *tracker, c *websocket.Conn, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.parseErrors.Add(1)
		h.logger.Warn("bad message", "tracker", tr.id, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeSample:
		s, err := msg.GetSampleData()
		if err != nil {
			h.parseErrors.Add(1)
			h.logger.Warn("bad sample", "tracker", tr.id, "error", err)
			return
		}
		h.samplesReceived.Add(1)

		h.mu.Lock()
		tr.sample = *s
		tr.seq++
		cb := h.onSample
		h.mu.Unlock()

		if cb != nil {
			cb(tr.id, s)
		}

	case protocol.TypePing:
		pong, err := msg.Pong()
		if err != nil {
			h.parseErrors.Add(1)
			return
		}
		out, err := pong.Bytes()
		if err != nil {
			return
		}
		// Only the read loop writes to c.
		if err := c.WriteMessage(websocket.TextMessage, out); err != nil {
			h.logger.Debug("pong write failed", "tracker", tr.id, "error", err)
			return
		}
		h.messagesSent.Add(1)

	default:
		h.logger.Debug("ignoring message", "tracker", tr.id, "type", msg.Type)
	}
}

func (h *Hub) onlineLocked() int {
	n := 0
	for _, tr := range h.trackers {
		if tr.online {
			n++
		}
	}
	return n
}

// TrackerCount returns the number of connected trackers
func (h *Hub) TrackerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineLocked()
}

// Latest returns the most recent sample from a tracker and its sequence number.
func (h *Hub) Latest(id string) (protocol.SampleData, uint64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tr, ok := h.trackers[id]
	if !ok {
		return protocol.SampleData{}, 0, fmt.Errorf("%w: %s", ErrUnknownTracker, id)
	}
	return tr.sample, tr.seq, nil
}

// Stats contains hub statistics
type Stats struct {
	TrackerCount     int    `json:"tracker_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	SamplesReceived  uint64 `json:"samples_received"`
	ParseErrors      uint64 `json:"parse_errors"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		TrackerCount:     h.TrackerCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		SamplesReceived:  h.samplesReceived.Load(),
		ParseErrors:      h.parseErrors.Load(),
	}
}

// TrackerInfo contains info about a known tracker
type TrackerInfo struct {
	ID        string              `json:"id"`
	Online    bool                `json:"online"`
	Connected time.Time           `json:"connected"`
	LastSeen  time.Time           `json:"last_seen"`
	Seq       uint64              `json:"seq"`
	Sample    protocol.SampleData `json:"sample"`
}

// GetTrackerInfos returns info about every tracker that has connected, sorted by ID
func (h *Hub) GetTrackerInfos() []TrackerInfo {
	h.mu.RLock()
	infos := make([]TrackerInfo, 0, len(h.trackers))
	for _, tr := range h.trackers {
		infos = append(infos, tr.info())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (tr *tracker) info() TrackerInfo {
	return TrackerInfo{
		ID:        tr.id,
		Online:    tr.online,
		Connected: tr.connected,
		LastSeen:  tr.lastSeen,
		Seq:       tr.seq,
		Sample:    tr.sample,
	}
}

// RegisterAPIRoutes registers API routes for tracker inspection
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	trackers := api.Group("/trackers")

	trackers.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"trackers": h.GetTrackerInfos(),
			"count":    h.TrackerCount(),
		})
	})

	trackers.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	trackers.Get("/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		h.mu.RLock()
		tr, ok := h.trackers[id]
		var info TrackerInfo
		if ok {
			info = tr.info()
		}
		h.mu.RUnlock()
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tracker not found"})
		}
		return c.JSON(info)
	})
}
