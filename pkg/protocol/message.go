// Package protocol defines the JSON websocket envelope shared by the tracker
// relay, its clients and the live monitor.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of websocket message
type MessageType string

const (
	// Tracker → relay
	TypeSample MessageType = "sample" // One gaze sample

	// Experiment → monitor
	TypeEvent MessageType = "event" // State transition
	TypeGaze  MessageType = "gaze"  // Per-tick gaze and target snapshot

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all websocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal %s data: %w", msgType, err)
		}
	}
	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// ParseData unmarshals the message data into v. Empty data leaves v untouched.
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("protocol: parse %s data: %w", m.Type, err)
	}
	return nil
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("protocol: message has no type")
	}
	return &msg, nil
}

// SampleData is one gaze position in screen coordinates.
// Valid=false marks a tracking loss; X and Y are then ignored.
type SampleData struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Valid bool    `json:"valid"`
	Seq   uint64  `json:"seq,omitempty"` // Sender-side counter, informational
}

// EventData describes one state transition.
type EventData struct {
	ID      string  `json:"id"`
	RunID   string  `json:"run_id"`
	Kind    string  `json:"kind"`
	Task    string  `json:"task"`
	State   string  `json:"state"`
	Elapsed float64 `json:"elapsed"`
}

// TargetData is the per-tick status of one target.
type TargetData struct {
	Name       string  `json:"name"`
	InBounds   bool    `json:"in_bounds"`
	Cumulative float64 `json:"cumulative"`
	Met        bool    `json:"met"`
}

// GazeData is a snapshot of the sampled gaze and every target.
type GazeData struct {
	X       float64      `json:"x"`
	Y       float64      `json:"y"`
	Valid   bool         `json:"valid"`
	State   string       `json:"state,omitempty"`
	Targets []TargetData `json:"targets,omitempty"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
