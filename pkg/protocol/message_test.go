package protocol

import (
	"encoding/json"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
	}{
		{"sample message", TypeSample, SampleData{X: 10, Y: 20, Valid: true}},
		{"event message", TypeEvent, EventData{Kind: "entered", State: "fix"}},
		{"nil data", TypePing, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Errorf("NewMessage() data = %s, want nil", msg.Data)
			}
		})
	}
}

func TestNewMessage_MarshalError(t *testing.T) {
	if _, err := NewMessage(TypeSample, make(chan int)); err == nil {
		t.Error("NewMessage() with unmarshalable data should fail")
	}
}

func TestSampleMessageOnTheWire(t *testing.T) {
	msg, err := NewSampleMessage(512.5, 384, true, 7)
	if err != nil {
		t.Fatalf("NewSampleMessage() error = %v", err)
	}
	b, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["type"] != "sample" {
		t.Errorf("type = %v, want sample", raw["type"])
	}
	if _, ok := raw["ts"]; !ok {
		t.Error("ts field missing")
	}

	parsed, err := ParseMessage(b)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	s, err := parsed.GetSampleData()
	if err != nil {
		t.Fatalf("GetSampleData() error = %v", err)
	}
	if s.X != 512.5 || s.Y != 384 || !s.Valid || s.Seq != 7 {
		t.Errorf("sample = %+v", s)
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "{not json"},
		{"missing type", `{"ts":1,"data":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tt.input)); err == nil {
				t.Error("ParseMessage() should fail")
			}
		})
	}
}

func TestParseData_WrongShape(t *testing.T) {
	msg := &Message{Type: TypeSample, Data: json.RawMessage(`{"x":"left"}`)}
	if _, err := msg.GetSampleData(); err == nil {
		t.Error("GetSampleData() should fail on a string coordinate")
	}
}

func TestParseData_Empty(t *testing.T) {
	msg := &Message{Type: TypePing}
	p, err := msg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if p.ID != "" {
		t.Errorf("ID = %q, want empty", p.ID)
	}
}

func TestPong(t *testing.T) {
	ping, err := NewMessage(TypePing, PingData{ID: "abc", Timestamp: 1000})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	pong, err := ping.Pong()
	if err != nil {
		t.Fatalf("Pong() error = %v", err)
	}
	if pong.Type != TypePong {
		t.Errorf("type = %v, want pong", pong.Type)
	}
	data, err := pong.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if data.ID != "abc" || data.PingTS != 1000 {
		t.Errorf("pong = %+v", data)
	}
	if data.LatencyMs != data.PongTS-data.PingTS {
		t.Errorf("LatencyMs = %d, want %d", data.LatencyMs, data.PongTS-data.PingTS)
	}
}

func TestGazeMessage(t *testing.T) {
	msg, err := NewGazeMessage(GazeData{
		X: 1, Y: 2, Valid: true, State: "fix",
		Targets: []TargetData{{Name: "center", InBounds: true, Cumulative: 0.25}},
	})
	if err != nil {
		t.Fatalf("NewGazeMessage() error = %v", err)
	}
	g, err := msg.GetGazeData()
	if err != nil {
		t.Fatalf("GetGazeData() error = %v", err)
	}
	if len(g.Targets) != 1 || g.Targets[0].Name != "center" || !g.Targets[0].InBounds {
		t.Errorf("targets = %+v", g.Targets)
	}
}
