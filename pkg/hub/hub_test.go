package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gorilla "github.com/gorilla/websocket"

	"github.com/teslashibe/go-fixate/pkg/protocol"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startHub(t *testing.T, addr string) *Hub {
	t.Helper()
	h := New("test")
	go h.Run()
	t.Cleanup(h.Stop)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", h.Handler())
	go app.Listen(addr)
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)
	return h
}

func TestBroadcastJSON(t *testing.T) {
	h := startHub(t, ":18280")

	ws, _, err := gorilla.DefaultDialer.Dial("ws://localhost:18280/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]int{"tick": 3}); err != nil {
		t.Fatalf("BroadcastJSON error: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(time.Second))
	typ, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != gorilla.TextMessage {
		t.Errorf("message type = %d, want text", typ)
	}
	var got map[string]int
	json.Unmarshal(data, &got)
	if got["tick"] != 3 {
		t.Errorf("payload = %s", data)
	}
}

func TestSendEnvelopeAsText(t *testing.T) {
	h := startHub(t, ":18281")

	ws, _, err := gorilla.DefaultDialer.Dial("ws://localhost:18281/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	msg, err := protocol.NewEventMessage(protocol.EventData{Kind: "entered", Task: "block", State: "fixate"})
	if err != nil {
		t.Fatalf("NewEventMessage: %v", err)
	}
	if err := h.Send(msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(time.Second))
	typ, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != gorilla.TextMessage {
		t.Errorf("frame type = %d, want text", typ)
	}
	got, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	var ev protocol.EventData
	if err := got.ParseData(&ev); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if got.Type != protocol.TypeEvent || ev.State != "fixate" {
		t.Errorf("got %s %+v", got.Type, ev)
	}
}

func TestClientDisconnect(t *testing.T) {
	h := startHub(t, ":18282")

	ws, _, err := gorilla.DefaultDialer.Dial("ws://localhost:18282/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })
	ws.Close()
	waitFor(t, "disconnect", func() bool { return h.ClientCount() == 0 })
}

func TestStop(t *testing.T) {
	h := New("stop")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	waitFor(t, "running", h.IsRunning)

	h.Stop()
	h.Stop() // idempotent
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if h.IsRunning() {
		t.Error("IsRunning should be false after Stop")
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := New("full") // not running: nothing drains the queue
	for i := 0; i < 300; i++ {
		h.Broadcast(Message("{}"))
	}
	if h.Dropped() != 300-256 {
		t.Errorf("Dropped = %d, want %d", h.Dropped(), 300-256)
	}
}
