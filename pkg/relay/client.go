package relay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-fixate/pkg/protocol"
)

const writeWait = 5 * time.Second

// Client streams samples to a relay. It is safe for concurrent use.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	seq  uint64

	latencyMs atomic.Int64
	pongs     atomic.Uint64
	done      chan struct{}
	err       error
}

// Dial connects to a relay tracker endpoint, e.g. ws://host:8091/ws/tracker/eyelink.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: dial %s: %w", url, err)
	}
	c := &Client{conn: conn, done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

// readLoop consumes pongs until the connection closes.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypePong {
			continue
		}
		if p, err := msg.GetPongData(); err == nil {
			c.latencyMs.Store(p.LatencyMs)
			c.pongs.Add(1)
		}
	}
}

// SendSample sends one gaze sample.
func (c *Client) SendSample(x, y float64, valid bool) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	msg, err := protocol.NewSampleMessage(x, y, valid, seq)
	if err != nil {
		return err
	}
	return c.send(msg)
}

// Ping sends a ping; the reply updates LatencyMs.
func (c *Client) Ping(id string) error {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return err
	}
	return c.send(msg)
}

func (c *Client) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("relay: send %s: %w", msg.Type, err)
	}
	return nil
}

// Sent returns the number of samples sent.
func (c *Client) Sent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// LatencyMs returns the round trip reported by the last pong.
func (c *Client) LatencyMs() int64 { return c.latencyMs.Load() }

// Pongs returns the number of pongs received.
func (c *Client) Pongs() uint64 { return c.pongs.Load() }

// Done is closed when the connection's read side ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the read side. Valid once Done is closed.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}
