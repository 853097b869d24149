package hub

import (
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Subscriber connection timing. A subscriber that cannot take a frame within
// frameTimeout, or misses keepalives for idleTimeout, is disconnected.
const (
	frameTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	keepalive    = idleTimeout * 9 / 10

	// subscribers only send control frames
	maxInbound = 4 * 1024
)

// Client is one telemetry subscriber. Its queue is lossy: when it is full
// the oldest frame is discarded, so a slow dashboard sees recent state
// instead of being dropped.
type Client struct {
	id     string
	remote string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// ClientStats counts one subscriber's frames.
type ClientStats struct {
	ID      string `json:"id"`
	Remote  string `json:"remote,omitempty"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// NewClient registers a subscriber on conn. It returns nil when the hub has
// stopped.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := newClient(hub, ClientBuffer)
	c.conn = conn
	if conn != nil {
		c.remote = conn.RemoteAddr().String()
	}
	if !hub.add(c) {
		return nil
	}
	return c
}

func newClient(hub *Hub, buffer int) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		send: make(chan Message, buffer),
	}
}

// offer queues msg, evicting the oldest queued frame when the queue is full.
// Only the hub's Run goroutine offers, so the loop ends within two passes.
func (c *Client) offer(msg Message) {
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
			c.dropped.Add(1)
		default:
		}
	}
}

// Stats returns the subscriber's counters.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		ID:      c.id,
		Remote:  c.remote,
		Sent:    c.sent.Load(),
		Dropped: c.dropped.Load(),
	}
}

// Run streams frames to the subscriber until either side goes away.
func (c *Client) Run() {
	go c.stream()
	c.watch()
}

// watch consumes inbound frames so pongs are seen, and unregisters the
// subscriber once the connection fails.
func (c *Client) watch() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// stream is the only writer on the connection. It ends when the hub closes
// the queue or a write fails.
func (c *Client) stream() {
	ping := time.NewTicker(keepalive)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(msg.frameType(), msg.Data); err != nil {
				c.hub.logger.Debug("telemetry write failed", "client", c.id, "error", err)
				return
			}
			c.sent.Add(1)

		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(frame int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(frameTimeout))
	return c.conn.WriteMessage(frame, data)
}

func (m Message) frameType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
