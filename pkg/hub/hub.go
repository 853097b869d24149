package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-rover/pkg/protocol"
)

// Buffer sizes for the broadcast queue and each client's send queue.
const (
	BroadcastBuffer = 256
	ClientBuffer    = 64
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Only the Run goroutine touches the client map for writes.
type Hub struct {
	name   string
	logger *slog.Logger

	clients map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// guards reads of clients from ClientCount
	mu sync.RWMutex

	running atomic.Bool
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New creates a Hub. A nil logger uses slog.Default.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client's send queue. A hub runs once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "clients", count, "client", client.id, "remote", client.remote)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			st := client.Stats()
			h.logger.Info("client disconnected", "clients", count,
				"client", st.ID, "sent", st.Sent, "dropped", st.Dropped)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.offer(message)
			}
			h.sent.Add(uint64(len(h.clients)))
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// Report broadcasts a telemetry message. It makes the hub a rover reporter.
func (h *Hub) Report(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		h.logger.Debug("encode telemetry", "type", msg.Type, "error", err)
		return
	}
	h.Broadcast(NewJSONMessage(data))
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats counts queued and dropped messages. Dropped covers the broadcast
// queue; each subscriber counts the frames its own queue discarded.
type Stats struct {
	Clients     int           `json:"clients"`
	Sent        uint64        `json:"sent"`
	Dropped     uint64        `json:"dropped"`
	Subscribers []ClientStats `json:"subscribers"`
}

// GetStats returns hub counters.
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	subs := make([]ClientStats, 0, len(h.clients))
	for client := range h.clients {
		subs = append(subs, client.Stats())
	}
	h.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })

	return Stats{
		Clients:     len(subs),
		Sent:        h.sent.Load(),
		Dropped:     h.dropped.Load(),
		Subscribers: subs,
	}
}
