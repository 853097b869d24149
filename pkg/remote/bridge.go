// Package remote lets an operator drive the rover over a websocket.
//
// The operator's client sends the controller's 15-byte reports either as
// binary frames or as protocol "report" messages. The bridge hands them to
// the input task through a gamepad.Transport, so a remote pad is decoded
// and validated exactly like a local one.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// Config configures the bridge.
type Config struct {
	// ReadTimeout bounds Transport.Read, like the hidraw poll timeout.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// QueueSize is the number of reports buffered per session.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns bridge defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout: time.Second,
		QueueSize:   32,
	}
}

// session is one connected operator.
type session struct {
	id        string
	conn      *websocket.Conn
	connected time.Time
	lastSeen  atomic.Int64

	reports chan gamepad.RawReport
	gone    chan struct{}

	// serialises writes
	mu sync.Mutex
}

func (s *session) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Bridge accepts one operator at a time and implements gamepad.Opener.
type Bridge struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	current *session

	onConnect    func(id string)
	onDisconnect func(id string)

	sessions atomic.Uint64
	rejected atomic.Uint64
	reports  atomic.Uint64
	dropped  atomic.Uint64
	invalid  atomic.Uint64
}

// NewBridge creates a bridge. A nil logger uses slog.Default.
func NewBridge(cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	return &Bridge{cfg: cfg, logger: logger.With("component", "remote")}
}

// OnConnect sets a callback run when an operator connects.
func (b *Bridge) OnConnect(callback func(id string)) {
	b.mu.Lock()
	b.onConnect = callback
	b.mu.Unlock()
}

// OnDisconnect sets a callback run when the operator leaves.
func (b *Bridge) OnDisconnect(callback func(id string)) {
	b.mu.Lock()
	b.onDisconnect = callback
	b.mu.Unlock()
}

// RegisterRoutes mounts the operator endpoint on app.
func (b *Bridge) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/gamepad", websocket.New(b.handleOperator))
	app.Get("/ws/gamepad/:id", websocket.New(b.handleOperator))
}

// RegisterAPIRoutes mounts the bridge status endpoint under api.
func (b *Bridge) RegisterAPIRoutes(api fiber.Router) {
	api.Get("/remote", func(c *fiber.Ctx) error {
		return c.JSON(b.GetStats())
	})
}

func (b *Bridge) handleOperator(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	s := &session{
		id:        id,
		conn:      c,
		connected: time.Now(),
		reports:   make(chan gamepad.RawReport, b.cfg.QueueSize),
		gone:      make(chan struct{}),
	}
	s.lastSeen.Store(s.connected.UnixMilli())

	b.mu.Lock()
	if b.current != nil {
		busy := b.current.id
		b.mu.Unlock()
		b.rejected.Add(1)
		b.logger.Warn("operator rejected, another is connected", "session", id, "active", busy)
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "operator already connected"))
		return
	}
	b.current = s
	onConnect := b.onConnect
	b.mu.Unlock()

	b.sessions.Add(1)
	b.logger.Info("operator connected", "session", id, "remote", c.RemoteAddr().String())
	if onConnect != nil {
		onConnect(id)
	}

	defer func() {
		b.mu.Lock()
		b.current = nil
		onDisconnect := b.onDisconnect
		b.mu.Unlock()
		close(s.gone)

		b.logger.Info("operator disconnected", "session", id)
		if onDisconnect != nil {
			onDisconnect(id)
		}
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			b.logger.Debug("operator read", "session", id, "error", err)
			return
		}
		s.lastSeen.Store(time.Now().UnixMilli())

		switch mt {
		case websocket.BinaryMessage:
			b.push(s, data)
		case websocket.TextMessage:
			b.handleMessage(s, data)
		}
	}
}

func (b *Bridge) handleMessage(s *session, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		b.invalid.Add(1)
		b.logger.Debug("parse error", "session", s.id, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeReport:
		rd, err := msg.GetReportData()
		if err != nil {
			b.invalid.Add(1)
			return
		}
		raw, err := rd.DecodeReport()
		if err != nil {
			b.invalid.Add(1)
			b.logger.Debug("bad report payload", "session", s.id, "error", err)
			return
		}
		b.push(s, raw)

	case protocol.TypePing:
		var id string
		if ping, err := msg.GetPingData(); err == nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			if err := s.send(pong); err != nil {
				b.logger.Debug("send pong", "session", s.id, "error", err)
			}
		}
	}
}

// push queues a report, evicting the oldest one when the queue is full so
// the input task always sees the operator's latest controls. Short reports
// are passed through; the decoder rejects them like a short hidraw read.
// Only the session's read loop pushes, so one eviction always makes room.
func (b *Bridge) push(s *session, data []byte) {
	r := gamepad.NewRawReport(data)
	for {
		select {
		case s.reports <- r:
			b.reports.Add(1)
			return
		default:
		}
		select {
		case <-s.reports:
			b.dropped.Add(1)
		default:
		}
	}
}

// Open binds a transport to the connected operator. With nobody connected
// it fails with a retryable *gamepad.InitError.
func (b *Bridge) Open(ctx context.Context) (gamepad.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	s := b.current
	b.mu.RUnlock()

	if s == nil {
		return nil, &gamepad.InitError{Op: "open remote", Err: gamepad.ErrDeviceNotFound, Retryable: true}
	}
	return &Transport{session: s, timeout: b.cfg.ReadTimeout}, nil
}

// Connected reports whether an operator is attached.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current != nil
}

// Transport reads reports from one operator session.
type Transport struct {
	session *session
	timeout time.Duration
	closed  atomic.Bool
}

// Read waits for a report and returns the newest one queued, so a slow
// reader never acts on stale controls. It returns ErrTimeout when the
// operator sends nothing for the read timeout and ErrTransport once the
// operator has disconnected.
func (t *Transport) Read(ctx context.Context) (gamepad.RawReport, error) {
	if t.closed.Load() {
		return gamepad.RawReport{}, gamepad.ErrClosed
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case r := <-t.session.reports:
		return t.newest(r), nil
	case <-t.session.gone:
		return gamepad.RawReport{}, fmt.Errorf("%w: operator %s disconnected", gamepad.ErrTransport, t.session.id)
	case <-timer.C:
		return gamepad.RawReport{}, gamepad.ErrTimeout
	case <-ctx.Done():
		return gamepad.RawReport{}, ctx.Err()
	}
}

func (t *Transport) newest(r gamepad.RawReport) gamepad.RawReport {
	for {
		select {
		case next := <-t.session.reports:
			r = next
		default:
			return r
		}
	}
}

// Close detaches the transport. The operator stays connected.
func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}

// SessionID returns the operator session the transport reads from.
func (t *Transport) SessionID() string {
	return t.session.id
}

// Stats contains bridge statistics.
type Stats struct {
	Connected bool         `json:"connected"`
	Session   *SessionInfo `json:"session,omitempty"`
	Sessions  uint64       `json:"sessions"`
	Rejected  uint64       `json:"rejected"`
	Reports   uint64       `json:"reports"`
	Dropped   uint64       `json:"dropped"`
	Invalid   uint64       `json:"invalid"`
}

// SessionInfo describes the connected operator.
type SessionInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetStats returns bridge statistics.
func (b *Bridge) GetStats() Stats {
	b.mu.RLock()
	s := b.current
	b.mu.RUnlock()

	st := Stats{
		Connected: s != nil,
		Sessions:  b.sessions.Load(),
		Rejected:  b.rejected.Load(),
		Reports:   b.reports.Load(),
		Dropped:   b.dropped.Load(),
		Invalid:   b.invalid.Load(),
	}
	if s != nil {
		st.Session = &SessionInfo{
			ID:        s.id,
			Connected: s.connected,
			LastSeen:  time.UnixMilli(s.lastSeen.Load()),
		}
	}
	return st
}
