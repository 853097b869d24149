package gamepad

import (
	"context"
	"sync"
)

// Step is one scripted Read result.
type Step struct {
	Report RawReport
	Err    error
}

// MockTransport replays a script of reports and errors.
// Once the script is exhausted every Read returns ErrTimeout.
type MockTransport struct {
	mu     sync.Mutex
	steps  []Step
	pos    int
	loop   bool
	closed bool
	reads  int
}

// MockOption configures a MockTransport.
type MockOption func(*MockTransport)

// WithLoop replays the script forever.
func WithLoop() MockOption {
	return func(m *MockTransport) {
		m.loop = true
	}
}

// NewMockTransport creates a scripted transport.
func NewMockTransport(steps []Step, opts ...MockOption) *MockTransport {
	m := &MockTransport{steps: steps}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read returns the next scripted step.
func (m *MockTransport) Read(ctx context.Context) (RawReport, error) {
	if err := ctx.Err(); err != nil {
		return RawReport{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return RawReport{}, ErrClosed
	}
	m.reads++
	if m.pos >= len(m.steps) {
		if !m.loop || len(m.steps) == 0 {
			return RawReport{}, ErrTimeout
		}
		m.pos = 0
	}
	s := m.steps[m.pos]
	m.pos++
	return s.Report, s.Err
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ReadCount returns how many times Read was called.
func (m *MockTransport) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Mode0Report builds a valid Mode0 report. Stick bytes use the controller's
// encoding (0x00 centre, 0x7f full positive, 0x80 full negative).
func Mode0Report(buttons1, buttons2, l2, r2, lx, ly, rx, ry byte) RawReport {
	var b [ReportSize]byte
	b[0], b[1] = 0x00, 0x14
	b[offButtons1] = buttons1
	b[offButtons2] = buttons2
	b[offL2] = l2
	b[offR2] = r2
	b[offLeftX] = lx
	b[offLeftY] = ly
	b[offRightX] = rx
	b[offRightY] = ry
	return RawReport{Data: b, Count: ReportSize}
}
