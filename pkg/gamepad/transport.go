package gamepad

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Transport delivers raw reports from a controller.
//
// Read blocks until a report arrives, the transport's read timeout elapses
// (ErrTimeout) or the device fails (ErrTransport). A failed transport must be
// closed and re-opened.
type Transport interface {
	Read(ctx context.Context) (RawReport, error)
	Close() error
}

// Opener acquires a Transport. Failures are *InitError.
type Opener interface {
	Open(ctx context.Context) (Transport, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Transport, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// Warm-up after acquisition. The first reports after the pad connects carry
// vendor data and are discarded.
const (
	WarmupReports  = 10
	WarmupInterval = 100 * time.Millisecond
)

// Warmup reads and discards n reports. Timeouts are tolerated; any other
// transport failure aborts with a retryable *InitError.
func Warmup(ctx context.Context, t Transport, n int, interval time.Duration) error {
	for i := 0; i < n; i++ {
		if _, err := t.Read(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, ErrTimeout) {
				return &InitError{Op: "warmup", Err: err, Retryable: true}
			}
		}
		if interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return nil
}

// Pad couples a transport with a decoder.
type Pad struct {
	transport Transport
	decoder   *Decoder
	logger    *slog.Logger
}

// NewPad creates a Pad reading from t.
func NewPad(t Transport, d *Decoder, logger *slog.Logger) *Pad {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pad{transport: t, decoder: d, logger: logger}
}

// Poll reads one report and decodes it.
func (p *Pad) Poll(ctx context.Context) (Snapshot, error) {
	raw, err := p.transport.Read(ctx)
	if err != nil {
		return p.decoder.Snapshot(), err
	}
	snap, err := p.decoder.Decode(raw)
	if err != nil {
		p.logger.Debug("report rejected", "error", err)
	}
	return snap, err
}

// Snapshot returns the latest decoded values.
func (p *Pad) Snapshot() Snapshot {
	return p.decoder.Snapshot()
}

// RumbleStart would start force feedback. The controller exposes no output
// report for it, so this does nothing.
func (p *Pad) RumbleStart() {}

// RumbleEnd stops force feedback. No-op, see RumbleStart.
func (p *Pad) RumbleEnd() {}

// Close closes the transport.
func (p *Pad) Close() error {
	return p.transport.Close()
}
