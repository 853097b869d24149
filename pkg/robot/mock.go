package robot

import (
	"context"
	"sync"
)

// Call is one recorded actuator command.
type Call struct {
	Method string
	Args   []any
}

// Recorder is an in-memory Actuator for tests. It records every call and
// tracks the resulting servo and pixel state.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	fail   map[string]error
	wheels [4]float64
	mast   [2]float64
	pixels [NumLEDs]Color
	inited bool
	closed bool
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithFailure makes method return err.
func WithFailure(method string, err error) RecorderOption {
	return func(r *Recorder) {
		r.fail[method] = err
	}
}

// NewRecorder creates a Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{fail: make(map[string]error)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) record(method string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
	return r.fail[method]
}

// Init implements Lifecycle.
func (r *Recorder) Init(ctx context.Context) error {
	if err := r.record("Init"); err != nil {
		return err
	}
	r.mu.Lock()
	r.inited = true
	r.mu.Unlock()
	return nil
}

// Cleanup implements Lifecycle.
func (r *Recorder) Cleanup() error {
	err := r.record("Cleanup")
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return err
}

// SetWheelServo implements WheelServos.
func (r *Recorder) SetWheelServo(w Wheel, degrees float64) error {
	if err := r.record("SetWheelServo", w, degrees); err != nil {
		return err
	}
	r.mu.Lock()
	r.wheels[w] = degrees
	r.mu.Unlock()
	return nil
}

// SetMastServo implements MastServos.
func (r *Recorder) SetMastServo(axis MastAxis, degrees float64) error {
	if err := r.record("SetMastServo", axis, degrees); err != nil {
		return err
	}
	r.mu.Lock()
	r.mast[axis] = degrees
	r.mu.Unlock()
	return nil
}

// Forward implements Motors.
func (r *Recorder) Forward(speed int) error { return r.record("Forward", speed) }

// Reverse implements Motors.
func (r *Recorder) Reverse(speed int) error { return r.record("Reverse", speed) }

// TurnForward implements Motors.
func (r *Recorder) TurnForward(left, right int) error { return r.record("TurnForward", left, right) }

// TurnReverse implements Motors.
func (r *Recorder) TurnReverse(left, right int) error { return r.record("TurnReverse", left, right) }

// Stop implements Motors.
func (r *Recorder) Stop() error { return r.record("Stop") }

// Brake implements Motors.
func (r *Recorder) Brake() error { return r.record("Brake") }

// NumPixels implements LEDStrip.
func (r *Recorder) NumPixels() int { return NumLEDs }

// SetPixel implements LEDStrip.
func (r *Recorder) SetPixel(i int, c Color) error {
	if i < 0 || i >= NumLEDs {
		return ErrPixelRange
	}
	if err := r.record("SetPixel", i, c); err != nil {
		return err
	}
	r.mu.Lock()
	r.pixels[i] = c
	r.mu.Unlock()
	return nil
}

// SetAll implements LEDStrip.
func (r *Recorder) SetAll(c Color) error {
	if err := r.record("SetAll", c); err != nil {
		return err
	}
	r.mu.Lock()
	for i := range r.pixels {
		r.pixels[i] = c
	}
	r.mu.Unlock()
	return nil
}

// Clear implements LEDStrip.
func (r *Recorder) Clear() error {
	if err := r.record("Clear"); err != nil {
		return err
	}
	r.mu.Lock()
	r.pixels = [NumLEDs]Color{}
	r.mu.Unlock()
	return nil
}

// Show implements LEDStrip.
func (r *Recorder) Show() error { return r.record("Show") }

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many times method was called.
func (r *Recorder) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last returns the most recent call to method.
func (r *Recorder) Last(method string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Method == method {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls but keeps servo state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Wheel returns the last angle set on w.
func (r *Recorder) Wheel(w Wheel) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wheels[w]
}

// Mast returns the last pan and tilt angles.
func (r *Recorder) Mast() (pan, tilt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mast[Pan], r.mast[Tilt]
}

// Pixel returns the color of pixel i.
func (r *Recorder) Pixel(i int) Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pixels[i]
}

// CleanedUp reports whether Cleanup was called.
func (r *Recorder) CleanedUp() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
