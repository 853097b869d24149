package rover

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/pkg/robot"
)

// PatternKind selects how a pattern lights the strip.
type PatternKind int

const (
	// Flash blinks every pixel at once.
	Flash PatternKind = iota

	// Sequence lights one pixel at a time around the strip.
	Sequence
)

// Pattern is an LED status pattern. Each color is played Count times in
// order, with Delay between steps.
type Pattern struct {
	Name   string
	Kind   PatternKind
	Count  int
	Delay  time.Duration
	Colors []robot.Color
}

// Status patterns.
var (
	PatternStartup  = Pattern{Name: "startup", Kind: Flash, Count: 3, Delay: 500 * time.Millisecond, Colors: []robot.Color{robot.Green}}
	PatternStop     = Pattern{Name: "stop", Kind: Sequence, Count: 3, Delay: 300 * time.Millisecond, Colors: []robot.Color{robot.Red}}
	PatternBrake    = Pattern{Name: "brake", Kind: Sequence, Count: 2, Delay: 200 * time.Millisecond, Colors: []robot.Color{robot.Red}}
	PatternFault    = Pattern{Name: "fault", Kind: Sequence, Count: 1, Delay: 300 * time.Millisecond, Colors: []robot.Color{robot.Red, robot.Blue, robot.Red}}
	PatternShutdown = Pattern{Name: "shutdown", Kind: Sequence, Count: 3, Delay: 200 * time.Millisecond, Colors: []robot.Color{robot.Red}}
)

// Effects plays status patterns on the LED strip. At most one pattern runs
// at a time; starting another cancels it. Nothing is shown while the LED
// record is inactive.
type Effects struct {
	strip  robot.LEDStrip
	params *LEDParams
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEffects creates a pattern player.
func NewEffects(strip robot.LEDStrip, params *LEDParams, clock Clock, logger *slog.Logger) *Effects {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Effects{strip: strip, params: params, clock: clock, logger: logger}
}

// Start plays p in the background.
func (e *Effects) Start(ctx context.Context, p Pattern) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	if !e.params.Active() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	go func() {
		defer close(done)
		e.play(ctx, p)
	}()
}

// Play plays p and returns when it has finished.
func (e *Effects) Play(ctx context.Context, p Pattern) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	if !e.params.Active() {
		return
	}
	e.play(ctx, p)
}

// Stop cancels the running pattern and waits for it to return.
func (e *Effects) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Effects) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil
}

func (e *Effects) play(ctx context.Context, p Pattern) {
	var err error
	switch p.Kind {
	case Flash:
		err = e.flash(ctx, p)
	case Sequence:
		err = e.sequence(ctx, p)
	}
	if err != nil && ctx.Err() == nil {
		e.logger.Debug("led pattern aborted", "pattern", p.Name, "error", err)
	}
}

// step pauses between pattern frames. The pattern ends early if the LEDs
// were switched off meanwhile.
func (e *Effects) step(ctx context.Context, d time.Duration) error {
	if err := e.clock.Sleep(ctx, d); err != nil {
		return err
	}
	if !e.params.Active() {
		return context.Canceled
	}
	return nil
}

func (e *Effects) flash(ctx context.Context, p Pattern) error {
	for _, c := range p.Colors {
		for i := 0; i < p.Count; i++ {
			if err := e.strip.Clear(); err != nil {
				return err
			}
			if err := e.step(ctx, p.Delay); err != nil {
				return err
			}
			if err := e.strip.SetAll(c); err != nil {
				return err
			}
			if err := e.step(ctx, p.Delay); err != nil {
				return err
			}
		}
	}
	return e.strip.Clear()
}

func (e *Effects) sequence(ctx context.Context, p Pattern) error {
	if err := e.strip.Clear(); err != nil {
		return err
	}
	n := e.strip.NumPixels()
	for _, c := range p.Colors {
		for i := 0; i < p.Count; i++ {
			for px := 0; px < n; px++ {
				if err := e.strip.Clear(); err != nil {
					return err
				}
				if err := e.strip.SetPixel(px, c); err != nil {
					return err
				}
				if err := e.strip.Show(); err != nil {
					return err
				}
				if err := e.step(ctx, p.Delay); err != nil {
					return err
				}
			}
		}
	}
	return e.strip.Clear()
}
