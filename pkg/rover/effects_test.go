package rover

import (
	"context"
	"testing"

	"github.com/teslashibe/go-rover/pkg/robot"
)

func activeLEDs() *LEDParams {
	return NewParams(true).LEDs
}

func TestEffects_SequencePattern(t *testing.T) {
	rec := robot.NewRecorder()
	clk := newStepClock()
	e := NewEffects(rec, activeLEDs(), clk, nil)

	e.Start(context.Background(), PatternBrake)

	steps := PatternBrake.Count * robot.NumLEDs
	for i := 0; i < steps; i++ {
		clk.expect(t, PatternBrake.Delay)
		// exactly one pixel is lit at each step
		lit := 0
		for px := 0; px < robot.NumLEDs; px++ {
			if rec.Pixel(px) == robot.Red {
				lit++
			}
		}
		if lit != 1 {
			t.Fatalf("step %d: %d pixels lit, want 1", i, lit)
		}
		clk.release()
	}
	e.Stop()

	if n := rec.Count("SetPixel"); n != steps {
		t.Errorf("SetPixel calls = %d, want %d", n, steps)
	}
	for px := 0; px < robot.NumLEDs; px++ {
		if rec.Pixel(px) != robot.Black {
			t.Errorf("pixel %d = %v, want cleared", px, rec.Pixel(px))
		}
	}
}

func TestEffects_FlashPattern(t *testing.T) {
	rec := robot.NewRecorder()
	clk := newStepClock()
	e := NewEffects(rec, activeLEDs(), clk, nil)

	done := make(chan struct{})
	go func() {
		e.Play(context.Background(), PatternStartup)
		close(done)
	}()

	for i := 0; i < PatternStartup.Count; i++ {
		clk.expect(t, PatternStartup.Delay)
		if rec.Pixel(0) != robot.Black {
			t.Errorf("flash %d: strip should be dark first", i)
		}
		clk.release()
		clk.expect(t, PatternStartup.Delay)
		if rec.Pixel(0) != robot.Green {
			t.Errorf("flash %d: strip should be green", i)
		}
		clk.release()
	}
	waitDone(t, done)

	if n := rec.Count("SetAll"); n != PatternStartup.Count {
		t.Errorf("SetAll calls = %d, want %d", n, PatternStartup.Count)
	}
	if rec.Pixel(0) != robot.Black {
		t.Error("strip should end dark")
	}
}

func TestEffects_NewPatternReplacesRunning(t *testing.T) {
	rec := robot.NewRecorder()
	clk := newStepClock()
	e := NewEffects(rec, activeLEDs(), clk, nil)
	ctx := context.Background()

	e.Start(ctx, PatternStartup)
	clk.expect(t, PatternStartup.Delay)

	// the startup flash is still suspended; starting a stop pattern cancels it
	e.Start(ctx, PatternStop)
	clk.expect(t, PatternStop.Delay)

	if rec.Count("SetAll") != 0 {
		t.Error("cancelled flash should not have lit the strip")
	}
	e.Stop()
}

func TestEffects_InactiveDoesNothing(t *testing.T) {
	rec := robot.NewRecorder()
	e := NewEffects(rec, NewParams(false).LEDs, newStepClock(), nil)

	e.Start(context.Background(), PatternFault)
	e.Play(context.Background(), PatternShutdown)
	e.Stop()

	if n := len(rec.Calls()); n != 0 {
		t.Errorf("inactive LEDs issued %d calls", n)
	}
}

func TestEffects_SwitchedOffMidPattern(t *testing.T) {
	rec := robot.NewRecorder()
	clk := newStepClock()
	leds := activeLEDs()
	e := NewEffects(rec, leds, clk, nil)

	e.Start(context.Background(), PatternShutdown)
	clk.expect(t, PatternShutdown.Delay)
	leds.Deactivate()
	clk.release()
	e.Stop()

	if n := rec.Count("SetPixel"); n != 1 {
		t.Errorf("SetPixel calls = %d, want 1", n)
	}
}
