package robot

import (
	"context"
	"log/slog"
)

// DryRun logs every command instead of moving hardware. Useful on a bench
// with only the gamepad attached.
type DryRun struct {
	logger *slog.Logger
}

// NewDryRun creates a logging actuator.
func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{logger: logger.With("backend", "dryrun")}
}

func (d *DryRun) Init(ctx context.Context) error {
	d.logger.Info("actuator init")
	return nil
}

func (d *DryRun) Cleanup() error {
	d.logger.Info("actuator cleanup")
	return nil
}

func (d *DryRun) SetWheelServo(w Wheel, degrees float64) error {
	d.logger.Debug("wheel servo", "wheel", w, "deg", degrees)
	return nil
}

func (d *DryRun) SetMastServo(axis MastAxis, degrees float64) error {
	d.logger.Debug("mast servo", "axis", axis, "deg", degrees)
	return nil
}

func (d *DryRun) Forward(speed int) error {
	d.logger.Debug("forward", "speed", speed)
	return nil
}

func (d *DryRun) Reverse(speed int) error {
	d.logger.Debug("reverse", "speed", speed)
	return nil
}

func (d *DryRun) TurnForward(left, right int) error {
	d.logger.Debug("turn forward", "left", left, "right", right)
	return nil
}

func (d *DryRun) TurnReverse(left, right int) error {
	d.logger.Debug("turn reverse", "left", left, "right", right)
	return nil
}

func (d *DryRun) Stop() error {
	d.logger.Info("stop")
	return nil
}

func (d *DryRun) Brake() error {
	d.logger.Info("brake")
	return nil
}

func (d *DryRun) NumPixels() int { return NumLEDs }

func (d *DryRun) SetPixel(i int, c Color) error {
	if i < 0 || i >= NumLEDs {
		return ErrPixelRange
	}
	return nil
}

func (d *DryRun) SetAll(c Color) error { return nil }
func (d *DryRun) Clear() error         { return nil }
func (d *DryRun) Show() error          { return nil }
