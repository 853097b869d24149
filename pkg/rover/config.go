package rover

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-rover/pkg/drive"
)

// Config holds the orchestrator settings.
type Config struct {
	// Steering selects simple or Ackermann wheel geometry.
	Steering drive.SteeringMode `json:"steering" yaml:"steering"`

	// LEDBrightness in [0, 1]. 0 disables the status patterns.
	LEDBrightness float64 `json:"led_brightness" yaml:"led_brightness"`

	// Input task
	PollInterval   time.Duration `json:"poll_interval" yaml:"poll_interval"`     // between reads
	ErrorBackoff   time.Duration `json:"error_backoff" yaml:"error_backoff"`     // after a failed read
	ReacquireDelay time.Duration `json:"reacquire_delay" yaml:"reacquire_delay"` // before re-opening the pad

	// Drive task
	StartupDelay  time.Duration `json:"startup_delay" yaml:"startup_delay"`   // after actuator init
	StopHold      time.Duration `json:"stop_hold" yaml:"stop_hold"`           // after a coast stop
	BrakeHold     time.Duration `json:"brake_hold" yaml:"brake_hold"`         // after a brake
	DriveInterval time.Duration `json:"drive_interval" yaml:"drive_interval"` // between drive updates

	MastInterval time.Duration `json:"mast_interval" yaml:"mast_interval"`
	AuxInterval  time.Duration `json:"aux_interval" yaml:"aux_interval"`
}

// DefaultConfig returns the timings the rover was tuned with.
func DefaultConfig() Config {
	return Config{
		Steering:       drive.SteeringSimple,
		LEDBrightness:  0.4,
		PollInterval:   100 * time.Millisecond,
		ErrorBackoff:   time.Second,
		ReacquireDelay: time.Second,
		StartupDelay:   2500 * time.Millisecond,
		StopHold:       4 * time.Second,
		BrakeHold:      2 * time.Second,
		DriveInterval:  100 * time.Millisecond,
		MastInterval:   100 * time.Millisecond,
		AuxInterval:    200 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := drive.ParseSteeringMode(string(c.Steering)); err != nil {
		return err
	}
	if c.LEDBrightness < 0 || c.LEDBrightness > 1 {
		return fmt.Errorf("rover: led brightness %v outside [0, 1]", c.LEDBrightness)
	}
	for name, d := range map[string]time.Duration{
		"poll interval":   c.PollInterval,
		"error backoff":   c.ErrorBackoff,
		"reacquire delay": c.ReacquireDelay,
		"drive interval":  c.DriveInterval,
		"mast interval":   c.MastInterval,
		"aux interval":    c.AuxInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("rover: %s must be positive", name)
		}
	}
	if c.StartupDelay < 0 || c.StopHold < 0 || c.BrakeHold < 0 {
		return errors.New("rover: startup delay and hold times must not be negative")
	}
	return nil
}

// LEDsEnabled reports whether status patterns are shown.
func (c *Config) LEDsEnabled() bool {
	return c.LEDBrightness > 0
}
