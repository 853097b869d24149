package gamepad

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// HIDRawConfig configures the Linux hidraw transport.
type HIDRawConfig struct {
	// Path is the device node, e.g. /dev/hidraw0. Empty means discover it
	// under SysfsRoot by vendor/product ID.
	Path      string `yaml:"path" json:"path"`
	SysfsRoot string `yaml:"sysfs_root" json:"sysfs_root"`

	// ReadTimeout bounds a single Read. Default: 1s
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// Warmup is the number of reports discarded after opening. Default: 10
	Warmup int `yaml:"warmup" json:"warmup"`
}

// DefaultHIDRawConfig returns a config that discovers the pad automatically.
func DefaultHIDRawConfig() HIDRawConfig {
	return HIDRawConfig{
		SysfsRoot:   DefaultSysfsRoot,
		ReadTimeout: time.Second,
		Warmup:      WarmupReports,
	}
}

// Validate checks that the configuration is valid.
func (c *HIDRawConfig) Validate() error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %v", c.ReadTimeout)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("warmup must not be negative, got %d", c.Warmup)
	}
	return nil
}

// HIDRawOpener opens the hidraw transport and runs the warm-up reads.
type HIDRawOpener struct {
	Config HIDRawConfig
	Logger *slog.Logger
}

// Open implements Opener.
func (o *HIDRawOpener) Open(ctx context.Context) (Transport, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := o.Config.Validate(); err != nil {
		return nil, &InitError{Op: "config", Err: err}
	}

	path := o.Config.Path
	if path == "" {
		p, err := FindHIDRaw(o.Config.SysfsRoot)
		if err != nil {
			return nil, &InitError{Op: "discover", Err: err, Retryable: true}
		}
		path = p
	}

	t, err := openHIDRaw(path, o.Config.ReadTimeout)
	if err != nil {
		return nil, err
	}

	if err := Warmup(ctx, t, o.Config.Warmup, WarmupInterval); err != nil {
		t.Close()
		return nil, err
	}

	logger.Info("gamepad connected", "path", path, "vendor", fmt.Sprintf("%04x", VendorID))
	return t, nil
}
