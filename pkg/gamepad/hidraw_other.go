//go:build !linux

package gamepad

import (
	"context"
	"errors"
	"time"
)

// HIDRaw is only available on Linux.
type HIDRaw struct{}

func openHIDRaw(path string, timeout time.Duration) (*HIDRaw, error) {
	return nil, &InitError{Op: "open " + path, Err: errors.New("hidraw is only available on Linux")}
}

// Read always fails on this platform.
func (h *HIDRaw) Read(ctx context.Context) (RawReport, error) {
	return RawReport{}, ErrClosed
}

// Close does nothing.
func (h *HIDRaw) Close() error {
	return nil
}
