package robot

import (
	"errors"
	"fmt"
)

// Sentinel errors for the robot package.
var (
	// ErrNotInitialized is returned when a command is sent before Init.
	ErrNotInitialized = errors.New("robot: actuator not initialized")

	// ErrClosed is returned after Cleanup.
	ErrClosed = errors.New("robot: actuator closed")

	// ErrPixelRange is returned for a pixel index outside the strip.
	ErrPixelRange = errors.New("robot: pixel index out of range")
)

// InitError is returned when the actuator hardware cannot be brought up.
type InitError struct {
	Backend   string
	Err       error
	Retryable bool
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("robot [%s]: init failed: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether Init may succeed on a later attempt.
func (e *InitError) IsRetryable() bool {
	return e.Retryable
}

// IsInitError reports whether err is an actuator bring-up failure.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}
