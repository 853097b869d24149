package gamepad

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gamepad package.
var (
	// ErrShortReport is returned when fewer than ReportSize bytes were read.
	ErrShortReport = errors.New("gamepad: short report")

	// ErrUnknownMode is returned when no operating mode signature matches.
	ErrUnknownMode = errors.New("gamepad: unknown operating mode")

	// ErrModeMismatch is returned when the pad is in a different mode than expected.
	ErrModeMismatch = errors.New("gamepad: operating mode mismatch")

	// ErrNotDecoded is returned for recognized modes without a decoder (Mode1, Mode2).
	ErrNotDecoded = errors.New("gamepad: operating mode not decoded")

	// ErrTimeout is returned when no report arrived within the read timeout.
	ErrTimeout = errors.New("gamepad: read timeout")

	// ErrTransport indicates the underlying device failed.
	ErrTransport = errors.New("gamepad: transport error")

	// ErrDeviceNotFound is returned when no supported controller is attached.
	ErrDeviceNotFound = errors.New("gamepad: device not found")

	// ErrClosed is returned when reading from a closed transport.
	ErrClosed = errors.New("gamepad: transport closed")
)

// ProtocolError describes a report that could not be decoded.
type ProtocolError struct {
	// Err is one of ErrShortReport, ErrUnknownMode, ErrModeMismatch, ErrNotDecoded.
	Err error

	Detected Mode
	Expected Mode
	Report   RawReport
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	switch e.Err {
	case ErrShortReport:
		return fmt.Sprintf("%v: got %d of %d bytes", e.Err, e.Report.Count, ReportSize)
	case ErrModeMismatch:
		return fmt.Sprintf("%v: detected %s, expected %s (report % x)", e.Err, e.Detected, e.Expected, e.Report.Data)
	case ErrUnknownMode:
		return fmt.Sprintf("%v (report % x)", e.Err, e.Report.Data)
	default:
		return fmt.Sprintf("%v: %s", e.Err, e.Detected)
	}
}

// Unwrap returns the sentinel.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// InitError is returned when a transport cannot be acquired.
type InitError struct {
	Op        string
	Err       error
	Retryable bool
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("gamepad: init %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether acquisition may succeed on a later attempt.
func (e *InitError) IsRetryable() bool {
	return e.Retryable
}

// IsRecoverable reports whether err is a per-read failure the input loop
// should back off from and retry: protocol errors, timeouts, transport errors.
func IsRecoverable(err error) bool {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return true
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)
}

// IsProtocolError reports whether err came from report validation.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
