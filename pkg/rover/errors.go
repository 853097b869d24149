package rover

import (
	"errors"
	"fmt"
)

// Sentinel errors for the rover package.
var (
	// ErrInputLost is returned by Run when the gamepad could not be
	// acquired and no retry is possible.
	ErrInputLost = errors.New("rover: gamepad unavailable")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("rover: already running")
)

// TaskError records the failure that ended a task and, with it, the
// whole orchestrator.
type TaskError struct {
	Task string
	Err  error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("rover: %s task: %v", e.Task, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}
