// Package robot defines the actuator boundary of the M.A.R.S. rover and
// its backends.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. The drive loop
// only needs WheelServos and Motors; the mast loop only MastServos.
package robot

import "context"

// WheelServos steers the four corner wheels.
type WheelServos interface {
	SetWheelServo(w Wheel, degrees float64) error
}

// Motors drives the left and right motor groups. Speeds are duty-cycle
// percentages in [0, 100]; direction is given by the method.
type Motors interface {
	Forward(speed int) error
	Reverse(speed int) error
	TurnForward(left, right int) error
	TurnReverse(left, right int) error

	// Stop lets the motors coast.
	Stop() error

	// Brake shorts the motors for a quick stop.
	Brake() error
}

// MastServos positions the pan/tilt mast.
type MastServos interface {
	SetMastServo(axis MastAxis, degrees float64) error
}

// LEDStrip drives the status pixels.
type LEDStrip interface {
	NumPixels() int
	SetPixel(i int, c Color) error
	SetAll(c Color) error
	Clear() error
	Show() error
}

// Lifecycle brings the hardware up and down.
type Lifecycle interface {
	Init(ctx context.Context) error

	// Cleanup brakes the motors, clears the LEDs and releases the bus.
	Cleanup() error
}

// DriveActuator is what the drive controller needs.
type DriveActuator interface {
	WheelServos
	Motors
}

// Actuator is the composite interface for full rover control.
type Actuator interface {
	Lifecycle
	WheelServos
	Motors
	MastServos
	LEDStrip
}

var (
	_ Actuator = (*CANActuator)(nil)
	_ Actuator = (*DryRun)(nil)
	_ Actuator = (*Recorder)(nil)
)
