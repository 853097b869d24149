package drive

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-rover/pkg/robot"
)

// SteeringMode selects how a drive command reaches the wheels.
type SteeringMode string

const (
	// SteeringSimple points all wheels the same way and drives both sides
	// at one speed. Rear wheels are mirrored.
	SteeringSimple SteeringMode = "simple"

	// SteeringAckermann gives each side its own angle and speed.
	SteeringAckermann SteeringMode = "ackermann"
)

// ParseSteeringMode validates a steering mode name.
func ParseSteeringMode(s string) (SteeringMode, error) {
	switch SteeringMode(s) {
	case SteeringSimple, SteeringAckermann:
		return SteeringMode(s), nil
	default:
		return "", fmt.Errorf("drive: unknown steering mode %q (want simple or ackermann)", s)
	}
}

// Command is a mixed drive command before wheel geometry.
type Command struct {
	Direction float64 `json:"direction"` // degrees, positive right
	Speed     float64 `json:"speed"`     // percent, positive forward
}

// State is a snapshot of the controller for telemetry.
type State struct {
	Mode    SteeringMode `json:"mode"`
	Last    Command      `json:"last"`
	Wheels  WheelCommand `json:"wheels"`
	Applied uint64       `json:"applied"`
	Skipped uint64       `json:"skipped"`
	Errors  uint64       `json:"errors"`
}

// Controller owns the steering filter, the Ackermann state and the last
// applied command. Commands equal to the last applied one are skipped.
type Controller struct {
	actuator robot.DriveActuator
	mode     SteeringMode
	maxDir   float64
	logger   *slog.Logger

	mu       sync.Mutex
	filter   SteeringFilter
	geometry Ackermann
	last     Command
	lastOK   bool
	wheels   WheelCommand

	applied uint64
	skipped uint64
	errors  uint64
}

// NewController creates a drive controller.
func NewController(actuator robot.DriveActuator, mode SteeringMode, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		actuator: actuator,
		mode:     mode,
		maxDir:   DriveMaxDirection,
		logger:   logger,
		// a stationary rover needs no initial command
		lastOK: true,
	}
}

// Mode returns the steering mode.
func (c *Controller) Mode() SteeringMode {
	return c.mode
}

// Drive mixes the stick axes and applies the command if it changed.
// throttle is forward/back speed, yaw differential turn, leftRight and
// forwardBack the steering stick.
func (c *Controller) Drive(yaw, throttle, leftRight, forwardBack float64) (Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	speed, _ := MixSpeed(yaw, throttle, DefaultMaxSpeed)
	dir := MixDirection(&c.filter, leftRight, forwardBack, c.maxDir)
	return c.applyLocked(Command{Direction: dir, Speed: speed})
}

// Apply sends cmd unless it equals the last applied command.
func (c *Controller) Apply(cmd Command) (Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(cmd)
}

func (c *Controller) applyLocked(cmd Command) (Command, error) {
	if c.lastOK && cmd == c.last {
		c.skipped++
		return cmd, nil
	}

	var err error
	switch c.mode {
	case SteeringAckermann:
		err = c.moveAckermann(cmd)
	default:
		err = c.moveSimple(cmd)
	}
	if err != nil {
		c.errors++
		return cmd, fmt.Errorf("drive: apply %+v: %w", cmd, err)
	}

	c.last = cmd
	c.lastOK = true
	c.applied++
	c.logger.Debug("drive command", "dir", cmd.Direction, "speed", cmd.Speed, "wheels", c.wheels)
	return cmd, nil
}

func setWheels(a robot.WheelServos, fl, fr float64) error {
	if err := a.SetWheelServo(robot.FrontLeft, fl); err != nil {
		return err
	}
	if err := a.SetWheelServo(robot.FrontRight, fr); err != nil {
		return err
	}
	if err := a.SetWheelServo(robot.RearLeft, -fl); err != nil {
		return err
	}
	return a.SetWheelServo(robot.RearRight, -fr)
}

func (c *Controller) moveSimple(cmd Command) error {
	if err := setWheels(c.actuator, cmd.Direction, cmd.Direction); err != nil {
		return err
	}

	speed := int(cmd.Speed)
	c.wheels = WheelCommand{
		LeftAngle: int(cmd.Direction), RightAngle: int(cmd.Direction),
		LeftSpeed: speed, RightSpeed: speed,
	}

	switch {
	case cmd.Speed == 0:
		return c.actuator.Stop()
	case cmd.Speed > 0:
		return c.actuator.Forward(abs(speed))
	default:
		return c.actuator.Reverse(abs(speed))
	}
}

func (c *Controller) moveAckermann(cmd Command) error {
	dir := cmd.Direction
	w := c.geometry.Steer(&dir, cmd.Speed)

	if err := setWheels(c.actuator, float64(w.LeftAngle), float64(w.RightAngle)); err != nil {
		return err
	}

	switch {
	case cmd.Speed == 0:
		w.LeftSpeed, w.RightSpeed = 0, 0
		c.wheels = w
		return c.actuator.Stop()
	case cmd.Speed > 0:
		c.wheels = w
		return c.actuator.TurnForward(w.LeftSpeed, w.RightSpeed)
	default:
		c.wheels = w
		return c.actuator.TurnReverse(abs(w.LeftSpeed), abs(w.RightSpeed))
	}
}

// Stop lets the rover coast. The next drive command is always applied.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOK = false
	c.wheels.LeftSpeed, c.wheels.RightSpeed = 0, 0
	return c.actuator.Stop()
}

// Brake stops the rover quickly. The next drive command is always applied.
func (c *Controller) Brake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastOK = false
	c.wheels.LeftSpeed, c.wheels.RightSpeed = 0, 0
	return c.actuator.Brake()
}

// State returns a snapshot for telemetry.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Mode:    c.mode,
		Last:    c.last,
		Wheels:  c.wheels,
		Applied: c.applied,
		Skipped: c.skipped,
		Errors:  c.errors,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
