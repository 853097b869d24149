package rover

import (
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-rover/pkg/drive"
	"github.com/teslashibe/go-rover/pkg/gamepad"
)

// liveness is the shutdown flag every record carries. Tasks check it at
// the top of their loop; once cleared it is never set again.
type liveness struct {
	active atomic.Bool
}

// Active reports whether the owning task should keep running.
func (l *liveness) Active() bool {
	return l.active.Load()
}

// Deactivate asks the owning task to finish its current iteration and exit.
func (l *liveness) Deactivate() {
	l.active.Store(false)
}

// DriveInput is the latest stick state for the drive task.
type DriveInput struct {
	Throttle    float64 `json:"throttle"`
	Yaw         float64 `json:"yaw"`
	LeftRight   float64 `json:"left_right"`
	ForwardBack float64 `json:"forward_back"`
	Stop        bool    `json:"stop"`
	Brake       bool    `json:"brake"`
}

// DriveParams is written by the input task and read by the drive task.
type DriveParams struct {
	liveness

	mu sync.Mutex
	in DriveInput
}

// Set replaces the drive input.
func (p *DriveParams) Set(in DriveInput) {
	p.mu.Lock()
	p.in = in
	p.mu.Unlock()
}

// Get returns a copy of the drive input.
func (p *DriveParams) Get() DriveInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in
}

// MastParams is written by the input task and read by the mast task.
type MastParams struct {
	liveness

	mu  sync.Mutex
	cmd drive.MastCommand
}

// Set replaces the mast command.
func (p *MastParams) Set(cmd drive.MastCommand) {
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
}

// Get returns a copy of the mast command.
func (p *MastParams) Get() drive.MastCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd
}

// LEDParams gates the status patterns. It starts inactive when the LEDs
// are disabled.
type LEDParams struct {
	liveness
}

// OtherParams belongs to the auxiliary task.
type OtherParams struct {
	liveness
}

// Params holds the shared records. They are created once per Rover and
// shared by reference with every task.
type Params struct {
	Drive *DriveParams
	Mast  *MastParams
	LEDs  *LEDParams
	Other *OtherParams
}

// NewParams creates active records. LEDs is active only if leds is true.
func NewParams(leds bool) *Params {
	p := &Params{
		Drive: &DriveParams{},
		Mast:  &MastParams{},
		LEDs:  &LEDParams{},
		Other: &OtherParams{},
	}
	p.Drive.active.Store(true)
	p.Mast.active.Store(true)
	p.Other.active.Store(true)
	p.LEDs.active.Store(leds)
	return p
}

// DeactivateAll clears the command task records. LEDs is left to the drive
// task, which clears it after cleanup.
func (p *Params) DeactivateAll() {
	p.Drive.Deactivate()
	p.Mast.Deactivate()
	p.Other.Deactivate()
}

// DriveInputFrom maps the pad to drive input: the left stick's
// down/up axis is throttle, the right stick steers, Circle coasts to a stop
// and Square brakes.
func DriveInputFrom(s gamepad.Snapshot) DriveInput {
	return DriveInput{
		Throttle:    s.Value(gamepad.LeftStickDU),
		LeftRight:   s.Value(gamepad.RightStickLR),
		ForwardBack: s.Value(gamepad.RightStickDU),
		Stop:        s.Pressed(gamepad.Circle),
		Brake:       s.Pressed(gamepad.Square),
	}
}

// MastCommandFrom maps the D-pad to mast steps.
func MastCommandFrom(s gamepad.Snapshot) drive.MastCommand {
	return drive.MastCommand{
		Left:  s.Pressed(gamepad.DPadLeft),
		Right: s.Pressed(gamepad.DPadRight),
		Up:    s.Pressed(gamepad.DPadUp),
		Down:  s.Pressed(gamepad.DPadDown),
	}
}
