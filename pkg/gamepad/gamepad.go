// Package gamepad decodes reports from the PiHut wireless USB game controller.
//
// The controller sends a fixed 15-byte HID report whose layout depends on the
// operating mode selected on the pad (Analog + right stick). Only Mode0, the
// power-on default, is decoded into named controls. Mode1 and Mode2 are
// recognized by their signature bytes and reported as not decoded.
package gamepad

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReportSize is the length of every report the controller sends.
const ReportSize = 15

// USB identifiers of the supported controllers.
const (
	VendorID = 0x2563
)

// ProductIDs lists the product IDs the PiHut controller ships with.
var ProductIDs = []uint16{0x0575, 0x0526}

// RawReport is one report as read from a transport.
// It is only decodable when Count == ReportSize.
type RawReport struct {
	Data  [ReportSize]byte
	Count int
}

// NewRawReport copies b into a RawReport. Bytes past ReportSize are dropped.
func NewRawReport(b []byte) RawReport {
	var r RawReport
	r.Count = copy(r.Data[:], b)
	return r
}

// Mode is the controller operating mode.
type Mode int

const (
	Mode0 Mode = iota
	Mode1
	Mode2
	ModeUnknown
)

func (m Mode) String() string {
	switch m {
	case Mode0:
		return "mode0"
	case Mode1:
		return "mode1"
	case Mode2:
		return "mode2"
	default:
		return "unknown"
	}
}

// Control identifies one named control on the pad.
type Control int

// The order matches the report layout: buttons, triggers, then sticks with
// their half-axes.
const (
	DPadUp Control = iota
	DPadDown
	DPadLeft
	DPadRight
	Start
	Select
	L1Trigger
	R1Trigger
	Analog
	Cross
	Circle
	Square
	Triangle
	L2Trigger
	R2Trigger
	LeftStickLR
	LeftStickLeft
	LeftStickRight
	LeftStickDU
	LeftStickDown
	LeftStickUp
	RightStickLR
	RightStickLeft
	RightStickRight
	RightStickDU
	RightStickDown
	RightStickUp

	// NumControls is the number of named controls.
	NumControls
)

var controlNames = [NumControls]string{
	"DPad_Up", "DPad_Down", "DPad_Left", "DPad_Right", "Start", "Select",
	"L1_Trigger", "R1_Trigger", "Analog", "Cross", "Circle", "Square", "Triangle",
	"L2_Trigger", "R2_Trigger",
	"LeftStick_LR", "LeftStick_Left", "LeftStick_Right",
	"LeftStick_DU", "LeftStick_Down", "LeftStick_Up",
	"RightStick_LR", "RightStick_Left", "RightStick_Right",
	"RightStick_DU", "RightStick_Down", "RightStick_Up",
}

func (c Control) String() string {
	if c < 0 || c >= NumControls {
		return fmt.Sprintf("Control(%d)", int(c))
	}
	return controlNames[c]
}

// ControlByName looks up a control by its report name, e.g. "Circle".
func ControlByName(name string) (Control, bool) {
	for i, n := range controlNames {
		if n == name {
			return Control(i), true
		}
	}
	return 0, false
}

// ControlValue is the decoded state of a single control.
type ControlValue struct {
	// Value is in [-1, 1] for stick axes, [0, 1] for triggers and
	// half-axes, and exactly 0 or 1 for buttons.
	Value float64

	// PressDuration is how long the value has been held, see Decoder.
	PressDuration time.Duration
}

// Snapshot holds the latest value of every named control.
// It is a plain value; copies are independent of the decoder.
type Snapshot struct {
	Values [NumControls]ControlValue
}

// Get returns the value of c.
func (s Snapshot) Get(c Control) ControlValue {
	return s.Values[c]
}

// Value returns the numeric value of c.
func (s Snapshot) Value(c Control) float64 {
	return s.Values[c].Value
}

// Pressed reports whether a button reads exactly 1.
func (s Snapshot) Pressed(c Control) bool {
	return s.Values[c].Value == 1
}

type controlJSON struct {
	Value      float64 `json:"value"`
	DurationMs int64   `json:"press_duration_ms"`
}

// MarshalJSON encodes the snapshot keyed by control name.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	m := make(map[string]controlJSON, NumControls)
	for i, v := range s.Values {
		m[controlNames[i]] = controlJSON{Value: v.Value, DurationMs: v.PressDuration.Milliseconds()}
	}
	return json.Marshal(m)
}
