package robot

import "fmt"

// Physical limits.
const (
	MaxServoDegrees = 90.0
	MaxSpeedPercent = 100
	NumLEDs         = 4
)

// Wheel identifies a steerable corner wheel.
type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	RearLeft
	RearRight
)

func (w Wheel) String() string {
	switch w {
	case FrontLeft:
		return "FL"
	case FrontRight:
		return "FR"
	case RearLeft:
		return "RL"
	case RearRight:
		return "RR"
	default:
		return fmt.Sprintf("Wheel(%d)", int(w))
	}
}

// MastAxis identifies a mast servo.
type MastAxis int

const (
	Pan MastAxis = iota
	Tilt
)

func (a MastAxis) String() string {
	if a == Pan {
		return "pan"
	}
	return "tilt"
}

// Servo channels on the rover's PCA9685 board.
var (
	wheelChannels = map[Wheel]uint8{
		FrontLeft:  9,
		RearLeft:   11,
		FrontRight: 15,
		RearRight:  13,
	}
	mastChannels = map[MastAxis]uint8{
		Pan:  7,
		Tilt: 6,
	}
)

// Color is an RGB pixel value.
type Color struct {
	R, G, B uint8
}

// Scale returns c dimmed by brightness in [0, 1].
func (c Color) Scale(brightness float64) Color {
	b := clamp(brightness, 0, 1)
	return Color{
		R: uint8(float64(c.R) * b),
		G: uint8(float64(c.G) * b),
		B: uint8(float64(c.B) * b),
	}
}

// Status colors.
var (
	Black   = Color{0, 0, 0}
	Red     = Color{255, 0, 0}
	Green   = Color{0, 255, 0}
	Blue    = Color{0, 0, 255}
	White   = Color{255, 255, 255}
	RedDim  = Color{100, 0, 0}
	Magenta = Color{255, 0, 255}
)

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampSpeed(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxSpeedPercent {
		return MaxSpeedPercent
	}
	return v
}
