// Package drive turns joystick axes into rover drive and mast commands.
//
// The mixers map stick positions to a speed and a steering angle, the
// Ackermann engine splits those into per-side wheel angles and speeds, and
// Controller applies the result to the actuators only when it changed.
package drive

import "math"

// Mixer limits.
const (
	DefaultMaxSpeed     = 100.0
	DefaultMaxDirection = 65.0

	// DriveMaxDirection is the steering limit used when driving.
	DriveMaxDirection = 50.0

	// FilterLength is the number of direction samples averaged.
	FilterLength = 3
)

// MixSpeed mixes yaw and throttle in [-1, 1] into left and right speeds.
//
// With zero yaw the rover drives straight: the first result is the common
// speed and the second is 0. Otherwise left = throttle+yaw and
// right = throttle-yaw, scaled down together so neither exceeds maxSpeed.
func MixSpeed(yaw, throttle, maxSpeed float64) (left, right float64) {
	if yaw == 0 {
		scale := maxSpeed / math.Max(1, math.Abs(throttle))
		return throttle * scale, 0
	}

	left = throttle + yaw
	right = throttle - yaw
	scale := maxSpeed / math.Max(1, math.Max(math.Abs(left), math.Abs(right)))
	return left * scale, right * scale
}

// SteeringFilter is a moving average over the last FilterLength steering
// angles. It starts filled with zeros, so a step input settles after
// FilterLength samples.
type SteeringFilter struct {
	samples [FilterLength]float64
	next    int
}

// Push adds a sample, evicting the oldest, and returns the new mean.
func (f *SteeringFilter) Push(v float64) float64 {
	f.samples[f.next] = v
	f.next = (f.next + 1) % FilterLength
	return f.Mean()
}

// Mean returns the average of the buffered samples.
func (f *SteeringFilter) Mean() float64 {
	var sum float64
	for _, s := range f.samples {
		sum += s
	}
	return sum / FilterLength
}

// Reset zeroes the buffer.
func (f *SteeringFilter) Reset() {
	*f = SteeringFilter{}
}

// SteeringAngle maps a stick vector to an angle in [-maxDir, maxDir]
// degrees. The forward/back sign is ignored so reversing does not flip
// the steering.
func SteeringAngle(leftRight, forwardBack, maxDir float64) float64 {
	rel := (2 / math.Pi) * math.Atan2(leftRight, math.Abs(forwardBack))
	scale := maxDir / math.Max(1, math.Abs(rel))
	return rel * scale
}

// MixDirection computes the steering angle and smooths it through f.
func MixDirection(f *SteeringFilter, leftRight, forwardBack, maxDir float64) float64 {
	return f.Push(SteeringAngle(leftRight, forwardBack, maxDir))
}
