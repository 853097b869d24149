package drive

import "math"

// ChassisRatio is track width over wheelbase of the M.A.R.S. rover (80/77).
const ChassisRatio = 80.0 / 77.0

// MaxBicycleAngle limits the bicycle-model steering angle so the turn radius
// stays above 0.6 of the track width (about 38.7°, inner wheel about 78.3°).
var MaxBicycleAngle = math.Atan2(1, 1.2*ChassisRatio)

// WheelCommand is the per-side result of the Ackermann engine. Angles are
// degrees, speeds signed duty-cycle percentages.
type WheelCommand struct {
	LeftAngle  int `json:"left_angle"`
	RightAngle int `json:"right_angle"`
	LeftSpeed  int `json:"left_speed"`
	RightSpeed int `json:"right_speed"`
}

// AckermannSteering computes wheel angles and speeds for a bicycle steering
// angle dirDeg (positive turns right) and chassis speed in [-100, 100].
//
// The inner wheel turns more and runs slower than the outer wheel. Speed is
// reduced in magnitude so the outer wheel never exceeds 100. Results are
// truncated toward zero.
func AckermannSteering(dirDeg, speed float64) WheelCommand {
	if dirDeg == 0 {
		if math.Abs(speed) > 100 {
			speed = math.Copysign(100, speed)
		}
		return WheelCommand{LeftSpeed: int(speed), RightSpeed: int(speed)}
	}

	rad := math.Min(math.Abs(dirDeg)*math.Pi/180, MaxBicycleAngle)
	t := math.Tan(rad)

	inner := math.Atan2(1, 1/t-ChassisRatio)
	outer := math.Atan2(1, 1/t+ChassisRatio)

	outerScale := math.Hypot(t, 1+ChassisRatio*t)
	innerScale := math.Hypot(t, 1-ChassisRatio*t)

	if speed != 0 && math.Abs(speed)*outerScale > 100 {
		speed = math.Copysign(100/outerScale, speed)
	}

	innerDeg := inner * 180 / math.Pi
	outerDeg := outer * 180 / math.Pi

	if dirDeg > 0 {
		// right turn: right side is inner
		return WheelCommand{
			LeftAngle:  int(outerDeg),
			RightAngle: int(innerDeg),
			LeftSpeed:  int(speed * outerScale),
			RightSpeed: int(speed * innerScale),
		}
	}
	return WheelCommand{
		LeftAngle:  int(-innerDeg),
		RightAngle: int(-outerDeg),
		LeftSpeed:  int(speed * innerScale),
		RightSpeed: int(speed * outerScale),
	}
}

// Ackermann remembers the last steering angle so callers can change speed
// without restating the direction.
type Ackermann struct {
	lastDir float64
}

// Steer computes wheel commands. A nil dir reuses the last direction.
func (a *Ackermann) Steer(dir *float64, speed float64) WheelCommand {
	if dir != nil {
		a.lastDir = *dir
	}
	return AckermannSteering(a.lastDir, speed)
}
