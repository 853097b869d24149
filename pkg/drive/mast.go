package drive

import (
	"sync"

	"github.com/teslashibe/go-rover/pkg/robot"
)

// Mast step and travel, degrees.
const (
	MastPanStep  = 2.0
	MastTiltStep = 2.0
	MastLimit    = 90.0
)

// MastCommand is the D-pad state. Left wins over right, up over down.
type MastCommand struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Up    bool `json:"up"`
	Down  bool `json:"down"`
}

// Mast steps the pan/tilt head one increment per Move.
type Mast struct {
	servos robot.MastServos

	mu        sync.Mutex
	pan, tilt float64
	sent      bool
	sentPan   float64
	sentTilt  float64
}

// NewMast creates a mast controller centred at 0/0.
func NewMast(servos robot.MastServos) *Mast {
	return &Mast{servos: servos}
}

// Move applies one step for each pressed direction and positions the
// servos. Unchanged positions are not re-sent.
func (m *Mast) Move(cmd MastCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cmd.Left {
		m.pan = max(-MastLimit, m.pan-MastPanStep)
	} else if cmd.Right {
		m.pan = min(MastLimit, m.pan+MastPanStep)
	}

	if cmd.Up {
		m.tilt = min(MastLimit, m.tilt+MastTiltStep)
	} else if cmd.Down {
		m.tilt = max(-MastLimit, m.tilt-MastTiltStep)
	}

	return m.sendLocked()
}

// Reset recentres the mast.
func (m *Mast) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pan, m.tilt = 0, 0
	m.sent = false
	return m.sendLocked()
}

func (m *Mast) sendLocked() error {
	if m.sent && m.pan == m.sentPan && m.tilt == m.sentTilt {
		return nil
	}
	if err := m.servos.SetMastServo(robot.Pan, m.pan); err != nil {
		return err
	}
	if err := m.servos.SetMastServo(robot.Tilt, m.tilt); err != nil {
		return err
	}
	m.sent, m.sentPan, m.sentTilt = true, m.pan, m.tilt
	return nil
}

// Position returns the current pan and tilt.
func (m *Mast) Position() (pan, tilt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pan, m.tilt
}
