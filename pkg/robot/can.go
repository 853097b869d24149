package robot

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Frame offsets from CANConfig.BaseID. The motor board listens on four
// consecutive standard IDs.
const (
	FrameServo    = 0x00 // [channel, deg*10 int16 LE]
	FrameMotor    = 0x01 // [op, left %, right %]
	FramePixel    = 0x02 // [index, r, g, b]
	FrameLEDCtl   = 0x03 // [op]
	pixelAllIndex = 0xff

	maxStandardID = 0x7ff
)

// Motor ops carried in FrameMotor.
const (
	MotorStop byte = iota
	MotorBrake
	MotorForward
	MotorReverse
)

// LED ops carried in FrameLEDCtl.
const (
	LEDShow byte = iota
	LEDClear
)

// FrameTransmitter sends CAN frames. *socketcan.Transmitter implements it.
type FrameTransmitter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

// CANConfig configures the SocketCAN actuator.
type CANConfig struct {
	// Interface is the SocketCAN interface. Default: can0
	Interface string `yaml:"interface" json:"interface"`

	// BaseID is the first of the four frame IDs. Default: 0x200
	BaseID uint32 `yaml:"base_id" json:"base_id"`

	// Brightness scales LED colors; 0 disables the LEDs. Default: 0.4
	Brightness float64 `yaml:"brightness" json:"brightness"`

	// WriteTimeout bounds a single frame transmit. Default: 50ms
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// DefaultCANConfig returns a Config with sensible defaults.
func DefaultCANConfig() CANConfig {
	return CANConfig{
		Interface:    "can0",
		BaseID:       0x200,
		Brightness:   0.4,
		WriteTimeout: 50 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *CANConfig) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if c.BaseID+FrameLEDCtl > maxStandardID {
		return fmt.Errorf("base_id 0x%x leaves no room for standard frame IDs", c.BaseID)
	}
	if c.Brightness < 0 || c.Brightness > 1 {
		return fmt.Errorf("brightness must be in [0,1], got %v", c.Brightness)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got %v", c.WriteTimeout)
	}
	return nil
}

// EncodeServo builds a servo frame. Degrees are clamped to ±90 and sent in
// tenths of a degree.
func EncodeServo(base uint32, channel uint8, degrees float64) can.Frame {
	d := clamp(degrees, -MaxServoDegrees, MaxServoDegrees)
	f := can.Frame{ID: base + FrameServo, Length: 3}
	f.Data[0] = channel
	binary.LittleEndian.PutUint16(f.Data[1:3], uint16(int16(math.Round(d*10))))
	return f
}

// EncodeMotor builds a motor frame. Speeds are clamped to [0, 100].
func EncodeMotor(base uint32, op byte, left, right int) can.Frame {
	f := can.Frame{ID: base + FrameMotor, Length: 3}
	f.Data[0] = op
	f.Data[1] = uint8(clampSpeed(left))
	f.Data[2] = uint8(clampSpeed(right))
	return f
}

// EncodePixel builds a pixel frame. index 0xff addresses every pixel.
func EncodePixel(base uint32, index uint8, c Color) can.Frame {
	f := can.Frame{ID: base + FramePixel, Length: 4}
	f.Data[0] = index
	f.Data[1], f.Data[2], f.Data[3] = c.R, c.G, c.B
	return f
}

// EncodeLEDControl builds a show/clear frame.
func EncodeLEDControl(base uint32, op byte) can.Frame {
	f := can.Frame{ID: base + FrameLEDCtl, Length: 1}
	f.Data[0] = op
	return f
}

// CANActuator drives the rover's motor board over SocketCAN.
type CANActuator struct {
	cfg    CANConfig
	logger *slog.Logger

	mu     sync.Mutex
	tx     FrameTransmitter
	conn   io.Closer
	closed bool

	framesSent atomic.Uint64
	sendErrors atomic.Uint64
}

// CANOption configures a CANActuator.
type CANOption func(*CANActuator)

// WithTransmitter uses tx instead of dialing SocketCAN.
func WithTransmitter(tx FrameTransmitter) CANOption {
	return func(a *CANActuator) {
		a.tx = tx
	}
}

// NewCANActuator creates a CAN actuator. The bus is opened by Init.
func NewCANActuator(cfg CANConfig, logger *slog.Logger, opts ...CANOption) *CANActuator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &CANActuator{cfg: cfg, logger: logger.With("backend", "can", "iface", cfg.Interface)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the bus, centres every servo and stops the motors.
func (a *CANActuator) Init(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return &InitError{Backend: "can", Err: err}
	}

	a.mu.Lock()
	if a.tx == nil {
		conn, err := socketcan.DialContext(ctx, "can", a.cfg.Interface)
		if err != nil {
			a.mu.Unlock()
			return &InitError{Backend: "can", Err: fmt.Errorf("socketcan dial: %w", err)}
		}
		a.conn = conn
		a.tx = socketcan.NewTransmitter(conn)
	}
	a.closed = false
	a.mu.Unlock()

	for w := range wheelChannels {
		if err := a.SetWheelServo(w, 0); err != nil {
			return &InitError{Backend: "can", Err: err, Retryable: true}
		}
	}
	for axis := range mastChannels {
		if err := a.SetMastServo(axis, 0); err != nil {
			return &InitError{Backend: "can", Err: err, Retryable: true}
		}
	}
	if err := a.Stop(); err != nil {
		return &InitError{Backend: "can", Err: err, Retryable: true}
	}

	a.logger.Info("actuator ready", "base_id", fmt.Sprintf("0x%x", a.cfg.BaseID))
	return nil
}

func (a *CANActuator) send(f can.Frame) error {
	a.mu.Lock()
	tx, closed := a.tx, a.closed
	a.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if tx == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
	defer cancel()

	if err := tx.TransmitFrame(ctx, f); err != nil {
		a.sendErrors.Add(1)
		return fmt.Errorf("robot: transmit 0x%03x: %w", f.ID, err)
	}
	a.framesSent.Add(1)
	return nil
}

func (a *CANActuator) SetWheelServo(w Wheel, degrees float64) error {
	ch, ok := wheelChannels[w]
	if !ok {
		return fmt.Errorf("robot: unknown wheel %v", w)
	}
	return a.send(EncodeServo(a.cfg.BaseID, ch, degrees))
}

func (a *CANActuator) SetMastServo(axis MastAxis, degrees float64) error {
	ch, ok := mastChannels[axis]
	if !ok {
		return fmt.Errorf("robot: unknown mast axis %v", axis)
	}
	return a.send(EncodeServo(a.cfg.BaseID, ch, degrees))
}

func (a *CANActuator) Forward(speed int) error {
	return a.send(EncodeMotor(a.cfg.BaseID, MotorForward, speed, speed))
}

func (a *CANActuator) Reverse(speed int) error {
	return a.send(EncodeMotor(a.cfg.BaseID, MotorReverse, speed, speed))
}

func (a *CANActuator) TurnForward(left, right int) error {
	return a.send(EncodeMotor(a.cfg.BaseID, MotorForward, left, right))
}

func (a *CANActuator) TurnReverse(left, right int) error {
	return a.send(EncodeMotor(a.cfg.BaseID, MotorReverse, left, right))
}

func (a *CANActuator) Stop() error {
	return a.send(EncodeMotor(a.cfg.BaseID, MotorStop, 0, 0))
}

func (a *CANActuator) Brake() error {
	return a.send(EncodeMotor(a.cfg.BaseID, MotorBrake, 0, 0))
}

func (a *CANActuator) NumPixels() int { return NumLEDs }

// SetPixel stages a pixel; Show latches it. No-op when brightness is 0.
func (a *CANActuator) SetPixel(i int, c Color) error {
	if i < 0 || i >= NumLEDs {
		return ErrPixelRange
	}
	if a.cfg.Brightness == 0 {
		return nil
	}
	return a.send(EncodePixel(a.cfg.BaseID, uint8(i), c.Scale(a.cfg.Brightness)))
}

// SetAll sets and shows every pixel.
func (a *CANActuator) SetAll(c Color) error {
	if a.cfg.Brightness == 0 {
		return nil
	}
	if err := a.send(EncodePixel(a.cfg.BaseID, pixelAllIndex, c.Scale(a.cfg.Brightness))); err != nil {
		return err
	}
	return a.Show()
}

func (a *CANActuator) Clear() error {
	if a.cfg.Brightness == 0 {
		return nil
	}
	return a.send(EncodeLEDControl(a.cfg.BaseID, LEDClear))
}

func (a *CANActuator) Show() error {
	if a.cfg.Brightness == 0 {
		return nil
	}
	return a.send(EncodeLEDControl(a.cfg.BaseID, LEDShow))
}

// Cleanup brakes, clears the LEDs and closes the bus. Errors from the
// individual steps do not stop the later ones; the first is returned.
func (a *CANActuator) Cleanup() error {
	a.mu.Lock()
	inited := a.tx != nil && !a.closed
	a.mu.Unlock()
	if !inited {
		return nil
	}

	first := a.Brake()
	if err := a.Clear(); err != nil && first == nil {
		first = err
	}

	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.closed = true
	a.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.logger.Info("actuator released", "frames_sent", a.framesSent.Load(), "send_errors", a.sendErrors.Load())
	return first
}

// Stats contains bus statistics.
type Stats struct {
	FramesSent uint64 `json:"frames_sent"`
	SendErrors uint64 `json:"send_errors"`
}

// GetStats returns bus statistics.
func (a *CANActuator) GetStats() Stats {
	return Stats{
		FramesSent: a.framesSent.Load(),
		SendErrors: a.sendErrors.Load(),
	}
}
