package gamepad

import "time"

// Mode0 byte offsets.
const (
	offButtons1 = 2
	offButtons2 = 3
	offL2       = 4
	offR2       = 5
	offLeftX    = 7
	offLeftY    = 9
	offRightX   = 11
	offRightY   = 13

	axisSignBit = 0x80
)

type bitControl struct {
	mask    byte
	control Control
}

var mode0Buttons1 = []bitControl{
	{0x01, DPadUp},
	{0x02, DPadDown},
	{0x04, DPadLeft},
	{0x08, DPadRight},
	{0x10, Start},
	{0x20, Select},
}

var mode0Buttons2 = []bitControl{
	{0x01, L1Trigger},
	{0x02, R1Trigger},
	{0x04, Analog},
	{0x10, Cross},
	{0x20, Circle},
	{0x40, Square},
	{0x80, Triangle},
}

// stick axes with their negative and positive half-axes
var mode0Sticks = []struct {
	offset         int
	axis, neg, pos Control
}{
	{offLeftX, LeftStickLR, LeftStickLeft, LeftStickRight},
	{offLeftY, LeftStickDU, LeftStickDown, LeftStickUp},
	{offRightX, RightStickLR, RightStickLeft, RightStickRight},
	{offRightY, RightStickDU, RightStickDown, RightStickUp},
}

// DetectMode classifies a report by its signature bytes.
// Short reports are ModeUnknown.
func DetectMode(r RawReport) Mode {
	b := r.Data
	switch {
	case r.Count < ReportSize:
		return ModeUnknown
	case b[0] == 0x00 && b[1] == 0x14:
		return Mode0
	case b[2] == 15 && b[5] == 128 && b[6] == 128:
		return Mode1
	case b[2] == 15 && (b[3] == 127 || b[4] == 127):
		return Mode2
	default:
		return ModeUnknown
	}
}

// ReadTimes are the timestamps of the current and previous successful reads.
type ReadTimes struct {
	Prev, Current time.Time
}

// Advance records a new successful read at now.
// On the first read Prev is set to now as well.
func (t ReadTimes) Advance(now time.Time) ReadTimes {
	if t.Current.IsZero() {
		return ReadTimes{Prev: now, Current: now}
	}
	return ReadTimes{Prev: t.Current, Current: now}
}

// DecodeMode0 decodes a Mode0 report on top of prior. It is pure: durations
// are derived from times and now only. The report must already be validated.
//
// A control whose value changed gets now - times.Current as its duration;
// an unchanged control gets times.Current - times.Prev.
func DecodeMode0(r RawReport, prior Snapshot, times ReadTimes, now time.Time) Snapshot {
	next := prior
	set := func(c Control, v float64) {
		if prior.Values[c].Value != v {
			next.Values[c] = ControlValue{Value: v, PressDuration: now.Sub(times.Current)}
			return
		}
		next.Values[c].PressDuration = times.Current.Sub(times.Prev)
	}

	b := r.Data
	for _, bc := range mode0Buttons1 {
		set(bc.control, bit(b[offButtons1], bc.mask))
	}
	for _, bc := range mode0Buttons2 {
		set(bc.control, bit(b[offButtons2], bc.mask))
	}

	set(L2Trigger, float64(b[offL2])/255)
	set(R2Trigger, float64(b[offR2])/255)

	for _, s := range mode0Sticks {
		v := b[s.offset]
		neg, pos := halfAxes(v)
		set(s.axis, axisValue(v))
		set(s.neg, neg)
		set(s.pos, pos)
	}

	return next
}

func bit(b, mask byte) float64 {
	if b&mask != 0 {
		return 1
	}
	return 0
}

// axisValue maps a stick byte to [-1, 1]. 0..127 is positive,
// 255..128 is negative with 255 at rest.
func axisValue(b byte) float64 {
	if b&axisSignBit != 0 {
		return (float64(b) - 255) / 127
	}
	return float64(b) / 127
}

// halfAxes splits a stick byte into non-negative magnitudes.
func halfAxes(b byte) (neg, pos float64) {
	if b&axisSignBit != 0 {
		return (255 - float64(b)) / 127, 0
	}
	return 0, float64(b) / 127
}

// Decoder validates reports and maintains the control snapshot.
// It is not safe for concurrent use; the input task owns it.
type Decoder struct {
	expected Mode
	now      func() time.Time

	snap  Snapshot
	times ReadTimes
	reads uint64
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) DecoderOption {
	return func(d *Decoder) {
		d.now = now
	}
}

// NewDecoder creates a decoder that accepts reports in the expected mode.
func NewDecoder(expected Mode, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		expected: expected,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Expected returns the mode this decoder accepts.
func (d *Decoder) Expected() Mode {
	return d.expected
}

// Snapshot returns a copy of the latest decoded values.
func (d *Decoder) Snapshot() Snapshot {
	return d.snap
}

// Reads returns the number of successfully validated reports.
func (d *Decoder) Reads() uint64 {
	return d.reads
}

// Decode validates r and updates the snapshot.
//
// It fails with a *ProtocolError wrapping ErrShortReport, ErrUnknownMode or
// ErrModeMismatch without touching the snapshot or read timestamps. A report
// in the expected mode that has no decoder (Mode1, Mode2) advances the read
// timestamps and fails with ErrNotDecoded; values are left as they were.
func (d *Decoder) Decode(r RawReport) (Snapshot, error) {
	if r.Count < ReportSize {
		return d.snap, &ProtocolError{Err: ErrShortReport, Detected: ModeUnknown, Expected: d.expected, Report: r}
	}

	mode := DetectMode(r)
	if mode == ModeUnknown {
		return d.snap, &ProtocolError{Err: ErrUnknownMode, Detected: mode, Expected: d.expected, Report: r}
	}
	if mode != d.expected {
		return d.snap, &ProtocolError{Err: ErrModeMismatch, Detected: mode, Expected: d.expected, Report: r}
	}

	d.times = d.times.Advance(d.now())
	d.reads++

	switch mode {
	case Mode0:
		d.snap = DecodeMode0(r, d.snap, d.times, d.now())
		return d.snap, nil
	default:
		return d.snap, &ProtocolError{Err: ErrNotDecoded, Detected: mode, Expected: d.expected, Report: r}
	}
}
