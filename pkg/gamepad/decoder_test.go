package gamepad

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func reportWith(set map[int]byte) RawReport {
	var r RawReport
	r.Count = ReportSize
	for i, v := range set {
		r.Data[i] = v
	}
	return r
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name   string
		report RawReport
		want   Mode
	}{
		{"mode0 signature", reportWith(map[int]byte{0: 0x00, 1: 0x14}), Mode0},
		{"mode1 signature", reportWith(map[int]byte{0: 1, 2: 15, 5: 128, 6: 128}), Mode1},
		{"mode2 via byte 3", reportWith(map[int]byte{0: 1, 2: 15, 3: 127}), Mode2},
		{"mode2 via byte 4", reportWith(map[int]byte{0: 1, 2: 15, 4: 127}), Mode2},
		{"unknown", reportWith(map[int]byte{0: 1, 1: 2, 2: 3}), ModeUnknown},
		{"short", RawReport{Count: 14}, ModeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(tt.report); got != tt.want {
				t.Errorf("DetectMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecoder_ShortReportLeavesSnapshot(t *testing.T) {
	d := NewDecoder(Mode0)
	if _, err := d.Decode(Mode0Report(0, 0x20, 0, 0, 0, 0, 0, 0)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	before := d.Snapshot()

	short := Mode0Report(0, 0, 0, 0, 0, 0, 0, 0)
	short.Count = 12
	_, err := d.Decode(short)
	if !errors.Is(err, ErrShortReport) {
		t.Fatalf("err = %v, want ErrShortReport", err)
	}
	if d.Snapshot() != before {
		t.Error("snapshot changed after short report")
	}
	if d.Reads() != 1 {
		t.Errorf("Reads = %d, want 1", d.Reads())
	}
}

func TestDecoder_ModeMismatch(t *testing.T) {
	d := NewDecoder(Mode0)
	_, err := d.Decode(reportWith(map[int]byte{0: 1, 2: 15, 5: 128, 6: 128}))

	if !errors.Is(err, ErrModeMismatch) {
		t.Fatalf("err = %v, want ErrModeMismatch", err)
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatal("expected *ProtocolError")
	}
	if pe.Detected != Mode1 || pe.Expected != Mode0 {
		t.Errorf("detected/expected = %v/%v", pe.Detected, pe.Expected)
	}
	if !IsRecoverable(err) {
		t.Error("mode mismatch should be recoverable")
	}
}

func TestDecoder_UnknownMode(t *testing.T) {
	d := NewDecoder(Mode0)
	_, err := d.Decode(reportWith(map[int]byte{0: 9, 1: 9}))
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
	if errors.Is(err, ErrModeMismatch) {
		t.Error("unknown mode must not be reported as mismatch")
	}
}

func TestDecoder_AlternateModesNotDecoded(t *testing.T) {
	d := NewDecoder(Mode2)
	snap, err := d.Decode(reportWith(map[int]byte{2: 15, 3: 127, 7: 0x7f}))
	if !errors.Is(err, ErrNotDecoded) {
		t.Fatalf("err = %v, want ErrNotDecoded", err)
	}
	for c := Control(0); c < NumControls; c++ {
		if snap.Value(c) != 0 {
			t.Errorf("%v = %v, want 0 (no fabricated values)", c, snap.Value(c))
		}
	}
}

func TestDecodeMode0_Buttons(t *testing.T) {
	d := NewDecoder(Mode0)
	snap, err := d.Decode(Mode0Report(0x01|0x20, 0x20|0x40, 0, 0, 0, 0, 0, 0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	pressed := map[Control]bool{DPadUp: true, Select: true, Circle: true, Square: true}
	buttons := []Control{DPadUp, DPadDown, DPadLeft, DPadRight, Start, Select,
		L1Trigger, R1Trigger, Analog, Cross, Circle, Square, Triangle}
	for _, c := range buttons {
		if snap.Pressed(c) != pressed[c] {
			t.Errorf("%v pressed = %v, want %v", c, snap.Pressed(c), pressed[c])
		}
	}
}

func TestDecodeMode0_AllButtonBits(t *testing.T) {
	d := NewDecoder(Mode0)
	snap, _ := d.Decode(Mode0Report(0x3f, 0xf7, 0, 0, 0, 0, 0, 0))
	for _, c := range []Control{DPadUp, DPadDown, DPadLeft, DPadRight, Start, Select,
		L1Trigger, R1Trigger, Analog, Cross, Circle, Square, Triangle} {
		if !snap.Pressed(c) {
			t.Errorf("%v not pressed", c)
		}
	}
}

func TestDecodeMode0_Triggers(t *testing.T) {
	d := NewDecoder(Mode0)
	snap, _ := d.Decode(Mode0Report(0, 0, 255, 51, 0, 0, 0, 0))
	if !floatEquals(snap.Value(L2Trigger), 1) {
		t.Errorf("L2 = %v, want 1", snap.Value(L2Trigger))
	}
	if !floatEquals(snap.Value(R2Trigger), 0.2) {
		t.Errorf("R2 = %v, want 0.2", snap.Value(R2Trigger))
	}
}

func TestDecodeMode0_Sticks(t *testing.T) {
	d := NewDecoder(Mode0)
	snap, _ := d.Decode(Mode0Report(0, 0, 0, 0, 0x7f, 0x80, 0xff, 0x40))

	tests := []struct {
		c    Control
		want float64
	}{
		{LeftStickLR, 1},
		{LeftStickRight, 1},
		{LeftStickLeft, 0},
		{LeftStickDU, -1},
		{LeftStickDown, 1},
		{LeftStickUp, 0},
		{RightStickLR, 0},
		{RightStickLeft, 0},
		{RightStickRight, 0},
		{RightStickDU, 64.0 / 127},
		{RightStickUp, 64.0 / 127},
		{RightStickDown, 0},
	}
	for _, tt := range tests {
		if got := snap.Value(tt.c); !floatEquals(got, tt.want) {
			t.Errorf("%v = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestReadTimes_Advance(t *testing.T) {
	t0 := time.Unix(100, 0)
	first := ReadTimes{}.Advance(t0)
	if !first.Prev.Equal(t0) || !first.Current.Equal(t0) {
		t.Errorf("first = %+v, want both %v", first, t0)
	}

	t1 := t0.Add(100 * time.Millisecond)
	second := first.Advance(t1)
	if !second.Prev.Equal(t0) || !second.Current.Equal(t1) {
		t.Errorf("second = %+v", second)
	}
}

func TestDecodeMode0_Durations(t *testing.T) {
	t0 := time.Unix(100, 0)
	var prior Snapshot
	prior.Values[Circle] = ControlValue{Value: 1}

	times := ReadTimes{Prev: t0, Current: t0.Add(100 * time.Millisecond)}
	now := t0.Add(130 * time.Millisecond)

	// circle released, cross still up
	next := DecodeMode0(Mode0Report(0, 0, 0, 0, 0, 0, 0, 0), prior, times, now)

	if next.Value(Circle) != 0 {
		t.Errorf("Circle = %v, want 0", next.Value(Circle))
	}
	if got := next.Get(Circle).PressDuration; got != 30*time.Millisecond {
		t.Errorf("changed duration = %v, want 30ms", got)
	}
	if got := next.Get(Cross).PressDuration; got != 100*time.Millisecond {
		t.Errorf("unchanged duration = %v, want 100ms", got)
	}
	if prior.Value(Circle) != 1 {
		t.Error("DecodeMode0 mutated prior")
	}
}

func TestDecoder_HeldButtonDuration(t *testing.T) {
	now := time.Unix(100, 0)
	d := NewDecoder(Mode0, WithClock(func() time.Time { return now }))
	held := Mode0Report(0, 0x20, 0, 0, 0, 0, 0, 0)

	d.Decode(held)
	now = now.Add(100 * time.Millisecond)
	snap, err := d.Decode(held)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := snap.Get(Circle).PressDuration; got != 100*time.Millisecond {
		t.Errorf("held duration = %v, want 100ms", got)
	}
}

func TestControlNames(t *testing.T) {
	if NumControls != 27 {
		t.Fatalf("NumControls = %d, want 27", NumControls)
	}
	for c := Control(0); c < NumControls; c++ {
		got, ok := ControlByName(c.String())
		if !ok || got != c {
			t.Errorf("ControlByName(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ControlByName("Home"); ok {
		t.Error("unexpected control Home")
	}
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	var s Snapshot
	s.Values[Circle] = ControlValue{Value: 1, PressDuration: 250 * time.Millisecond}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"Circle":{"value":1,"press_duration_ms":250}`) {
		t.Errorf("unexpected JSON: %s", data)
	}
}
