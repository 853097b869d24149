//go:build linux

package gamepad

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// pipeHIDRaw returns a HIDRaw reading from a non-blocking pipe and the
// pipe's write end.
func pipeHIDRaw(t *testing.T, timeout time.Duration) (*HIDRaw, int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	h := &HIDRaw{path: "pipe", timeout: timeout, fd: p[0]}
	t.Cleanup(func() {
		h.Close()
		unix.Close(p[1])
	})
	return h, p[1]
}

func TestHIDRaw_ReadReturnsNewestQueued(t *testing.T) {
	h, w := pipeHIDRaw(t, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		r := Mode0Report(0, 0, byte(i), 0, 0, 0, 0, 0)
		if _, err := unix.Write(w, r.Data[:]); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := h.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Count != ReportSize || got.Data[offL2] != 4 {
		t.Errorf("Read returned report %d, want the last one (4)", got.Data[offL2])
	}

	// the backlog is gone
	if _, err := h.Read(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Errorf("second Read = %v, want ErrTimeout", err)
	}
}

func TestHIDRaw_ReadKeepsCompleteReport(t *testing.T) {
	h, w := pipeHIDRaw(t, 200*time.Millisecond)

	full := Mode0Report(0, 0, 7, 0, 0, 0, 0, 0)
	unix.Write(w, full.Data[:])
	unix.Write(w, []byte{0x00, 0x14, 0x01})

	got, err := h.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Count != ReportSize || got.Data[offL2] != 7 {
		t.Errorf("Read = %+v, want the complete report", got)
	}
}

func TestHIDRaw_ReadAfterClose(t *testing.T) {
	h, _ := pipeHIDRaw(t, 50*time.Millisecond)
	h.Close()

	if _, err := h.Read(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
}
