//go:build linux

package gamepad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollSlice bounds each poll so a cancelled context is noticed promptly.
const pollSlice = 100 * time.Millisecond

// HIDRaw reads reports from a Linux hidraw node.
type HIDRaw struct {
	path    string
	timeout time.Duration

	mu     sync.Mutex
	fd     int
	closed bool
}

func openHIDRaw(path string, timeout time.Duration) (*HIDRaw, error) {
	fd, err := openPersistent(path)
	if err != nil {
		// missing udev permissions will not fix themselves
		retryable := !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.EPERM)
		return nil, &InitError{Op: "open " + path, Err: err, Retryable: retryable}
	}
	return &HIDRaw{path: path, timeout: timeout, fd: fd}, nil
}

// openPersistent retries permission errors, which udev produces for a short
// while after the node appears.
func openPersistent(path string) (fd int, err error) {
	for i := 0; i < 5; i++ {
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			return fd, nil
		}
		if !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.EPERM) {
			return -1, err
		}
		time.Sleep(200 * time.Millisecond)
	}
	return -1, err
}

// Read waits up to the read timeout for a report and returns the newest
// one queued.
func (h *HIDRaw) Read(ctx context.Context) (RawReport, error) {
	h.mu.Lock()
	fd, closed := h.fd, h.closed
	h.mu.Unlock()
	if closed {
		return RawReport{}, ErrClosed
	}

	deadline := time.Now().Add(h.timeout)
	var buf [ReportSize]byte
	for {
		if err := ctx.Err(); err != nil {
			return RawReport{}, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return RawReport{}, fmt.Errorf("%w after %v", ErrTimeout, h.timeout)
		}
		wait := min(remaining, pollSlice)

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(wait.Milliseconds()))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return RawReport{}, fmt.Errorf("%w: poll %s: %v", ErrTransport, h.path, err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return RawReport{}, fmt.Errorf("%w: %s disconnected", ErrTransport, h.path)
		}

		count, err := unix.Read(fd, buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return RawReport{}, fmt.Errorf("%w: read %s: %v", ErrTransport, h.path, err)
		}
		return latest(fd, NewRawReport(buf[:count])), nil
	}
}

// latest drains reports already queued by the kernel and returns the newest
// complete one, or first when none follows. The hidraw queue holds reports
// the pad sent since the last poll; only the current one matters.
func latest(fd int, first RawReport) RawReport {
	last := first
	var buf [ReportSize]byte
	for {
		count, err := unix.Read(fd, buf[:])
		if err != nil || count <= 0 {
			// EAGAIN: the queue is empty
			return last
		}
		if count == ReportSize {
			last = NewRawReport(buf[:count])
		}
	}
}

// Close closes the device node.
func (h *HIDRaw) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return unix.Close(h.fd)
}
