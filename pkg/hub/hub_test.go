package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/protocol"
)

// attach registers a connectionless client; tests read its send queue.
func attach(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := newClient(h, buffer)
	if !h.add(c) {
		t.Fatal("hub refused client")
	}
	return c
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h, _ := startHub(t)
	a := attach(t, h, 4)
	b := attach(t, h, 4)

	if got := h.ClientCount(); got != 2 {
		t.Fatalf("ClientCount = %d, want 2", got)
	}

	h.BroadcastBinary([]byte{1, 2, 3})
	for _, c := range []*Client{a, b} {
		m, ok := receive(t, c)
		if !ok {
			t.Fatal("send queue closed")
		}
		if m.Type != BinaryMessage || len(m.Data) != 3 {
			t.Errorf("message = %+v", m)
		}
	}
}

func TestHub_Report(t *testing.T) {
	h, _ := startHub(t)
	c := attach(t, h, 4)

	msg, err := protocol.NewMastMessage(10, -4)
	if err != nil {
		t.Fatal(err)
	}
	h.Report(msg)

	m, _ := receive(t, c)
	if m.Type != JSONMessage {
		t.Fatalf("Type = %v, want JSON", m.Type)
	}
	var got protocol.Message
	if err := json.Unmarshal(m.Data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != protocol.TypeMast {
		t.Errorf("Type = %s, want mast", got.Type)
	}
}

func TestHub_SlowClientKeepsNewest(t *testing.T) {
	h, _ := startHub(t)
	slow := attach(t, h, 2)
	fast := attach(t, h, 8)

	for i := byte(1); i <= 5; i++ {
		h.BroadcastBinary([]byte{i})
	}

	for i := byte(1); i <= 5; i++ {
		if m, _ := receive(t, fast); m.Data[0] != i {
			t.Fatalf("fast client got %d, want %d", m.Data[0], i)
		}
	}
	// Sent is counted after every client has been offered the frame
	deadline := time.Now().Add(time.Second)
	for h.GetStats().Sent != 10 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	for _, want := range []byte{4, 5} {
		m, ok := receive(t, slow)
		if !ok {
			t.Fatal("slow client should stay connected")
		}
		if m.Data[0] != want {
			t.Errorf("slow client got %d, want %d", m.Data[0], want)
		}
	}

	if got := h.ClientCount(); got != 2 {
		t.Errorf("ClientCount = %d, want 2", got)
	}
	st := h.GetStats()
	dropped := map[string]uint64{}
	for _, sub := range st.Subscribers {
		dropped[sub.ID] = sub.Dropped
	}
	if dropped[slow.id] != 3 || dropped[fast.id] != 0 {
		t.Errorf("per-client drops = %v, want slow 3 fast 0", dropped)
	}
}

func TestHub_Unregister(t *testing.T) {
	h, _ := startHub(t)
	c := attach(t, h, 1)

	h.remove(c)
	if _, ok := receive(t, c); ok {
		t.Error("unregistered client's queue should be closed")
	}
	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := attach(t, h, 1)

	cancel()
	if _, ok := receive(t, c); ok {
		t.Error("queue should be closed on stop")
	}

	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if h.IsRunning() {
		t.Error("IsRunning should be false after stop")
	}
	if h.add(newClient(h, 1)) {
		t.Error("stopped hub should refuse clients")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("idle", nil)

	// nothing drains the queue
	for i := 0; i < BroadcastBuffer+10; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	if got := h.GetStats().Dropped; got != 10 {
		t.Errorf("Dropped = %d, want 10", got)
	}
}
