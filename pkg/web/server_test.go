package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/rover"
)

type fakeRover struct {
	status   rover.Status
	controls gamepad.Snapshot
	stopped  atomic.Int32
}

func (f *fakeRover) Status() rover.Status { return f.status }
func (f *fakeRover) Controls() gamepad.Snapshot { return f.controls }
func (f *fakeRover) Shutdown() { f.stopped.Add(1) }

func newFake() *fakeRover {
	f := &fakeRover{
		status: rover.Status{
			Steering: "ackermann",
			Ready:    true,
			Tasks:    map[string]bool{rover.TaskDrive: true, rover.TaskInput: false},
		},
	}
	f.controls.Values[gamepad.Circle].Value = 1
	return f
}

func getJSON(t *testing.T, s *Server, method, path string, v any) int {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, path, nil))
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, body)
		}
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	s := NewServer(DefaultConfig(), newFake(), nil, nil)

	var st rover.Status
	if code := getJSON(t, s, "GET", "/api/status", &st); code != 200 {
		t.Fatalf("status code = %d", code)
	}
	if st.Steering != "ackermann" || !st.Ready {
		t.Errorf("status = %+v", st)
	}
	if !st.Tasks[rover.TaskDrive] || st.Tasks[rover.TaskInput] {
		t.Errorf("tasks = %v", st.Tasks)
	}
}

func TestControlsEndpoint(t *testing.T) {
	s := NewServer(DefaultConfig(), newFake(), nil, nil)

	var controls map[string]struct {
		Value float64 `json:"value"`
	}
	if code := getJSON(t, s, "GET", "/api/controls", &controls); code != 200 {
		t.Fatalf("status code = %d", code)
	}
	if len(controls) != int(gamepad.NumControls) {
		t.Errorf("got %d controls, want %d", len(controls), gamepad.NumControls)
	}
	if controls["Circle"].Value != 1 {
		t.Errorf("Circle = %v, want 1", controls["Circle"].Value)
	}
}

func TestShutdownEndpoint(t *testing.T) {
	f := newFake()
	s := NewServer(DefaultConfig(), f, nil, nil)

	if code := getJSON(t, s, "POST", "/api/shutdown", nil); code != 202 {
		t.Errorf("status code = %d, want 202", code)
	}
	if f.stopped.Load() != 1 {
		t.Error("Shutdown not called")
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := NewServer(DefaultConfig(), newFake(), nil, nil)

	if code := getJSON(t, s, "GET", "/ws/telemetry", nil); code != 426 {
		t.Errorf("status code = %d, want 426", code)
	}
}

func TestTelemetryWebSocket(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:18090"}, newFake(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:18090/ws/telemetry", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	// the current status arrives first
	var st rover.Status
	if err := ws.ReadJSON(&st); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.Steering != "ackermann" {
		t.Errorf("Steering = %q", st.Steering)
	}

	deadline := time.Now().Add(time.Second)
	for s.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	msg, _ := protocol.NewMastMessage(6, 2)
	s.Hub().Report(msg)

	var got protocol.Message
	if err := ws.ReadJSON(&got); err != nil {
		t.Fatalf("read telemetry: %v", err)
	}
	if got.Type != protocol.TypeMast {
		t.Errorf("Type = %s, want mast", got.Type)
	}
	mast, err := got.GetMastData()
	if err != nil || mast.Pan != 6 {
		t.Errorf("mast = %+v, err %v", mast, err)
	}
}
