package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-rover/pkg/gamepad"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

var mode0Report = []byte{0x00, 0x14, 0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

func startBridge(t *testing.T, port int) (*Bridge, string) {
	t.Helper()
	b := NewBridge(Config{ReadTimeout: 200 * time.Millisecond, QueueSize: 4}, nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	b.RegisterRoutes(app)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	go app.Listen(addr)
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)

	return b, "ws://" + addr + "/ws/gamepad"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitConnected(t *testing.T, b *Bridge, want bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for b.Connected() != want && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.Connected() != want {
		t.Fatalf("Connected = %v, want %v", !want, want)
	}
}

func TestOpenWithoutOperator(t *testing.T) {
	b := NewBridge(DefaultConfig(), nil)

	_, err := b.Open(context.Background())
	var ie *gamepad.InitError
	if !errors.As(err, &ie) {
		t.Fatalf("Open error = %v, want *InitError", err)
	}
	if !ie.IsRetryable() {
		t.Error("missing operator should be retryable")
	}
	if !errors.Is(err, gamepad.ErrDeviceNotFound) {
		t.Error("error should wrap ErrDeviceNotFound")
	}
}

func TestPush_KeepsNewestReports(t *testing.T) {
	b := NewBridge(Config{ReadTimeout: 50 * time.Millisecond, QueueSize: 32}, nil)
	s := &session{
		id:      "s1",
		reports: make(chan gamepad.RawReport, 32),
		gone:    make(chan struct{}),
	}

	// #39 presses Circle
	for i := 0; i < 40; i++ {
		r := append([]byte(nil), mode0Report...)
		r[2], r[3] = byte(i), 0
		if i == 39 {
			r[3] = 0x20
		}
		b.push(s, r)
	}

	if st := b.GetStats(); st.Reports != 40 || st.Dropped != 8 {
		t.Errorf("stats = %+v, want 40 reports, 8 dropped", st)
	}

	tr := &Transport{session: s, timeout: 50 * time.Millisecond}
	raw, err := tr.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if raw.Data[2] != 39 || raw.Data[3] != 0x20 {
		t.Errorf("Read returned report %d, want the newest (39)", raw.Data[2])
	}
	if _, err := tr.Read(context.Background()); !errors.Is(err, gamepad.ErrTimeout) {
		t.Errorf("second Read = %v, want ErrTimeout", err)
	}
}

func TestBinaryReport(t *testing.T) {
	b, url := startBridge(t, 18092)

	var connectedID atomic.Value
	b.OnConnect(func(id string) { connectedID.Store(id) })

	ws := dial(t, url+"/operator-1")
	waitConnected(t, b, true)

	tr, err := b.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	if err := ws.WriteMessage(websocket.BinaryMessage, mode0Report); err != nil {
		t.Fatal(err)
	}
	raw, err := tr.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if raw.Count != gamepad.ReportSize || raw.Data[1] != 0x14 || raw.Data[3] != 0x20 {
		t.Errorf("report = %+v", raw)
	}

	if id, _ := connectedID.Load().(string); id != "operator-1" {
		t.Errorf("OnConnect id = %q, want operator-1", id)
	}
	if tr.(*Transport).SessionID() != "operator-1" {
		t.Errorf("SessionID = %q", tr.(*Transport).SessionID())
	}
}

func TestJSONReport(t *testing.T) {
	b, url := startBridge(t, 18093)
	ws := dial(t, url)
	waitConnected(t, b, true)

	tr, err := b.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	msg, _ := protocol.NewReportMessage(mode0Report[:9])
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	raw, err := tr.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// short reports reach the decoder, which rejects them
	if raw.Count != 9 {
		t.Errorf("Count = %d, want 9", raw.Count)
	}

	ws.WriteMessage(websocket.TextMessage, []byte("not json"))
	deadline := time.Now().Add(time.Second)
	for b.GetStats().Invalid == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.GetStats().Invalid != 1 {
		t.Errorf("Invalid = %d, want 1", b.GetStats().Invalid)
	}
}

func TestReadTimeout(t *testing.T) {
	b, url := startBridge(t, 18094)
	dial(t, url)
	waitConnected(t, b, true)

	tr, err := b.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := tr.Read(context.Background()); !errors.Is(err, gamepad.ErrTimeout) {
		t.Errorf("Read error = %v, want ErrTimeout", err)
	}

	tr.Close()
	if _, err := tr.Read(context.Background()); !errors.Is(err, gamepad.ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
}

func TestOperatorDisconnect(t *testing.T) {
	b, url := startBridge(t, 18095)

	var disconnected atomic.Bool
	b.OnDisconnect(func(string) { disconnected.Store(true) })

	ws := dial(t, url)
	waitConnected(t, b, true)

	tr, err := b.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ws.Close()
	waitConnected(t, b, false)

	_, err = tr.Read(context.Background())
	if !errors.Is(err, gamepad.ErrTransport) {
		t.Errorf("Read error = %v, want ErrTransport", err)
	}
	if !disconnected.Load() {
		t.Error("OnDisconnect not called")
	}
	if _, err := b.Open(context.Background()); err == nil {
		t.Error("Open should fail once the operator has gone")
	}
}

func TestSecondOperatorRejected(t *testing.T) {
	b, url := startBridge(t, 18096)
	dial(t, url)
	waitConnected(t, b, true)

	second := dial(t, url)
	second.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Errorf("second operator error = %v, want close 1013", err)
	}
	if b.GetStats().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", b.GetStats().Rejected)
	}
	if !b.Connected() {
		t.Error("first operator should stay connected")
	}
}

func TestPingPong(t *testing.T) {
	b, url := startBridge(t, 18097)
	ws := dial(t, url)
	waitConnected(t, b, true)

	msg, _ := protocol.NewPingMessage("p1")
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, respData, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	var resp protocol.Message
	json.Unmarshal(respData, &resp)
	if resp.Type != protocol.TypePong {
		t.Errorf("Type = %s, want pong", resp.Type)
	}
}

func TestAPIStats(t *testing.T) {
	b := NewBridge(DefaultConfig(), nil)
	app := fiber.New()
	b.RegisterAPIRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/remote", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	var st Stats
	json.NewDecoder(resp.Body).Decode(&st)
	if st.Connected || st.Session != nil {
		t.Errorf("stats = %+v", st)
	}
}
