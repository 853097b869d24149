// Package httpc is the HTTP client for the rover dashboard API.
// It uses its own transport so every request has a timeout.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/rover"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout        = 5 * time.Second
	DefaultConnectTimeout = 2 * time.Second
	DefaultKeepAlive      = 30 * time.Second
)

// NewHTTPClient creates an http.Client with the given overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

// Client talks to one rover's dashboard.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the dashboard at base, e.g. http://rover.local:8080.
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: NewHTTPClient(DefaultTimeout),
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dashboard returned %d: %s", e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (rover.Status, error) {
	var st rover.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

// ControlValue is one control as served by /api/controls.
type ControlValue struct {
	Value      float64 `json:"value"`
	DurationMs int64   `json:"press_duration_ms"`
}

// Controls fetches the latest snapshot keyed by control name.
func (c *Client) Controls(ctx context.Context) (map[string]ControlValue, error) {
	var m map[string]ControlValue
	err := c.do(ctx, http.MethodGet, "/api/controls", nil, &m)
	return m, err
}

// Shutdown asks the rover to stop every task.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/shutdown", nil, nil)
}

// Watch streams /ws/telemetry until ctx is cancelled or the connection
// drops. The first frame, the rover's status, is skipped.
func (c *Client) Watch(ctx context.Context, fn func(*protocol.Message)) error {
	url := "ws" + strings.TrimPrefix(c.base, "http") + "/ws/telemetry"
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	if _, _, err := ws.ReadMessage(); err != nil {
		return err
	}
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		fn(msg)
	}
}
