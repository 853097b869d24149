// Package protocol defines the WebSocket and MQTT message types exchanged
// between the rover and its operators.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Rover → operator messages
	TypeSnapshot MessageType = "snapshot" // Decoded gamepad controls
	TypeDrive    MessageType = "drive"    // Applied drive command
	TypeMast     MessageType = "mast"     // Mast position
	TypeFault    MessageType = "fault"    // Recoverable or fatal error
	TypeState    MessageType = "state"    // Task liveness

	// Operator → rover messages
	TypeReport MessageType = "report" // Raw 15-byte gamepad report

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Fault kinds carried in FaultData.Kind
const (
	FaultProtocol  = "protocol"
	FaultTransport = "transport"
	FaultTimeout   = "timeout"
	FaultInit      = "init"
	FaultActuator  = "actuator"
)

// Drive actions carried in DriveData.Action
const (
	ActionDrive = "drive"
	ActionStop  = "stop"
	ActionBrake = "brake"
)

// Message is the base wrapper for all messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Rover → Operator Message Types
// =============================================================================

// SnapshotData contains the decoded controls. Controls is keyed by control
// name, e.g. "LeftStick_DU".
type SnapshotData struct {
	Reads    uint64          `json:"reads"`
	Controls json.RawMessage `json:"controls"`
}

// DriveData contains the command applied by the drive task
type DriveData struct {
	Action    string  `json:"action"`         // "drive", "stop", "brake"
	Mode      string  `json:"mode,omitempty"` // "simple", "ackermann"
	Direction float64 `json:"direction"`      // Degrees, + = right
	Speed     float64 `json:"speed"`          // Percent, + = forward

	LeftAngle  int `json:"left_angle"`
	RightAngle int `json:"right_angle"`
	LeftSpeed  int `json:"left_speed"`
	RightSpeed int `json:"right_speed"`
}

// MastData contains the mast position in degrees
type MastData struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
}

// FaultData describes an error seen by one of the tasks
type FaultData struct {
	Task      string `json:"task"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// StateData contains task liveness
type StateData struct {
	Steering string          `json:"steering"`
	Tasks    map[string]bool `json:"tasks"`
	UptimeMs int64           `json:"uptime_ms"`
}

// =============================================================================
// Operator → Rover Message Types
// =============================================================================

// ReportData carries a raw gamepad report from a remote operator
type ReportData struct {
	Data string `json:"data"` // base64 encoded
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
