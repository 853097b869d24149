package protocol

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSnapshotMessage creates a snapshot message. controls must marshal to a
// JSON object keyed by control name.
func NewSnapshotMessage(reads uint64, controls json.Marshaler) (*Message, error) {
	raw, err := controls.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return NewMessage(TypeSnapshot, SnapshotData{
		Reads:    reads,
		Controls: raw,
	})
}

// NewDriveMessage creates a drive message
func NewDriveMessage(d DriveData) (*Message, error) {
	return NewMessage(TypeDrive, d)
}

// NewMastMessage creates a mast message
func NewMastMessage(pan, tilt float64) (*Message, error) {
	return NewMessage(TypeMast, MastData{Pan: pan, Tilt: tilt})
}

// NewFaultMessage creates a fault message
func NewFaultMessage(task, kind string, err error, retryable bool) (*Message, error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return NewMessage(TypeFault, FaultData{
		Task:      task,
		Kind:      kind,
		Error:     msg,
		Retryable: retryable,
	})
}

// NewStateMessage creates a state message
func NewStateMessage(steering string, tasks map[string]bool, uptime time.Duration) (*Message, error) {
	return NewMessage(TypeState, StateData{
		Steering: steering,
		Tasks:    tasks,
		UptimeMs: uptime.Milliseconds(),
	})
}

// NewReportMessage creates a report message from raw gamepad bytes
func NewReportMessage(raw []byte) (*Message, error) {
	return NewMessage(TypeReport, ReportData{
		Data: base64.StdEncoding.EncodeToString(raw),
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetDriveData extracts drive data from a message
func (m *Message) GetDriveData() (*DriveData, error) {
	var data DriveData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMastData extracts mast data from a message
func (m *Message) GetMastData() (*MastData, error) {
	var data MastData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFaultData extracts fault data from a message
func (m *Message) GetFaultData() (*FaultData, error) {
	var data FaultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSnapshotData extracts snapshot data from a message
func (m *Message) GetSnapshotData() (*SnapshotData, error) {
	var data SnapshotData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetReportData extracts report data from a message
func (m *Message) GetReportData() (*ReportData, error) {
	var data ReportData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeReport decodes the base64 report bytes
func (r *ReportData) DecodeReport() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Data)
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
