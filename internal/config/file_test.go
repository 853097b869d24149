package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rover.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvSteeringMode, "")
	t.Setenv(EnvCANInterface, "")

	f, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Steering != DefaultSteeringMode {
		t.Errorf("Steering = %q, want %q", f.Steering, DefaultSteeringMode)
	}
	if f.Actuator.CANInterface != DefaultCANInterface {
		t.Errorf("CANInterface = %q, want %q", f.Actuator.CANInterface, DefaultCANInterface)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(EnvSteeringMode, "ackermann")

	f, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Steering != "ackermann" {
		t.Errorf("Steering = %q, want ackermann", f.Steering)
	}
}

func TestLoad_File(t *testing.T) {
	for _, key := range []string{EnvSteeringMode, EnvLEDBrightness, EnvMQTTBroker} {
		t.Setenv(key, "")
	}
	path := writeFile(t, `
steering: ackermann
led_brightness: 0.2
transport:
  kind: remote
actuator:
  kind: dryrun
mqtt:
  broker: tcp://localhost:1883
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Steering != "ackermann" {
		t.Errorf("Steering = %q", f.Steering)
	}
	if f.LEDBrightness != 0.2 {
		t.Errorf("LEDBrightness = %v", f.LEDBrightness)
	}
	if f.Transport.Kind != "remote" || f.Actuator.Kind != "dryrun" {
		t.Errorf("kinds = %q/%q", f.Transport.Kind, f.Actuator.Kind)
	}
	if f.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("Broker = %q", f.MQTT.Broker)
	}
	// untouched sections keep defaults
	if f.MQTT.Topic != DefaultMQTTTopic {
		t.Errorf("Topic = %q, want %q", f.MQTT.Topic, DefaultMQTTTopic)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvSteeringMode, "ackermann")
	t.Setenv(EnvCANInterface, "")
	t.Setenv(EnvLEDBrightness, "0.9")
	path := writeFile(t, `
steering: simple
led_brightness: 0.2
actuator:
  can_interface: can1
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Steering != "ackermann" {
		t.Errorf("Steering = %q, want the environment's ackermann", f.Steering)
	}
	if f.LEDBrightness != 0.9 {
		t.Errorf("LEDBrightness = %v, want 0.9", f.LEDBrightness)
	}
	// unset variables leave the file's value
	if f.Actuator.CANInterface != "can1" {
		t.Errorf("CANInterface = %q, want can1", f.Actuator.CANInterface)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad steering", "steering: tank\n"},
		{"bad transport", "transport:\n  kind: bluetooth\n"},
		{"bad actuator", "actuator:\n  kind: gpio\n"},
		{"bad brightness", "led_brightness: 2\n"},
		{"bad yaml", "steering: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLEDBrightness_Unparseable(t *testing.T) {
	t.Setenv(EnvLEDBrightness, "bright")
	if got := LEDBrightness(); got != DefaultLEDBrightness {
		t.Errorf("LEDBrightness = %v, want default", got)
	}
}
