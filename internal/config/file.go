package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk rover configuration (rover.yaml).
// Every field is optional; zero values keep the defaults.
type File struct {
	LogLevel string `yaml:"log_level"`

	Steering      string  `yaml:"steering"`
	LEDBrightness float64 `yaml:"led_brightness"`

	Transport TransportSection `yaml:"transport"`
	Actuator  ActuatorSection  `yaml:"actuator"`
	HTTP      HTTPSection      `yaml:"http"`
	MQTT      MQTTSection      `yaml:"mqtt"`
}

// TransportSection selects where gamepad reports come from.
type TransportSection struct {
	Kind   string `yaml:"kind"` // hidraw, remote
	HIDRaw string `yaml:"hidraw"`
}

// ActuatorSection selects the actuator backend.
type ActuatorSection struct {
	Kind         string `yaml:"kind"` // can, dryrun
	CANInterface string `yaml:"can_interface"`
	CANBaseID    uint32 `yaml:"can_base_id"`
}

// HTTPSection configures the dashboard server.
type HTTPSection struct {
	Addr string `yaml:"addr"`
}

// MQTTSection configures telemetry publishing.
type MQTTSection struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// Default returns the configuration used when no file is given,
// with environment overrides applied.
func Default() *File {
	f := &File{
		LogLevel:      LogLevel(),
		Steering:      SteeringMode(),
		LEDBrightness: LEDBrightness(),
		Transport:     TransportSection{Kind: "hidraw", HIDRaw: HIDRawPath()},
		Actuator:      ActuatorSection{Kind: "can", CANInterface: CANInterface()},
		HTTP:          HTTPSection{Addr: HTTPAddr()},
		MQTT:          MQTTSection{Broker: MQTTBroker(), Topic: DefaultMQTTTopic},
	}
	return f
}

// Load reads a YAML config file on top of Default. Precedence, highest
// first: command-line flags (applied by the caller), environment
// variables, the file, built-in defaults. A missing file is not an error
// when path is empty.
func Load(path string) (*File, error) {
	f := Default()
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	f.applyEnv()

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// applyEnv overrides fields whose environment variable is set.
func (f *File) applyEnv() {
	setFromEnv(&f.LogLevel, EnvLogLevel)
	setFromEnv(&f.Steering, EnvSteeringMode)
	setFromEnv(&f.Transport.HIDRaw, EnvHIDRaw)
	setFromEnv(&f.Actuator.CANInterface, EnvCANInterface)
	setFromEnv(&f.HTTP.Addr, EnvHTTPAddr)
	setFromEnv(&f.MQTT.Broker, EnvMQTTBroker)
	if os.Getenv(EnvLEDBrightness) != "" {
		f.LEDBrightness = LEDBrightness()
	}
}

func setFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

// Validate checks enumerated fields.
func (f *File) Validate() error {
	switch f.Steering {
	case "simple", "ackermann":
	default:
		return fmt.Errorf("steering must be simple or ackermann, got %q", f.Steering)
	}
	switch f.Transport.Kind {
	case "hidraw", "remote":
	default:
		return fmt.Errorf("transport.kind must be hidraw or remote, got %q", f.Transport.Kind)
	}
	switch f.Actuator.Kind {
	case "can", "dryrun":
	default:
		return fmt.Errorf("actuator.kind must be can or dryrun, got %q", f.Actuator.Kind)
	}
	if f.LEDBrightness < 0 || f.LEDBrightness > 1 {
		return fmt.Errorf("led_brightness must be in [0,1], got %v", f.LEDBrightness)
	}
	return nil
}
