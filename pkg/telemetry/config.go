package telemetry

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config configures MQTT telemetry. An empty Broker disables publishing.
type Config struct {
	Broker   string `yaml:"broker"`    // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id"` // generated when empty
	Topic    string `yaml:"topic"`     // topic prefix

	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	QueueSize      int           `yaml:"queue_size"`
}

// DefaultConfig returns telemetry defaults with no broker.
func DefaultConfig() Config {
	return Config{
		Topic:          "rover",
		QoS:            0,
		ConnectTimeout: 5 * time.Second,
		PublishTimeout: 2 * time.Second,
		RetryInterval:  5 * time.Second,
		QueueSize:      128,
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Broker == "" {
		return nil
	}
	if !strings.Contains(c.Broker, "://") {
		return errors.New("telemetry: broker must be a URL such as tcp://host:1883")
	}
	if c.Topic == "" || strings.ContainsAny(c.Topic, "+#") {
		return errors.New("telemetry: topic prefix must be non-empty and free of wildcards")
	}
	if c.QoS > 2 {
		return errors.New("telemetry: qos must be 0, 1 or 2")
	}
	if c.QueueSize <= 0 {
		return errors.New("telemetry: queue size must be positive")
	}
	if c.ConnectTimeout <= 0 || c.PublishTimeout <= 0 {
		return errors.New("telemetry: timeouts must be positive")
	}
	return nil
}

// clientID returns the configured ID or a fresh one.
func (c Config) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return "rover-" + uuid.NewString()[:8]
}
