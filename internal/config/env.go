// Package config provides configuration helpers for go-rover commands.
package config

import (
	"os"
	"strconv"
)

// Default rover configuration.
const (
	DefaultSteeringMode  = "simple"
	DefaultCANInterface  = "can0"
	DefaultHTTPAddr      = ":8080"
	DefaultMQTTTopic     = "rover"
	DefaultLEDBrightness = 0.4
	DefaultLogLevel      = "info"
)

// Environment variable names.
const (
	EnvSteeringMode  = "ROVER_STEERING_MODE"
	EnvHIDRaw        = "ROVER_HIDRAW"
	EnvCANInterface  = "ROVER_CAN_IFACE"
	EnvLEDBrightness = "ROVER_LED_BRIGHTNESS"
	EnvMQTTBroker    = "MQTT_BROKER"
	EnvHTTPAddr      = "ROVER_HTTP_ADDR"
	EnvLogLevel      = "LOG_LEVEL"
)

// SteeringMode returns the steering mode from ROVER_STEERING_MODE.
// Falls back to "simple" if not set.
func SteeringMode() string {
	return envOr(EnvSteeringMode, DefaultSteeringMode)
}

// HIDRawPath returns the hidraw device path from ROVER_HIDRAW.
// An empty result means the device is discovered by vendor/product ID.
func HIDRawPath() string {
	return os.Getenv(EnvHIDRaw)
}

// CANInterface returns the SocketCAN interface from ROVER_CAN_IFACE.
func CANInterface() string {
	return envOr(EnvCANInterface, DefaultCANInterface)
}

// MQTTBroker returns the telemetry broker URL from MQTT_BROKER.
// Empty disables MQTT telemetry.
func MQTTBroker() string {
	return os.Getenv(EnvMQTTBroker)
}

// HTTPAddr returns the dashboard listen address from ROVER_HTTP_ADDR.
func HTTPAddr() string {
	return envOr(EnvHTTPAddr, DefaultHTTPAddr)
}

// LEDBrightness returns the LED brightness from ROVER_LED_BRIGHTNESS.
// Unparseable values fall back to the default.
func LEDBrightness() float64 {
	if v := os.Getenv(EnvLEDBrightness); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return DefaultLEDBrightness
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel() string {
	return envOr(EnvLogLevel, DefaultLogLevel)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
