// Package config provides environment configuration helpers for go-fixate commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default configuration.
const (
	DefaultMonitorPort = "8090"
	DefaultRelayPort   = "8091"
	DefaultLogLevel    = "info"
)

// MonitorPort returns the dashboard port from FIXATE_PORT or the default.
func MonitorPort() string {
	return String("FIXATE_PORT", DefaultMonitorPort)
}

// RelayPort returns the tracker relay port from FIXATE_RELAY_PORT or the default.
func RelayPort() string {
	return String("FIXATE_RELAY_PORT", DefaultRelayPort)
}

// LogLevel returns the log level from FIXATE_LOG_LEVEL or the default.
func LogLevel() string {
	return String("FIXATE_LOG_LEVEL", DefaultLogLevel)
}

// ExperimentPath returns the experiment definition path from FIXATE_EXPERIMENT.
// Falls back to the provided default if not set.
func ExperimentPath(defaultPath string) string {
	return String("FIXATE_EXPERIMENT", defaultPath)
}

// ExperimentPathRequired returns the experiment path from FIXATE_EXPERIMENT.
// Exits if not set.
func ExperimentPathRequired() string {
	path := os.Getenv("FIXATE_EXPERIMENT")
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: FIXATE_EXPERIMENT environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: FIXATE_EXPERIMENT=experiments/fixation.yaml go run ./cmd/fixate")
		os.Exit(1)
	}
	return path
}

// RelayURL returns the websocket URL of a tracker relay.
func RelayURL(host, port, trackerID string) string {
	return fmt.Sprintf("ws://%s:%s/ws/tracker/%s", host, port, trackerID)
}

// String returns the env var value or def when unset.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Float returns the env var parsed as a float, or def when unset or malformed.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
