// Package debug provides global verbosity flags.
package debug

import "log/slog"

// Enabled controls whether debug logging is active.
var Enabled bool

// Ticks controls whether per-tick pipeline and state traces are logged.
// Use --debug-ticks to enable these very verbose logs.
var Ticks bool

// Log logs a message only if debug mode is enabled.
func Log(msg string, args ...any) {
	if Enabled {
		slog.Info(msg, args...)
	}
}

// TickLog logs a message only if tick tracing is enabled.
func TickLog(msg string, args ...any) {
	if Ticks {
		slog.Info(msg, args...)
	}
}
