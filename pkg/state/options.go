package state

import (
	"log/slog"

	"github.com/teslashibe/go-fixate/pkg/clock"
)

// Config holds construction settings for states and tasks.
type Config struct {
	Time   clock.TimeSource
	Logger *slog.Logger
}

// Option is a functional option for New and NewTask.
type Option func(*Config)

// WithTimeSource sets the time source of the per-run clock.
func WithTimeSource(ts clock.TimeSource) Option {
	return func(c *Config) { c.Time = ts }
}

// WithLogger sets the logger used for transition traces.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func buildConfig(opts []Option) Config {
	cfg := Config{Time: clock.System, Logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Time == nil {
		cfg.Time = clock.System
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
