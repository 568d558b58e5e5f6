// fixate runs a gaze-contingent experiment from a YAML definition.
//
// The gaze position comes from the terminal mouse or from a remote tracker
// streaming to the built-in relay. A live monitor is served on FIXATE_PORT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-fixate/internal/config"
	"github.com/teslashibe/go-fixate/internal/log"
	"github.com/teslashibe/go-fixate/pkg/debug"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel)

	app, err := NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = app.Run(ctx)
	app.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Session ended: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads flags, falling back to FIXATE_* environment variables.
func parseFlags() Config {
	cfg := DefaultConfig()

	experiment := flag.String("experiment", config.ExperimentPath(""), "Experiment definition (FIXATE_EXPERIMENT)")
	results := flag.String("results", config.String("FIXATE_RESULTS", ""), "Write trial records as JSON lines to this file")
	monitor := flag.Bool("monitor", cfg.Monitor, "Serve the live monitor dashboard")
	headless := flag.Bool("headless", false, "Do not draw in the terminal (relay source only)")
	mute := flag.Bool("mute", false, "Disable feedback tones")
	watch := flag.Bool("watch", false, "Reload the definition between blocks when the file changes")
	verbose := flag.Bool("debug", false, "Enable debug logging")
	ticks := flag.Bool("debug-ticks", false, "Log every pipeline tick (very verbose)")
	flag.Parse()

	cfg.ExperimentPath = *experiment
	cfg.ResultsPath = *results
	cfg.Monitor = *monitor
	cfg.Headless = *headless
	cfg.Mute = *mute
	cfg.Watch = *watch
	if *verbose {
		cfg.LogLevel = "debug"
		debug.Enabled = true
	}
	debug.Ticks = *ticks
	if cfg.ExperimentPath == "" {
		cfg.ExperimentPath = config.ExperimentPathRequired()
	}
	return cfg
}
