package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-fixate/internal/config"
	"github.com/teslashibe/go-fixate/internal/log"
	"github.com/teslashibe/go-fixate/pkg/experiment"
	"github.com/teslashibe/go-fixate/pkg/feedback"
	"github.com/teslashibe/go-fixate/pkg/feedback/audio"
	"github.com/teslashibe/go-fixate/pkg/relay"
	"github.com/teslashibe/go-fixate/pkg/term"
	"github.com/teslashibe/go-fixate/pkg/web"
	"github.com/teslashibe/go-fixate/pkg/xy"
)

// Config holds command settings.
type Config struct {
	ExperimentPath string
	ResultsPath    string
	MonitorPort    string
	RelayPort      string
	LogLevel       string
	Monitor        bool
	Headless       bool
	Mute           bool
	Watch          bool
}

// DefaultConfig returns settings from the environment.
func DefaultConfig() Config {
	return Config{
		MonitorPort: config.MonitorPort(),
		RelayPort:   config.RelayPort(),
		LogLevel:    config.LogLevel(),
		Monitor:     true,
	}
}

// App wires a session to its source, display, feedback and monitor.
type App struct {
	cfg    Config
	def    *experiment.Definition
	logger *slog.Logger

	screen   *term.Screen
	speaker  *audio.Speaker
	monitor  *web.Server
	relayApp *fiber.App
	relayHub *relay.Hub
	watcher  *experiment.Watcher
	results  *os.File
}

// NewApp loads the definition and opens every resource the session needs.
func NewApp(cfg Config) (*App, error) {
	def, err := experiment.Load(cfg.ExperimentPath)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, def: def, logger: log.Component("fixate")}

	if cfg.Headless && def.Source.Kind == experiment.SourceMouse {
		return nil, errors.New("mouse source needs the terminal, drop -headless")
	}
	if !cfg.Headless {
		if a.screen, err = term.New(def.Screen.Width, def.Screen.Height); err != nil {
			return nil, err
		}
	}
	if !cfg.Mute {
		if a.speaker, err = audio.NewSpeaker(log.Component("feedback")); err != nil {
			// Non-fatal, the session can run silently.
			a.logger.Warn("audio unavailable", "error", err)
		}
	}
	if def.Source.Kind == experiment.SourceRelay {
		a.startRelay()
	}
	if cfg.Monitor {
		a.monitor = web.NewServer(cfg.MonitorPort, web.WithLogger(log.Component("web")))
		a.monitor.StartAsync()
	}
	if cfg.Watch {
		if a.watcher, err = experiment.NewWatcher(cfg.ExperimentPath); err != nil {
			a.Shutdown()
			return nil, err
		}
	}
	if cfg.ResultsPath != "" {
		if a.results, err = os.Create(cfg.ResultsPath); err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("results: %w", err)
		}
	}
	return a, nil
}

func (a *App) startRelay() {
	a.relayHub = relay.NewHub(log.Component("relay"))
	a.relayApp = fiber.New(fiber.Config{
		AppName:               "fixate relay",
		DisableStartupMessage: true,
	})
	a.relayHub.RegisterRoutes(a.relayApp)
	a.relayHub.RegisterAPIRoutes(a.relayApp.Group("/api"))
	go func() {
		a.logger.Info("relay listening", "url", config.RelayURL("localhost", a.cfg.RelayPort, a.def.Source.Tracker))
		if err := a.relayApp.Listen(":" + a.cfg.RelayPort); err != nil {
			a.logger.Error("relay stopped", "error", err)
		}
	}()
}

func (a *App) source() xy.Source {
	if a.def.Source.Kind == experiment.SourceRelay {
		return xy.NewDeviceSource(a.def.Source.Tracker, a.relayHub.Device(a.def.Source.Tracker))
	}
	return xy.NewMouseSource(a.screen)
}

func (a *App) build() (*experiment.Session, error) {
	opts := []experiment.Option{experiment.WithLogger(log.Component("experiment"))}
	if a.screen != nil {
		opts = append(opts, experiment.WithDisplay(a.screen))
	}
	if a.speaker != nil {
		opts = append(opts, experiment.WithFeedback(a.speaker))
	} else {
		opts = append(opts, experiment.WithFeedback(feedback.Nop{}))
	}
	if a.monitor != nil {
		opts = append(opts, experiment.WithListener(a.monitor), experiment.WithObserver(a.monitor))
	}
	sess, err := experiment.Build(a.def, a.source(), opts...)
	if err != nil {
		return nil, err
	}
	if a.monitor != nil {
		a.monitor.SetSession(sess.ID, a.def.Name)
	}
	return sess, nil
}

// Run runs every block, reloading the definition between blocks when it
// changed on disk. Escape or q in the terminal ends the session.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.screen != nil {
		go func() {
			select {
			case <-a.screen.Quit():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	sess, err := a.build()
	if err != nil {
		return err
	}
	for block := 0; block < a.def.Blocks; block++ {
		if a.watcher != nil && a.watcher.Changed() {
			if sess, err = a.reload(sess); err != nil {
				return err
			}
		}
		a.setRunning(true)
		err = sess.RunBlock(ctx)
		a.setRunning(false)
		if err != nil {
			break
		}
	}
	if werr := a.writeResults(sess); werr != nil && err == nil {
		err = werr
	}
	if errors.Is(err, context.Canceled) {
		a.logger.Info("session stopped")
		return nil
	}
	return err
}

// reload swaps in a freshly loaded definition. An invalid file keeps the
// current session running.
func (a *App) reload(sess *experiment.Session) (*experiment.Session, error) {
	def, err := experiment.Load(a.cfg.ExperimentPath)
	if err != nil {
		a.logger.Warn("reload rejected", "error", err)
		return sess, nil
	}
	if def.Source != a.def.Source || def.Screen != a.def.Screen {
		a.logger.Warn("reload rejected: source and screen cannot change mid-session")
		return sess, nil
	}
	if err := a.writeResults(sess); err != nil {
		return nil, err
	}
	a.def = def
	a.logger.Info("definition reloaded", "path", a.cfg.ExperimentPath)
	return a.build()
}

func (a *App) setRunning(running bool) {
	if a.monitor == nil {
		return
	}
	a.monitor.UpdateStatus(func(s *web.Status) { s.Running = running })
}

func (a *App) writeResults(sess *experiment.Session) error {
	if a.results == nil {
		return nil
	}
	return sess.WriteResults(a.results)
}

// Shutdown releases the terminal, audio device and servers.
func (a *App) Shutdown() {
	if a.screen != nil {
		a.screen.Close()
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.monitor != nil {
		_ = a.monitor.Shutdown()
	}
	if a.relayApp != nil {
		_ = a.relayApp.Shutdown()
	}
	if a.results != nil {
		_ = a.results.Close()
	}
}
