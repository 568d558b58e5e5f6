// Package state implements cooperative, tick-driven behavioural states and the
// Task that sequences them.
//
// A State runs Entry once, then alternates Loop and an exit check until one of
// its exit conditions holds, then runs Exit. Hooks are plain functions that
// receive the state being run; they cannot return errors and instead call
// Abort, which stops the run as soon as the hook returns.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/teslashibe/go-fixate/pkg/clock"
)

// Hook is a user callback invoked at a lifecycle point.
type Hook func(s *State)

// Condition reports whether a state should exit. Conditions are checked after
// every Loop call.
type Condition func() bool

// Status is the lifecycle position of a state.
type Status int

const (
	StatusIdle Status = iota
	StatusActive
	StatusExited
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	case StatusExited:
		return "exited"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is a single behavioural state. The zero value is not usable; use New.
type State struct {
	name string

	entry, loop, exit, bypass Hook

	duration   float64
	conditions []Condition // slot 0 is always the duration check
	next       *State
	bypassed   bool

	clk      *clock.Clock
	logger   *slog.Logger
	status   Status
	escaped  bool
	looped   bool
	running  bool
	abortErr error
	isTask   bool
}

// New creates a state with a zero duration and no hooks: run as is, it
// enters, loops once and exits.
func New(name string, opts ...Option) *State {
	s := &State{}
	s.init(name, buildConfig(opts))
	return s
}

func (s *State) init(name string, cfg Config) {
	s.name = name
	s.clk = clock.New(cfg.Time)
	s.logger = cfg.Logger
	s.conditions = []Condition{nil}
	s.setDuration(0)
}

// Name returns the state name.
func (s *State) Name() string { return s.name }

// Status returns the lifecycle position of the most recent run.
func (s *State) Status() Status { return s.status }

// Elapsed returns seconds since the state was last entered.
func (s *State) Elapsed() float64 { return s.clk.Elapsed() }

// Looped reports whether Loop ran during the current activation.
func (s *State) Looped() bool { return s.looped }

// Escaped reports whether Escape or Abort was called during the current activation.
func (s *State) Escaped() bool { return s.escaped }

// OnEntry sets the Entry hook. nil clears it.
func (s *State) OnEntry(h Hook) { s.entry = h }

// OnLoop sets the Loop hook. nil clears it.
func (s *State) OnLoop(h Hook) { s.loop = h }

// OnExit sets the Exit hook. nil clears it.
func (s *State) OnExit(h Hook) { s.exit = h }

// OnBypass sets the Bypass hook. nil clears it.
func (s *State) OnBypass(h Hook) { s.bypass = h }

// Bypassed reports whether the state is skipped when run.
func (s *State) Bypassed() bool { return s.bypassed }

// SetBypassed marks the state to be skipped; only its Bypass hook will run.
func (s *State) SetBypassed(b bool) { s.bypassed = b }

// Duration returns the time limit in seconds. +Inf means no limit.
func (s *State) Duration() float64 { return s.duration }

// SetDuration sets the time limit in seconds, replacing the previous duration
// condition. NaN or negative values are rejected.
func (s *State) SetDuration(d float64) error {
	if math.IsNaN(d) || d < 0 {
		return fmt.Errorf("%w: duration must be >= 0, got %v", ErrConfiguration, d)
	}
	s.setDuration(d)
	return nil
}

func (s *State) setDuration(d float64) {
	s.duration = d
	s.conditions[0] = func() bool { return s.clk.Elapsed() >= d }
}

// AddExitCondition appends a custom exit predicate.
func (s *State) AddExitCondition(c Condition) error {
	if c == nil {
		return fmt.Errorf("%w: nil exit condition", ErrConfiguration)
	}
	s.conditions = append(s.conditions, c)
	return nil
}

// ExitConditions returns the number of exit conditions including the duration check.
func (s *State) ExitConditions() int { return len(s.conditions) }

// Escape makes the next exit check succeed.
func (s *State) Escape() { s.escaped = true }

// Abort stops the run after the calling hook returns. Run returns err.
// A nil err is ignored.
func (s *State) Abort(err error) {
	if err == nil {
		return
	}
	s.abortErr = err
	s.escaped = true
}

// Next records the state a Task should run after this one. nil ends the sequence.
func (s *State) Next(n *State) error {
	if s.isTask {
		return fmt.Errorf("%w: a task does not take a next state", ErrInvalidOperation)
	}
	if n != nil && n.isTask {
		return fmt.Errorf("%w: next state %q is a task", ErrTypeMismatch, n.name)
	}
	s.next = n
	return nil
}

// NextState returns the recorded hand-off, or nil.
func (s *State) NextState() *State { return s.next }

// Run runs the state to completion. Cancelling ctx acts like Escape: the
// current Loop finishes, Exit runs and Run returns ctx.Err().
func (s *State) Run(ctx context.Context) error {
	if s.isTask {
		return fmt.Errorf("%w: run a task with Task.Run", ErrInvalidOperation)
	}
	if s.running {
		return fmt.Errorf("%w: state %q is already running", ErrInvalidOperation, s.name)
	}
	s.running = true
	defer func() { s.running = false }()

	if s.bypassed {
		return s.doBypass()
	}
	if err := s.doEntry(); err != nil {
		return err
	}
	for {
		if err := s.doLoop(); err != nil {
			return err
		}
		if s.exitSatisfied(ctx) {
			break
		}
	}
	if err := s.doExit(); err != nil {
		return err
	}
	return ctx.Err()
}

// exitSatisfied runs the exit check: escape, then cancellation, then the
// conditions in order. The first true result wins.
func (s *State) exitSatisfied(ctx context.Context) bool {
	if s.escaped {
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	for _, c := range s.conditions {
		if c() {
			return true
		}
	}
	return false
}

func (s *State) doEntry() error {
	s.clk.Reset()
	s.escaped = false
	s.looped = false
	s.abortErr = nil
	s.status = StatusActive
	s.logger.Debug("state entered", "state", s.name)
	return s.call(s.entry)
}

func (s *State) doLoop() error {
	s.looped = true
	return s.call(s.loop)
}

func (s *State) doExit() error {
	s.status = StatusExited
	s.logger.Debug("state exited", "state", s.name, "elapsed", s.clk.Elapsed())
	return s.call(s.exit)
}

func (s *State) doBypass() error {
	s.abortErr = nil
	s.status = StatusExited
	s.logger.Debug("state bypassed", "state", s.name)
	return s.call(s.bypass)
}

func (s *State) call(h Hook) error {
	if h != nil {
		h(s)
	}
	if err := s.abortErr; err != nil {
		s.abortErr = nil
		return err
	}
	return nil
}
