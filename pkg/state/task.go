package state

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/teslashibe/go-fixate/pkg/clock"
)

// Task is a State that runs a chain of other states. The chain starts at the
// state passed to Run and follows each state's NextState after it exits.
// The Task's own hooks run around and between its children.
type Task struct {
	State

	time      clock.TimeSource
	pending   *State
	current   *State
	listeners []Listener
	runID     string
}

// NewTask creates a task with an infinite duration.
func NewTask(name string, opts ...Option) *Task {
	cfg := buildConfig(opts)
	t := &Task{time: cfg.Time}
	t.init(name, cfg)
	t.setDuration(math.Inf(1))
	t.isTask = true
	t.conditions = append(t.conditions, func() bool { return t.pending == nil })
	return t
}

// Next is not supported on a Task.
func (t *Task) Next(*State) error {
	return fmt.Errorf("%w: a task does not take a next state", ErrInvalidOperation)
}

// SetPending replaces the state the task will run next. Hooks use it to
// redirect or end the sequence; nil ends it at the next exit check.
func (t *Task) SetPending(s *State) error {
	if s != nil && s.isTask {
		return fmt.Errorf("%w: state %q is a task", ErrTypeMismatch, s.name)
	}
	t.pending = s
	return nil
}

// Pending returns the state queued to run, or nil.
func (t *Task) Pending() *State { return t.pending }

// Current returns the child state currently active, or nil.
func (t *Task) Current() *State { return t.current }

// RunID returns the identifier of the most recent run.
func (t *Task) RunID() string { return t.runID }

// AddListener registers l for transition events.
func (t *Task) AddListener(l Listener) {
	if l != nil {
		t.listeners = append(t.listeners, l)
	}
}

// Run runs the task starting at initial. Cancelling ctx escapes the active
// state and the task; Run then returns ctx.Err().
func (t *Task) Run(ctx context.Context, initial *State) error {
	if t.running {
		return fmt.Errorf("%w: task %q is already running", ErrInvalidOperation, t.name)
	}
	if initial != nil && initial.isTask {
		return fmt.Errorf("%w: initial state %q is a task", ErrTypeMismatch, initial.name)
	}
	t.running = true
	defer func() { t.running = false }()

	t.runID = uuid.NewString()
	t.current = nil

	if t.bypassed {
		t.emit(EventBypassed, &t.State)
		return t.doBypass()
	}

	t.pending = initial
	t.emit(EventTaskStarted, &t.State)
	if err := t.doEntry(); err != nil {
		return err
	}

	for !t.exitSatisfied(ctx) {
		if err := t.doLoop(); err != nil {
			return err
		}
		active := t.pending
		if active == nil {
			continue
		}
		// A redirect through SetPending closes the child it replaces.
		if prev := t.current; prev != nil && prev != active {
			if err := t.finish(prev); err != nil {
				return err
			}
		}
		if active.bypassed {
			t.emit(EventBypassed, active)
			if err := active.doBypass(); err != nil {
				return err
			}
			t.pending = active.next
			continue
		}
		if t.current != active {
			t.current = active
			if err := active.doEntry(); err != nil {
				return err
			}
			t.emit(EventEntered, active)
		}
		if active.exitSatisfied(ctx) {
			if err := t.finish(active); err != nil {
				return err
			}
			t.pending = active.next
		} else if err := active.doLoop(); err != nil {
			return err
		}
	}

	// The task can end while a child is still active, e.g. on its own duration.
	if active := t.current; active != nil {
		if err := t.finish(active); err != nil {
			return err
		}
	}
	if !t.looped {
		if err := t.doLoop(); err != nil {
			return err
		}
	}
	if err := t.doExit(); err != nil {
		return err
	}
	t.emit(EventTaskFinished, &t.State)
	return ctx.Err()
}

// finish closes the activation of s: Loop if it has not run yet, then Exit.
func (t *Task) finish(s *State) error {
	t.current = nil
	if !s.looped {
		if err := s.doLoop(); err != nil {
			return err
		}
	}
	if err := s.doExit(); err != nil {
		return err
	}
	t.emit(EventExited, s)
	return nil
}

func (t *Task) emit(kind EventKind, s *State) {
	if len(t.listeners) == 0 {
		return
	}
	e := Event{
		ID:      uuid.NewString(),
		RunID:   t.runID,
		Kind:    kind,
		Task:    t.name,
		State:   s.name,
		Time:    t.time.Now(),
		Elapsed: s.clk.Elapsed(),
	}
	if kind == EventBypassed {
		e.Elapsed = 0
	}
	for _, l := range t.listeners {
		l.OnStateEvent(e)
	}
}
