package state

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func newChain(tr *trace, names ...string) []*State {
	states := make([]*State, len(names))
	for i, n := range names {
		s := New(n, WithTimeSource(newManual()))
		s.SetDuration(0)
		tr.watch(s)
		states[i] = s
	}
	for i := 0; i+1 < len(states); i++ {
		states[i].Next(states[i+1])
	}
	return states
}

func TestTask_SequenceABC(t *testing.T) {
	tr := &trace{}
	chain := newChain(tr, "A", "B", "C")
	task := NewTask("T", WithTimeSource(newManual()))
	tr.watch(&task.State)

	if err := task.Run(context.Background(), chain[0]); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := "T.entry," +
		"T.loop,A.entry,A.loop,A.exit," +
		"T.loop,B.entry,B.loop,B.exit," +
		"T.loop,C.entry,C.loop,C.exit," +
		"T.exit"
	if got := tr.String(); got != want {
		t.Errorf("calls =\n  %s\nwant\n  %s", got, want)
	}
	for _, s := range chain {
		if s.Status() != StatusExited {
			t.Errorf("%s status = %v, want exited", s.Name(), s.Status())
		}
	}
	if task.Pending() != nil || task.Current() != nil {
		t.Error("task should have no pending or current state after run")
	}
}

func TestTask_BypassedChild(t *testing.T) {
	tr := &trace{}
	chain := newChain(tr, "A", "B", "C")
	chain[1].SetBypassed(true)
	task := NewTask("T")
	tr.watch(&task.State)

	if err := task.Run(context.Background(), chain[0]); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := "T.entry," +
		"T.loop,A.entry,A.loop,A.exit," +
		"T.loop,B.bypass," +
		"T.loop,C.entry,C.loop,C.exit," +
		"T.exit"
	if got := tr.String(); got != want {
		t.Errorf("calls =\n  %s\nwant\n  %s", got, want)
	}
}

func TestTask_EmptyRunLoopsOnce(t *testing.T) {
	tr := &trace{}
	task := NewTask("T")
	tr.watch(&task.State)
	if err := task.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got, want := tr.String(), "T.entry,T.loop,T.exit"; got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
}

func TestTask_Bypassed(t *testing.T) {
	tr := &trace{}
	chain := newChain(tr, "A")
	task := NewTask("T")
	tr.watch(&task.State)
	task.SetBypassed(true)

	var kinds []EventKind
	task.AddListener(ListenerFunc(func(e Event) { kinds = append(kinds, e.Kind) }))

	if err := task.Run(context.Background(), chain[0]); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got := tr.String(); got != "T.bypass" {
		t.Errorf("calls = %s, want T.bypass", got)
	}
	if len(kinds) != 1 || kinds[0] != EventBypassed {
		t.Errorf("events = %v, want [bypassed]", kinds)
	}
}

func TestTask_NextIsInvalid(t *testing.T) {
	task := NewTask("T")
	s := New("s")
	if err := task.Next(s); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Task.Next error = %v, want ErrInvalidOperation", err)
	}
	if err := task.State.Next(s); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("embedded State.Next error = %v, want ErrInvalidOperation", err)
	}
	if err := task.State.Run(context.Background()); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("embedded State.Run error = %v, want ErrInvalidOperation", err)
	}
}

func TestTask_RejectsTaskAsChild(t *testing.T) {
	outer := NewTask("outer")
	inner := NewTask("inner")
	if err := outer.Run(context.Background(), &inner.State); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Run error = %v, want ErrTypeMismatch", err)
	}
	if err := outer.SetPending(&inner.State); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("SetPending error = %v, want ErrTypeMismatch", err)
	}
}

func TestTask_DurationClosesActiveChild(t *testing.T) {
	m := newManual()
	task := NewTask("T", WithTimeSource(m))
	task.SetDuration(0.25)
	task.OnLoop(func(*State) { m.Advance(100 * time.Millisecond) })

	child := New("A", WithTimeSource(m))
	child.SetDuration(math.Inf(1))
	loops, exits := 0, 0
	child.OnLoop(func(*State) { loops++ })
	child.OnExit(func(*State) { exits++ })

	if err := task.Run(context.Background(), child); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if loops != 3 {
		t.Errorf("child loops = %d, want 3", loops)
	}
	if exits != 1 {
		t.Errorf("child exits = %d, want 1", exits)
	}
	if child.Status() != StatusExited {
		t.Errorf("child status = %v, want exited", child.Status())
	}
}

func TestTask_ReentersSameState(t *testing.T) {
	task := NewTask("T")
	a := New("A")
	a.SetDuration(0)
	entries := 0
	a.OnEntry(func(*State) { entries++ })
	a.Next(a)
	a.OnExit(func(s *State) {
		if entries == 2 {
			s.Next(nil)
		}
	})

	if err := task.Run(context.Background(), a); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if entries != 2 {
		t.Errorf("entries = %d, want 2", entries)
	}
}

func TestTask_ExitHookChoosesNext(t *testing.T) {
	tests := []struct {
		name     string
		acquired bool
		want     string
	}{
		{"acquired", true, "reward"},
		{"timeout", false, "penalty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask("T")
			fix := New("fix")
			reward := New("reward")
			penalty := New("penalty")
			for _, s := range []*State{fix, reward, penalty} {
				s.SetDuration(0)
			}
			fix.OnExit(func(s *State) {
				if tt.acquired {
					s.Next(reward)
				} else {
					s.Next(penalty)
				}
			})
			var entered []string
			task.AddListener(ListenerFunc(func(e Event) {
				if e.Kind == EventEntered {
					entered = append(entered, e.State)
				}
			}))

			if err := task.Run(context.Background(), fix); err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if len(entered) != 2 || entered[1] != tt.want {
				t.Errorf("entered = %v, want [fix %s]", entered, tt.want)
			}
		})
	}
}

func TestTask_Events(t *testing.T) {
	tr := &trace{}
	chain := newChain(tr, "A", "B")
	task := NewTask("T")

	var events []Event
	task.AddListener(ListenerFunc(func(e Event) { events = append(events, e) }))

	if err := task.Run(context.Background(), chain[0]); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []struct {
		kind  EventKind
		state string
	}{
		{EventTaskStarted, "T"},
		{EventEntered, "A"},
		{EventExited, "A"},
		{EventEntered, "B"},
		{EventExited, "B"},
		{EventTaskFinished, "T"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	seen := make(map[string]bool)
	for i, w := range want {
		e := events[i]
		if e.Kind != w.kind || e.State != w.state {
			t.Errorf("event %d = %s/%s, want %s/%s", i, e.Kind, e.State, w.kind, w.state)
		}
		if e.Task != "T" {
			t.Errorf("event %d task = %q, want T", i, e.Task)
		}
		if e.RunID != task.RunID() || e.RunID == "" {
			t.Errorf("event %d run id = %q, want %q", i, e.RunID, task.RunID())
		}
		if e.ID == "" || seen[e.ID] {
			t.Errorf("event %d id %q empty or duplicated", i, e.ID)
		}
		seen[e.ID] = true
	}
}

func TestTask_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := NewTask("T")
	taskExited := false
	task.OnExit(func(*State) { taskExited = true })

	a := New("A")
	a.SetDuration(math.Inf(1))
	b := New("B")
	a.Next(b)
	childExited := false
	a.OnLoop(func(*State) { cancel() })
	a.OnExit(func(*State) { childExited = true })
	bEntered := false
	b.OnEntry(func(*State) { bEntered = true })

	err := task.Run(ctx, a)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if !childExited || !taskExited {
		t.Errorf("childExited = %v, taskExited = %v, want both true", childExited, taskExited)
	}
	if bEntered {
		t.Error("next state entered after cancellation")
	}
}

func TestTask_ChildAbort(t *testing.T) {
	boom := errors.New("device gone")
	task := NewTask("T")
	taskExited := false
	task.OnExit(func(*State) { taskExited = true })

	a := New("A")
	a.OnLoop(func(s *State) { s.Abort(boom) })

	if err := task.Run(context.Background(), a); !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if taskExited {
		t.Error("task Exit ran after abort")
	}

	// Reusable after abort.
	a.OnLoop(nil)
	a.SetDuration(0)
	if err := task.Run(context.Background(), a); err != nil {
		t.Errorf("second Run error: %v", err)
	}
}

func TestTask_NotReentrant(t *testing.T) {
	task := NewTask("T")
	var inner error
	task.OnLoop(func(*State) { inner = task.Run(context.Background(), nil) })
	if err := task.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !errors.Is(inner, ErrInvalidOperation) {
		t.Errorf("nested Run error = %v, want ErrInvalidOperation", inner)
	}
}

func TestTask_SetPendingFromLoop(t *testing.T) {
	task := NewTask("T")
	a := New("A")
	a.SetDuration(0)
	redirected := New("R")
	redirected.SetDuration(0)
	ran := ""
	redirected.OnEntry(func(s *State) { ran = s.Name() })

	first := true
	task.OnLoop(func(*State) {
		if first {
			first = false
			task.SetPending(redirected)
		}
	})
	if err := task.Run(context.Background(), a); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if ran != "R" {
		t.Errorf("redirected state not run")
	}
}

func TestTask_SetPendingClosesActiveChild(t *testing.T) {
	tr := &trace{}
	task := NewTask("T")
	a := New("A")
	a.SetDuration(math.Inf(1))
	b := New("B")
	tr.watch(a)
	tr.watch(b)

	var exited []string
	task.AddListener(ListenerFunc(func(e Event) {
		if e.Kind == EventExited {
			exited = append(exited, e.State)
		}
	}))

	loops := 0
	task.OnLoop(func(*State) {
		loops++
		if loops == 3 {
			task.SetPending(b)
		}
	})
	if err := task.Run(context.Background(), a); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := "A.entry,A.loop,A.loop,A.exit,B.entry,B.loop,B.exit"
	if got := tr.String(); got != want {
		t.Errorf("calls =\n  %s\nwant\n  %s", got, want)
	}
	if a.Status() != StatusExited || b.Status() != StatusExited {
		t.Errorf("status A = %v, B = %v, want both exited", a.Status(), b.Status())
	}
	if len(exited) != 2 || exited[0] != "A" || exited[1] != "B" {
		t.Errorf("exited events = %v, want [A B]", exited)
	}
}

func TestTask_SetPendingToBypassedClosesActiveChild(t *testing.T) {
	tr := &trace{}
	task := NewTask("T")
	a := New("A")
	a.SetDuration(math.Inf(1))
	skip := New("S")
	skip.SetBypassed(true)
	tr.watch(a)
	tr.watch(skip)

	loops := 0
	task.OnLoop(func(*State) {
		loops++
		if loops == 2 {
			task.SetPending(skip)
		}
	})
	if err := task.Run(context.Background(), a); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got, want := tr.String(), "A.entry,A.loop,A.exit,S.bypass"; got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
	if a.Status() != StatusExited {
		t.Errorf("A status = %v, want exited", a.Status())
	}
}
