package state

import "time"

// EventKind identifies a transition emitted by a Task.
type EventKind string

const (
	EventTaskStarted  EventKind = "task_started"
	EventEntered      EventKind = "entered"
	EventExited       EventKind = "exited"
	EventBypassed     EventKind = "bypassed"
	EventTaskFinished EventKind = "task_finished"
)

// Event describes one transition.
type Event struct {
	ID      string    `json:"id"`
	RunID   string    `json:"run_id"`
	Kind    EventKind `json:"kind"`
	Task    string    `json:"task"`
	State   string    `json:"state"`
	Time    time.Time `json:"time"`
	Elapsed float64   `json:"elapsed"` // seconds the state had been active
}

// Listener receives transition events synchronously on the task goroutine.
type Listener interface {
	OnStateEvent(e Event)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(e Event)

// OnStateEvent calls f(e).
func (f ListenerFunc) OnStateEvent(e Event) { f(e) }
