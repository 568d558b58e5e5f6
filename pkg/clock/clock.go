// Package clock provides the monotonic stopwatch used by states, samplers and targets.
package clock

import (
	"sync"
	"time"
)

// TimeSource supplies the current time.
type TimeSource interface {
	Now() time.Time
}

// systemTime reads the real monotonic clock.
type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }

// System is the real-time TimeSource.
var System TimeSource = systemTime{}

// Clock is a stopwatch: Reset sets the origin, Elapsed reports seconds since it.
type Clock struct {
	src    TimeSource
	origin time.Time
}

// New creates a clock reading from src and resets it.
// A nil src uses System.
func New(src TimeSource) *Clock {
	if src == nil {
		src = System
	}
	c := &Clock{src: src}
	c.Reset()
	return c
}

// Reset sets the origin to now.
func (c *Clock) Reset() {
	c.origin = c.src.Now()
}

// Elapsed returns seconds since the last Reset. Never negative.
func (c *Clock) Elapsed() float64 {
	d := c.src.Now().Sub(c.origin).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// Source returns the time source the clock reads from.
func (c *Clock) Source() TimeSource {
	return c.src
}

// Manual is a controllable TimeSource for tests and offline replay.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual creates a manual time source starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set sets the current time.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the current time forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// AdvanceSeconds moves the current time forward by s seconds.
func (m *Manual) AdvanceSeconds(s float64) {
	m.Advance(Seconds(s))
}

// Seconds converts fractional seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
