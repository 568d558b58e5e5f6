package xy

import (
	"math"

	"github.com/teslashibe/go-fixate/pkg/clock"
)

// Target accumulates consecutive in-bounds dwell time for one sampler.
//
// Target.Update reads the sampler's current output; it never updates the
// sampler itself. Run both through a Pipeline so the sampler is fresh.
type Target struct {
	name    string
	sampler Sampler
	bounds  Bounds

	duration   float64 // seconds
	cumulative float64
	inBounds   bool
	met        bool

	clk          *clock.Clock
	lastElapsed  float64
	dwellStart   float64
	accumulating bool
}

// NewTarget creates a target over sampler. A nil bounds never accepts.
// Duration starts at +Inf.
func NewTarget(name string, sampler Sampler, bounds Bounds, opts ...Option) (*Target, error) {
	if sampler == nil {
		return nil, typeErrorf("target %q needs a sampler", name)
	}
	if bounds == nil {
		bounds = Never{}
	}
	cfg := buildConfig(opts)
	return &Target{
		name:     name,
		sampler:  sampler,
		bounds:   bounds,
		duration: math.Inf(1),
		clk:      clock.New(cfg.Time),
	}, nil
}

// Name returns the target name.
func (t *Target) Name() string { return t.name }

// Sampler returns the sampler being tested.
func (t *Target) Sampler() Sampler { return t.sampler }

// SetSampler replaces the sampler and restarts accumulation.
func (t *Target) SetSampler(s Sampler) error {
	if s == nil {
		return typeErrorf("target %q needs a sampler", t.name)
	}
	t.sampler = s
	t.Reset()
	return nil
}

// Bounds returns the acceptance region.
func (t *Target) Bounds() Bounds { return t.bounds }

// SetBounds replaces the acceptance region.
func (t *Target) SetBounds(b Bounds) error {
	if b == nil {
		return typeErrorf("target %q bounds must implement Test", t.name)
	}
	t.bounds = b
	return nil
}

// Duration returns the dwell threshold in seconds.
func (t *Target) Duration() float64 { return t.duration }

// SetDuration sets the dwell threshold in seconds. +Inf is allowed.
func (t *Target) SetDuration(d float64) error {
	if math.IsNaN(d) || d < 0 {
		return configErrorf("target %q duration must be non-negative, got %v", t.name, d)
	}
	t.duration = d
	t.met = t.cumulative >= t.duration
	return nil
}

// Cumulative returns the current consecutive dwell in seconds.
func (t *Target) Cumulative() float64 { return t.cumulative }

// IsInBounds reports whether the last update was a valid in-bounds sample.
func (t *Target) IsInBounds() bool { return t.inBounds }

// IsDurationMet reports whether Cumulative reaches Duration as of the last
// update. A zero Duration is always met.
func (t *Target) IsDurationMet() bool { return t.met }

// Update tests the sampler's current output and advances the dwell.
func (t *Target) Update() error {
	now := t.clk.Elapsed()
	last := t.lastElapsed
	t.lastElapsed = now

	s := t.sampler.Sample()
	t.inBounds = s.Valid && t.bounds.Test(s.X, s.Y)

	if t.inBounds {
		if !t.accumulating {
			t.dwellStart = last
			t.accumulating = true
		}
		t.cumulative = now - t.dwellStart
	} else {
		t.accumulating = false
		t.cumulative = 0
	}

	t.met = t.cumulative >= t.duration
	return nil
}

// Reset zeroes the dwell. Duration, bounds and sampler are untouched.
func (t *Target) Reset() {
	t.cumulative = 0
	t.dwellStart = t.lastElapsed
	t.met = t.cumulative >= t.duration
}
