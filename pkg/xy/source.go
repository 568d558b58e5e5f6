// Package xy implements the position-sampling pipeline: sources poll devices,
// samplers condition the signal, bounds test regions and targets accumulate
// dwell time. A Pipeline updates them in dependency order once per tick.
package xy

import (
	"errors"
	"math"
)

// MissingData is the coordinate eye trackers report when no gaze was recorded.
const MissingData = -32768.0

// ErrNotInitialized is the cause reported when a device was never opened.
var ErrNotInitialized = errors.New("not initialized")

// Sample is one position reading.
type Sample struct {
	X, Y    float64
	Valid   bool // position is usable
	New     bool // produced by the most recent source Update
	Missing bool // filled in from a held sample by a sampler
}

// Component is anything a Pipeline can update.
type Component interface {
	Update() error
}

// Source polls a position device once per Update.
// Implementations embed SourceBase.
type Source interface {
	Component
	Sample() Sample
	isSource()
}

// SourceBase holds a source's current sample.
type SourceBase struct {
	sample Sample
}

// Sample returns the current sample.
func (b *SourceBase) Sample() Sample { return b.sample }

// X returns the last known horizontal position.
func (b *SourceBase) X() float64 { return b.sample.X }

// Y returns the last known vertical position.
func (b *SourceBase) Y() float64 { return b.sample.Y }

// IsNewSample reports whether the last Update fetched a sample.
func (b *SourceBase) IsNewSample() bool { return b.sample.New }

// IsValidSample reports whether the current position is usable.
func (b *SourceBase) IsValidSample() bool { return b.sample.Valid }

// Hold records that no sample arrived this tick. Position and validity are kept.
func (b *SourceBase) Hold() { b.sample.New = false }

// Store records a freshly fetched sample.
func (b *SourceBase) Store(x, y float64, valid bool) {
	b.sample = Sample{X: x, Y: y, Valid: valid, New: true}
}

func (*SourceBase) isSource() {}

// Device is the synchronous poll capability behind a DeviceSource.
type Device interface {
	NewSampleAvailable() (bool, error)
	ReadSample() (x, y float64, valid bool, err error)
}

// DeviceSource adapts any Device into a Source.
type DeviceSource struct {
	SourceBase
	name string
	dev  Device
}

// NewDeviceSource creates a source polling dev.
func NewDeviceSource(name string, dev Device) *DeviceSource {
	return &DeviceSource{name: name, dev: dev}
}

// Update polls the device.
func (s *DeviceSource) Update() error {
	if s.dev == nil {
		s.Hold()
		return NewDeviceError(s.name, "poll", ErrNotInitialized)
	}
	ok, err := s.dev.NewSampleAvailable()
	if err != nil {
		s.Hold()
		return NewDeviceError(s.name, "poll", err)
	}
	if !ok {
		s.Hold()
		return nil
	}
	x, y, valid, err := s.dev.ReadSample()
	if err != nil {
		s.Hold()
		return NewDeviceError(s.name, "read", err)
	}
	s.Store(x, y, valid && finite(x, y))
	return nil
}

// Name returns the device name.
func (s *DeviceSource) Name() string { return s.name }

// Mouse reports the pointer position. ok is false when the position is unknown.
type Mouse interface {
	Position() (x, y float64, ok bool)
}

// MouseSource reads a pointer. A new sample is available on every Update.
type MouseSource struct {
	SourceBase
	mouse Mouse
}

// NewMouseSource creates a source reading m.
func NewMouseSource(m Mouse) *MouseSource {
	return &MouseSource{mouse: m}
}

// Update reads the pointer position.
func (s *MouseSource) Update() error {
	if s.mouse == nil {
		s.Hold()
		return NewDeviceError("mouse", "poll", ErrNotInitialized)
	}
	x, y, ok := s.mouse.Position()
	s.Store(x, y, ok && finite(x, y))
	return nil
}

// Eye selects which eye a TrackerSource reports.
type Eye int

const (
	EyeLeft Eye = iota
	EyeRight
	EyeBinocular // average of the valid eyes
)

// String returns the eye name.
func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	case EyeBinocular:
		return "binocular"
	default:
		return "unknown"
	}
}

// GazeSample is one binocular reading from an eye tracker.
// Unrecorded eyes carry MissingData.
type GazeSample struct {
	LeftX, LeftY   float64
	RightX, RightY float64
}

// Tracker is the eye-tracker device boundary.
type Tracker interface {
	IsConnected() bool
	NewestSampleAvailable() (bool, error)
	NewestSample() (GazeSample, error)
}

// TrackerSource reads gaze from an eye tracker.
type TrackerSource struct {
	SourceBase
	tracker Tracker
	eye     Eye
}

// NewTrackerSource creates a source reading eye from t.
func NewTrackerSource(t Tracker, eye Eye) *TrackerSource {
	return &TrackerSource{tracker: t, eye: eye}
}

// Eye returns the eye being reported.
func (s *TrackerSource) Eye() Eye { return s.eye }

// Update polls the tracker for its newest sample.
func (s *TrackerSource) Update() error {
	if s.tracker == nil || !s.tracker.IsConnected() {
		s.Hold()
		return NewDeviceError("tracker", "poll", ErrNotInitialized)
	}
	ok, err := s.tracker.NewestSampleAvailable()
	if err != nil {
		s.Hold()
		return NewDeviceError("tracker", "poll", err)
	}
	if !ok {
		s.Hold()
		return nil
	}
	g, err := s.tracker.NewestSample()
	if err != nil {
		s.Hold()
		return NewDeviceError("tracker", "read", err)
	}
	x, y, valid := s.pick(g)
	s.Store(x, y, valid)
	return nil
}

func (s *TrackerSource) pick(g GazeSample) (float64, float64, bool) {
	lok := gazeValid(g.LeftX, g.LeftY)
	rok := gazeValid(g.RightX, g.RightY)

	switch s.eye {
	case EyeLeft:
		return g.LeftX, g.LeftY, lok
	case EyeRight:
		return g.RightX, g.RightY, rok
	}

	switch {
	case lok && rok:
		return (g.LeftX + g.RightX) / 2, (g.LeftY + g.RightY) / 2, true
	case lok:
		return g.LeftX, g.LeftY, true
	case rok:
		return g.RightX, g.RightY, true
	default:
		return g.LeftX, g.LeftY, false
	}
}

func gazeValid(x, y float64) bool {
	return x != MissingData && y != MissingData && finite(x, y)
}

// FuncSource polls a plain function. Useful for replay and simulation.
type FuncSource struct {
	SourceBase
	poll func() (available bool, x, y float64, valid bool)
}

// NewFuncSource creates a source calling poll on every Update.
func NewFuncSource(poll func() (available bool, x, y float64, valid bool)) *FuncSource {
	return &FuncSource{poll: poll}
}

// Update calls the poll function.
func (s *FuncSource) Update() error {
	if s.poll == nil {
		s.Hold()
		return nil
	}
	ok, x, y, valid := s.poll()
	if !ok {
		s.Hold()
		return nil
	}
	s.Store(x, y, valid && finite(x, y))
	return nil
}

func finite(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsNaN(y) && !math.IsInf(x, 0) && !math.IsInf(y, 0)
}
