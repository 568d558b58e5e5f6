// Package experiment loads YAML experiment definitions and builds runnable
// sessions from them: a sampling pipeline, targets, states and the task that
// sequences them.
package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-fixate/pkg/feedback"
	"github.com/teslashibe/go-fixate/pkg/geom"
	"github.com/teslashibe/go-fixate/pkg/script"
	"github.com/teslashibe/go-fixate/pkg/xy"
)

// ErrInvalidConfig is wrapped by every definition validation error.
var ErrInvalidConfig = errors.New("experiment: invalid definition")

const (
	DefaultScreenWidth   = 1920
	DefaultScreenHeight  = 1080
	DefaultFrameInterval = 16 * time.Millisecond
	DefaultMaxMissing    = 0.1
)

// Definition is an experiment file.
type Definition struct {
	Name          string        `yaml:"name"`
	Screen        ScreenDef     `yaml:"screen"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	Blocks        int           `yaml:"blocks"`
	MaxDuration   *float64      `yaml:"max_duration"` // seconds per block
	Start         string        `yaml:"start"`
	Source        SourceDef     `yaml:"source"`
	Sampler       SamplerDef    `yaml:"sampler"`
	Targets       []TargetDef   `yaml:"targets"`
	States        []StateDef    `yaml:"states"`
}

// ScreenDef is the coordinate space targets and gaze live in.
type ScreenDef struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Rect returns the full screen rectangle.
func (s ScreenDef) Rect() *geom.Rect {
	return geom.NewRect(0, 0, s.Width, s.Height)
}

// Source kinds.
const (
	SourceMouse = "mouse"
	SourceRelay = "relay"
)

// SourceDef selects the position device.
type SourceDef struct {
	Kind    string `yaml:"kind"`    // mouse or relay
	Tracker string `yaml:"tracker"` // relay tracker id
}

// SamplerDef configures the sampler between source and targets.
type SamplerDef struct {
	Kind         string   `yaml:"kind"` // missing or pass
	MaxMissing   *float64 `yaml:"max_missing"`
	AllowMissing *bool    `yaml:"allow_missing"`
}

// TargetDef is one gaze target. A rectangle is given either as rect
// [x1, y1, x2, y2] or as center [x, y] plus size [w, h].
type TargetDef struct {
	Name     string    `yaml:"name"`
	Shape    string    `yaml:"shape"` // rect, circle or trapezoid
	Rect     []float64 `yaml:"rect"`
	Center   []float64 `yaml:"center"`
	Size     []float64 `yaml:"size"`
	Radius   float64   `yaml:"radius"`
	Side     string    `yaml:"side"` // trapezoid: left or right
	Padding  []float64 `yaml:"padding"`
	Offset   []float64 `yaml:"offset"`
	Duration *float64  `yaml:"duration"` // dwell seconds
}

// StateDef is one behavioural state.
type StateDef struct {
	Name       string   `yaml:"name"`
	Duration   *float64 `yaml:"duration"` // seconds, absent means unlimited
	Acquire    string   `yaml:"acquire"`  // target whose dwell ends the state
	ExitWhen   string   `yaml:"exit_when"`
	OnAcquired string   `yaml:"on_acquired"`
	OnTimeout  string   `yaml:"on_timeout"`
	Next       string   `yaml:"next"`
	Bypass     bool     `yaml:"bypass"`
	Show       []string `yaml:"show"`
	Tones      ToneDef  `yaml:"tones"`
}

// ToneDef names the feedback tone played at each point. Empty is silent.
type ToneDef struct {
	Entry    string `yaml:"entry"`
	Acquired string `yaml:"acquired"`
	Timeout  string `yaml:"timeout"`
}

// Load reads and validates a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("experiment: load %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("experiment: %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes, defaults and validates a definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	def.applyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) applyDefaults() {
	if d.Name == "" {
		d.Name = "experiment"
	}
	if d.Screen.Width == 0 {
		d.Screen.Width = DefaultScreenWidth
	}
	if d.Screen.Height == 0 {
		d.Screen.Height = DefaultScreenHeight
	}
	if d.FrameInterval == 0 {
		d.FrameInterval = DefaultFrameInterval
	}
	if d.Blocks == 0 {
		d.Blocks = 1
	}
	if d.Start == "" && len(d.States) > 0 {
		d.Start = d.States[0].Name
	}
	if d.Source.Kind == "" {
		d.Source.Kind = SourceMouse
	}
	if d.Sampler.Kind == "" {
		d.Sampler.Kind = "missing"
	}
	if d.Sampler.Kind == "missing" && d.Sampler.MaxMissing == nil {
		v := DefaultMaxMissing
		d.Sampler.MaxMissing = &v
	}
	for i := range d.Targets {
		if d.Targets[i].Shape == "" {
			d.Targets[i].Shape = "rect"
		}
	}
}

// Validate checks the definition for errors a Session cannot recover from.
func (d *Definition) Validate() error {
	if d.Screen.Width <= 0 || d.Screen.Height <= 0 {
		return invalidf("screen must have positive size, got %vx%v", d.Screen.Width, d.Screen.Height)
	}
	if d.FrameInterval < 0 {
		return invalidf("frame_interval must be >= 0, got %v", d.FrameInterval)
	}
	if d.Blocks < 0 {
		return invalidf("blocks must be >= 0, got %d", d.Blocks)
	}
	if err := checkSeconds("max_duration", d.MaxDuration); err != nil {
		return err
	}

	switch d.Source.Kind {
	case SourceMouse:
	case SourceRelay:
		if d.Source.Tracker == "" {
			return invalidf("relay source needs a tracker id")
		}
	default:
		return invalidf("unknown source kind %q", d.Source.Kind)
	}

	switch d.Sampler.Kind {
	case "pass":
	case "missing":
		if err := checkSeconds("sampler.max_missing", d.Sampler.MaxMissing); err != nil {
			return err
		}
	default:
		return invalidf("unknown sampler kind %q", d.Sampler.Kind)
	}

	targets := make(map[string]*TargetDef, len(d.Targets))
	for i := range d.Targets {
		t := &d.Targets[i]
		if t.Name == "" {
			return invalidf("target %d has no name", i)
		}
		if _, dup := targets[t.Name]; dup {
			return invalidf("duplicate target %q", t.Name)
		}
		targets[t.Name] = t
		if _, err := t.bounds(d.Screen); err != nil {
			return fmt.Errorf("%w: target %q: %w", ErrInvalidConfig, t.Name, err)
		}
		if err := checkSeconds("target "+t.Name+" duration", t.Duration); err != nil {
			return err
		}
	}

	if len(d.States) == 0 {
		return invalidf("no states")
	}
	states := make(map[string]bool, len(d.States))
	for i, s := range d.States {
		if s.Name == "" {
			return invalidf("state %d has no name", i)
		}
		if states[s.Name] {
			return invalidf("duplicate state %q", s.Name)
		}
		states[s.Name] = true
	}
	if !states[d.Start] {
		return invalidf("start state %q not defined", d.Start)
	}

	vars := scriptVarDecls(d.Targets)
	for _, s := range d.States {
		if err := checkSeconds("state "+s.Name+" duration", s.Duration); err != nil {
			return err
		}
		if s.Acquire != "" {
			t, ok := targets[s.Acquire]
			if !ok {
				return invalidf("state %q acquires unknown target %q", s.Name, s.Acquire)
			}
			if t.Duration == nil {
				return invalidf("state %q acquires target %q which has no duration", s.Name, s.Acquire)
			}
		}
		for _, ref := range []struct{ field, name string }{
			{"next", s.Next}, {"on_acquired", s.OnAcquired}, {"on_timeout", s.OnTimeout},
		} {
			if ref.name != "" && !states[ref.name] {
				return invalidf("state %q %s refers to unknown state %q", s.Name, ref.field, ref.name)
			}
		}
		for _, name := range s.Show {
			if _, ok := targets[name]; !ok {
				return invalidf("state %q shows unknown target %q", s.Name, name)
			}
		}
		for _, tone := range []string{s.Tones.Entry, s.Tones.Acquired, s.Tones.Timeout} {
			if tone == "" {
				continue
			}
			if _, err := feedback.ParseTone(tone); err != nil {
				return fmt.Errorf("%w: state %q: %w", ErrInvalidConfig, s.Name, err)
			}
		}
		if s.ExitWhen != "" {
			if _, err := script.Compile(s.ExitWhen, vars); err != nil {
				return fmt.Errorf("%w: state %q exit_when: %w", ErrInvalidConfig, s.Name, err)
			}
		}
	}
	return nil
}

// State returns the named state definition, or nil.
func (d *Definition) State(name string) *StateDef {
	for i := range d.States {
		if d.States[i].Name == name {
			return &d.States[i]
		}
	}
	return nil
}

// region returns the target's rectangle, from rect or center+size.
func (t *TargetDef) region() (*geom.Rect, error) {
	switch {
	case len(t.Rect) > 0:
		return geom.FromSlice(t.Rect)
	case len(t.Center) == 2 && len(t.Size) == 2:
		if t.Size[0] < 0 || t.Size[1] < 0 {
			return nil, fmt.Errorf("%w: negative size", xy.ErrConfiguration)
		}
		return geom.Centered(t.Center[0], t.Center[1], t.Size[0], t.Size[1]), nil
	}
	return nil, fmt.Errorf("%w: needs rect or center and size", xy.ErrConfiguration)
}

// bounds builds the acceptance test for the target.
func (t *TargetDef) bounds(screen ScreenDef) (xy.Bounds, error) {
	switch strings.ToLower(t.Shape) {
	case "rect":
		r, err := t.region()
		if err != nil {
			return nil, err
		}
		b, err := xy.NewRectBounds(r)
		if err != nil {
			return nil, err
		}
		if len(t.Padding) > 0 {
			if err := b.SetPadding(t.Padding...); err != nil {
				return nil, err
			}
		}
		switch len(t.Offset) {
		case 0:
		case 2:
			b.SetOffset(t.Offset[0], t.Offset[1])
		default:
			return nil, fmt.Errorf("%w: offset needs 2 values, got %d", xy.ErrConfiguration, len(t.Offset))
		}
		return b, nil
	case "circle":
		if len(t.Center) != 2 {
			return nil, fmt.Errorf("%w: circle needs center [x, y]", xy.ErrConfiguration)
		}
		return xy.NewCircleBounds(t.Center[0], t.Center[1], t.Radius)
	case "trapezoid":
		r, err := t.region()
		if err != nil {
			return nil, err
		}
		return xy.NewTrapezoidBounds(r, screen.Rect(), t.Side)
	}
	return nil, fmt.Errorf("%w: unknown shape %q", xy.ErrConfiguration, t.Shape)
}

// outline returns the rectangle drawn for the target.
func (t *TargetDef) outline() geom.Rect {
	if strings.ToLower(t.Shape) == "circle" && len(t.Center) == 2 {
		return *geom.Centered(t.Center[0], t.Center[1], 2*t.Radius, 2*t.Radius)
	}
	if r, err := t.region(); err == nil {
		return *r
	}
	return geom.Rect{}
}

func checkSeconds(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v < 0 {
		return invalidf("%s must be >= 0, got %v", field, *v)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
