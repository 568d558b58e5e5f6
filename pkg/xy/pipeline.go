package xy

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/teslashibe/go-fixate/pkg/debug"
)

// Pipeline updates sources, then samplers, then targets, once per tick.
// Components are added before the first Update and never removed.
type Pipeline struct {
	sources  []Source
	samplers []Sampler
	targets  []*Target

	logger *slog.Logger
	ticks  uint64
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	cfg := buildConfig(opts)
	return &Pipeline{logger: cfg.Logger}
}

// Add appends c to the bucket matching its kind.
// Returns false if c was already present.
func (p *Pipeline) Add(c Component) (bool, error) {
	if !isKnownKind(c) {
		if isNil(c) {
			return false, typeErrorf("nil %T", c)
		}
		return false, typeErrorf("%T is not a source, sampler or target", c)
	}
	switch v := c.(type) {
	case Source:
		for _, s := range p.sources {
			if s == v {
				return false, nil
			}
		}
		p.sources = append(p.sources, v)
	case Sampler:
		for _, s := range p.samplers {
			if s == v {
				return false, nil
			}
		}
		p.samplers = append(p.samplers, v)
	case *Target:
		for _, t := range p.targets {
			if t == v {
				return false, nil
			}
		}
		p.targets = append(p.targets, v)
	}
	return true, nil
}

// AddAll adds every component, or none if any is of an unknown kind.
// The result reports insertion per argument.
func (p *Pipeline) AddAll(cs ...Component) ([]bool, error) {
	for i, c := range cs {
		if !isKnownKind(c) {
			return nil, typeErrorf("component %d (%T) is not a source, sampler or target", i, c)
		}
	}
	added := make([]bool, len(cs))
	for i, c := range cs {
		ok, err := p.Add(c)
		if err != nil {
			return added, err
		}
		added[i] = ok
	}
	return added, nil
}

func isKnownKind(c Component) bool {
	if isNil(c) {
		return false
	}
	switch c.(type) {
	case Source, Sampler, *Target:
		return true
	default:
		return false
	}
}

// isNil catches typed nils such as (*MouseSource)(nil), which would panic
// on the first Update.
func isNil(c Component) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Update runs one tick. A device error aborts the tick.
func (p *Pipeline) Update() error {
	p.ticks++
	for i, s := range p.sources {
		if err := s.Update(); err != nil {
			p.logger.Warn("source update failed", "index", i, "error", err)
			return fmt.Errorf("source %d: %w", i, err)
		}
	}
	for i, s := range p.samplers {
		if err := s.Update(); err != nil {
			return fmt.Errorf("sampler %d: %w", i, err)
		}
	}
	for _, t := range p.targets {
		if err := t.Update(); err != nil {
			return fmt.Errorf("target %q: %w", t.Name(), err)
		}
	}

	if debug.Ticks {
		for _, t := range p.targets {
			debug.TickLog("target",
				"tick", p.ticks,
				"name", t.Name(),
				"in", t.IsInBounds(),
				"dwell", t.Cumulative(),
				"met", t.IsDurationMet())
		}
	}
	return nil
}

// Ticks returns the number of Update calls so far.
func (p *Pipeline) Ticks() uint64 { return p.ticks }

// Sources returns the sources in update order.
func (p *Pipeline) Sources() []Source {
	return append([]Source(nil), p.sources...)
}

// Samplers returns the samplers in update order.
func (p *Pipeline) Samplers() []Sampler {
	return append([]Sampler(nil), p.samplers...)
}

// Targets returns the targets in update order.
func (p *Pipeline) Targets() []*Target {
	return append([]*Target(nil), p.targets...)
}

// Target returns the first target with the given name, or nil.
func (p *Pipeline) Target(name string) *Target {
	for _, t := range p.targets {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
