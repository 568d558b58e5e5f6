package xy

import (
	"math"

	"github.com/teslashibe/go-fixate/pkg/clock"
)

// Sampler applies a conditioning policy to one Source.
// Implementations embed SamplerBase.
type Sampler interface {
	Component
	Sample() Sample
	Source() Source
	SetSource(Source)
	isSampler()
}

// SamplerBase holds a sampler's source reference and current output.
// The source is shared, not owned.
type SamplerBase struct {
	src    Source
	sample Sample
}

// Sample returns the conditioned sample.
func (b *SamplerBase) Sample() Sample { return b.sample }

// Source returns the wrapped source, or nil.
func (b *SamplerBase) Source() Source { return b.src }

// X returns the conditioned horizontal position (NaN when invalid).
func (b *SamplerBase) X() float64 { return b.sample.X }

// Y returns the conditioned vertical position (NaN when invalid).
func (b *SamplerBase) Y() float64 { return b.sample.Y }

// IsValidSample reports whether the output may be used.
func (b *SamplerBase) IsValidSample() bool { return b.sample.Valid }

// IsMissingSample reports whether the output is a held sample.
func (b *SamplerBase) IsMissingSample() bool { return b.sample.Missing }

// Invalidate sets the output to NaN/NaN, invalid.
func (b *SamplerBase) Invalidate() {
	b.sample = Sample{X: math.NaN(), Y: math.NaN()}
}

func (*SamplerBase) isSampler() {}

// PassSampler forwards valid source samples unchanged.
type PassSampler struct {
	SamplerBase
}

// NewPassSampler creates a pass-through sampler over src.
func NewPassSampler(src Source) *PassSampler {
	s := &PassSampler{}
	s.src = src
	s.Invalidate()
	return s
}

// SetSource replaces the source and clears the output.
func (s *PassSampler) SetSource(src Source) {
	s.src = src
	s.Invalidate()
}

// Update copies the source sample when it is valid.
func (s *PassSampler) Update() error {
	if s.src == nil {
		s.Invalidate()
		return nil
	}
	cur := s.src.Sample()
	if !cur.Valid {
		s.Invalidate()
		return nil
	}
	s.sample = Sample{X: cur.X, Y: cur.Y, Valid: true, New: cur.New}
	return nil
}

// MissingSampler holds the last valid sample through short signal loss.
type MissingSampler struct {
	SamplerBase

	allowMissing bool
	maxMissing   float64 // seconds

	lastX, lastY float64
	everValid    bool
	sinceValid   *clock.Clock
}

// NewMissingSampler creates a sampler over src tolerating up to maxMissing
// seconds of invalid samples. AllowMissing starts enabled.
func NewMissingSampler(src Source, maxMissing float64, opts ...Option) (*MissingSampler, error) {
	if err := checkSeconds("max missing duration", maxMissing); err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	s := &MissingSampler{
		allowMissing: true,
		maxMissing:   maxMissing,
		sinceValid:   clock.New(cfg.Time),
	}
	s.src = src
	s.Invalidate()
	return s, nil
}

// SetSource replaces the source and discards every held value.
func (s *MissingSampler) SetSource(src Source) {
	s.src = src
	s.lastX, s.lastY = math.NaN(), math.NaN()
	s.everValid = false
	s.sinceValid.Reset()
	s.Invalidate()
}

// AllowMissing reports whether held samples may be substituted.
func (s *MissingSampler) AllowMissing() bool { return s.allowMissing }

// SetAllowMissing enables or disables held samples.
func (s *MissingSampler) SetAllowMissing(allow bool) { s.allowMissing = allow }

// MaxMissingDuration returns the hold window in seconds.
func (s *MissingSampler) MaxMissingDuration() float64 { return s.maxMissing }

// SetMaxMissingDuration sets the hold window in seconds.
func (s *MissingSampler) SetMaxMissingDuration(d float64) error {
	if err := checkSeconds("max missing duration", d); err != nil {
		return err
	}
	s.maxMissing = d
	return nil
}

// Update conditions the current source sample.
func (s *MissingSampler) Update() error {
	if s.src == nil {
		s.Invalidate()
		return nil
	}

	cur := s.src.Sample()
	if cur.Valid {
		s.lastX, s.lastY = cur.X, cur.Y
		s.everValid = true
		s.sinceValid.Reset()
		s.sample = Sample{X: cur.X, Y: cur.Y, Valid: true, New: cur.New}
		return nil
	}

	if s.allowMissing && s.everValid && s.sinceValid.Elapsed() <= s.maxMissing {
		s.sample = Sample{X: s.lastX, Y: s.lastY, Valid: true, Missing: true, New: cur.New}
		return nil
	}

	s.Invalidate()
	return nil
}

func checkSeconds(name string, v float64) error {
	if math.IsNaN(v) || v < 0 {
		return configErrorf("%s must be a non-negative number of seconds, got %v", name, v)
	}
	return nil
}
