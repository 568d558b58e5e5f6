// Package feedback names the sine tones played for trial feedback. Playback
// lives in feedback/audio.
package feedback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownTone is returned for tone names that are neither named nor numeric.
var ErrUnknownTone = errors.New("feedback: unknown tone")

// DefaultToneDuration applies to numeric tones without an explicit duration.
const DefaultToneDuration = 100 * time.Millisecond

// Tone is a sine tone.
type Tone struct {
	Freq     float64
	Duration time.Duration
}

// Named tones.
var Tones = map[string]Tone{
	"start":  {Freq: 660, Duration: 80 * time.Millisecond},
	"reward": {Freq: 880, Duration: 150 * time.Millisecond},
	"error":  {Freq: 220, Duration: 300 * time.Millisecond},
	"click":  {Freq: 1760, Duration: 20 * time.Millisecond},
}

// ParseTone resolves a tone name. Besides the named tones it accepts a
// frequency in Hz with an optional duration, e.g. "440" or "440@250ms".
func ParseTone(name string) (Tone, error) {
	if t, ok := Tones[name]; ok {
		return t, nil
	}
	freq, dur, hasDur := strings.Cut(name, "@")
	f, err := strconv.ParseFloat(strings.TrimSuffix(freq, "hz"), 64)
	if err != nil || f <= 0 {
		return Tone{}, fmt.Errorf("%w: %q", ErrUnknownTone, name)
	}
	t := Tone{Freq: f, Duration: DefaultToneDuration}
	if hasDur {
		d, err := time.ParseDuration(dur)
		if err != nil || d <= 0 {
			return Tone{}, fmt.Errorf("%w: %q: bad duration", ErrUnknownTone, name)
		}
		t.Duration = d
	}
	return t, nil
}

// Nop validates tones without playing them. Used when no audio device is
// available.
type Nop struct{}

// Play implements experiment.Feedback.
func (Nop) Play(name string) error {
	_, err := ParseTone(name)
	return err
}
