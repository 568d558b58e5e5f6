// Package audio plays feedback tones on the default audio device.
package audio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/teslashibe/go-fixate/pkg/feedback"
)

// SampleRate is the output rate of the speaker.
const SampleRate = beep.SampleRate(44100)

// Speaker plays tones on the default audio device.
type Speaker struct {
	logger *slog.Logger
}

// NewSpeaker initializes the audio device. It may only be called once per
// process.
func NewSpeaker(logger *slog.Logger) (*Speaker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("audio: speaker init: %w", err)
	}
	return &Speaker{logger: logger}, nil
}

// Play starts the named tone and returns without waiting for it to finish.
func (s *Speaker) Play(name string) error {
	t, err := feedback.ParseTone(name)
	if err != nil {
		return err
	}
	stream, err := Stream(t)
	if err != nil {
		return err
	}
	s.logger.Debug("tone", "name", name, "freq", t.Freq, "duration", t.Duration)
	speaker.Play(stream)
	return nil
}

// Close stops playback and releases the device.
func (s *Speaker) Close() {
	speaker.Clear()
	speaker.Close()
}

// Stream renders t as a finite streamer at SampleRate.
func Stream(t feedback.Tone) (beep.Streamer, error) {
	sine, err := generators.SineTone(SampleRate, t.Freq)
	if err != nil {
		return nil, fmt.Errorf("audio: tone %gHz: %w", t.Freq, err)
	}
	return beep.Take(SampleRate.N(t.Duration), sine), nil
}
