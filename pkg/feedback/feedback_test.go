package feedback

import (
	"errors"
	"testing"
	"time"
)

func TestParseTone(t *testing.T) {
	tests := []struct {
		name    string
		want    Tone
		wantErr bool
	}{
		{"reward", Tone{880, 150 * time.Millisecond}, false},
		{"error", Tone{220, 300 * time.Millisecond}, false},
		{"440", Tone{440, DefaultToneDuration}, false},
		{"440hz", Tone{440, DefaultToneDuration}, false},
		{"523.25@250ms", Tone{523.25, 250 * time.Millisecond}, false},
		{"", Tone{}, true},
		{"beep", Tone{}, true},
		{"-10", Tone{}, true},
		{"440@soon", Tone{}, true},
		{"440@-1s", Tone{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTone(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownTone) {
					t.Errorf("ParseTone(%q) error = %v, want ErrUnknownTone", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTone(%q) error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseTone(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	var n Nop
	if err := n.Play("reward"); err != nil {
		t.Errorf("Play(reward) error: %v", err)
	}
	if err := n.Play("nope"); err == nil {
		t.Error("Play(nope) should fail")
	}
}
