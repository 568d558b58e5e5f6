package main

import (
	"testing"
	"time"
)

func TestPath_At(t *testing.T) {
	p := NewPath(1920, 1080, 1)
	p.Jitter = 0

	tests := []struct {
		name  string
		at    time.Duration
		x, y  float64
		valid bool
	}{
		{"first fixation", 0, 960, 540, true},
		{"holding", time.Second, 960, 540, true},
		{"mid saccade", 1230 * time.Millisecond, 720, 405, true},
		{"second fixation", 1300 * time.Millisecond, 480, 270, true},
		{"dropout", 4900 * time.Millisecond, 0, 0, false},
		{"after dropout", 5040 * time.Millisecond, 960, 540, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, valid := p.At(tt.at)
			if valid != tt.valid || x != tt.x || y != tt.y {
				t.Errorf("At(%v) = (%v, %v, %v), want (%v, %v, %v)", tt.at, x, y, valid, tt.x, tt.y, tt.valid)
			}
		})
	}
}

func TestPath_Jitter(t *testing.T) {
	p := NewPath(1920, 1080, 7)
	x, y, _ := p.At(0)
	if x == 960 && y == 540 {
		t.Error("jitter had no effect")
	}
	if d := x - 960; d > 40 || d < -40 {
		t.Errorf("jitter moved x by %v", d)
	}
}
