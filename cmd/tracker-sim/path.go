package main

import (
	"math/rand"
	"time"
)

// Path produces a synthetic gaze trace: fixations on a fixed list of points
// joined by straight saccades, with jitter and periodic tracking loss.
type Path struct {
	Points   [][2]float64
	Hold     time.Duration // fixation length
	Saccade  time.Duration
	Jitter   float64 // standard deviation in pixels
	DropEach time.Duration
	DropFor  time.Duration

	rng *rand.Rand
}

// NewPath creates a path visiting the screen centre and its four quadrants.
func NewPath(width, height float64, seed int64) *Path {
	cx, cy := width/2, height/2
	return &Path{
		Points: [][2]float64{
			{cx, cy},
			{cx - width/4, cy - height/4},
			{cx, cy},
			{cx + width/4, cy + height/4},
		},
		Hold:     1200 * time.Millisecond,
		Saccade:  60 * time.Millisecond,
		Jitter:   4,
		DropEach: 5 * time.Second,
		DropFor:  150 * time.Millisecond,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// At returns the sample at time t since the start.
func (p *Path) At(t time.Duration) (x, y float64, valid bool) {
	if p.DropEach > 0 && t%p.DropEach >= p.DropEach-p.DropFor {
		return 0, 0, false
	}
	if len(p.Points) == 0 {
		return 0, 0, false
	}

	leg := p.Hold + p.Saccade
	i := int(t/leg) % len(p.Points)
	from := p.Points[i]
	to := p.Points[(i+1)%len(p.Points)]

	into := t % leg
	if into < p.Hold {
		x, y = from[0], from[1]
	} else {
		f := float64(into-p.Hold) / float64(p.Saccade)
		x = from[0] + (to[0]-from[0])*f
		y = from[1] + (to[1]-from[1])*f
	}
	if p.Jitter > 0 && p.rng != nil {
		x += p.rng.NormFloat64() * p.Jitter
		y += p.rng.NormFloat64() * p.Jitter
	}
	return x, y, true
}
