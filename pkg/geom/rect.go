// Package geom holds the screen-rectangle type shared by bounds and renderers.
package geom

import "fmt"

// Region is an externally owned rectangular area.
// Get returns x1, y1, x2, y2 with x1 < x2 and y1 < y2.
type Region interface {
	Get() (x1, y1, x2, y2 float64)
}

// Rect is a mutable axis-aligned rectangle in screen coordinates.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// NewRect creates a rectangle from two corners, normalizing their order.
func NewRect(x1, y1, x2, y2 float64) *Rect {
	r := &Rect{}
	r.Set(x1, y1, x2, y2)
	return r
}

// FromSlice builds a rectangle from a 4-element slice.
func FromSlice(v []float64) (*Rect, error) {
	if len(v) != 4 {
		return nil, fmt.Errorf("geom: rect needs 4 values, got %d", len(v))
	}
	return NewRect(v[0], v[1], v[2], v[3]), nil
}

// Centered creates a w×h rectangle centred on (cx, cy).
func Centered(cx, cy, w, h float64) *Rect {
	return NewRect(cx-w/2, cy-h/2, cx+w/2, cy+h/2)
}

// Get implements Region.
func (r *Rect) Get() (x1, y1, x2, y2 float64) {
	return r.X1, r.Y1, r.X2, r.Y2
}

// Set replaces the corners, normalizing their order.
func (r *Rect) Set(x1, y1, x2, y2 float64) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	r.X1, r.Y1, r.X2, r.Y2 = x1, y1, x2, y2
}

// Move translates the rectangle by (dx, dy).
func (r *Rect) Move(dx, dy float64) {
	r.X1 += dx
	r.X2 += dx
	r.Y1 += dy
	r.Y2 += dy
}

// Width returns the horizontal extent.
func (r *Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns the vertical extent.
func (r *Rect) Height() float64 { return r.Y2 - r.Y1 }

// Center returns the centre point.
func (r *Rect) Center() (float64, float64) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// Contains reports whether (x, y) lies inside, edges included.
func (r *Rect) Contains(x, y float64) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

func (r *Rect) String() string {
	return fmt.Sprintf("[%g %g %g %g]", r.X1, r.Y1, r.X2, r.Y2)
}
