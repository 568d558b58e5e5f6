package xy

import (
	"math"
	"strings"

	"github.com/teslashibe/go-fixate/pkg/geom"
)

// Bounds is an acceptance region predicate.
// Test must not mutate shared state.
type Bounds interface {
	Test(x, y float64) bool
}

// Always accepts every point.
type Always struct{}

// Test implements Bounds.
func (Always) Test(x, y float64) bool { return true }

// Never rejects every point.
type Never struct{}

// Test implements Bounds.
func (Never) Test(x, y float64) bool { return false }

// RectBounds accepts points inside a region shifted by an offset and
// expanded by padding. Both edges are inclusive.
type RectBounds struct {
	region geom.Region

	XOffset float64
	YOffset float64

	// left, top, right, bottom expansion
	pad [4]float64
}

// NewRectBounds creates bounds over region.
func NewRectBounds(region geom.Region) (*RectBounds, error) {
	if region == nil {
		return nil, typeErrorf("rect bounds need a region")
	}
	return &RectBounds{region: region}, nil
}

// Region returns the underlying region.
func (b *RectBounds) Region() geom.Region { return b.region }

// SetRegion replaces the underlying region.
func (b *RectBounds) SetRegion(region geom.Region) error {
	if region == nil {
		return typeErrorf("rect bounds need a region")
	}
	b.region = region
	return nil
}

// SetOffset sets the X and Y offsets.
func (b *RectBounds) SetOffset(x, y float64) {
	b.XOffset, b.YOffset = x, y
}

// Padding returns the per-edge expansion as left, top, right, bottom.
func (b *RectBounds) Padding() [4]float64 { return b.pad }

// SetPadding sets the padding from 1, 2 or 4 values:
//
//	[p]                      total p on both axes, p/2 per side
//	[px, py]                 total px horizontally, py vertically, split per side
//	[left, top, right, bottom] per-edge expansion
func (b *RectBounds) SetPadding(p ...float64) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configErrorf("padding must be finite, got %v", v)
		}
	}
	switch len(p) {
	case 1:
		h := p[0] / 2
		b.pad = [4]float64{h, h, h, h}
	case 2:
		hx, hy := p[0]/2, p[1]/2
		b.pad = [4]float64{hx, hy, hx, hy}
	case 4:
		b.pad = [4]float64{p[0], p[1], p[2], p[3]}
	default:
		return configErrorf("padding needs 1, 2 or 4 values, got %d", len(p))
	}
	return nil
}

// Effective returns the tested rectangle.
func (b *RectBounds) Effective() (x1, y1, x2, y2 float64) {
	x1, y1, x2, y2 = b.region.Get()
	x1 += b.XOffset - b.pad[0]
	y1 += b.YOffset - b.pad[1]
	x2 += b.XOffset + b.pad[2]
	y2 += b.YOffset + b.pad[3]
	return x1, y1, x2, y2
}

// Test implements Bounds.
func (b *RectBounds) Test(x, y float64) bool {
	x1, y1, x2, y2 := b.Effective()
	return x1 <= x && x <= x2 && y1 <= y && y <= y2
}

// CircleBounds accepts points within Radius of a centre, boundary included.
type CircleBounds struct {
	CX, CY float64
	Radius float64
}

// NewCircleBounds creates circular bounds.
func NewCircleBounds(cx, cy, radius float64) (*CircleBounds, error) {
	if math.IsNaN(radius) || radius < 0 {
		return nil, configErrorf("radius must be non-negative, got %v", radius)
	}
	return &CircleBounds{CX: cx, CY: cy, Radius: radius}, nil
}

// Test implements Bounds.
func (b *CircleBounds) Test(x, y float64) bool {
	dx, dy := x-b.CX, y-b.CY
	return dx*dx+dy*dy <= b.Radius*b.Radius
}

// Point is a polygon vertex.
type Point struct {
	X, Y float64
}

// PolygonBounds accepts points inside a fixed polygon, boundary included.
type PolygonBounds struct {
	vertices []Point
}

// NewPolygonBounds creates bounds from at least three vertices.
func NewPolygonBounds(vertices []Point) (*PolygonBounds, error) {
	if len(vertices) < 3 {
		return nil, configErrorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	v := make([]Point, len(vertices))
	copy(v, vertices)
	return &PolygonBounds{vertices: v}, nil
}

// NewTrapezoidBounds creates the trapezoid joining one vertical edge of target
// to the same edge of screen. side is "left" or "right". The vertices are
// computed once; later changes to either region are not observed.
func NewTrapezoidBounds(target, screen geom.Region, side string) (*PolygonBounds, error) {
	if target == nil || screen == nil {
		return nil, typeErrorf("trapezoid bounds need target and screen regions")
	}
	tx1, ty1, tx2, ty2 := target.Get()
	sx1, sy1, sx2, sy2 := screen.Get()

	switch strings.ToLower(side) {
	case "left":
		return NewPolygonBounds([]Point{
			{sx1, sy1}, {tx1, ty1}, {tx1, ty2}, {sx1, sy2},
		})
	case "right":
		return NewPolygonBounds([]Point{
			{tx2, ty1}, {sx2, sy1}, {sx2, sy2}, {tx2, ty2},
		})
	default:
		return nil, configErrorf("trapezoid side must be \"left\" or \"right\", got %q", side)
	}
}

// Vertices returns a copy of the polygon vertices.
func (b *PolygonBounds) Vertices() []Point {
	v := make([]Point, len(b.vertices))
	copy(v, b.vertices)
	return v
}

// Test implements Bounds.
func (b *PolygonBounds) Test(x, y float64) bool {
	n := len(b.vertices)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, c := b.vertices[i], b.vertices[j]
		if onSegment(x, y, a, c) {
			return true
		}
		if (a.Y > y) != (c.Y > y) {
			xCross := (c.X-a.X)*(y-a.Y)/(c.Y-a.Y) + a.X
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(x, y float64, a, c Point) bool {
	const eps = 1e-9
	cross := (c.X-a.X)*(y-a.Y) - (c.Y-a.Y)*(x-a.X)
	if math.Abs(cross) > eps {
		return false
	}
	return x >= math.Min(a.X, c.X)-eps && x <= math.Max(a.X, c.X)+eps &&
		y >= math.Min(a.Y, c.Y)-eps && y <= math.Max(a.Y, c.Y)+eps
}
