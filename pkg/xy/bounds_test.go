package xy

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-fixate/pkg/geom"
)

func TestAlwaysNever(t *testing.T) {
	if !(Always{}).Test(1e9, -1e9) {
		t.Error("Always should accept every point")
	}
	if (Never{}).Test(0, 0) {
		t.Error("Never should reject every point")
	}
}

func TestRectBounds_ScalarPadding(t *testing.T) {
	b, err := NewRectBounds(geom.NewRect(0, 0, 100, 100))
	if err != nil {
		t.Fatalf("NewRectBounds error: %v", err)
	}
	if err := b.SetPadding(10); err != nil {
		t.Fatalf("SetPadding error: %v", err)
	}

	x1, y1, x2, y2 := b.Effective()
	if x1 != -5 || y1 != -5 || x2 != 105 || y2 != 105 {
		t.Errorf("Effective = [%v %v %v %v], want [-5 -5 105 105]", x1, y1, x2, y2)
	}

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"padded corner", -4, -4, true},
		{"centre", 50, 50, true},
		{"outside padding", -6, 50, false},
		{"exact lower edge", -5, -5, true},
		{"exact upper edge", 105, 105, true},
		{"just past upper edge", 105.01, 50, false},
	}
	for _, tt := range tests {
		if got := b.Test(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: Test(%v,%v) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestRectBounds_PaddingForms(t *testing.T) {
	b, _ := NewRectBounds(geom.NewRect(0, 0, 10, 10))

	if err := b.SetPadding(4, 2); err != nil {
		t.Fatalf("SetPadding(4,2) error: %v", err)
	}
	if got := b.Padding(); got != [4]float64{2, 1, 2, 1} {
		t.Errorf("2-value padding = %v, want [2 1 2 1]", got)
	}

	if err := b.SetPadding(1, 2, 3, 4); err != nil {
		t.Fatalf("SetPadding(1,2,3,4) error: %v", err)
	}
	x1, y1, x2, y2 := b.Effective()
	if x1 != -1 || y1 != -2 || x2 != 13 || y2 != 14 {
		t.Errorf("4-value Effective = [%v %v %v %v], want [-1 -2 13 14]", x1, y1, x2, y2)
	}

	if err := b.SetPadding(1, 2, 3); !errors.Is(err, ErrConfiguration) {
		t.Errorf("3-value padding: err = %v, want ErrConfiguration", err)
	}
	if got := b.Padding(); got != [4]float64{1, 2, 3, 4} {
		t.Errorf("rejected padding was committed: %v", got)
	}
}

func TestRectBounds_OffsetAndLiveRegion(t *testing.T) {
	r := geom.NewRect(0, 0, 10, 10)
	b, _ := NewRectBounds(r)
	b.SetOffset(100, 0)

	if b.Test(5, 5) {
		t.Error("offset should move the region away from (5,5)")
	}
	if !b.Test(105, 5) {
		t.Error("offset region should contain (105,5)")
	}

	r.Move(-100, 0)
	if !b.Test(5, 5) {
		t.Error("bounds should observe region mutation")
	}
}

func TestRectBounds_NilRegion(t *testing.T) {
	if _, err := NewRectBounds(nil); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestCircleBounds(t *testing.T) {
	b, err := NewCircleBounds(0, 0, 5)
	if err != nil {
		t.Fatalf("NewCircleBounds error: %v", err)
	}
	if !b.Test(3, 4) {
		t.Error("point on the circle should be inside")
	}
	if b.Test(4, 4) {
		t.Error("point outside the circle should be rejected")
	}
	if _, err := NewCircleBounds(0, 0, -1); !errors.Is(err, ErrConfiguration) {
		t.Errorf("negative radius: err = %v", err)
	}
}

func TestTrapezoidBounds(t *testing.T) {
	screen := geom.NewRect(0, 0, 1000, 800)
	target := geom.NewRect(450, 350, 550, 450)

	left, err := NewTrapezoidBounds(target, screen, "left")
	if err != nil {
		t.Fatalf("left trapezoid error: %v", err)
	}
	right, err := NewTrapezoidBounds(target, screen, "Right")
	if err != nil {
		t.Fatalf("right trapezoid error: %v", err)
	}

	tests := []struct {
		name string
		b    *PolygonBounds
		x, y float64
		want bool
	}{
		{"left middle", left, 200, 400, true},
		{"left screen corner", left, 0, 0, true},
		{"left near target top edge", left, 440, 345, true},
		{"left outside wedge", left, 440, 100, false},
		{"left on right side", left, 700, 400, false},
		{"right middle", right, 800, 400, true},
		{"right on target edge", right, 550, 400, true},
		{"right on left side", right, 200, 400, false},
	}
	for _, tt := range tests {
		if got := tt.b.Test(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: Test(%v,%v) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}

	if len(left.Vertices()) != 4 {
		t.Errorf("trapezoid has %d vertices, want 4", len(left.Vertices()))
	}
}

func TestTrapezoidBounds_BadSide(t *testing.T) {
	screen := geom.NewRect(0, 0, 10, 10)
	if _, err := NewTrapezoidBounds(screen, screen, "up"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestPolygonBounds_TooFewVertices(t *testing.T) {
	if _, err := NewPolygonBounds([]Point{{0, 0}, {1, 1}}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}
