package script

import (
	"errors"
	"testing"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars map[string]any
	}{
		{"empty", "  ", nil},
		{"syntax", "elapsed >", map[string]any{"elapsed": 0.0}},
		{"undeclared", "missing > 1", nil},
		{"bad name", "true", map[string]any{"not-ident": 1}},
		{"reserved", "true", map[string]any{resultVar: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.expr, tt.vars); !errors.Is(err, ErrCompile) {
				t.Errorf("Compile(%q) error = %v, want ErrCompile", tt.expr, err)
			}
		})
	}
}

func TestEval(t *testing.T) {
	c, err := Compile("elapsed > 1.5 && valid", map[string]any{"elapsed": 0.0, "valid": false})
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	tests := []struct {
		elapsed float64
		valid   bool
		want    bool
	}{
		{0.5, true, false},
		{2.0, false, false},
		{2.0, true, true},
	}
	for _, tt := range tests {
		got, err := c.Eval(map[string]any{"elapsed": tt.elapsed, "valid": tt.valid})
		if err != nil {
			t.Fatalf("Eval error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Eval(elapsed=%v, valid=%v) = %v, want %v", tt.elapsed, tt.valid, got, tt.want)
		}
	}
}

func TestEvalKeepsUnsetVars(t *testing.T) {
	c := MustCompile("a + b == 3", map[string]any{"a": 1, "b": 1})
	c.Eval(map[string]any{"b": 2})
	got, err := c.Eval(nil)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !got {
		t.Error("b should keep the value from the previous Eval")
	}
}

func TestEvalMaps(t *testing.T) {
	c := MustCompile(`dwell["center"] >= 0.5 || met["side"]`, map[string]any{
		"dwell": map[string]any{},
		"met":   map[string]any{},
	})

	got, err := c.Eval(map[string]any{
		"dwell": map[string]any{"center": 0.75},
		"met":   map[string]any{"side": false},
	})
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !got {
		t.Error("dwell on center should satisfy the condition")
	}
}

func TestEvalMathModule(t *testing.T) {
	c := MustCompile(`import("math").abs(x - 10) < 1`, map[string]any{"x": 0.0})
	got, err := c.Eval(map[string]any{"x": 10.5})
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !got {
		t.Error("|10.5-10| < 1 should be true")
	}
}

func TestEvalErrors(t *testing.T) {
	notBool := MustCompile("x * 2", map[string]any{"x": 1})
	if _, err := notBool.Eval(nil); !errors.Is(err, ErrEval) {
		t.Errorf("non-bool result error = %v, want ErrEval", err)
	}

	c := MustCompile("x > 1", map[string]any{"x": 1})
	if _, err := c.Eval(map[string]any{"y": 2}); !errors.Is(err, ErrEval) {
		t.Errorf("undeclared Set error = %v, want ErrEval", err)
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile should panic on a bad expression")
		}
	}()
	MustCompile("(", nil)
}

func TestAccessors(t *testing.T) {
	c := MustCompile("x > 0", map[string]any{"x": 0})
	if c.String() != "x > 0" {
		t.Errorf("String = %q", c.String())
	}
	if v := c.Vars(); len(v) != 1 || v[0] != "x" {
		t.Errorf("Vars = %v", v)
	}
}
