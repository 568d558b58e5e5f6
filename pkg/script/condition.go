// Package script compiles tengo expressions used as state exit conditions.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

var (
	// ErrCompile indicates the expression failed to compile.
	ErrCompile = errors.New("script: compile failed")

	// ErrEval indicates the expression failed at run time or did not yield a bool.
	ErrEval = errors.New("script: evaluation failed")
)

const resultVar = "__result"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition is a boolean tengo expression over named variables. It is
// compiled once and re-run with fresh values on every Eval. Not safe for
// concurrent use.
type Condition struct {
	expr     string
	vars     []string
	compiled *tengo.Compiled
}

// Compile builds a condition from expr. Every variable the expression reads
// must be declared in vars; a value may be a number, bool, string, or a
// map of those. The tengo math module is importable.
func Compile(expr string, vars map[string]any) (*Condition, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrCompile)
	}

	src := resultVar + " = (" + expr + ")"
	s := tengo.NewScript([]byte(src))
	s.SetImports(stdlib.GetModuleMap("math"))
	if err := s.Add(resultVar, false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	names := make([]string, 0, len(vars))
	for name, v := range vars {
		if !identRe.MatchString(name) || name == resultVar {
			return nil, fmt.Errorf("%w: bad variable name %q", ErrCompile, name)
		}
		if err := s.Add(name, v); err != nil {
			return nil, fmt.Errorf("%w: variable %s: %v", ErrCompile, name, err)
		}
		names = append(names, name)
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, expr, err)
	}
	return &Condition{expr: expr, vars: names, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string, vars map[string]any) *Condition {
	c, err := Compile(expr, vars)
	if err != nil {
		panic(err)
	}
	return c
}

// Eval sets the given variables and runs the expression. Variables not in
// vars keep their previous values.
func (c *Condition) Eval(vars map[string]any) (bool, error) {
	for name, v := range vars {
		if !c.compiled.IsDefined(name) {
			return false, fmt.Errorf("%w: undeclared variable %q", ErrEval, name)
		}
		if err := c.compiled.Set(name, v); err != nil {
			return false, fmt.Errorf("%w: set %s: %v", ErrEval, name, err)
		}
	}
	if err := c.compiled.Run(); err != nil {
		return false, fmt.Errorf("%w: %q: %v", ErrEval, c.expr, err)
	}
	res := c.compiled.Get(resultVar)
	if res.ValueType() != "bool" {
		return false, fmt.Errorf("%w: %q yielded %s, want bool", ErrEval, c.expr, res.ValueType())
	}
	return res.Bool(), nil
}

// String returns the source expression.
func (c *Condition) String() string { return c.expr }

// Vars returns the declared variable names.
func (c *Condition) Vars() []string {
	out := make([]string, len(c.vars))
	copy(out, c.vars)
	return out
}
