// Package expr implements the alarm-expression language: arithmetic and
// comparisons over a single bound variable `val`, joined by && and ||, with a
// small allowlist of math functions. Nothing outside this grammar can be
// reached from an expression.
package expr

import (
	"errors"
	"fmt"
	"math"
)

const (
	MaxSourceLen = 256
	maxDepth     = 64
)

var (
	ErrEmpty    = errors.New("empty expression")
	ErrTooLong  = errors.New("expression too long")
	ErrTooDeep  = errors.New("expression nested too deeply")
	ErrNaN      = errors.New("expression result is not a number")
)

type function struct {
	arity int // -1: one or more
	fn    func(args []float64) float64
}

var functions = map[string]function{
	"abs":   {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"sqrt":  {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"floor": {1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"round": {1, func(a []float64) float64 { return math.Round(a[0]) }},
	"min": {-1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
	"max": {-1, func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
}

var constants = map[string]float64{
	"pi":    math.Pi,
	"e":     math.E,
	"true":  1,
	"false": 0,
}

// Program is a compiled expression. It is immutable and safe for concurrent use.
type Program struct {
	src  string
	root node
}

func (p *Program) String() string {
	return p.src
}

// Eval binds val and reports whether the expression holds. A non-zero result is true.
func (p *Program) Eval(val float64) (bool, error) {
	r := p.root.eval(val)
	if math.IsNaN(r) {
		return false, ErrNaN
	}
	return r != 0, nil
}

// Value returns the raw numeric result for val.
func (p *Program) Value(val float64) float64 {
	return p.root.eval(val)
}

// Compile parses src against the fixed grammar.
func Compile(src string) (*Program, error) {
	if len(src) > MaxSourceLen {
		return nil, ErrTooLong
	}
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	if len(toks) == 1 {
		return nil, ErrEmpty
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("compile %q: unexpected %q at %d", src, t.text, t.pos)
	}
	return &Program{src: src, root: root}, nil
}

// Eval compiles and evaluates src in one step.
func Eval(src string, val float64) (bool, error) {
	p, err := Compile(src)
	if err != nil {
		return false, err
	}
	return p.Eval(val)
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
