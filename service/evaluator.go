package service

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Go-routine-4595/iba-monitor/model"
	"github.com/Go-routine-4595/iba-monitor/service/expr"
)

// Evaluator decides whether a sample is in an alarm condition. Compiled
// expressions are cached by source text.
type Evaluator struct {
	mu    sync.Mutex
	cache map[string]compiled
}

type compiled struct {
	prog *expr.Program
	err  error
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]compiled),
	}
}

// Evaluate returns (false, err) when the expression cannot be compiled or
// evaluated; callers treat that signal as non-alarming.
func (e *Evaluator) Evaluate(cfg model.SignalConfig, value float64) (bool, error) {
	if cfg.Expression != "" {
		p, err := e.program(cfg.Expression)
		if err != nil {
			return false, err
		}
		ok, err := p.Eval(value)
		if err != nil {
			return false, errors.Join(err, fmt.Errorf("signal %s", cfg.ID))
		}
		return ok, nil
	}
	if cfg.ThresholdHigh != nil && value > *cfg.ThresholdHigh {
		return true, nil
	}
	if cfg.ThresholdLow != nil && value < *cfg.ThresholdLow {
		return true, nil
	}
	return false, nil
}

// Check validates the active rule of cfg without a sample.
func (e *Evaluator) Check(cfg model.SignalConfig) error {
	if cfg.Expression == "" {
		return nil
	}
	_, err := e.program(cfg.Expression)
	return err
}

// Reset drops cached programs, used when the configuration is replaced.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	e.cache = make(map[string]compiled)
	e.mu.Unlock()
}

func (e *Evaluator) program(src string) (*expr.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.cache[src]
	if !ok {
		p, err := expr.Compile(src)
		c = compiled{prog: p, err: err}
		e.cache[src] = c
	}
	return c.prog, c.err
}

// RuleText describes the rule that fires for cfg, as embedded in alarm messages.
func RuleText(cfg model.SignalConfig) string {
	if cfg.Expression != "" {
		return cfg.Expression
	}
	switch {
	case cfg.ThresholdHigh != nil && cfg.ThresholdLow != nil:
		return "val > " + formatFloat(*cfg.ThresholdHigh) + " || val < " + formatFloat(*cfg.ThresholdLow)
	case cfg.ThresholdHigh != nil:
		return "val > " + formatFloat(*cfg.ThresholdHigh)
	case cfg.ThresholdLow != nil:
		return "val < " + formatFloat(*cfg.ThresholdLow)
	}
	return "none"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
