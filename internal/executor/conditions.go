package executor

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ConditionEvaluator compiles and runs guard expressions against a memory
// snapshot. Compiled programs are cached; evaluation is closed over the
// provided variables only.
type ConditionEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewConditionEvaluator creates an evaluator with an empty program cache.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{programs: make(map[string]*vm.Program)}
}

// Evaluate runs an expression against the given variables and returns the
// raw result.
func (ce *ConditionEvaluator) Evaluate(expression string, vars map[string]any) (any, error) {
	program, err := ce.compile(expression)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return expr.Run(program, vars)
}

// EvaluateBool runs an expression and requires a boolean result.
func (ce *ConditionEvaluator) EvaluateBool(expression string, vars map[string]any) (bool, error) {
	result, err := ce.Evaluate(expression, vars)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return boolean, got %T", expression, result)
	}
	return b, nil
}

func (ce *ConditionEvaluator) compile(expression string) (*vm.Program, error) {
	ce.mu.RLock()
	program, cached := ce.programs[expression]
	ce.mu.RUnlock()
	if cached {
		return program, nil
	}

	// Compile against an open map environment so any snapshot key may
	// appear as a variable. Undefined variables resolve to nil, which
	// keeps guards over not-yet-written nodes false and lets templates
	// coalesce over skipped branches with ?? . Fall back to an
	// unconstrained compile.
	program, err := expr.Compile(expression, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		program, err = expr.Compile(expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile condition %q: %w", expression, err)
		}
	}

	ce.mu.Lock()
	ce.programs[expression] = program
	ce.mu.Unlock()
	return program, nil
}
