package decision

import "github.com/dmnserve/dmnserve/internal/domain"

// fnEvaluator is a domain.ExpressionEvaluator for tests: every
// domain.ExpressionHandle it's asked to evaluate is itself the function to
// run, so tests can build tables without a real expression compiler.
type fnEvaluator struct{}

func (fnEvaluator) Evaluate(expr domain.ExpressionHandle, vars map[string]any) (any, error) {
	fn, ok := expr.(func(map[string]any) (any, error))
	if !ok {
		panic("testutil: expression handle is not a func(map[string]any) (any, error)")
	}
	return fn(vars)
}

// lit returns an expression handle that always evaluates to v, ignoring
// variables.
func lit(v any) domain.ExpressionHandle {
	return func(map[string]any) (any, error) {
		return v, nil
	}
}

// failing returns an expression handle that always fails with msg.
func failing(msg string) domain.ExpressionHandle {
	return func(map[string]any) (any, error) {
		return nil, errString(msg)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

// varRef returns an expression handle that reads variable name straight
// out of the binding it's evaluated against.
func varRef(name string) domain.ExpressionHandle {
	return func(vars map[string]any) (any, error) {
		return vars[name], nil
	}
}

// inputEntry wraps fn as an input-entry expression handle.
func inputEntry(fn func(map[string]any) (any, error)) domain.InputEntry {
	return domain.InputEntry{Expression: domain.ExpressionHandle(fn)}
}
