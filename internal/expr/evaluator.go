package expr

import (
	"fmt"

	"github.com/dmnserve/dmnserve/internal/domain"
)

// Evaluator is the concrete domain.ExpressionEvaluator backed by CEL.
// It is stateless; the compiled programs it runs come entirely from the
// domain.ExpressionHandle values it's handed.
type Evaluator struct{}

// Evaluate runs the CEL program behind expr against vars, translating the
// reserved "?" input-variable binding (if present) to the CEL-legal
// identifier the program was compiled against.
func (Evaluator) Evaluate(expr domain.ExpressionHandle, vars map[string]any) (any, error) {
	if _, ok := expr.(alwaysTrueExpression); ok {
		return true, nil
	}

	ce, ok := expr.(*compiledExpression)
	if !ok {
		return nil, fmt.Errorf("expr: handle %T is not a compiled CEL expression", expr)
	}

	out, _, err := ce.program.Eval(activationFor(vars))
	if err != nil {
		return nil, fmt.Errorf("expr: evaluate: %w", err)
	}
	return out.Value(), nil
}

// activationFor adapts a decision-core variable binding into a CEL
// activation map, renaming domain.InputVariableName to inputVariableName.
// It never mutates vars.
func activationFor(vars map[string]any) map[string]any {
	value, hasInputVariable := vars[domain.InputVariableName]
	if !hasInputVariable {
		return vars
	}

	activation := make(map[string]any, len(vars))
	for k, v := range vars {
		if k == domain.InputVariableName {
			continue
		}
		activation[k] = v
	}
	activation[inputVariableName] = value
	return activation
}
