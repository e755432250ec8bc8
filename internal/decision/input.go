// Package decision implements the DMN decision-table evaluation core:
// input-expression evaluation, rule matching, hit-policy combination, and
// default-output handling, layered on top of an external
// domain.ExpressionEvaluator.
package decision

import (
	"github.com/dmnserve/dmnserve/internal/domain"
)

// evaluateInputs evaluates each of the table's input expressions once,
// in declaration order, against the caller's variable binding. It
// short-circuits on the first failing expression; remaining inputs are
// not evaluated.
func evaluateInputs(table *domain.DecisionTable, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) ([]any, error) {
	values := make([]any, len(table.Inputs))
	for i, in := range table.Inputs {
		v, err := evaluator.Evaluate(in.Expression, ctx.Variables)
		if err != nil {
			return nil, domain.NewFailure(domain.FailureExpression, "input %d: %v", i, err)
		}
		values[i] = v
	}
	return values, nil
}
