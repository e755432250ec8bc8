package decision

import (
	"github.com/dmnserve/dmnserve/internal/domain"
)

// Evaluate computes a decision table's result against ctx: it evaluates
// the table's inputs, matches rules, and combines matched rules' outputs
// (or falls back to default outputs when nothing matched) according to
// the table's hit policy.
//
// Evaluation never mutates table or ctx. It returns a non-nil *domain.Failure
// as the error on any failure; a nil error with a domain.Result of kind
// domain.ResultAbsent means "no rule matched and no default applied",
// which is a legitimate outcome, not an error.
func Evaluate(table *domain.DecisionTable, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) (domain.Result, error) {
	inputValues, err := evaluateInputs(table, ctx, evaluator)
	if err != nil {
		return domain.Result{}, err
	}

	matched, err := matchRules(table, inputValues, ctx, evaluator)
	if err != nil {
		return domain.Result{}, err
	}

	if len(matched) == 0 {
		return evaluateDefaults(table, ctx, evaluator)
	}

	return combine(table, matched, ctx, evaluator)
}
