package decision

import (
	"github.com/dmnserve/dmnserve/internal/domain"
)

// matchRules returns, in declaration order, the indices into table.Rules
// of every rule whose input entries all evaluated to boolean true against
// the paired input values.
//
// Each input entry is evaluated left to right with short-circuit on the
// first non-match: a false entry stops the rule (no match, no further
// entries evaluated); a non-boolean entry is a hard failure. A rule with
// no input entries vacuously matches.
func matchRules(table *domain.DecisionTable, inputValues []any, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) ([]int, error) {
	var matched []int

	for ruleIdx, rule := range table.Rules {
		ok, err := ruleMatches(rule, inputValues, ctx, evaluator)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, ruleIdx)
		}
	}

	return matched, nil
}

func ruleMatches(rule domain.Rule, inputValues []any, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) (bool, error) {
	for i, entry := range rule.InputEntries {
		vars := overlayInputVariable(ctx.Variables, inputValues[i])

		out, err := evaluator.Evaluate(entry.Expression, vars)
		if err != nil {
			return false, domain.NewFailure(domain.FailureExpression, "input entry %d: %v", i, err)
		}

		b, isBool := out.(bool)
		if !isBool {
			return false, domain.NewFailure(domain.FailureInputEntryType, "input entry %d evaluated to non-boolean value %v", i, out)
		}
		if !b {
			return false, nil
		}
	}
	return true, nil
}

// overlayInputVariable builds a shallow copy of vars with the reserved
// input-variable binding (domain.InputVariableName, conventionally "?")
// set to value. The copy is scoped to a single input-entry evaluation and
// discarded afterward; it never mutates the caller's map and never leaks
// the binding to any other evaluation.
func overlayInputVariable(vars map[string]any, value any) map[string]any {
	overlay := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		overlay[k] = v
	}
	overlay[domain.InputVariableName] = value
	return overlay
}
