package decision

import (
	"github.com/dmnserve/dmnserve/internal/domain"
)

// evaluateOutputs evaluates, for each rule index in ruleIndices (in
// order), that rule's output entries against the unaugmented caller
// variable binding (no input-variable injection), producing one mapping
// of output name to value per rule.
func evaluateOutputs(table *domain.DecisionTable, ruleIndices []int, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) ([]map[string]any, error) {
	mappings := make([]map[string]any, 0, len(ruleIndices))

	for _, ruleIdx := range ruleIndices {
		rule := table.Rules[ruleIdx]
		mapping := make(map[string]any, len(rule.OutputEntries))

		for i, entry := range rule.OutputEntries {
			out := table.Outputs[i]
			if len(table.Outputs) > 1 && out.Name == "" {
				return nil, domain.NewFailure(domain.FailureExpression, "output %d has no name, which is required when a table declares more than one output", i)
			}

			val, err := evaluator.Evaluate(entry.Expression, ctx.Variables)
			if err != nil {
				return nil, domain.NewFailure(domain.FailureExpression, "rule %d output %d: %v", ruleIdx, i, err)
			}
			mapping[out.Name] = val
		}

		mappings = append(mappings, mapping)
	}

	return mappings, nil
}

// evaluateDefaults is invoked only when no rule matched. It evaluates each
// output's default-output expression (if declared) against the caller
// variables, assembles the name->value mapping of the outputs that
// declared one, and shapes it: empty -> absent, one entry -> bare value,
// several -> the mapping.
func evaluateDefaults(table *domain.DecisionTable, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) (domain.Result, error) {
	mapping := make(map[string]any)

	for i, out := range table.Outputs {
		if out.Default == nil {
			continue
		}
		if len(table.Outputs) > 1 && out.Name == "" {
			return domain.Result{}, domain.NewFailure(domain.FailureExpression, "output %d has no name, which is required when a table declares more than one output", i)
		}

		val, err := evaluator.Evaluate(out.Default, ctx.Variables)
		if err != nil {
			return domain.Result{}, domain.NewFailure(domain.FailureExpression, "default output %d: %v", i, err)
		}
		mapping[out.Name] = val
	}

	switch len(mapping) {
	case 0:
		return domain.Absent, nil
	case 1:
		for _, v := range mapping {
			return domain.ScalarResult(v), nil
		}
	}
	return domain.MappingResult(mapping), nil
}
