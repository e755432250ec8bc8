package decision

import (
	"errors"
	"testing"

	"github.com/dmnserve/dmnserve/internal/domain"
)

func TestEvaluateInputs_EvaluatesEachOnce(t *testing.T) {
	calls := 0
	table := &domain.DecisionTable{
		Inputs: []domain.Input{
			{Expression: lit("a")},
			{Expression: domain.ExpressionHandle(func(map[string]any) (any, error) {
				calls++
				return "b", nil
			})},
		},
	}

	values, err := evaluateInputs(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected input expression evaluated exactly once, got %d", calls)
	}
	if values[0] != "a" || values[1] != "b" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestEvaluateInputs_ZeroInputsYieldsEmptySlice(t *testing.T) {
	table := &domain.DecisionTable{}
	values, err := evaluateInputs(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected no values, got %v", values)
	}
}

func TestEvaluateInputs_FailurePropagatesAsExpressionFailure(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs: []domain.Input{{Expression: failing("boom")}},
	}
	_, err := evaluateInputs(table, ctxWith(nil), fnEvaluator{})
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.FailureExpression {
		t.Fatalf("expected ExpressionFailure, got %v", err)
	}
}
