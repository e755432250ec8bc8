package decision

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dmnserve/dmnserve/internal/domain"
)

func ctxWith(vars map[string]any) *domain.EvalContext {
	return &domain.EvalContext{Variables: vars}
}

func eq(a any) func(map[string]any) (any, error) {
	return func(vars map[string]any) (any, error) {
		return vars[domain.InputVariableName] == a, nil
	}
}

func gte(a float64) func(map[string]any) (any, error) {
	return func(vars map[string]any) (any, error) {
		v, _ := vars[domain.InputVariableName].(float64)
		return v >= a, nil
	}
}

// Scenario 1: single-output, UNIQUE, scalar result.
func TestEvaluate_SingleOutputUniqueScalar(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs: []domain.Input{
			{Expression: varRef("customer")},
			{Expression: varRef("orderSize")},
		},
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{
				InputEntries: []domain.InputEntry{
					inputEntry(eq("Business")),
					inputEntry(gte(5)),
				},
				OutputEntries: []domain.OutputEntry{{Expression: lit(0.1)}},
			},
		},
		HitPolicy: domain.HitPolicyUnique,
	}

	result, err := Evaluate(table, ctxWith(map[string]any{"customer": "Business", "orderSize": 7.0}), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultScalar || result.Scalar != 0.1 {
		t.Fatalf("expected scalar 0.1, got %+v", result)
	}
}

// Scenario 2: single-output, OUTPUT_ORDER, list result.
func TestEvaluate_OutputOrderSequence(t *testing.T) {
	priority := []string{"22", "5", "3"}
	table := &domain.DecisionTable{
		Inputs:  nil, // vacuous: all rules match
		Outputs: []domain.Output{{Name: "days", PriorityList: priority}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit(5.0)}}},
			{OutputEntries: []domain.OutputEntry{{Expression: lit(3.0)}}},
			{OutputEntries: []domain.OutputEntry{{Expression: lit(22.0)}}},
		},
		HitPolicy: domain.HitPolicyOutputOrder,
	}

	result, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultSequence {
		t.Fatalf("expected sequence, got %+v", result)
	}
	want := []any{22.0, 5.0, 3.0}
	if !reflect.DeepEqual(result.Sequence, want) {
		t.Fatalf("expected %v, got %v", want, result.Sequence)
	}
}

// Scenario 3: no match, no default, single output -> absent.
func TestEvaluate_NoMatchNoDefault(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs:  []domain.Input{{Expression: varRef("customer")}},
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{
				InputEntries:  []domain.InputEntry{inputEntry(eq("Business"))},
				OutputEntries: []domain.OutputEntry{{Expression: lit(0.1)}},
			},
		},
		HitPolicy: domain.HitPolicyUnique,
	}

	result, err := Evaluate(table, ctxWith(map[string]any{"customer": "Something else"}), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultAbsent {
		t.Fatalf("expected absent, got %+v", result)
	}
}

// Scenario 4: no match, default output, single output.
func TestEvaluate_NoMatchWithDefault(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs:  []domain.Input{{Expression: varRef("customer")}},
		Outputs: []domain.Output{{Name: "", Default: lit(0.05)}},
		Rules: []domain.Rule{
			{
				InputEntries:  []domain.InputEntry{inputEntry(eq("Business"))},
				OutputEntries: []domain.OutputEntry{{Expression: lit(0.1)}},
			},
		},
		HitPolicy: domain.HitPolicyUnique,
	}

	result, err := Evaluate(table, ctxWith(map[string]any{"customer": "Something else"}), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultScalar || result.Scalar != 0.05 {
		t.Fatalf("expected scalar 0.05, got %+v", result)
	}
}

// Scenario 5: multi-output, UNIQUE, mapping result.
func TestEvaluate_MultiOutputUniqueMapping(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs: []domain.Input{
			{Expression: varRef("customer")},
			{Expression: varRef("orderSize")},
		},
		Outputs: []domain.Output{{Name: "discount"}, {Name: "shipping"}},
		Rules: []domain.Rule{
			{
				InputEntries: []domain.InputEntry{
					inputEntry(eq("Business")),
					inputEntry(gte(5)),
				},
				OutputEntries: []domain.OutputEntry{
					{Expression: lit(0.1)},
					{Expression: lit("Air")},
				},
			},
		},
		HitPolicy: domain.HitPolicyUnique,
	}

	result, err := Evaluate(table, ctxWith(map[string]any{"customer": "Business", "orderSize": 7.0}), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"discount": 0.1, "shipping": "Air"}
	if result.Kind != domain.ResultMapping || !reflect.DeepEqual(result.Mapping, want) {
		t.Fatalf("expected mapping %v, got %+v", want, result)
	}
}

// Scenario 6: multi-output, RULE_ORDER, sequence of mappings.
func TestEvaluate_MultiOutputRuleOrderSequence(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs:  nil,
		Outputs: []domain.Output{{Name: "routing"}, {Name: "reviewLevel"}, {Name: "reason"}},
		Rules: []domain.Rule{
			{
				OutputEntries: []domain.OutputEntry{
					{Expression: lit("REFER")},
					{Expression: lit("LEVEL 2")},
					{Expression: lit("Applicant under dept review")},
				},
			},
			{
				OutputEntries: []domain.OutputEntry{
					{Expression: lit("ACCEPT")},
					{Expression: lit("NONE")},
					{Expression: lit("Acceptable")},
				},
			},
		},
		HitPolicy: domain.HitPolicyRuleOrder,
	}

	result, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []any{
		map[string]any{"routing": "REFER", "reviewLevel": "LEVEL 2", "reason": "Applicant under dept review"},
		map[string]any{"routing": "ACCEPT", "reviewLevel": "NONE", "reason": "Acceptable"},
	}
	if result.Kind != domain.ResultSequence || !reflect.DeepEqual(result.Sequence, want) {
		t.Fatalf("expected %v, got %+v", want, result)
	}
}

// Scenario 7: COLLECT+SUM failure on multi-output.
func TestEvaluate_CollectSumMultiOutputFails(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs:  nil,
		Outputs: []domain.Output{{Name: "a"}, {Name: "b"}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit(1.0)}, {Expression: lit(2.0)}}},
		},
		HitPolicy:  domain.HitPolicyCollect,
		Aggregator: domain.AggregatorSum,
	}

	_, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.FailureNumericAggregation {
		t.Fatalf("expected NumericAggregationFailure, got %v", err)
	}
}

// Scenario 8: ANY with conflicting outputs fails; identical outputs pass.
func TestEvaluate_AnyViolationAndAgreement(t *testing.T) {
	conflicting := &domain.DecisionTable{
		Inputs:  nil,
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit("A")}}},
			{OutputEntries: []domain.OutputEntry{{Expression: lit("B")}}},
		},
		HitPolicy: domain.HitPolicyAny,
	}
	_, err := Evaluate(conflicting, ctxWith(nil), fnEvaluator{})
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.FailureAnyViolation {
		t.Fatalf("expected AnyViolation, got %v", err)
	}

	agreeing := &domain.DecisionTable{
		Inputs:  nil,
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit("A")}}},
			{OutputEntries: []domain.OutputEntry{{Expression: lit("A")}}},
		},
		HitPolicy: domain.HitPolicyAny,
	}
	result, err := Evaluate(agreeing, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultScalar || result.Scalar != "A" {
		t.Fatalf("expected scalar A, got %+v", result)
	}
}

// Boundary: zero inputs means every rule vacuously matches.
func TestEvaluate_ZeroInputsVacuousMatch(t *testing.T) {
	table := &domain.DecisionTable{
		Outputs:   []domain.Output{{Name: ""}},
		Rules:     []domain.Rule{{OutputEntries: []domain.OutputEntry{{Expression: lit(1.0)}}}},
		HitPolicy: domain.HitPolicyUnique,
	}
	result, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultScalar || result.Scalar != 1.0 {
		t.Fatalf("expected scalar 1.0, got %+v", result)
	}
}

// Boundary: zero rules equals the default-output outcome.
func TestEvaluate_ZeroRulesUsesDefault(t *testing.T) {
	table := &domain.DecisionTable{
		Outputs:   []domain.Output{{Name: "", Default: lit(42.0)}},
		Rules:     nil,
		HitPolicy: domain.HitPolicyUnique,
	}
	result, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultScalar || result.Scalar != 42.0 {
		t.Fatalf("expected scalar 42.0, got %+v", result)
	}
}

// FIRST narrows to the lowest-indexed matching rule.
func TestEvaluate_FirstPolicyKeepsLowestIndexMatch(t *testing.T) {
	table := &domain.DecisionTable{
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit("first")}}},
			{OutputEntries: []domain.OutputEntry{{Expression: lit("second")}}},
		},
		HitPolicy: domain.HitPolicyFirst,
	}
	result, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.ResultScalar || result.Scalar != "first" {
		t.Fatalf("expected scalar 'first', got %+v", result)
	}
}

// Default-output evaluation never runs when a rule matches.
func TestEvaluate_DefaultNeverInvokedOnMatch(t *testing.T) {
	table := &domain.DecisionTable{
		Outputs: []domain.Output{{Name: "", Default: failing("default must not be evaluated")}},
		Rules:   []domain.Rule{{OutputEntries: []domain.OutputEntry{{Expression: lit("matched")}}}},
		HitPolicy: domain.HitPolicyUnique,
	}
	result, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	if err != nil {
		t.Fatalf("unexpected error (default must not run): %v", err)
	}
	if result.Scalar != "matched" {
		t.Fatalf("expected scalar 'matched', got %+v", result)
	}
}

// Determinism: evaluating the same table/context twice yields the same
// outcome.
func TestEvaluate_Deterministic(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs:  []domain.Input{{Expression: varRef("x")}},
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{InputEntries: []domain.InputEntry{inputEntry(gte(1))}, OutputEntries: []domain.OutputEntry{{Expression: lit("ok")}}},
		},
		HitPolicy: domain.HitPolicyUnique,
	}
	ctx := ctxWith(map[string]any{"x": 5.0})
	r1, err1 := Evaluate(table, ctx, fnEvaluator{})
	r2, err2 := Evaluate(table, ctx, fnEvaluator{})
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if !reflect.DeepEqual(r1, r2) {
		t.Fatalf("expected identical results, got %+v vs %+v", r1, r2)
	}
}

// UNIQUE rejects ambiguity.
func TestEvaluate_UniqueViolation(t *testing.T) {
	table := &domain.DecisionTable{
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit("A")}}},
			{OutputEntries: []domain.OutputEntry{{Expression: lit("B")}}},
		},
		HitPolicy: domain.HitPolicyUnique,
	}
	_, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.FailureUniqueViolation {
		t.Fatalf("expected UniqueViolation, got %v", err)
	}
}

// Input entry evaluating to a non-boolean is a hard failure.
func TestEvaluate_InputEntryTypeFailure(t *testing.T) {
	table := &domain.DecisionTable{
		Inputs:  []domain.Input{{Expression: lit(1.0)}},
		Outputs: []domain.Output{{Name: ""}},
		Rules: []domain.Rule{
			{
				InputEntries:  []domain.InputEntry{inputEntry(func(map[string]any) (any, error) { return "not a bool", nil })},
				OutputEntries: []domain.OutputEntry{{Expression: lit("unused")}},
			},
		},
		HitPolicy: domain.HitPolicyUnique,
	}
	_, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.FailureInputEntryType {
		t.Fatalf("expected InputEntryTypeFailure, got %v", err)
	}
}

// Missing output name with multiple outputs is rejected as an
// ExpressionFailure (spec.md §9).
func TestEvaluate_MissingOutputNameRejected(t *testing.T) {
	table := &domain.DecisionTable{
		Outputs: []domain.Output{{Name: "a"}, {Name: ""}},
		Rules: []domain.Rule{
			{OutputEntries: []domain.OutputEntry{{Expression: lit(1.0)}, {Expression: lit(2.0)}}},
		},
		HitPolicy: domain.HitPolicyUnique,
	}
	_, err := Evaluate(table, ctxWith(nil), fnEvaluator{})
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.FailureExpression {
		t.Fatalf("expected ExpressionFailure, got %v", err)
	}
}
