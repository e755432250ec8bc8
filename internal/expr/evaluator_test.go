package expr

import (
	"context"
	"testing"

	"github.com/dmnserve/dmnserve/internal/domain"
)

func TestEvaluator_RenamesReservedInputVariable(t *testing.T) {
	c, err := NewCompiler(nil)
	if err != nil {
		t.Fatalf("failed to create compiler: %v", err)
	}
	handle, err := c.Compile(context.Background(), "tenant-a", "", "it == \"Business\"", nil)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	out, err := (Evaluator{}).Evaluate(handle, map[string]any{domain.InputVariableName: "Business"})
	if err != nil {
		t.Fatalf("failed to evaluate: %v", err)
	}
	if out != true {
		t.Errorf("expected true, got %v", out)
	}
}

func TestEvaluator_AlwaysTrueForDashEntries(t *testing.T) {
	out, err := (Evaluator{}).Evaluate(alwaysTrue, map[string]any{"anything": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != true {
		t.Errorf("expected true, got %v", out)
	}
}

func TestEvaluator_RejectsForeignHandle(t *testing.T) {
	_, err := (Evaluator{}).Evaluate("not a compiled expression", nil)
	if err == nil {
		t.Fatal("expected error for foreign handle type")
	}
}
