package decision

import (
	"reflect"
	"testing"

	"github.com/dmnserve/dmnserve/internal/domain"
)

func TestSingle_Empty(t *testing.T) {
	if got := single(nil); got.Kind != domain.ResultAbsent {
		t.Fatalf("expected absent, got %+v", got)
	}
}

func TestSingle_OneKeyCollapsesToScalar(t *testing.T) {
	got := single([]map[string]any{{"discount": 0.1}})
	if got.Kind != domain.ResultScalar || got.Scalar != 0.1 {
		t.Fatalf("expected scalar 0.1, got %+v", got)
	}
}

func TestSingle_ManyKeysStaysMapping(t *testing.T) {
	m := map[string]any{"a": 1, "b": 2}
	got := single([]map[string]any{m})
	if got.Kind != domain.ResultMapping || !reflect.DeepEqual(got.Mapping, m) {
		t.Fatalf("expected mapping %v, got %+v", m, got)
	}
}

func TestMultiple_Empty(t *testing.T) {
	if got := multiple(nil); got.Kind != domain.ResultAbsent {
		t.Fatalf("expected absent, got %+v", got)
	}
}

func TestMultiple_OneElementAppliesSingleCollapse(t *testing.T) {
	got := multiple([]map[string]any{{"a": 1}})
	if got.Kind != domain.ResultScalar || got.Scalar != 1 {
		t.Fatalf("expected scalar 1, got %+v", got)
	}
}

func TestMultiple_SingleKeyedSequenceUnwrapsToBareValues(t *testing.T) {
	got := multiple([]map[string]any{{"a": 1}, {"a": 2}})
	want := []any{1, 2}
	if got.Kind != domain.ResultSequence || !reflect.DeepEqual(got.Sequence, want) {
		t.Fatalf("expected sequence %v, got %+v", want, got)
	}
}

func TestMultiple_MultiKeyedSequenceKeepsMappings(t *testing.T) {
	m1 := map[string]any{"a": 1, "b": 2}
	m2 := map[string]any{"a": 3, "b": 4}
	got := multiple([]map[string]any{m1, m2})
	want := []any{m1, m2}
	if got.Kind != domain.ResultSequence || !reflect.DeepEqual(got.Sequence, want) {
		t.Fatalf("expected sequence %v, got %+v", want, got)
	}
}

func TestMultiple_MixedKeyCountsFallsBackToMappings(t *testing.T) {
	m1 := map[string]any{"a": 1}
	m2 := map[string]any{"a": 2, "b": 3}
	got := multiple([]map[string]any{m1, m2})
	want := []any{m1, m2}
	if got.Kind != domain.ResultSequence || !reflect.DeepEqual(got.Sequence, want) {
		t.Fatalf("expected sequence of mappings %v, got %+v", want, got)
	}
}
