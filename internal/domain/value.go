package domain

// EvalContext is the caller-supplied, read-only binding a table is
// evaluated against. Variables is shared unchanged across every
// expression evaluation within one table evaluation, except that
// input-entry evaluation temporarily overlays InputVariableName.
// ParsedExpressions records the text-to-handle lookup the external parser
// produced; the core does not consult it (every Input/Entry already
// carries its own handle), and nothing in this repository sets or reads
// it.
type EvalContext struct {
	Variables         map[string]any
	ParsedExpressions map[string]ExpressionHandle
}

// ResultKind tags the shape of a decision-table evaluation's successful
// outcome.
type ResultKind int

const (
	// ResultAbsent means no rule matched and no default output applied.
	ResultAbsent ResultKind = iota
	// ResultScalar is a single bare value (single-output collapse).
	ResultScalar
	// ResultMapping is output-name -> value, used when a table has more
	// than one output and yields a single outcome.
	ResultMapping
	// ResultSequence is an ordered list of ResultScalar/ResultMapping
	// elements, used by RULE_ORDER, OUTPUT_ORDER, and plain COLLECT.
	ResultSequence
)

// Result is the tagged outcome of a successful decision-table evaluation.
// Only the field matching Kind is meaningful.
type Result struct {
	Kind     ResultKind
	Scalar   any
	Mapping  map[string]any
	Sequence []any // each element is either a scalar (any) or a map[string]any
}

// Absent is the canonical "no result" outcome.
var Absent = Result{Kind: ResultAbsent}

// ScalarResult wraps a bare value.
func ScalarResult(v any) Result {
	return Result{Kind: ResultScalar, Scalar: v}
}

// MappingResult wraps an output-name -> value mapping.
func MappingResult(m map[string]any) Result {
	return Result{Kind: ResultMapping, Mapping: m}
}

// SequenceResult wraps an ordered list of scalars or mappings.
func SequenceResult(items []any) Result {
	return Result{Kind: ResultSequence, Sequence: items}
}
