package domain

import "fmt"

// FailureKind tags why a decision-table evaluation could not be completed.
type FailureKind string

const (
	// FailureExpression means the expression engine reported an error, or
	// (per spec.md §9) a multi-output table is missing a required output
	// name.
	FailureExpression FailureKind = "ExpressionFailure"
	// FailureInputEntryType means an input entry evaluated to a
	// non-boolean value.
	FailureInputEntryType FailureKind = "InputEntryTypeFailure"
	// FailureUniqueViolation means HitPolicyUnique matched more than one
	// rule.
	FailureUniqueViolation FailureKind = "UniqueViolation"
	// FailureAnyViolation means HitPolicyAny's matched rules produced
	// distinct output mappings.
	FailureAnyViolation FailureKind = "AnyViolation"
	// FailureNumericAggregation means COLLECT with MIN/MAX/SUM hit a rule
	// with more than one output, or a non-numeric output value.
	FailureNumericAggregation FailureKind = "NumericAggregationFailure"
)

// Failure is the single structured error value the core returns. It is a
// terminal outcome, distinguishable from Absent (legitimate "no result").
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
