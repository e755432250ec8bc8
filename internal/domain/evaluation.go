package domain

import (
	"time"
)

// EvaluationRecord is the persisted audit trail of a single call into the
// decision-table core: what table was evaluated, with what variables, and
// what came out (a shaped result, or a failure).
type EvaluationRecord struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	TableID   string    `json:"tableId"`
	Timestamp time.Time `json:"timestamp"`

	// Variables is the caller-supplied binding the table was evaluated
	// against, JSON-encoded for storage.
	Variables []byte `json:"variables"`

	// Outcome is exactly one of "absent", "scalar", "mapping", "sequence",
	// or "failure".
	Outcome string `json:"outcome"`

	// Result is the JSON-encoded shaped Result when Outcome is not
	// "failure" or "absent".
	Result []byte `json:"result,omitempty"`

	// FailureKind/FailureMessage are populated when Outcome == "failure".
	FailureKind    string `json:"failureKind,omitempty"`
	FailureMessage string `json:"failureMessage,omitempty"`

	Metadata EvaluationMetadata `json:"metadata"`
}

// EvaluationMetadata contains processing information about one
// evaluation call.
type EvaluationMetadata struct {
	TraceID       string `json:"traceId"`
	InputsMs      int64  `json:"inputsMs"`
	MatchMs       int64  `json:"matchMs"`
	CombineMs     int64  `json:"combineMs"`
	TotalMs       int64  `json:"totalMs"`
	RulesMatched  int    `json:"rulesMatched"`
	EngineVersion string `json:"engineVersion"`
}

// Outcome labels for EvaluationRecord.Outcome.
const (
	OutcomeAbsent   = "absent"
	OutcomeScalar   = "scalar"
	OutcomeMapping  = "mapping"
	OutcomeSequence = "sequence"
	OutcomeFailure  = "failure"
)

// ResultOutcomeKind maps a Result's Kind to its string outcome label.
func ResultOutcomeKind(kind ResultKind) string {
	switch kind {
	case ResultAbsent:
		return OutcomeAbsent
	case ResultScalar:
		return OutcomeScalar
	case ResultMapping:
		return OutcomeMapping
	case ResultSequence:
		return OutcomeSequence
	default:
		return OutcomeAbsent
	}
}
