package decision

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/dmnserve/dmnserve/internal/domain"
)

// combine is invoked only when at least one rule matched. It narrows the
// matched-rule set for FIRST, evaluates that set's outputs, then reduces
// per the table's hit policy.
func combine(table *domain.DecisionTable, matched []int, ctx *domain.EvalContext, evaluator domain.ExpressionEvaluator) (domain.Result, error) {
	policy := table.HitPolicy.Normalize()

	narrowed := matched
	if policy == domain.HitPolicyFirst {
		narrowed = matched[:1]
	}

	mappings, err := evaluateOutputs(table, narrowed, ctx, evaluator)
	if err != nil {
		return domain.Result{}, err
	}

	switch policy {
	case domain.HitPolicyUnique:
		if len(mappings) > 1 {
			return domain.Result{}, domain.NewFailure(domain.FailureUniqueViolation, "UNIQUE hit policy matched %d rules with outputs %v", len(mappings), mappings)
		}
		return single(mappings), nil

	case domain.HitPolicyFirst:
		return single(mappings), nil

	case domain.HitPolicyAny:
		distinct := distinctMappings(mappings)
		if len(distinct) > 1 {
			return domain.Result{}, domain.NewFailure(domain.FailureAnyViolation, "ANY hit policy matched rules with distinct outputs %v", distinct)
		}
		return single(mappings), nil

	case domain.HitPolicyPriority:
		sorted := sortByPriority(table, narrowed, mappings)
		return single(sorted), nil

	case domain.HitPolicyOutputOrder:
		sorted := sortByPriority(table, narrowed, mappings)
		return multiple(sorted), nil

	case domain.HitPolicyRuleOrder:
		return multiple(mappings), nil

	case domain.HitPolicyCollect:
		return collect(table.Aggregator, mappings)

	default:
		return domain.Result{}, domain.NewFailure(domain.FailureExpression, "unknown hit policy %q", table.HitPolicy)
	}
}

// distinctMappings returns the structurally-distinct mappings in values,
// preserving the order of first occurrence.
func distinctMappings(values []map[string]any) []map[string]any {
	var distinct []map[string]any
	for _, m := range values {
		seen := false
		for _, d := range distinct {
			if reflect.DeepEqual(m, d) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, m)
		}
	}
	return distinct
}

// sortByPriority reorders mappings (and their parallel rule indices)
// ascending by a lexicographic priority key, stable on ties so that rules
// with identical keys retain declaration order. See priorityKey for the
// (deliberately string-concatenated, not tupled) key construction.
func sortByPriority(table *domain.DecisionTable, ruleIndices []int, mappings []map[string]any) []map[string]any {
	type keyed struct {
		key     string
		mapping map[string]any
	}

	entries := make([]keyed, len(mappings))
	for i, m := range mappings {
		entries[i] = keyed{key: priorityKey(table, m), mapping: m}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	sorted := make([]map[string]any, len(entries))
	for i, e := range entries {
		sorted[i] = e.mapping
	}
	return sorted
}

// priorityKey concatenates, in output declaration order, each output
// value's position in that output's priority list rendered as a decimal
// string, or the empty string when the value isn't in the list. This is
// an intentional lexicographic policy: unlisted values sort before any
// listed value because the empty string precedes any digit, and
// multi-digit positions can collide with adjacent fields. This exact
// behavior must be reproduced for compatibility with existing decision
// models; it is not a bug to "fix" into a tuple comparison.
func priorityKey(table *domain.DecisionTable, mapping map[string]any) string {
	key := ""
	for _, out := range table.Outputs {
		val, ok := mapping[out.Name]
		if !ok {
			continue
		}
		pos := priorityPosition(out.PriorityList, val)
		if pos >= 0 {
			key += strconv.Itoa(pos)
		}
	}
	return key
}

func priorityPosition(list []string, val any) int {
	label := fmt.Sprintf("%v", val)
	for i, l := range list {
		if l == label {
			return i
		}
	}
	return -1
}

// collect applies the COLLECT hit policy's aggregator to mappings.
func collect(agg domain.Aggregator, mappings []map[string]any) (domain.Result, error) {
	switch agg {
	case domain.AggregatorMin, domain.AggregatorMax, domain.AggregatorSum:
		return numericAggregate(agg, mappings)
	case domain.AggregatorCount:
		return domain.ScalarResult(float64(len(mappings))), nil
	default:
		return multiple(mappings), nil
	}
}

func numericAggregate(agg domain.Aggregator, mappings []map[string]any) (domain.Result, error) {
	var result float64
	for i, m := range mappings {
		if len(m) != 1 {
			return domain.Result{}, domain.NewFailure(domain.FailureNumericAggregation, "rule %d has %d outputs; COLLECT with MIN/MAX/SUM requires exactly one", i, len(m))
		}
		var v any
		for _, val := range m {
			v = val
		}
		n, ok := toFloat64(v)
		if !ok {
			return domain.Result{}, domain.NewFailure(domain.FailureNumericAggregation, "rule %d output %v is not numeric", i, v)
		}
		switch {
		case i == 0:
			result = n
		case agg == domain.AggregatorMin && n < result:
			result = n
		case agg == domain.AggregatorMax && n > result:
			result = n
		case agg == domain.AggregatorSum:
			result += n
		}
	}
	return domain.ScalarResult(result), nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
