package decision

import "github.com/dmnserve/dmnserve/internal/domain"

// single collapses the first mapping in values (if any) to a bare value
// when it has exactly one key; otherwise it returns the mapping as-is. An
// empty list shapes to absent.
func single(values []map[string]any) domain.Result {
	if len(values) == 0 {
		return domain.Absent
	}
	return collapseOne(values[0])
}

// multiple shapes an ordered list of output mappings into a sequence
// result. Empty shapes to absent; a single element applies the
// single-output collapse; several elements become a sequence of bare
// values when every mapping has exactly one key, otherwise a sequence of
// mappings.
func multiple(values []map[string]any) domain.Result {
	switch len(values) {
	case 0:
		return domain.Absent
	case 1:
		return single(values)
	}

	items := make([]any, len(values))
	allSingleKeyed := true
	for _, m := range values {
		if len(m) != 1 {
			allSingleKeyed = false
			break
		}
	}

	for i, m := range values {
		if allSingleKeyed {
			for _, v := range m {
				items[i] = v
			}
		} else {
			items[i] = m
		}
	}

	return domain.SequenceResult(items)
}

// collapseOne applies the single-output collapse to one mapping: a bare
// value when it has exactly one key, the mapping itself otherwise.
func collapseOne(m map[string]any) domain.Result {
	if len(m) == 1 {
		for _, v := range m {
			return domain.ScalarResult(v)
		}
	}
	return domain.MappingResult(m)
}
