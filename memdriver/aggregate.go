package memdriver

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cosmotype/cosmotype/evaluator"
	"github.com/cosmotype/cosmotype/selection"
)

// bucketRows groups rows by the values at groupBy paths, returning the
// buckets keyed by a stable string encoding and the encountered order of
// those keys (so results come back in first-seen order, not map order).
func bucketRows(rows []map[string]any, groupBy []string) (map[string][]map[string]any, []string) {
	buckets := map[string][]map[string]any{}
	var order []string
	for _, row := range rows {
		key := groupKey(row, groupBy)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], row)
	}
	return buckets, order
}

func groupKey(row map[string]any, groupBy []string) string {
	resolve := evaluator.RowResolver(row)
	parts := make([]string, len(groupBy))
	for i, path := range groupBy {
		v, _ := resolve("", path)
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "\x1f")
}

// evalGroup projects a single group of rows: a path named in groupBy
// resolves to that group's (shared) key value; any other path resolves to
// the array of that path's values across the group's rows, matching what
// the eval package's aggregate builders expect as their argument.
func evalGroup(group []map[string]any, groupBy []string, projection map[string]any) (map[string]any, error) {
	isGroupKey := make(map[string]bool, len(groupBy))
	for _, p := range groupBy {
		isGroupKey[p] = true
	}

	resolve := func(scope, path string) (any, bool) {
		if isGroupKey[path] && len(group) > 0 {
			return evaluator.RowResolver(group[0])(scope, path)
		}
		values := make([]any, 0, len(group))
		for _, row := range group {
			v, present := evaluator.RowResolver(row)(scope, path)
			if present {
				values = append(values, v)
			}
		}
		return values, true
	}

	out := make(map[string]any, len(projection))
	for key, term := range projection {
		v, err := evaluator.EvalExpr(term, resolve)
		if err != nil {
			return nil, fmt.Errorf("memdriver: projecting %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// projectOne evaluates every projection term against a single row.
func projectOne(row map[string]any, projection map[string]any) (map[string]any, error) {
	return projectWith(evaluator.RowResolver(row), projection)
}

// projectWith evaluates every projection term through resolve, the
// shared path for plain rows and joined records.
func projectWith(resolve evaluator.Resolver, projection map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(projection))
	for key, term := range projection {
		v, err := evaluator.EvalExpr(term, resolve)
		if err != nil {
			return nil, fmt.Errorf("memdriver: projecting %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

func project(rows []map[string]any, projection map[string]any) ([]map[string]any, error) {
	if len(projection) == 0 {
		return rows, nil
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		p, err := projectOne(row, projection)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// sortRows orders rows per sorts. Expression sort terms are computed
// once per row up front and dropped after ordering, so a transient sort
// key never leaks into the projected output.
func sortRows(rows []map[string]any, sorts []selection.Sort) error {
	if len(sorts) == 0 {
		return nil
	}
	keys := make([][]any, len(rows))
	for i, row := range rows {
		ks := make([]any, len(sorts))
		for j, s := range sorts {
			if s.Term != nil {
				v, err := evaluator.EvalExpr(s.Term, evaluator.RowResolver(row))
				if err != nil {
					return fmt.Errorf("memdriver: computing sort key: %w", err)
				}
				ks[j] = v
				continue
			}
			ks[j], _ = evaluator.RowResolver(row)("", s.Path)
		}
		keys[i] = ks
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for j, s := range sorts {
			cmp := compareAny(keys[idx[a]][j], keys[idx[b]][j])
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	sorted := make([]map[string]any, len(rows))
	for i, at := range idx {
		sorted[i] = rows[at]
	}
	copy(rows, sorted)
	return nil
}

func page(rows []map[string]any, offset, limit *int) []map[string]any {
	if offset != nil {
		if *offset >= len(rows) {
			return nil
		}
		rows = rows[*offset:]
	}
	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

// compareAny orders two loosely-typed values: numerically if both are
// numbers, lexically if both are strings, chronologically if both are
// times, and as equal otherwise (stable sort preserves original order for
// incomparable pairs rather than guessing).
func compareAny(a, b any) int {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

// asFloat loosely coerces a numeric-ish value to float64 for int, int32,
// int64, uint, uint64, float32 and float64; unlike the portable
// evaluator's widening, int8, int16, uint8, uint16 and uint32 are not
// converted.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
