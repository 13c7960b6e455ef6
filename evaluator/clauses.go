package evaluator

import (
	"fmt"
	"regexp"

	"github.com/cosmotype/cosmotype/query"
)

func matchClause(c query.Clause, val any, present bool, resolve Resolver) (bool, error) {
	switch c.Op {
	case query.OpEq:
		return equalValues(val, c.Value), nil
	case query.OpNe:
		return !equalValues(val, c.Value), nil
	case query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		return compareOrdered(c.Op, val, c.Value)
	case query.OpIn:
		vs, _ := c.Value.([]any)
		for _, v := range vs {
			if equalValues(val, v) {
				return true, nil
			}
		}
		return false, nil
	case query.OpNin:
		vs, _ := c.Value.([]any)
		for _, v := range vs {
			if equalValues(val, v) {
				return false, nil
			}
		}
		return true, nil
	case query.OpRegex:
		r, _ := c.Value.(query.Regex)
		s, ok := val.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(r.Source)
		if err != nil {
			return false, fmt.Errorf("evaluator: invalid $regex pattern: %w", err)
		}
		return re.MatchString(s), nil
	case query.OpRegexFor:
		r, _ := c.Value.(query.Regex)
		pattern, ok := val.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("evaluator: invalid $regexFor pattern field: %w", err)
		}
		return re.MatchString(r.Source), nil
	case query.OpExists:
		want, _ := c.Value.(bool)
		has := present && val != nil
		return has == want, nil
	case query.OpSize:
		n, _ := c.Value.(int)
		arr, ok := toSlice(val)
		if !ok {
			return false, nil
		}
		return len(arr) == n, nil
	case query.OpEl:
		sub, _ := c.Value.(query.Query)
		arr, ok := toSlice(val)
		if !ok {
			return false, nil
		}
		for _, item := range arr {
			if matchesElement(sub, item) {
				return true, nil
			}
		}
		return false, nil
	case query.OpBitsAllSet, query.OpBitsAllClear, query.OpBitsAnySet, query.OpBitsAnyClear:
		mask, _ := c.Value.(int64)
		n, ok := toInt64(val)
		if !ok {
			return false, nil
		}
		switch c.Op {
		case query.OpBitsAllSet:
			return n&mask == mask, nil
		case query.OpBitsAllClear:
			return n&mask == 0, nil
		case query.OpBitsAnySet:
			return n&mask != 0, nil
		default: // OpBitsAnyClear
			return n&mask != mask, nil
		}
	case query.OpSome, query.OpNone, query.OpEvery:
		sub, _ := c.Value.(query.Query)
		children := toRows(val)
		switch c.Op {
		case query.OpSome:
			for _, child := range children {
				if m, _ := match(sub, RowResolver(child), child); m {
					return true, nil
				}
			}
			return false, nil
		case query.OpNone:
			for _, child := range children {
				if m, _ := match(sub, RowResolver(child), child); m {
					return false, nil
				}
			}
			return true, nil
		default: // OpEvery: vacuously true on an empty child set
			for _, child := range children {
				if m, _ := match(sub, RowResolver(child), child); !m {
					return false, nil
				}
			}
			return true, nil
		}
	default:
		return false, fmt.Errorf("evaluator: unsupported operator %q", c.Op)
	}
}

// matchesElement applies sub to a list element that may be a scalar
// (rewritten to {id: value} per the $el scalar shorthand) or already a
// record.
func matchesElement(sub query.Query, item any) bool {
	if m, ok := item.(map[string]any); ok {
		matched, _ := match(sub, RowResolver(m), m)
		return matched
	}
	wrapped := map[string]any{"id": item}
	matched, _ := match(sub, RowResolver(wrapped), wrapped)
	return matched
}

func toSlice(val any) ([]any, bool) {
	switch x := val.(type) {
	case []any:
		return x, true
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = m
		}
		return out, true
	case nil:
		return nil, false
	default:
		return nil, false
	}
}

func toRows(val any) []map[string]any {
	switch x := val.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, e := range x {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
