package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Parse builds a Query from a raw, Mongo-shaped filter value (the form
// application code writes literally: `map[string]any{"$or": [...]}`,
// `map[string]any{"age": map[string]any{"$gte": 18}}`, etc.), applying
// the shorthand coercions:
//
//   - a bare comparable value is $eq
//   - an array is $in
//   - a regex literal ($regexp.Regexp) is $regex
//   - a record with only dotted-keyed subfields auto-flattens
func Parse(raw any) (Query, error) {
	if raw == nil {
		return Query{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return Query{}, fmt.Errorf("query: expected a filter object, got %T", raw)
	}
	return parseObject(m)
}

func parseObject(m map[string]any) (Query, error) {
	var logical []Query
	fields := map[string][]Clause{}

	for k, v := range m {
		switch k {
		case "$and":
			qs, err := parseQueryArray(v)
			if err != nil {
				return Query{}, err
			}
			logical = append(logical, Query{And: qs})
		case "$or":
			qs, err := parseQueryArray(v)
			if err != nil {
				return Query{}, err
			}
			logical = append(logical, Query{Or: qs})
		case "$not":
			q, err := Parse(v)
			if err != nil {
				return Query{}, err
			}
			logical = append(logical, Not(q))
		case "$expr":
			logical = append(logical, Expr(v))
		default:
			if err := parseFieldInto(k, v, fields); err != nil {
				return Query{}, err
			}
		}
	}

	result := Query{}
	if len(fields) > 0 {
		result.Fields = fields
	}
	if len(logical) == 0 {
		return result, nil
	}
	if !result.IsEmpty() {
		logical = append(logical, result)
	}
	if len(logical) == 1 {
		return logical[0], nil
	}
	return Query{And: logical}, nil
}

func parseQueryArray(v any) ([]Query, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("query: expected an array, got %T", v)
	}
	qs := make([]Query, 0, len(arr))
	for _, e := range arr {
		q, err := Parse(e)
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func parseFieldInto(key string, v any, out map[string][]Clause) error {
	switch val := v.(type) {
	case nil:
		// {field: null} is the existence-query shorthand:
		// matches rows/relations with no associated value.
		out[key] = append(out[key], Exists(false))
		return nil
	case *regexp.Regexp:
		out[key] = append(out[key], RegexClause(Regex{Source: val.String()}))
		return nil
	case Regex:
		out[key] = append(out[key], RegexClause(val))
		return nil
	case []any:
		out[key] = append(out[key], IN(val...))
		return nil
	case map[string]any:
		if hasOperatorKey(val) {
			for opName, opVal := range val {
				c, err := parseOp(opName, opVal)
				if err != nil {
					return err
				}
				out[key] = append(out[key], c)
			}
			return nil
		}
		// Auto-flatten: a record with only dotted-keyed subfields
		// expands into per-path clauses on this field.
		for subKey, subVal := range val {
			if err := parseFieldInto(key+"."+subKey, subVal, out); err != nil {
				return err
			}
		}
		return nil
	default:
		out[key] = append(out[key], EQ(val))
		return nil
	}
}

func hasOperatorKey(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func parseOp(name string, v any) (Clause, error) {
	switch OpKind(name) {
	case OpEq:
		return EQ(v), nil
	case OpNe:
		return NE(v), nil
	case OpGt:
		return GT(v), nil
	case OpGte:
		return GTE(v), nil
	case OpLt:
		return LT(v), nil
	case OpLte:
		return LTE(v), nil
	case OpIn:
		vs, err := toAnySlice(v)
		if err != nil {
			return Clause{}, err
		}
		return clause(OpIn, vs), nil
	case OpNin:
		vs, err := toAnySlice(v)
		if err != nil {
			return Clause{}, err
		}
		return clause(OpNin, vs), nil
	case OpRegex, OpRegexFor:
		r, err := toRegex(v)
		if err != nil {
			return Clause{}, err
		}
		return clause(OpKind(name), r), nil
	case OpExists:
		b, ok := v.(bool)
		if !ok {
			return Clause{}, fmt.Errorf("query: $exists expects a bool, got %T", v)
		}
		return Exists(b), nil
	case OpSize:
		n, err := toInt(v)
		if err != nil {
			return Clause{}, err
		}
		return Size(n), nil
	case OpBitsAllSet, OpBitsAllClear, OpBitsAnySet, OpBitsAnyClear:
		mask, err := toInt64(v)
		if err != nil {
			return Clause{}, err
		}
		return clause(OpKind(name), mask), nil
	case OpEl, OpSome, OpNone, OpEvery:
		q, err := Parse(v)
		if err != nil {
			return Clause{}, err
		}
		return clause(OpKind(name), q), nil
	default:
		return Clause{}, fmt.Errorf("query: unknown operator %q", name)
	}
}

func toAnySlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("query: expected an array, got %T", v)
	}
}

func toRegex(v any) (Regex, error) {
	switch x := v.(type) {
	case Regex:
		return x, nil
	case *regexp.Regexp:
		return Regex{Source: x.String()}, nil
	case string:
		return Regex{Source: x}, nil
	case map[string]any:
		r := Regex{}
		if s, ok := x["source"].(string); ok {
			r.Source = s
		}
		if f, ok := x["flags"].(string); ok {
			r.Flags = f
		}
		return r, nil
	default:
		return Regex{}, fmt.Errorf("query: unsupported regex value %T", v)
	}
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	default:
		return 0, fmt.Errorf("query: expected an integer, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("query: expected an integer, got %T", v)
	}
}
