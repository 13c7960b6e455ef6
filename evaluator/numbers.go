package evaluator

import (
	"fmt"
	"time"

	"github.com/cosmotype/cosmotype/query"
)

// equalValues compares two dynamic values loosely: numeric values compare
// by magnitude regardless of concrete Go numeric type, everything else by
// ==.
func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func compareOrdered(op query.OpKind, a, b any) (bool, error) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return compareFloats(op, af, bf), nil
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return compareFloats(op, float64(at.UnixNano()), float64(bt.UnixNano())), nil
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return compareStrings(op, as, bs), nil
		}
	}
	return false, fmt.Errorf("evaluator: cannot order-compare %T and %T", a, b)
}

func compareFloats(op query.OpKind, a, b float64) bool {
	switch op {
	case query.OpGt:
		return a > b
	case query.OpGte:
		return a >= b
	case query.OpLt:
		return a < b
	case query.OpLte:
		return a <= b
	}
	return false
}

func compareStrings(op query.OpKind, a, b string) bool {
	switch op {
	case query.OpGt:
		return a > b
	case query.OpGte:
		return a >= b
	case query.OpLt:
		return a < b
	case query.OpLte:
		return a <= b
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
