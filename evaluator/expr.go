package evaluator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cosmotype/cosmotype/eval"
)

// EvalExpr evaluates an eval.Expr (or a raw literal term, returned as-is)
// against resolve, implementing the arithmetic, comparison, polymorphic
// logical/bitwise, aggregate, collection, and conditional operators.
// $exec subqueries are not evaluated here: they require
// a selection executor (a driver), so they return an error — the portable
// evaluator covers everything expressible without one.
func EvalExpr(term any, resolve Resolver) (any, error) {
	e, ok := term.(eval.Expr)
	if !ok {
		return term, nil
	}

	switch e.Op {
	case eval.OpLiteral:
		return e.Args[0], nil
	case eval.OpRef:
		v, _ := resolve(e.Ref.Scope, e.Ref.Path)
		return v, nil
	case eval.OpNumber:
		return evalNumber(e, resolve)

	case eval.OpAdd, eval.OpSub, eval.OpMul, eval.OpDiv, eval.OpModulo:
		return evalArith(e, resolve)
	case eval.OpPower, eval.OpLog:
		return evalBinaryMath(e, resolve)

	case eval.OpEq, eval.OpNe, eval.OpGt, eval.OpGte, eval.OpLt, eval.OpLte:
		return evalCompare(e, resolve)

	case eval.OpAnd, eval.OpOr, eval.OpXor, eval.OpNot:
		return evalLogicalOrBitwise(e, resolve)

	case eval.OpSum, eval.OpAvg, eval.OpMin, eval.OpMax, eval.OpCount, eval.OpLength:
		return evalAggregate(e, resolve)
	case eval.OpArray:
		return evalArray(e, resolve)

	case eval.OpGet:
		return evalGet(e, resolve)
	case eval.OpSize:
		return evalSize(e, resolve)
	case eval.OpEl:
		return evalEl(e, resolve)
	case eval.OpConcat:
		return evalConcat(e, resolve)
	case eval.OpObject:
		return evalObject(e, resolve)

	case eval.OpIf:
		return evalIf(e, resolve)
	case eval.OpSwitch:
		return evalSwitch(e, resolve)

	case eval.OpExec:
		return nil, fmt.Errorf("evaluator: $exec requires a selection executor, not available in the portable evaluator")

	default:
		return nil, fmt.Errorf("evaluator: unsupported expression operator %q", e.Op)
	}
}

func evalArgs(args []any, resolve Resolver) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := EvalExpr(a, resolve)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func evalNumber(e eval.Expr, resolve Resolver) (any, error) {
	v, err := EvalExpr(e.Args[0], resolve)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return 0.0, nil
	}
	if t, ok := v.(time.Time); ok {
		return float64(t.Unix()), nil
	}
	f, ok := asFloat(v)
	if !ok {
		return nil, fmt.Errorf("evaluator: $number cannot coerce %T", v)
	}
	return f, nil
}

func evalArith(e eval.Expr, resolve Resolver) (any, error) {
	vs, err := evalArgs(e.Args, resolve)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return 0.0, nil
	}
	acc, ok := asFloat(vs[0])
	if !ok {
		return nil, fmt.Errorf("evaluator: %s: non-numeric operand %T", e.Op, vs[0])
	}
	for _, raw := range vs[1:] {
		f, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("evaluator: %s: non-numeric operand %T", e.Op, raw)
		}
		switch e.Op {
		case eval.OpAdd:
			acc += f
		case eval.OpSub:
			acc -= f
		case eval.OpMul:
			acc *= f
		case eval.OpDiv:
			if f == 0 {
				return nil, fmt.Errorf("evaluator: $div by zero")
			}
			acc /= f
		case eval.OpModulo:
			if f == 0 {
				return nil, fmt.Errorf("evaluator: $modulo by zero")
			}
			acc = float64(int64(acc) % int64(f))
		}
	}
	return acc, nil
}

func evalBinaryMath(e eval.Expr, resolve Resolver) (any, error) {
	vs, err := evalArgs(e.Args, resolve)
	if err != nil {
		return nil, err
	}
	a, aok := asFloat(vs[0])
	b, bok := asFloat(vs[1])
	if !aok || !bok {
		return nil, fmt.Errorf("evaluator: %s requires numeric operands", e.Op)
	}
	switch e.Op {
	case eval.OpPower:
		return math.Pow(a, b), nil
	default: // OpLog: log base b of a
		if a <= 0 || b <= 0 || b == 1 {
			return nil, fmt.Errorf("evaluator: $log requires positive operands and base != 1")
		}
		return math.Log(a) / math.Log(b), nil
	}
}

func evalCompare(e eval.Expr, resolve Resolver) (any, error) {
	vs, err := evalArgs(e.Args, resolve)
	if err != nil {
		return nil, err
	}
	a, b := vs[0], vs[1]
	switch e.Op {
	case eval.OpEq:
		return equalValues(a, b), nil
	case eval.OpNe:
		return !equalValues(a, b), nil
	default:
		opKind := map[eval.Op]string{eval.OpGt: "$gt", eval.OpGte: "$gte", eval.OpLt: "$lt", eval.OpLte: "$lte"}[e.Op]
		ok, err := compareOrderedValues(opKind, a, b)
		return ok, err
	}
}

func evalLogicalOrBitwise(e eval.Expr, resolve Resolver) (any, error) {
	vs, err := evalArgs(e.Args, resolve)
	if err != nil {
		return nil, err
	}
	if allBools(vs) {
		bs := make([]bool, len(vs))
		for i, v := range vs {
			bs[i] = v.(bool)
		}
		switch e.Op {
		case eval.OpAnd:
			for _, b := range bs {
				if !b {
					return false, nil
				}
			}
			return true, nil
		case eval.OpOr:
			for _, b := range bs {
				if b {
					return true, nil
				}
			}
			return false, nil
		case eval.OpNot:
			return !bs[0], nil
		default: // OpXor
			result := false
			for _, b := range bs {
				result = result != b
			}
			return result, nil
		}
	}
	ints := make([]int64, len(vs))
	for i, v := range vs {
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("evaluator: %s requires boolean or integer operands, got %T", e.Op, v)
		}
		ints[i] = n
	}
	switch e.Op {
	case eval.OpAnd:
		acc := ints[0]
		for _, n := range ints[1:] {
			acc &= n
		}
		return acc, nil
	case eval.OpOr:
		acc := ints[0]
		for _, n := range ints[1:] {
			acc |= n
		}
		return acc, nil
	case eval.OpNot:
		return ^ints[0], nil
	default: // OpXor
		acc := ints[0]
		for _, n := range ints[1:] {
			acc ^= n
		}
		return acc, nil
	}
}

func allBools(vs []any) bool {
	for _, v := range vs {
		if _, ok := v.(bool); !ok {
			return false
		}
	}
	return true
}

func evalAggregate(e eval.Expr, resolve Resolver) (any, error) {
	v, err := EvalExpr(e.Args[0], resolve)
	if err != nil {
		return nil, err
	}
	items, _ := toSlice(v)
	switch e.Op {
	case eval.OpCount:
		return int64(len(items)), nil
	case eval.OpLength:
		return int64(len(items)), nil
	}
	nums := make([]float64, 0, len(items))
	for _, it := range items {
		f, ok := asFloat(it)
		if !ok {
			return nil, fmt.Errorf("evaluator: %s: non-numeric element %T", e.Op, it)
		}
		nums = append(nums, f)
	}
	switch e.Op {
	case eval.OpSum:
		var s float64
		for _, n := range nums {
			s += n
		}
		return s, nil
	case eval.OpAvg:
		if len(nums) == 0 {
			return 0.0, nil
		}
		var s float64
		for _, n := range nums {
			s += n
		}
		return s / float64(len(nums)), nil
	case eval.OpMin:
		if len(nums) == 0 {
			return 0.0, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return m, nil
	default: // OpMax
		if len(nums) == 0 {
			return 0.0, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return m, nil
	}
}

func evalArray(e eval.Expr, resolve Resolver) (any, error) {
	return evalArgs(e.Args, resolve)
}

func evalGet(e eval.Expr, resolve Resolver) (any, error) {
	source, err := EvalExpr(e.Args[0], resolve)
	if err != nil {
		return nil, err
	}
	path, _ := e.Args[1].(string)
	m, ok := source.(map[string]any)
	if !ok {
		return nil, nil
	}
	v, _ := lookupPath(m, path)
	return v, nil
}

func evalSize(e eval.Expr, resolve Resolver) (any, error) {
	v, err := EvalExpr(e.Args[0], resolve)
	if err != nil {
		return nil, err
	}
	items, ok := toSlice(v)
	if !ok {
		return int64(0), nil
	}
	return int64(len(items)), nil
}

func evalEl(e eval.Expr, resolve Resolver) (any, error) {
	v, err := EvalExpr(e.Args[0], resolve)
	if err != nil {
		return nil, err
	}
	items, ok := toSlice(v)
	if !ok {
		return nil, nil
	}
	idxVal, err := EvalExpr(e.Args[1], resolve)
	if err != nil {
		return nil, err
	}
	if n, ok := toInt64(idxVal); ok {
		i := int(n)
		if i < 0 || i >= len(items) {
			return nil, nil
		}
		return items[i], nil
	}
	return nil, fmt.Errorf("evaluator: $el with a predicate index requires a selection executor")
}

func evalConcat(e eval.Expr, resolve Resolver) (any, error) {
	vs, err := evalArgs(e.Args, resolve)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, v := range vs {
		fmt.Fprintf(&b, "%v", v)
	}
	return b.String(), nil
}

func evalObject(e eval.Expr, resolve Resolver) (any, error) {
	out := map[string]any{}
	for i := 0; i+1 < len(e.Args); i += 2 {
		key, _ := e.Args[i].(string)
		v, err := EvalExpr(e.Args[i+1], resolve)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func evalIf(e eval.Expr, resolve Resolver) (any, error) {
	cond, err := EvalExpr(e.Args[0], resolve)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(bool)
	if !ok {
		return nil, fmt.Errorf("evaluator: $if condition did not evaluate to bool, got %T", cond)
	}
	if b {
		return EvalExpr(e.Args[1], resolve)
	}
	return EvalExpr(e.Args[2], resolve)
}

func evalSwitch(e eval.Expr, resolve Resolver) (any, error) {
	args := e.Args
	i := 0
	for ; i+1 < len(args); i += 2 {
		cond, err := EvalExpr(args[i], resolve)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(bool)
		if ok && b {
			return EvalExpr(args[i+1], resolve)
		}
	}
	if i < len(args) {
		return EvalExpr(args[i], resolve)
	}
	return nil, nil
}

// compareOrderedValues mirrors clauses.go's compareOrdered but takes a
// string-keyed op name since eval.Op and query.OpKind are distinct types.
func compareOrderedValues(op string, a, b any) (bool, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch op {
		case "$gt":
			return af > bf, nil
		case "$gte":
			return af >= bf, nil
		case "$lt":
			return af < bf, nil
		case "$lte":
			return af <= bf, nil
		}
	}
	as, aok2 := a.(string)
	bs, bok2 := b.(string)
	if aok2 && bok2 {
		switch op {
		case "$gt":
			return as > bs, nil
		case "$gte":
			return as >= bs, nil
		case "$lt":
			return as < bs, nil
		case "$lte":
			return as <= bs, nil
		}
	}
	return false, fmt.Errorf("evaluator: cannot order-compare %T and %T", a, b)
}
