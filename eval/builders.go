package eval

import "github.com/cosmotype/cosmotype/field"

func termType(v any) field.Type { return field.TypeOfTerm(v) }

func numericType(args ...any) field.Type {
	for _, a := range args {
		t := termType(a)
		if t.Kind.Numeric() {
			return t
		}
	}
	return field.Type{Kind: field.KindDouble}
}

func boolean() field.Type { return field.Type{Kind: field.KindBoolean} }
func integer() field.Type { return field.Type{Kind: field.KindInteger} }
func str() field.Type     { return field.Type{Kind: field.KindString} }

func arith(op Op, args ...any) Expr {
	return Expr{Op: op, Args: args, Type: numericType(args...)}
}

// Add, Sub, Mul, Div, Modulo, Power, Log are the arithmetic operators
//, result type numeric.
func Add(args ...any) Expr    { return arith(OpAdd, args...) }
func Sub(args ...any) Expr    { return arith(OpSub, args...) }
func Mul(args ...any) Expr    { return arith(OpMul, args...) }
func Div(args ...any) Expr    { return arith(OpDiv, args...) }
func Modulo(args ...any) Expr { return arith(OpModulo, args...) }
func Power(a, b any) Expr     { return arith(OpPower, a, b) }
func Log(a, b any) Expr       { return arith(OpLog, a, b) }

func compare(op Op, a, b any) Expr { return Expr{Op: op, Args: []any{a, b}, Type: boolean()} }

// Eq, Ne, Gt, Gte, Lt, Lte are the comparison operators, result boolean.
func Eq(a, b any) Expr  { return compare(OpEq, a, b) }
func Ne(a, b any) Expr  { return compare(OpNe, a, b) }
func Gt(a, b any) Expr  { return compare(OpGt, a, b) }
func Gte(a, b any) Expr { return compare(OpGte, a, b) }
func Lt(a, b any) Expr  { return compare(OpLt, a, b) }
func Lte(a, b any) Expr { return compare(OpLte, a, b) }

// allBoolean reports whether every argument's annotated type is boolean,
// the switch that makes $and/$or/$not/$xor polymorphic: logical when
// every argument is boolean-typed, bitwise over the
// widest integer width otherwise.
func allBoolean(args ...any) bool {
	for _, a := range args {
		if termType(a).Kind != field.KindBoolean {
			return false
		}
	}
	return true
}

func widestInteger(args ...any) field.Type {
	best := field.Type{Kind: field.KindInteger}
	for _, a := range args {
		t := termType(a)
		if t.Kind == field.KindUnsigned {
			best = t
		}
	}
	return best
}

// And is logical ($and over booleans) when every argument is
// boolean-typed, else bitwise AND over the widest integer width among
// its arguments.
func And(args ...any) Expr {
	if allBoolean(args...) {
		return Expr{Op: OpAnd, Args: args, Type: boolean()}
	}
	return Expr{Op: OpAnd, Args: args, Type: widestInteger(args...)}
}

// Or is the $or counterpart of And.
func Or(args ...any) Expr {
	if allBoolean(args...) {
		return Expr{Op: OpOr, Args: args, Type: boolean()}
	}
	return Expr{Op: OpOr, Args: args, Type: widestInteger(args...)}
}

// Xor is the $xor counterpart of And/Or.
func Xor(args ...any) Expr {
	if allBoolean(args...) {
		return Expr{Op: OpXor, Args: args, Type: boolean()}
	}
	return Expr{Op: OpXor, Args: args, Type: widestInteger(args...)}
}

// Not negates a single boolean or integer argument, following the same
// polymorphic dispatch as And/Or/Xor.
func Not(a any) Expr {
	if allBoolean(a) {
		return Expr{Op: OpNot, Args: []any{a}, Type: boolean()}
	}
	return Expr{Op: OpNot, Args: []any{a}, Type: widestInteger(a)}
}

func aggregate(op Op, resultType field.Type, arg any) Expr {
	return Expr{Op: op, Args: []any{arg}, Type: resultType}
}

// Sum, Avg, Min, Max, Count, Length, Array are the aggregate operators.
// In a grouping context they bind to the group; outside grouping they
// span all rows of the selection — that context is
// supplied by the selection algebra / relation resolver, not by the
// builder, so the type rule here only concerns the scalar result shape.
func Sum(arg any) Expr   { return aggregate(OpSum, numericType(arg), arg) }
func Avg(arg any) Expr   { return aggregate(OpAvg, field.Type{Kind: field.KindDouble}, arg) }
func Min(arg any) Expr   { return aggregate(OpMin, numericType(arg), arg) }
func Max(arg any) Expr   { return aggregate(OpMax, numericType(arg), arg) }
func Count(arg any) Expr { return aggregate(OpCount, integer(), arg) }
func Length(arg any) Expr { return aggregate(OpLength, integer(), arg) }

// Array is both an aggregate (collects a column across grouped/selection
// rows) and a list constructor (collects its literal arguments).
func Array(args ...any) Expr {
	var inner field.Type
	if len(args) > 0 {
		inner = termType(args[0])
	}
	return Expr{Op: OpArray, Args: args, Type: field.Type{Kind: field.KindList, Inner: &inner}}
}

// Get projects a dotted path out of a json/object-typed term.
func Get(source any, path string) Expr {
	t := termType(source)
	result, ok := t.InnerAt(path)
	if !ok {
		result = field.Type{Kind: field.KindExpr}
	}
	return Expr{Op: OpGet, Args: []any{source, path}, Type: result}
}

// Size returns the element count of a list/json-array term.
func Size(arg any) Expr { return Expr{Op: OpSize, Args: []any{arg}, Type: integer()} }

// El existentially projects an index/predicate into a list's elements.
func El(list any, index any) Expr {
	t := termType(list)
	result := field.Type{Kind: field.KindExpr}
	if t.Inner != nil {
		result = *t.Inner
	}
	return Expr{Op: OpEl, Args: []any{list, index}, Type: result}
}

// Concat concatenates its string arguments.
func Concat(args ...any) Expr { return Expr{Op: OpConcat, Args: args, Type: str()} }

// Object builds a nested json value from a record of eval terms.
func Object(fields map[string]any) Expr {
	types := make(map[string]field.Type, len(fields))
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		types[k] = termType(v)
		args = append(args, k, v)
	}
	return Expr{Op: OpObject, Args: args, Type: field.Type{Kind: field.KindJSON, Fields: types}}
}

// If evaluates cond and returns then or els; result type follows then.
func If(cond, then, els any) Expr {
	return Expr{Op: OpIf, Args: []any{cond, then, els}, Type: termType(then)}
}

// Switch evaluates cases (cond, value, cond, value, ..., default) in
// order and returns the first matching value's type.
func Switch(cases ...any) Expr {
	var t field.Type
	if len(cases) >= 2 {
		t = termType(cases[1])
	}
	return Expr{Op: OpSwitch, Args: cases, Type: t}
}

// Literal wraps a constant value, annotated with its inferred type.
func Literal(v any) Expr {
	return Expr{Op: OpLiteral, Args: []any{v}, Type: field.TypeOfValue(v)}
}

// Number coerces its argument to a number: dates become seconds since
// epoch, null becomes 0.
func Number(v any) Expr {
	return Expr{Op: OpNumber, Args: []any{v}, Type: field.Type{Kind: field.KindDouble}}
}

// Ref resolves a (scope, dotted-path) column reference. resultType may
// be zero-valued when the referent's declared type is not yet known to
// the caller; the relation resolver fills it in during lowering.
func Ref(scope, path string, resultType field.Type) Expr {
	return Expr{Op: OpRef, Ref: RefArgs{Scope: scope, Path: path}, Type: resultType}
}

// Exec wraps a subselection as a scalar/array expression term. sub is
// `any` (a selection.Selection value or pointer) to avoid an eval<->selection
// import cycle; resultType is the subselection's projected type, or a
// list type for $array aggregates. Scalar subqueries return the
// aggregate default on empty sets: 0 for numeric aggregates, [] for
// $array — enforced by the evaluator/driver, not here.
func Exec(sub any, resultType field.Type) Expr {
	return Expr{Op: OpExec, Sub: sub, Type: resultType}
}
