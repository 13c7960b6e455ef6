// Package eval implements the evaluation expression IR: a tagged tree
// of arithmetic, logical, bitwise, string, date, array, aggregate,
// subquery, projection, and conditional operators, each carrying a
// result type.
//
// The `$` namespace is this package's exported builder functions
// (Add, And, Sum, ...), conventionally aliased `eval "..."` by callers
// and re-exported as cosmotype.Op for dotted access.
package eval

import "github.com/cosmotype/cosmotype/field"

// Op names an evaluation operator.
type Op string

const (
	OpAdd    Op = "$add"
	OpSub    Op = "$sub"
	OpMul    Op = "$mul"
	OpDiv    Op = "$div"
	OpModulo Op = "$modulo"
	OpPower  Op = "$power"
	OpLog    Op = "$log"

	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"

	OpAnd Op = "$and"
	OpOr  Op = "$or"
	OpNot Op = "$not"
	OpXor Op = "$xor"

	OpSum   Op = "$sum"
	OpAvg   Op = "$avg"
	OpMin   Op = "$min"
	OpMax   Op = "$max"
	OpCount Op = "$count"
	OpLength Op = "$length"
	OpArray Op = "$array"

	OpGet     Op = "$get"
	OpSize    Op = "$size"
	OpEl      Op = "$el"
	OpConcat  Op = "$concat"
	OpObject  Op = "$object"

	OpIf      Op = "$if"
	OpSwitch  Op = "$switch"
	OpLiteral Op = "$literal"
	OpNumber  Op = "$number"

	OpExec Op = "$exec"
	OpRef  Op = "$ref"
)

// aggregateOps is the set of operators that bind to a grouping context
// when one is present, and span all selection rows otherwise.
var aggregateOps = map[Op]bool{
	OpSum: true, OpAvg: true, OpMin: true, OpMax: true,
	OpCount: true, OpLength: true, OpArray: true,
}

// IsAggregate reports whether op is an aggregate operator.
func IsAggregate(op Op) bool { return aggregateOps[op] }

// Expr is a node in the evaluation expression tree. Every node carries
// its own Op, its Args (nested Exprs or literal values), and an
// annotated result Type so polymorphic operators (e.g. $and over
// booleans vs. integers) can dispatch without re-deriving types at
// emission time.
type Expr struct {
	Op   Op
	Args []any
	Type field.Type

	// Ref, for OpRef, is the (scope, dotted-path) pair being referenced.
	Ref RefArgs
	// Sub, for OpExec, is the subselection being wrapped. Declared as
	// `any` to avoid an import cycle with package selection; callers
	// type-assert to selection.Selection (memdriver also accepts a
	// *selection.Selection).
	Sub any
}

// RefArgs names a (scope, dotted-path) column reference, resolved by the
// relation resolver first against the current scope's tables, then the
// join-table environment, then outer refs.
type RefArgs struct {
	Scope string
	Path  string
}

// ResultType implements field.Typed so Expr values can appear as terms
// inside other Exprs, Query predicates, and Model records without losing
// their annotated type.
func (e Expr) ResultType() field.Type { return e.Type }

var _ field.Typed = Expr{}
