package query

// OpKind names a field-level query operator.
type OpKind string

const (
	OpEq     OpKind = "$eq"
	OpNe     OpKind = "$ne"
	OpGt     OpKind = "$gt"
	OpGte    OpKind = "$gte"
	OpLt     OpKind = "$lt"
	OpLte    OpKind = "$lte"
	OpIn     OpKind = "$in"
	OpNin    OpKind = "$nin"
	OpRegex    OpKind = "$regex"
	OpRegexFor OpKind = "$regexFor"
	OpExists   OpKind = "$exists"
	OpEl       OpKind = "$el"
	OpSize     OpKind = "$size"

	OpBitsAllSet   OpKind = "$bitsAllSet"
	OpBitsAllClear OpKind = "$bitsAllClear"
	OpBitsAnySet   OpKind = "$bitsAnySet"
	OpBitsAnyClear OpKind = "$bitsAnyClear"

	// Relation predicates: lowered by the relation resolver into
	// EXISTS/NOT EXISTS shaped sub-selections; the portable evaluator
	// also interprets them directly against in-memory child sets.
	OpSome  OpKind = "$some"
	OpNone  OpKind = "$none"
	OpEvery OpKind = "$every"
)

// Clause is one operator application within a field's query, e.g.
// {$gte: 18} is Clause{Op: OpGte, Value: 18}.
type Clause struct {
	Op    OpKind
	Value any
}

// Regex is the explicit {source, flags} form accepted by $regex/$regexFor
//, as an alternative to a native regex literal.
type Regex struct {
	Source string
	Flags  string
}

func clause(op OpKind, v any) Clause { return Clause{Op: op, Value: v} }

func EQ(v any) Clause  { return clause(OpEq, v) }
func NE(v any) Clause  { return clause(OpNe, v) }
func GT(v any) Clause  { return clause(OpGt, v) }
func GTE(v any) Clause { return clause(OpGte, v) }
func LT(v any) Clause  { return clause(OpLt, v) }
func LTE(v any) Clause { return clause(OpLte, v) }

// IN matches when the field's value is one of vs; an empty vs matches
// nothing.
func IN(vs ...any) Clause { return clause(OpIn, vs) }

// NIN matches when the field's value is none of vs; an empty vs matches
// everything.
func NIN(vs ...any) Clause { return clause(OpNin, vs) }

// RegexClause matches string fields against a regular expression.
func RegexClause(r Regex) Clause { return clause(OpRegex, r) }

// RegexFor inverts the operands: the field's value is the pattern,
// matched against r.Source as data.
func RegexFor(r Regex) Clause { return clause(OpRegexFor, r) }

// Exists matches iff the value is non-null (present=true) or null/missing
// (present=false).
func Exists(present bool) Clause { return clause(OpExists, present) }

// El pushes q into list elements existentially: matches if some element
// of the field's array value satisfies q.
func El(q Query) Clause { return clause(OpEl, q) }

// Size matches when the field's array length equals n.
func Size(n int) Clause { return clause(OpSize, n) }

func BitsAllSet(mask int64) Clause   { return clause(OpBitsAllSet, mask) }
func BitsAllClear(mask int64) Clause { return clause(OpBitsAllClear, mask) }
func BitsAnySet(mask int64) Clause   { return clause(OpBitsAnySet, mask) }
func BitsAnyClear(mask int64) Clause { return clause(OpBitsAnyClear, mask) }

// Some matches when at least one related row satisfies q.
func Some(q Query) Clause { return clause(OpSome, q) }

// None matches when no related row satisfies q.
func None(q Query) Clause { return clause(OpNone, q) }

// Every matches when every related row satisfies q; vacuously true for
// an empty child set.
func Every(q Query) Clause { return clause(OpEvery, q) }
