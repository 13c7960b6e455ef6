// Package query implements the declarative Query filter IR: field
// operators, logical combinators, and shorthand coercions.
// The portable interpreter over plain records lives in package evaluator.
package query

// Query is a filter AST node. Exactly one of its variants is populated:
// Fields (an implicit AND of per-field clauses), And/Or/Not (logical
// combinators), or Expr (an arbitrary boolean-typed eval.Expr, the `$expr`
// escape hatch). The zero Query (no variant populated) matches every row,
// consistent with an empty `$and`.
type Query struct {
	Fields map[string][]Clause
	And    []Query
	Or     []Query
	Not    *Query
	// Expr holds an eval.Expr (declared `any` to avoid a query<->eval
	// import cycle, since eval never needs to reference query).
	Expr any
}

// IsEmpty reports whether q has no variant populated, i.e. matches every
// row (the `$and: []` case).
func (q Query) IsEmpty() bool {
	return len(q.Fields) == 0 && len(q.And) == 0 && q.Or == nil && q.Not == nil && q.Expr == nil
}

// And combines queries with logical AND. An empty argument list matches
// every row.
func And(qs ...Query) Query { return Query{And: nonNil(qs)} }

// Or combines queries with logical OR. An empty argument list matches no
// rows.
func Or(qs ...Query) Query { return Query{Or: nonNil(qs)} }

// nonNil guarantees a non-nil (possibly empty) slice: a nil variant means
// "this combinator isn't used", an empty non-nil variant means "used with
// no operands". Or() with zero arguments is therefore distinguishable from
// the zero-value Query; And() with zero arguments matches every row just
// like the zero-value Query, and IsEmpty reports true for both.
func nonNil(qs []Query) []Query {
	if qs == nil {
		return []Query{}
	}
	return qs
}

// Not negates a query.
func Not(q Query) Query { return Query{Not: &q} }

// Expr wraps an arbitrary boolean eval expression as a Query (`$expr`).
func Expr(e any) Query { return Query{Expr: e} }

// Field builds a single-field query from clauses, e.g.
// Field("age", GT(18), LT(65)).
func Field(name string, clauses ...Clause) Query {
	return Query{Fields: map[string][]Clause{name: clauses}}
}
