// Package evaluator is the portable in-memory interpreter over the
// Query and Eval IRs. It evaluates a query.Query or eval.Expr directly
// against plain records, independent of any backend driver. memdriver
// uses it as its query engine, and memdriver's tests use Match to check
// that a driver's rows agree with the reference semantics.
package evaluator

import (
	"fmt"
	"strings"

	"github.com/cosmotype/cosmotype/query"
)

// Resolver resolves a (scope, dotted-path) reference to a value, the
// portable-evaluator counterpart of what a driver does by joining
// tables. present reports whether the path existed at all (vs. existing
// with a nil value), which $exists relies on.
type Resolver func(scope, path string) (value any, present bool)

// RowResolver builds a Resolver over a single flat/nested record, ignoring
// scope (the common case: no joins, one row in context).
func RowResolver(row map[string]any) Resolver {
	return func(_ string, path string) (any, bool) {
		return lookupPath(row, path)
	}
}

// JoinResolver builds a Resolver over a joined record keyed by
// participant name. A scoped reference resolves inside that
// participant's row; an unscoped one falls back to dotted-path lookup
// on the whole record, so "u.name" and $(u, name) are equivalent.
func JoinResolver(record map[string]any) Resolver {
	return func(scope, path string) (any, bool) {
		if scope == "" {
			return lookupPath(record, path)
		}
		sub, ok := record[scope].(map[string]any)
		if !ok {
			return nil, false
		}
		return lookupPath(sub, path)
	}
}

// Match reports whether row satisfies q.
// Relation-valued fields in row are expected to already hold their
// materialized children as []map[string]any (how memdriver materializes
// them) or as []any of map[string]any.
func Match(q query.Query, row map[string]any) (bool, error) {
	return match(q, RowResolver(row), row)
}

// MatchWithResolver is Match with an explicit Resolver, for callers that
// need multi-scope (joined) evaluation.
func MatchWithResolver(q query.Query, resolve Resolver, row map[string]any) (bool, error) {
	return match(q, resolve, row)
}

func match(q query.Query, resolve Resolver, row map[string]any) (bool, error) {
	switch {
	case q.Expr != nil:
		v, err := EvalExpr(q.Expr, resolve)
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("evaluator: $expr evaluated to %T, want bool", v)
		}
		return b, nil
	case q.Not != nil:
		m, err := match(*q.Not, resolve, row)
		return !m, err
	case q.And != nil:
		for _, sub := range q.And {
			m, err := match(sub, resolve, row)
			if err != nil {
				return false, err
			}
			if !m {
				return false, nil
			}
		}
		return true, nil
	case q.Or != nil:
		for _, sub := range q.Or {
			m, err := match(sub, resolve, row)
			if err != nil {
				return false, err
			}
			if m {
				return true, nil
			}
		}
		return false, nil
	default:
		for name, clauses := range q.Fields {
			val, present := resolve("", name)
			for _, c := range clauses {
				ok, err := matchClause(c, val, present, resolve)
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
		}
		return true, nil
	}
}

func lookupPath(row map[string]any, path string) (any, bool) {
	cur := any(row)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
