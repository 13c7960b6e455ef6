// Package selection implements the selection algebra:
// an immutable, fluent description of a read or write against one table,
// composed with filters, sorts, projections, grouping, and joins, and
// finally executed against a driver.
package selection

import (
	"context"
	"fmt"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/query"
)

// Kind discriminates what a Selection does when executed.
type Kind string

const (
	KindGet    Kind = "get"
	KindEval   Kind = "eval"
	KindSet    Kind = "set"
	KindRemove Kind = "remove"
	KindUpsert Kind = "upsert"
	KindCreate Kind = "create"
)

// Sort is one ORDER BY term: a column Path, or an arbitrary eval Term
// computed per row before sorting and discarded after (it never appears
// in the projected output).
type Sort struct {
	Path string
	Term any
	Desc bool
}

// JoinKind is the strictness of a join.
type JoinKind string

const (
	JoinInner     JoinKind = "inner"
	JoinLeftOuter JoinKind = "leftOuter"
)

// Join names a joined participant, so later Project/OrderBy/Where calls can reference its
// columns by Name. Relation, when set, is the base model's relation field
// this join was derived from (populated by the relation resolver during
// include-lowering); Table/On are set directly for a manual join.
type Join struct {
	Name     string
	Table    string
	Relation string
	Kind     JoinKind
	On       query.Query
}

// Selection is an immutable node of the selection algebra. Every builder
// method returns a new value; the zero Selection is invalid (call Get or
// Create first).
type Selection struct {
	Kind  Kind
	Table string
	Model string

	Query   query.Query
	Sorts   []Sort
	LimitN  *int
	OffsetN *int

	// Projection maps an output key to an eval term (eval.Expr or a bare
	// column path string); nil means "project every declared field".
	// After GroupBy, every entry must be a group key or an aggregate
	// (checked by Validate).
	Projection map[string]any
	GroupBy    []string
	HavingExpr *query.Query

	Joins []Join

	// Args is the write payload for Set/Upsert/Create: flattened
	// dotted-path keys to literal values or eval terms.
	Args map[string]any

	// Ref names this selection so $ref can reach it from an outer scope.
	Ref string

	// Includes lists relation paths (dotted for nested levels, e.g.
	// "posts.tags") the caller wants materialized on each result row.
	Includes []string
}

// Get starts a read selection over table.
func Get(table string) Selection { return Selection{Kind: KindGet, Table: table} }

// Create starts a create selection that inserts data into table.
func Create(table string, data map[string]any) Selection {
	return Selection{Kind: KindCreate, Table: table, Args: data}
}

func (s Selection) clone() Selection {
	out := s
	out.Sorts = append([]Sort(nil), s.Sorts...)
	out.GroupBy = append([]string(nil), s.GroupBy...)
	out.Joins = append([]Join(nil), s.Joins...)
	out.Includes = append([]string(nil), s.Includes...)
	return out
}

// Where intersects q with any existing filter.
func (s Selection) Where(q query.Query) Selection {
	out := s.clone()
	out.Query = mergeQuery(s.Query, q)
	return out
}

func mergeQuery(existing, add query.Query) query.Query {
	if existing.IsEmpty() {
		return add
	}
	if add.IsEmpty() {
		return existing
	}
	return query.And(existing, add)
}

// OrderBy appends a sort on a column path.
func (s Selection) OrderBy(path string, desc bool) Selection {
	out := s.clone()
	out.Sorts = append(out.Sorts, Sort{Path: path, Desc: desc})
	return out
}

// OrderByTerm appends a sort on a computed expression.
func (s Selection) OrderByTerm(term any, desc bool) Selection {
	out := s.clone()
	out.Sorts = append(out.Sorts, Sort{Term: term, Desc: desc})
	return out
}

// Limit caps the result count. A transient sort key introduced solely to
// make a Limit/Offset page deterministic should not also appear in the
// projected output — that trimming is the executor's responsibility, not
// the algebra's.
func (s Selection) Limit(n int) Selection {
	out := s.clone()
	out.LimitN = &n
	return out
}

// Offset skips the first n matching rows.
func (s Selection) Offset(n int) Selection {
	out := s.clone()
	out.OffsetN = &n
	return out
}

// Project restricts/renames the output columns. Only valid before
// GroupBy, or after GroupBy when every key is either a group key or an
// aggregate expression (enforced by Validate).
func (s Selection) Project(fields map[string]any) Selection {
	out := s.clone()
	out.Projection = fields
	return out
}

// GroupByPaths groups rows by the given dotted paths; after grouping,
// Project is restricted to group keys and aggregates.
func (s Selection) GroupByPaths(paths ...string) Selection {
	out := s.clone()
	out.GroupBy = append([]string(nil), paths...)
	return out
}

// Having filters groups (post-aggregation), only meaningful after GroupBy.
func (s Selection) Having(q query.Query) Selection {
	out := s.clone()
	merged := q
	if s.HavingExpr != nil {
		merged = query.And(*s.HavingExpr, q)
	}
	out.HavingExpr = &merged
	return out
}

// Join adds a named joined participant. optional[n] relations should be
// joined JoinLeftOuter so a missing child doesn't drop the parent row.
func (s Selection) Join(j Join) Selection {
	out := s.clone()
	out.Joins = append(out.Joins, j)
	return out
}

// As names this selection so $ref can address it from an outer scope.
func (s Selection) As(name string) Selection {
	out := s.clone()
	out.Ref = name
	return out
}

// Include asks the executor to materialize the named relations on each
// result row. A dotted path descends into nested relations: "posts.tags"
// loads every row's posts and, on each post, its tags.
func (s Selection) Include(paths ...string) Selection {
	out := s.clone()
	out.Includes = append(out.Includes, paths...)
	return out
}

// Evaluate turns s into an eval terminal computing term once per result
// row — or once per group after GroupBy, or once over the whole matched
// set when term is a pure aggregate. The computed value comes back under
// the "value" key of each result row.
func (s Selection) Evaluate(term any) Selection {
	out := s.clone()
	out.Kind = KindEval
	out.Projection = map[string]any{"value": term}
	return out
}

// Set turns s into an update: for every row s currently selects, apply
// args. Composing further is restricted to Where/OrderBy/Limit/Offset
// — enforced by Validate.
func (s Selection) Set(args map[string]any) Selection {
	out := s.clone()
	out.Kind = KindSet
	out.Args = args
	return out
}

// Remove turns s into a delete of every row it currently selects.
func (s Selection) Remove() Selection {
	out := s.clone()
	out.Kind = KindRemove
	return out
}

// Upsert turns s into an upsert: create with createData if nothing
// matches, else apply updateData to what does.
func (s Selection) Upsert(createData, updateData map[string]any) Selection {
	out := s.clone()
	out.Kind = KindUpsert
	out.Args = map[string]any{"create": createData, "update": updateData}
	return out
}

// Validate checks the structural composition rules that Execute relies
// on, independent of any particular driver.
func (s Selection) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("selection: table name is required")
	}
	if s.Kind != KindGet && s.Kind != KindEval {
		if len(s.Projection) > 0 || len(s.GroupBy) > 0 || len(s.Joins) > 0 || s.HavingExpr != nil {
			return fmt.Errorf("selection: %s selections may only compose with where/orderBy/limit/offset", s.Kind)
		}
	}
	if len(s.GroupBy) == 0 && s.HavingExpr != nil {
		return fmt.Errorf("selection: having requires groupBy")
	}
	if len(s.GroupBy) > 0 {
		for name, term := range s.Projection {
			if !groupProjectable(term, s.GroupBy) {
				return fmt.Errorf("selection: projection %q must be a group key or an aggregate after groupBy", name)
			}
		}
	}
	for _, j := range s.Joins {
		if j.Name == "" {
			return fmt.Errorf("selection: joins must name their participant")
		}
	}
	return nil
}

// groupProjectable reports whether term may appear in a post-groupBy
// projection: a group key (bare path or reference), an aggregate, or a
// constant.
func groupProjectable(term any, groupBy []string) bool {
	switch v := term.(type) {
	case string:
		return containsString(groupBy, v)
	case eval.Expr:
		switch {
		case eval.IsAggregate(v.Op):
			return true
		case v.Op == eval.OpRef:
			return containsString(groupBy, v.Ref.Path)
		case v.Op == eval.OpLiteral:
			return true
		default:
			return false
		}
	default:
		return true
	}
}

func containsString(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

// Executor is implemented by a driver (or anything backed by one) and
// performs what a Selection describes. Selection depends on Executor, not
// the reverse, so package driver can depend on package selection without
// a cycle.
type Executor interface {
	Get(ctx context.Context, s Selection) ([]map[string]any, error)
	Eval(ctx context.Context, s Selection) ([]map[string]any, error)
	Set(ctx context.Context, s Selection) (int, error)
	Remove(ctx context.Context, s Selection) (int, error)
	Upsert(ctx context.Context, s Selection) (map[string]any, error)
	Create(ctx context.Context, s Selection) (map[string]any, error)
}

// Result is what executing a Selection produces: Rows for get/eval/
// upsert/create, Count for set/remove.
type Result struct {
	Rows  []map[string]any
	Count int
}

// Execute dispatches s to the Executor method matching its Kind.
func (s Selection) Execute(ctx context.Context, ex Executor) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	switch s.Kind {
	case KindGet:
		rows, err := ex.Get(ctx, s)
		return Result{Rows: rows}, err
	case KindEval:
		rows, err := ex.Eval(ctx, s)
		return Result{Rows: rows}, err
	case KindSet:
		n, err := ex.Set(ctx, s)
		return Result{Count: n}, err
	case KindRemove:
		n, err := ex.Remove(ctx, s)
		return Result{Count: n}, err
	case KindUpsert:
		row, err := ex.Upsert(ctx, s)
		return Result{Rows: wrapRow(row)}, err
	case KindCreate:
		row, err := ex.Create(ctx, s)
		return Result{Rows: wrapRow(row)}, err
	default:
		return Result{}, fmt.Errorf("selection: unknown kind %q", s.Kind)
	}
}

func wrapRow(row map[string]any) []map[string]any {
	if row == nil {
		return nil
	}
	return []map[string]any{row}
}
