package memdriver

import (
	"fmt"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/selection"
)

// resolveExecProjection returns projection with every $exec node replaced
// by the literal result of running its subselection, so the portable
// evaluator (which has no executor) never sees one. Subselections here
// are uncorrelated: correlated relation predicates go through
// $some/$none/$every instead.
func (d *Driver) resolveExecProjection(projection map[string]any) (map[string]any, error) {
	if len(projection) == 0 {
		return projection, nil
	}
	out := make(map[string]any, len(projection))
	for key, term := range projection {
		resolved, err := d.resolveExecTerm(term)
		if err != nil {
			return nil, fmt.Errorf("memdriver: subquery for %q: %w", key, err)
		}
		out[key] = resolved
	}
	return out, nil
}

func (d *Driver) resolveExecTerm(term any) (any, error) {
	e, ok := term.(eval.Expr)
	if !ok {
		return term, nil
	}
	if e.Op == eval.OpExec {
		sub, err := asSelection(e.Sub)
		if err != nil {
			return nil, err
		}
		rows, err := d.evalSelection(sub)
		if err != nil {
			return nil, err
		}
		return eval.Expr{Op: eval.OpLiteral, Args: []any{execResult(rows, e.Type)}, Type: e.Type}, nil
	}
	if len(e.Args) == 0 {
		return e, nil
	}
	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		resolved, err := d.resolveExecTerm(a)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}
	e.Args = args
	return e, nil
}

func asSelection(sub any) (selection.Selection, error) {
	switch s := sub.(type) {
	case selection.Selection:
		return s, nil
	case *selection.Selection:
		if s != nil {
			return *s, nil
		}
	}
	return selection.Selection{}, fmt.Errorf("$exec wraps %T, want a selection", sub)
}

// execResult reduces a subselection's rows to the scalar/array value the
// wrapping expression expects. Empty sets produce the aggregate default:
// 0 for numeric results, [] for list results, nil otherwise.
func execResult(rows []map[string]any, t field.Type) any {
	if len(rows) == 0 {
		switch {
		case t.Kind == field.KindList:
			return []any{}
		case t.Kind.Numeric():
			return 0.0
		default:
			return nil
		}
	}
	if t.Kind == field.KindList {
		out := make([]any, 0, len(rows))
		for _, row := range rows {
			out = append(out, singleColumn(row))
		}
		return out
	}
	return singleColumn(rows[0])
}

// singleColumn unwraps a one-column row to its value; wider rows come
// back whole.
func singleColumn(row map[string]any) any {
	if len(row) == 1 {
		for _, v := range row {
			return v
		}
	}
	return map[string]any(row)
}
