package memdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/evaluator"
	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/selection"
)

func (d *Driver) modelOf(table string) (*model.Model, error) {
	m, ok := d.registry.Model(table)
	if !ok {
		return nil, fmt.Errorf("memdriver: unknown model %q", table)
	}
	return m, nil
}

func (d *Driver) matchAll(s selection.Selection) ([]map[string]any, error) {
	m, err := d.modelOf(s.Table)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := make([]map[string]any, 0, len(d.tables[s.Table]))
	for _, row := range d.tables[s.Table] {
		materialized := d.withRelations(m, row)
		ok, err := evaluator.Match(s.Query, materialized)
		if err != nil {
			return nil, err
		}
		if ok {
			for _, inc := range s.Includes {
				d.deepenLocked(m, materialized, inc)
			}
			matched = append(matched, materialized)
		}
	}
	return matched, nil
}

// Get returns every row matching s.Query, sorted/limited/offset/projected
// per s, with relations materialized so relation predicates and joined
// projections resolve.
func (d *Driver) Get(ctx context.Context, s selection.Selection) ([]map[string]any, error) {
	start := time.Now()
	rows, err := d.get(s)
	d.record(true, start, err)
	return rows, err
}

func (d *Driver) get(s selection.Selection) ([]map[string]any, error) {
	if len(s.Joins) > 0 {
		return d.getJoined(s)
	}
	matched, err := d.matchAll(s)
	if err != nil {
		return nil, err
	}
	if err := sortRows(matched, s.Sorts); err != nil {
		return nil, err
	}
	matched = page(matched, s.OffsetN, s.LimitN)
	projection, err := d.resolveExecProjection(s.Projection)
	if err != nil {
		return nil, err
	}
	return project(matched, projection)
}

// Eval is Get followed by projection/grouping with aggregate support: a
// GroupBy buckets rows by the named paths and evaluates each projection
// term once per bucket (a bare path in GroupBy resolves to the group's
// key value, any other path resolves to the array of that path's values
// across the bucket's rows, which is what the aggregate builders in
// package eval expect). With no GroupBy, an
// all-aggregate projection is evaluated once over the whole matched set
// (aggregates "outside grouping... span all rows of the selection");
// any other projection is evaluated per row.
func (d *Driver) Eval(ctx context.Context, s selection.Selection) ([]map[string]any, error) {
	start := time.Now()
	rows, err := d.evalSelection(s)
	d.record(true, start, err)
	return rows, err
}

func (d *Driver) evalSelection(s selection.Selection) ([]map[string]any, error) {
	if len(s.Joins) > 0 {
		return d.getJoined(s)
	}
	matched, err := d.matchAll(s)
	if err != nil {
		return nil, err
	}
	if err := sortRows(matched, s.Sorts); err != nil {
		return nil, err
	}
	matched = page(matched, s.OffsetN, s.LimitN)

	if len(s.Projection) == 0 {
		return matched, nil
	}
	projection, err := d.resolveExecProjection(s.Projection)
	if err != nil {
		return nil, err
	}

	if len(s.GroupBy) > 0 {
		return evalGrouped(matched, s.GroupBy, projection, s.HavingExpr)
	}
	if allAggregates(projection) {
		row, err := evalGroup(matched, nil, projection)
		if err != nil {
			return nil, err
		}
		return []map[string]any{row}, nil
	}
	out := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		projected, err := projectOne(row, projection)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func allAggregates(projection map[string]any) bool {
	for _, term := range projection {
		e, ok := term.(eval.Expr)
		if !ok || !isAggregateOp(e.Op) {
			return false
		}
	}
	return true
}

func isAggregateOp(op eval.Op) bool {
	switch op {
	case eval.OpSum, eval.OpAvg, eval.OpMin, eval.OpMax, eval.OpCount, eval.OpLength:
		return true
	default:
		return false
	}
}

func evalGrouped(rows []map[string]any, groupBy []string, projection map[string]any, having *query.Query) ([]map[string]any, error) {
	buckets, order := bucketRows(rows, groupBy)
	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		group := buckets[key]
		projected, err := evalGroup(group, groupBy, projection)
		if err != nil {
			return nil, err
		}
		if having != nil {
			ok, err := evaluator.Match(*having, projected)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, projected)
	}
	return out, nil
}
