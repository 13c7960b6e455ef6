package memdriver

import (
	"fmt"

	"github.com/cosmotype/cosmotype/evaluator"
	"github.com/cosmotype/cosmotype/selection"
)

// getJoined answers a selection carrying named joins: each result row is
// a record keyed by participant name (the base table's ref, then each
// join's Name). Inner joins drop unmatched base records; a JoinLeftOuter
// participant contributes nil instead. The selection's own Query, sorts,
// paging, and projection apply to the combined record, with dotted paths
// reaching into participants ("u.name").
func (d *Driver) getJoined(s selection.Selection) ([]map[string]any, error) {
	m, err := d.modelOf(s.Table)
	if err != nil {
		return nil, err
	}
	baseName := s.Ref
	if baseName == "" {
		baseName = s.Table
	}

	d.mu.RLock()
	combined := make([]map[string]any, 0, len(d.tables[s.Table]))
	for _, row := range d.tables[s.Table] {
		combined = append(combined, map[string]any{baseName: d.withRelations(m, row)})
	}

	for _, j := range s.Joins {
		jm, err := d.modelOf(j.Table)
		if err != nil {
			d.mu.RUnlock()
			return nil, err
		}
		if j.Name == "" {
			d.mu.RUnlock()
			return nil, fmt.Errorf("memdriver: join against %q has no participant name", j.Table)
		}
		var next []map[string]any
		for _, rec := range combined {
			matched := false
			for _, cand := range d.tables[j.Table] {
				joined := cloneRow(rec)
				joined[j.Name] = d.withRelations(jm, cand)
				ok, err := evaluator.MatchWithResolver(j.On, evaluator.JoinResolver(joined), joined)
				if err != nil {
					d.mu.RUnlock()
					return nil, err
				}
				if ok {
					next = append(next, joined)
					matched = true
				}
			}
			if !matched && j.Kind == selection.JoinLeftOuter {
				joined := cloneRow(rec)
				joined[j.Name] = nil
				next = append(next, joined)
			}
		}
		combined = next
	}
	d.mu.RUnlock()

	var out []map[string]any
	for _, rec := range combined {
		ok, err := evaluator.MatchWithResolver(s.Query, evaluator.JoinResolver(rec), rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	if err := sortRows(out, s.Sorts); err != nil {
		return nil, err
	}
	out = page(out, s.OffsetN, s.LimitN)
	if len(s.Projection) == 0 {
		return out, nil
	}
	projection, err := d.resolveExecProjection(s.Projection)
	if err != nil {
		return nil, err
	}
	projected := make([]map[string]any, 0, len(out))
	for _, rec := range out {
		p, err := projectWith(evaluator.JoinResolver(rec), projection)
		if err != nil {
			return nil, err
		}
		projected = append(projected, p)
	}
	return projected, nil
}
