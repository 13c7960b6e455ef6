package memdriver

import (
	"context"
	"time"

	"github.com/cosmotype/cosmotype/evaluator"
	"github.com/cosmotype/cosmotype/selection"
)

// Set applies args to every row s.Query matches, in place, and reports how
// many rows were touched.
func (d *Driver) Set(ctx context.Context, s selection.Selection) (int, error) {
	start := time.Now()
	n, err := d.set(s)
	d.record(false, start, err)
	return n, err
}

func (d *Driver) set(s selection.Selection) (int, error) {
	m, err := d.modelOf(s.Table)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	rows := d.tables[s.Table]
	n := 0
	for i, row := range rows {
		materialized := d.withRelations(m, row)
		ok, err := evaluator.Match(s.Query, materialized)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		for k, v := range s.Args {
			row[k] = m.ResolveValue(k, v)
		}
		rows[i] = row
		n++
	}
	d.tables[s.Table] = rows
	return n, nil
}

// Remove deletes every row s.Query matches and reports how many were
// removed.
func (d *Driver) Remove(ctx context.Context, s selection.Selection) (int, error) {
	start := time.Now()
	n, err := d.remove(s)
	d.record(false, start, err)
	return n, err
}

func (d *Driver) remove(s selection.Selection) (int, error) {
	m, err := d.modelOf(s.Table)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	rows := d.tables[s.Table]
	kept := rows[:0:0]
	n := 0
	for _, row := range rows {
		materialized := d.withRelations(m, row)
		ok, err := evaluator.Match(s.Query, materialized)
		if err != nil {
			return n, err
		}
		if ok {
			n++
			continue
		}
		kept = append(kept, row)
	}
	d.tables[s.Table] = kept
	return n, nil
}

// Create appends a new row with s.Args as its data, returning it as
// stored.
func (d *Driver) Create(ctx context.Context, s selection.Selection) (map[string]any, error) {
	start := time.Now()
	row, err := d.create(s.Table, s.Args)
	d.record(false, start, err)
	return row, err
}

func (d *Driver) create(table string, data map[string]any) (map[string]any, error) {
	m, err := d.modelOf(table)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	row := make(map[string]any, len(data))
	for k, v := range data {
		row[k] = m.ResolveValue(k, v)
	}
	if len(m.PrimaryKey) == 1 {
		key := m.PrimaryKey[0]
		if _, has := row[key]; !has {
			switch f := m.Fields[key]; {
			case m.Autoincrement:
				row[key] = int64(len(d.tables[table]) + 1)
			case f.Generator != nil:
				row[key] = f.Generator()
			}
		}
	}
	d.tables[table] = append(d.tables[table], row)
	return cloneRow(row), nil
}

// Upsert creates s.Args["create"] if no row matches s.Query, otherwise
// applies s.Args["update"] to the first match.
func (d *Driver) Upsert(ctx context.Context, s selection.Selection) (map[string]any, error) {
	start := time.Now()
	row, err := d.upsert(s)
	d.record(false, start, err)
	return row, err
}

func (d *Driver) upsert(s selection.Selection) (map[string]any, error) {
	m, err := d.modelOf(s.Table)
	if err != nil {
		return nil, err
	}
	createData, _ := s.Args["create"].(map[string]any)
	updateData, _ := s.Args["update"].(map[string]any)

	d.mu.Lock()
	rows := d.tables[s.Table]
	var matchIdx = -1
	for i, row := range rows {
		materialized := d.withRelations(m, row)
		ok, err := evaluator.Match(s.Query, materialized)
		if err != nil {
			d.mu.Unlock()
			return nil, err
		}
		if ok {
			matchIdx = i
			break
		}
	}
	d.mu.Unlock()

	if matchIdx < 0 {
		return d.create(s.Table, createData)
	}

	d.mu.Lock()
	row := d.tables[s.Table][matchIdx]
	for k, v := range updateData {
		row[k] = m.ResolveValue(k, v)
	}
	d.tables[s.Table][matchIdx] = row
	out := cloneRow(row)
	d.mu.Unlock()
	return out, nil
}
