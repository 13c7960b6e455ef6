package memdriver

import (
	"strings"

	"github.com/cosmotype/cosmotype/model"
)

// withRelations returns a shallow copy of row with every relation declared
// on modelName attached: a to-one relation as a single map (nil if
// unmatched), a to-many relation as a []map[string]any. It materializes
// every declared relation rather than only the ones a particular query
// references, trading some wasted work for a driver simple enough to
// trust as the reference semantics.
func (d *Driver) withRelations(m *model.Model, row map[string]any) map[string]any {
	if len(m.Relations) == 0 {
		return row
	}
	out := cloneRow(row)
	for name, rel := range m.Relations {
		if rel.Kind == model.ManyToMany {
			out[name] = d.manyToManyLocked(m.Name, rel, row)
			continue
		}
		matches := d.directMatchesLocked(rel, row)
		if rel.ToOne() {
			if len(matches) > 0 {
				out[name] = matches[0]
			} else {
				out[name] = nil
			}
			continue
		}
		out[name] = matches
	}
	return out
}

// directMatchesLocked finds target rows for a oneToOne/manyToOne/
// oneToMany relation: in every case the match rule is
// target[RemoteFields[i]] == row[LocalFields[i]] for all i (the only
// difference between the three kinds is which side owns the foreign key,
// already fixed by the relation's LocalFields/RemoteFields). Caller
// must hold d.mu (read or write).
func (d *Driver) directMatchesLocked(rel model.Relation, row map[string]any) []map[string]any {
	target := d.tables[rel.TargetTable]
	var out []map[string]any
	for _, t := range target {
		if relationKeysEqual(rel, row, t) {
			out = append(out, t)
		}
	}
	return out
}

func relationKeysEqual(rel model.Relation, row, target map[string]any) bool {
	for i, remote := range rel.RemoteFields {
		local := rel.LocalFields[i]
		if !equalKey(row[local], target[remote]) {
			return false
		}
	}
	return true
}

// manyToManyLocked resolves a manyToMany relation through its link table
// (rel.Through, or the deterministic implicit name from
// model.LinkTableName). Link rows carry baseModel+"Id" and
// rel.TargetTable+"Id" columns, matching how EnsureLinkTable names them.
func (d *Driver) manyToManyLocked(baseModel string, rel model.Relation, row map[string]any) []map[string]any {
	linkTable := rel.Through
	if linkTable == "" {
		linkTable = model.LinkTableName(baseModel, rel.TargetTable)
	}
	localCol := baseModel + "Id"
	remoteCol := rel.TargetTable + "Id"
	localKey := rel.LocalFields[0]
	remoteKey := rel.RemoteFields[0]

	target := d.tables[rel.TargetTable]
	var out []map[string]any
	for _, link := range d.tables[linkTable] {
		if !equalKey(link[localCol], row[localKey]) {
			continue
		}
		for _, t := range target {
			if equalKey(link[remoteCol], t[remoteKey]) {
				out = append(out, t)
			}
		}
	}
	return out
}

// deepenLocked materializes one more relation level along an include
// path: withRelations already attached every first-level relation, so
// only the descent below the path's head needs work. Caller must hold
// d.mu (read or write).
func (d *Driver) deepenLocked(m *model.Model, row map[string]any, path string) {
	head, rest, _ := strings.Cut(path, ".")
	rel, declared := m.Relations[head]
	if !declared {
		return
	}
	child, ok := d.registry.Model(rel.TargetTable)
	if !ok {
		return
	}
	deepenOne := func(c map[string]any) map[string]any {
		nested := d.withRelations(child, c)
		if rest != "" {
			d.deepenLocked(child, nested, rest)
		}
		return nested
	}
	switch v := row[head].(type) {
	case map[string]any:
		row[head] = deepenOne(v)
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, c := range v {
			out[i] = deepenOne(c)
		}
		row[head] = out
	}
}

func equalKey(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
