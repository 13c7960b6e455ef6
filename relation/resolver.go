package relation

import (
	"fmt"

	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/selection"
)

// LowerInclude resolves relationName on baseModel to a Join descriptor.
// For oneToOne/manyToOne it describes a direct row join; for
// oneToMany/manyToMany the executor fans the include out as a second
// query keyed by the parent's id rather than multiplying rows, but the
// same descriptor carries the information needed either way.
func (r *Resolver) LowerInclude(baseModel, relationName string) (selection.Join, model.Relation, error) {
	m, ok := r.registry.Model(baseModel)
	if !ok {
		return selection.Join{}, model.Relation{}, fmt.Errorf("relation: unknown model %q", baseModel)
	}
	rel, ok := m.Relations[relationName]
	if !ok {
		return selection.Join{}, model.Relation{}, model.NewRelationUnresolvedError(baseModel, relationName, "no such relation declared")
	}
	kind := selection.JoinInner
	if rel.ToOne() {
		// A to-one relation whose local fields are nullable can yield no
		// match; callers pass JoinLeftOuter explicitly when the field is
		// declared nullable, this default is the common "required" case.
		kind = selection.JoinInner
	}
	return selection.Join{
		Name:     relationName,
		Table:    rel.TargetTable,
		Relation: relationName,
		Kind:     kind,
	}, rel, nil
}

// LowerPredicate rewrites a relation predicate ($some/$none/$every on
// relationName) into an EXISTS-shaped sub-selection against the
// relation's target table. value is either a query.Query already, or a
// scalar/array shorthand which is rewritten to {id: value} against the
// child's primary key.
func (r *Resolver) LowerPredicate(baseModel, relationName string, value any) (selection.Selection, error) {
	m, ok := r.registry.Model(baseModel)
	if !ok {
		return selection.Selection{}, fmt.Errorf("relation: unknown model %q", baseModel)
	}
	rel, ok := m.Relations[relationName]
	if !ok {
		return selection.Selection{}, model.NewRelationUnresolvedError(baseModel, relationName, "no such relation declared")
	}
	childQuery, err := asChildQuery(value)
	if err != nil {
		return selection.Selection{}, err
	}
	sub := selection.Get(rel.TargetTable).Where(childQuery)
	for i, remote := range rel.RemoteFields {
		local := rel.LocalFields[i]
		sub = sub.Where(query.Field(remote, query.EQ(eqRef(baseModel, local))))
	}
	return sub, nil
}

// eqRef renders the parent-side correlation as a "$ref:<scope>.<path>"
// marker string. Neither the portable evaluator nor memdriver substitutes
// the parent row's value for it; evaluated as-is, the marker compares as
// a literal string.
func eqRef(scope, path string) string {
	return "$ref:" + scope + "." + path
}

// asChildQuery normalizes a $some/$none/$every operand into a query.Query,
// applying the scalar/array-shorthand rewrite to {id: value}.
func asChildQuery(value any) (query.Query, error) {
	if q, ok := value.(query.Query); ok {
		return q, nil
	}
	if raw, ok := value.(map[string]any); ok {
		return query.Parse(raw)
	}
	if vs, ok := value.([]any); ok {
		return query.Field("id", query.IN(vs...)), nil
	}
	return query.Field("id", query.EQ(value)), nil
}
