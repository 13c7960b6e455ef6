// Package relation is the relation resolver: it
// derives implicit many-to-many association tables, lowers includes and
// relation predicates into the selection algebra, and decomposes relation
// writes into the mandated cascade order.
package relation

import (
	"fmt"

	"github.com/cosmotype/cosmotype/model"
)

// Resolver resolves relations declared on reg's models.
type Resolver struct {
	registry *model.Registry
}

// NewResolver builds a Resolver over reg.
func NewResolver(reg *model.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// EnsureLinkTable registers, if not already present, the implicit
// association table for a many-to-many relation between left and right,
// named deterministically via model.LinkTableName, and returns its name.
func (r *Resolver) EnsureLinkTable(left, right string) (string, error) {
	if _, ok := r.registry.Model(left); !ok {
		return "", fmt.Errorf("relation: unknown model %q", left)
	}
	if _, ok := r.registry.Model(right); !ok {
		return "", fmt.Errorf("relation: unknown model %q", right)
	}
	name := model.LinkTableName(left, right)
	if _, exists := r.registry.Model(name); exists {
		return name, nil
	}
	leftCol := left + "Id"
	rightCol := right + "Id"
	_, err := r.registry.Extend(name, map[string]any{
		leftCol:  "string",
		rightCol: "string",
	}, model.Config{
		PrimaryKey: []string{leftCol, rightCol},
		ForeignKeys: []model.ForeignKey{
			{Fields: []string{leftCol}, TargetTable: left, TargetFields: []string{"id"}},
			{Fields: []string{rightCol}, TargetTable: right, TargetFields: []string{"id"}},
		},
	})
	if err != nil {
		return "", err
	}
	return name, nil
}
