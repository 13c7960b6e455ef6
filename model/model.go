// Package model implements the declarative model registry: extend,
// create, format/parse, resolveValue, and
// migration-hook bookkeeping over declared [field.Field] columns.
package model

import (
	"context"

	"github.com/cosmotype/cosmotype/field"
)

// ForeignKey is an outgoing foreign key declared on a Model.
type ForeignKey struct {
	Fields       []string
	TargetTable  string
	TargetFields []string
}

// Migration is a single legacy-field migration callback, registered with
// the fields it introduces.
type Migration struct {
	Name   string
	Fields []string
	// Before decides eligibility given the set of legacy field names
	// still present on the table; nil means "always eligible".
	Before func(legacy map[string]bool) bool
	// Run performs the migration.
	Run func(ctx context.Context) error
	// After records which legacy fields are now safe to drop.
	After func(legacy map[string]bool)
}

// Model is a named collection of fields plus keys, relations, and
// migration hooks.
type Model struct {
	Name string

	Fields map[string]field.Field
	// Order lists field names in the order they were first added. Fields
	// from one Extend call arrive as a map, so their order relative to
	// each other is not defined.
	Order []string

	PrimaryKey    []string
	Autoincrement bool
	Unique        [][]string
	ForeignKeys   []ForeignKey
	Relations     map[string]Relation

	migrations []Migration
	// Finalize runs once per table after all eligible migrations have
	// run.
	Finalize func(ctx context.Context) error
}

// IsPrimaryKey reports whether name is (part of) the model's primary key.
func (m *Model) IsPrimaryKey(name string) bool {
	for _, k := range m.PrimaryKey {
		if k == name {
			return true
		}
	}
	return false
}

// RunMigrations executes every registered migration eligible against the
// given legacy-field set, in registration order, then Finalize once.
// Errors from an individual callback are reported via onError and do not
// advance (or abort) that migration; Finalize errors
// are returned to the caller.
func (m *Model) RunMigrations(ctx context.Context, legacy map[string]bool, onError func(Migration, error)) error {
	for _, mg := range m.migrations {
		if mg.Before != nil && !mg.Before(legacy) {
			continue
		}
		if mg.Run == nil {
			continue
		}
		if err := mg.Run(ctx); err != nil {
			if onError != nil {
				onError(mg, err)
			}
			continue
		}
		if mg.After != nil {
			mg.After(legacy)
		}
	}
	if m.Finalize != nil {
		return m.Finalize(ctx)
	}
	return nil
}

// Migrations returns the registered migration hooks, in registration order.
func (m *Model) Migrations() []Migration { return m.migrations }
