// Package driver is the backend driver contract:
// the interface a storage backend implements to serve selections lowered
// by the relation resolver, plus the schema/stats/transaction operations
// around it. memdriver and sqldriver are concrete implementations.
package driver

import (
	"context"

	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/selection"
)

// Driver is the backend contract. It embeds selection.Executor so any
// Driver can be passed directly to Selection.Execute.
type Driver interface {
	selection.Executor

	// Start opens the backend (connects, verifies reachability).
	Start(ctx context.Context) error
	// Stop releases backend resources.
	Stop(ctx context.Context) error

	// Prepare ensures m's table/columns/indexes exist, running any
	// pending model.Migration against it.
	Prepare(ctx context.Context, m *model.Model) error
	// Drop removes a single table.
	Drop(ctx context.Context, table string) error
	// DropAll removes every table the driver knows about.
	DropAll(ctx context.Context) error

	// Stats reports a point-in-time snapshot of query/exec counters.
	Stats() StatsSnapshot

	// WithTransaction runs fn against a Driver scoped to one transaction;
	// fn's error (or a panic) rolls the transaction back, otherwise it
	// commits. Mutations performed inside fn must not be observable to
	// other callers until commit.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Driver) error) error

	// Types returns the converter registry used to translate field values
	// to and from the backend's native representation.
	Types() *ConverterRegistry
}
