// Package memdriver is the in-memory reference implementation of
// driver.Driver. It stores each model's
// rows as plain maps and answers selections with the portable evaluator,
// so its results are definitionally the semantics every other driver is
// judged against.
package memdriver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cosmotype/cosmotype/driver"
	"github.com/cosmotype/cosmotype/model"
)

// Driver is an in-memory driver.Driver scoped to one model.Registry.
type Driver struct {
	registry *model.Registry

	mu     sync.RWMutex
	tables map[string][]map[string]any

	stats  driver.QueryStats
	types  *driver.ConverterRegistry
	logger *slog.Logger
}

// New builds a Driver over reg. Tables are created lazily on first Prepare
// or write, so callers don't have to Prepare before using a fresh Driver
// in a test.
func New(reg *model.Registry) *Driver {
	return &Driver{
		registry: reg,
		tables:   map[string][]map[string]any{},
		types:    driver.NewConverterRegistry(),
	}
}

// WithLogger routes migration-callback failures and driver warnings to l
// instead of slog's default logger.
func (d *Driver) WithLogger(l *slog.Logger) *Driver {
	d.logger = l
	return d
}

func (d *Driver) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}

func (d *Driver) Start(ctx context.Context) error { return nil }
func (d *Driver) Stop(ctx context.Context) error  { return nil }

func (d *Driver) Stats() driver.StatsSnapshot     { return d.stats.Snapshot() }
func (d *Driver) Types() *driver.ConverterRegistry { return d.types }

// Prepare ensures m's table exists, then runs any registered migration
// callbacks against it. The legacy-field set handed to each callback's
// eligibility check is the set of declared legacy names still present on
// stored rows. A failing callback is logged and skipped; the others
// still run.
func (d *Driver) Prepare(ctx context.Context, m *model.Model) error {
	d.mu.Lock()
	if _, ok := d.tables[m.Name]; !ok {
		d.tables[m.Name] = nil
	}
	legacy := d.legacyFieldsLocked(m)
	d.mu.Unlock()

	if len(m.Migrations()) == 0 && m.Finalize == nil {
		return nil
	}
	return m.RunMigrations(ctx, legacy, func(mg model.Migration, err error) {
		d.log().Error("migration callback failed",
			"table", m.Name, "migration", mg.Name, "error", err)
	})
}

// legacyFieldsLocked reports which declared legacy field names still
// appear on stored rows. Caller must hold d.mu.
func (d *Driver) legacyFieldsLocked(m *model.Model) map[string]bool {
	legacy := map[string]bool{}
	for _, f := range m.Fields {
		for _, old := range f.LegacyNames {
			for _, row := range d.tables[m.Name] {
				if _, has := row[old]; has {
					legacy[old] = true
					break
				}
			}
		}
	}
	return legacy
}

func (d *Driver) Drop(ctx context.Context, table string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tables, table)
	return nil
}

func (d *Driver) DropAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables = map[string][]map[string]any{}
	return nil
}

// WithTransaction copies every table before fn runs and restores that
// copy if fn errors or panics, so rolled-back mutations are not
// observable afterwards. fn runs against this same Driver, so its writes
// are visible to other callers while fn is running.
func (d *Driver) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx driver.Driver) error) (err error) {
	d.mu.Lock()
	snapshot := d.cloneTablesLocked()
	d.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			d.mu.Lock()
			d.tables = snapshot
			d.mu.Unlock()
			panic(p)
		}
	}()

	if err = fn(ctx, d); err != nil {
		d.mu.Lock()
		d.tables = snapshot
		d.mu.Unlock()
		return err
	}
	return nil
}

func (d *Driver) cloneTablesLocked() map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(d.tables))
	for table, rows := range d.tables {
		cp := make([]map[string]any, len(rows))
		for i, row := range rows {
			cp[i] = cloneRow(row)
		}
		out[table] = cp
	}
	return out
}

func cloneRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func (d *Driver) record(isQuery bool, start time.Time, err error) {
	d.stats.Record(isQuery, time.Since(start), 0, err)
}

var _ driver.Driver = (*Driver)(nil)
