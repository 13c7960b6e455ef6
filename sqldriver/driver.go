package sqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cosmotype/cosmotype/driver"
	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/selection"
)

// SQLDriver is a driver.Driver backed by database/sql, targeting Postgres
// (lib/pq) or MySQL (go-sql-driver/mysql).
type SQLDriver struct {
	dialect Dialect
	db      *sql.DB
	conn    ExecQuerier // *sql.DB or *sql.Tx, set by WithTransaction

	models map[string]*model.Model
	types  *driver.ConverterRegistry

	stats         driver.QueryStats
	slowThreshold time.Duration

	mu sync.RWMutex
}

// Open connects to driverName/dsn (e.g. "postgres", a Postgres DSN) and
// wraps it as a SQLDriver.
func Open(dialect Dialect, driverName, dsn string) (*SQLDriver, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: open: %w", err)
	}
	return New(dialect, db), nil
}

// New wraps an already-open *sql.DB.
func New(dialect Dialect, db *sql.DB) *SQLDriver {
	return &SQLDriver{
		dialect:       dialect,
		db:            db,
		conn:          db,
		models:        map[string]*model.Model{},
		types:         driver.NewConverterRegistry(),
		slowThreshold: 100 * time.Millisecond,
	}
}

func (d *SQLDriver) Start(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *SQLDriver) Stop(ctx context.Context) error  { return d.db.Close() }

func (d *SQLDriver) Stats() driver.StatsSnapshot { return d.stats.Snapshot() }
func (d *SQLDriver) Types() *driver.ConverterRegistry { return d.types }

func (d *SQLDriver) record(ctx context.Context, isQuery bool, start time.Time, err error) {
	d.stats.Record(isQuery, time.Since(start), d.slowThreshold, err)
}

// Prepare ensures m's table exists with one column per declared field.
// It emits a minimal CREATE TABLE IF NOT EXISTS and does not attempt
// dialect-specific column-type emission beyond a generic fallback — full
// migration/DDL generation is a collaborator concern.
func (d *SQLDriver) Prepare(ctx context.Context, m *model.Model) error {
	d.mu.Lock()
	d.models[m.Name] = m
	d.mu.Unlock()

	cols := make([]string, 0, len(m.Order))
	for _, name := range m.Order {
		f := m.Fields[name]
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(d.dialect, name), sqlColumnType(d.dialect, f.Type)))
	}
	if len(m.PrimaryKey) > 0 {
		pk := make([]string, len(m.PrimaryKey))
		for i, p := range m.PrimaryKey {
			pk[i] = quoteIdent(d.dialect, p)
		}
		cols = append(cols, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(d.dialect, m.Name), strings.Join(cols, ", "))
	start := time.Now()
	_, err := d.conn.ExecContext(ctx, stmt)
	d.record(ctx, false, start, err)
	if err != nil {
		return driver.ClassifyConstraintError(err)
	}
	return nil
}

// sqlColumnType maps a declared field.Kind to a dialect column type. It
// covers the common case; anything it doesn't recognize falls back to the
// dialect's text type, which every backend accepts without truncation.
func sqlColumnType(d Dialect, k field.Kind) string {
	switch k {
	case field.KindInteger, field.KindPrimary:
		if d == Postgres {
			return "BIGINT"
		}
		return "BIGINT"
	case field.KindUnsigned:
		if d == MySQL {
			return "BIGINT UNSIGNED"
		}
		return "BIGINT"
	case field.KindFloat:
		return "REAL"
	case field.KindDouble:
		return "DOUBLE PRECISION"
	case field.KindDecimal:
		return "NUMERIC"
	case field.KindBoolean:
		return "BOOLEAN"
	case field.KindTimestamp:
		return "TIMESTAMP"
	case field.KindDate:
		return "DATE"
	case field.KindTime:
		return "TIME"
	case field.KindBinary:
		if d == Postgres {
			return "BYTEA"
		}
		return "BLOB"
	case field.KindChar:
		return "CHAR"
	default:
		return "TEXT"
	}
}

// Drop removes a single table.
func (d *SQLDriver) Drop(ctx context.Context, table string) error {
	start := time.Now()
	_, err := d.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(d.dialect, table)))
	d.record(ctx, false, start, err)
	return err
}

// DropAll drops every table Prepare has been called for.
func (d *SQLDriver) DropAll(ctx context.Context) error {
	d.mu.RLock()
	names := make([]string, 0, len(d.models))
	for n := range d.models {
		names = append(names, n)
	}
	d.mu.RUnlock()
	for _, n := range names {
		if err := d.Drop(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// WithTransaction runs fn against a SQLDriver bound to one *sql.Tx.
func (d *SQLDriver) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx driver.Driver) error) (err error) {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldriver: begin: %w", err)
	}
	txDriver := &SQLDriver{
		dialect: d.dialect, db: d.db, conn: sqlTx,
		models: d.models, types: d.types, slowThreshold: d.slowThreshold,
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()
	if err = fn(ctx, txDriver); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqldriver: rollback after %v: %s: %w", err, rbErr, driver.ErrTransactionAborted)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqldriver: commit: %v: %w", err, driver.ErrTransactionAborted)
	}
	return nil
}

// eqFilters extracts the top-level equality clauses from a Selection's
// query for the simple WHERE clause this package emits; anything beyond
// flat equality (logical combinators, relation predicates, the eval IR)
// is out of scope here and is rejected rather than silently ignored.
func eqFilters(q query.Query) (map[string]any, error) {
	out := map[string]any{}
	if q.IsEmpty() {
		return out, nil
	}
	if q.Fields == nil {
		return nil, fmt.Errorf("sqldriver: only flat field-equality filters are supported: %w", driver.ErrExpressionUnlowerable)
	}
	for name, clauses := range q.Fields {
		for _, c := range clauses {
			if c.Op != query.OpEq {
				return nil, fmt.Errorf("sqldriver: only $eq filters are supported, got %q: %w", c.Op, driver.ErrExpressionUnlowerable)
			}
			out[name] = c.Value
		}
	}
	return out, nil
}

func buildWhere(d Dialect, filters map[string]any, startAt int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	i := startAt
	for col, val := range filters {
		parts = append(parts, fmt.Sprintf("%s = %s", quoteIdent(d, col), placeholder(d, i)))
		args = append(args, val)
		i++
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func (d *SQLDriver) Get(ctx context.Context, s selection.Selection) ([]map[string]any, error) {
	if len(s.Joins) > 0 || len(s.GroupBy) > 0 {
		return nil, fmt.Errorf("sqldriver: joins and grouping are not lowered by this driver: %w", driver.ErrExpressionUnlowerable)
	}
	filters, err := eqFilters(s.Query)
	if err != nil {
		return nil, err
	}
	where, args := buildWhere(d.dialect, filters, 1)
	stmt := fmt.Sprintf("SELECT * FROM %s%s", quoteIdent(d.dialect, s.Table), where)
	start := time.Now()
	rows, err := d.conn.QueryContext(ctx, stmt, args...)
	d.record(ctx, true, start, err)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

// Eval is identical to Get for this thin driver: the projection/
// aggregation the eval IR describes is not lowered to SQL here.
func (d *SQLDriver) Eval(ctx context.Context, s selection.Selection) ([]map[string]any, error) {
	return d.Get(ctx, s)
}

func (d *SQLDriver) Set(ctx context.Context, s selection.Selection) (int, error) {
	filters, err := eqFilters(s.Query)
	if err != nil {
		return 0, err
	}
	if len(s.Args) == 0 {
		return 0, nil
	}
	sets := make([]string, 0, len(s.Args))
	args := make([]any, 0, len(s.Args)+len(filters))
	i := 1
	for col, val := range s.Args {
		sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(d.dialect, col), placeholder(d.dialect, i)))
		args = append(args, val)
		i++
	}
	where, whereArgs := buildWhere(d.dialect, filters, i)
	args = append(args, whereArgs...)
	stmt := fmt.Sprintf("UPDATE %s SET %s%s", quoteIdent(d.dialect, s.Table), strings.Join(sets, ", "), where)
	start := time.Now()
	res, err := d.conn.ExecContext(ctx, stmt, args...)
	d.record(ctx, false, start, err)
	if err != nil {
		return 0, driver.ClassifyConstraintError(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (d *SQLDriver) Remove(ctx context.Context, s selection.Selection) (int, error) {
	filters, err := eqFilters(s.Query)
	if err != nil {
		return 0, err
	}
	where, args := buildWhere(d.dialect, filters, 1)
	stmt := fmt.Sprintf("DELETE FROM %s%s", quoteIdent(d.dialect, s.Table), where)
	start := time.Now()
	res, err := d.conn.ExecContext(ctx, stmt, args...)
	d.record(ctx, false, start, err)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (d *SQLDriver) Create(ctx context.Context, s selection.Selection) (map[string]any, error) {
	cols := make([]string, 0, len(s.Args))
	placeholders := make([]string, 0, len(s.Args))
	args := make([]any, 0, len(s.Args))
	i := 1
	for col, val := range s.Args {
		cols = append(cols, quoteIdent(d.dialect, col))
		placeholders = append(placeholders, placeholder(d.dialect, i))
		args = append(args, val)
		i++
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(d.dialect, s.Table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	start := time.Now()
	_, err := d.conn.ExecContext(ctx, stmt, args...)
	d.record(ctx, false, start, err)
	if err != nil {
		return nil, driver.ClassifyConstraintError(err)
	}
	return s.Args, nil
}

// Upsert issues an update when a row matching the upsert's Query already
// exists, otherwise a create of the "create" payload. It does not rely on
// a dialect-specific ON CONFLICT/ON DUPLICATE KEY clause, so it is not
// atomic against a concurrent insert — acceptable for this package's
// demonstration scope, unlike memdriver's cascade-correct implementation.
func (d *SQLDriver) Upsert(ctx context.Context, s selection.Selection) (map[string]any, error) {
	payload, _ := s.Args["update"].(map[string]any)
	createPayload, _ := s.Args["create"].(map[string]any)
	existing, err := d.Get(ctx, selection.Get(s.Table).Where(s.Query))
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return d.Create(ctx, selection.Create(s.Table, createPayload))
	}
	if _, err := d.Set(ctx, selection.Get(s.Table).Where(s.Query).Set(payload)); err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(existing[0])+len(payload))
	for k, v := range existing[0] {
		merged[k] = v
	}
	for k, v := range payload {
		merged[k] = v
	}
	return merged, nil
}

var _ driver.Driver = (*SQLDriver)(nil)
