package cosmotype

import (
	"context"
	"fmt"

	"github.com/cosmotype/cosmotype/driver"
	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/relation"
	"github.com/cosmotype/cosmotype/selection"
)

// Database is the top-level handle applications hold: a schema
// registry, the relation resolver built over it, and the backend driver
// that actually stores rows. It is the thing that turns a flat
// driver.Driver into the graph-shaped API applications program against
// (eager loads, relation predicates, cascaded relation writes).
type Database struct {
	registry *model.Registry
	resolver *relation.Resolver
	driver   driver.Driver
	cache    Cache
}

// New wires a Database over an already-constructed driver, with a fresh
// schema registry. It fits drivers that discover models lazily through
// Prepare (e.g. sqldriver). Drivers constructed from a registry directly
// (e.g. memdriver.New) need NewWithRegistry instead, so both sides share
// the same *model.Registry.
func New(d driver.Driver) *Database {
	return NewWithRegistry(model.NewRegistry(), d)
}

// NewWithRegistry wires a Database over reg and an already-constructed
// driver built from that same registry.
func NewWithRegistry(reg *model.Registry, d driver.Driver) *Database {
	return &Database{
		registry: reg,
		resolver: relation.NewResolver(reg),
		driver:   d,
	}
}

// Registry returns the schema registry backing this Database.
func (db *Database) Registry() *model.Registry { return db.registry }

// Driver returns the backend driver this Database executes selections
// against.
func (db *Database) Driver() driver.Driver { return db.driver }

// Extend declares or augments a model the way model.Registry.Extend does.
// Implicit manyToMany link tables are registered lazily, the first time a
// relation write touches them (see ensureLinkTable), since both endpoint
// models must already exist and callers are free to Extend them in either
// order.
func (db *Database) Extend(name string, fields map[string]any, cfg model.Config) (*model.Model, error) {
	return db.registry.Extend(name, fields, cfg)
}

// ensureLinkTable registers (if absent) and prepares the implicit
// manyToMany association table between left and right.
func (db *Database) ensureLinkTable(ctx context.Context, left, right string) (string, error) {
	name, err := db.resolver.EnsureLinkTable(left, right)
	if err != nil {
		return "", err
	}
	m, ok := db.registry.Model(name)
	if !ok {
		return "", fmt.Errorf("cosmotype: link table %q vanished after EnsureLinkTable", name)
	}
	if err := db.driver.Prepare(ctx, m); err != nil {
		return "", err
	}
	return name, nil
}

// Prepare runs driver.Prepare for every registered model, creating or
// migrating its backing storage.
func (db *Database) Prepare(ctx context.Context) error {
	for _, name := range db.registry.Names() {
		m, ok := db.registry.Model(name)
		if !ok {
			continue
		}
		if err := db.driver.Prepare(ctx, m); err != nil {
			return fmt.Errorf("cosmotype: preparing %q: %w", name, err)
		}
	}
	return nil
}

func (db *Database) model(table string) (*model.Model, error) {
	m, ok := db.registry.Model(table)
	if !ok {
		return nil, fmt.Errorf("cosmotype: unknown model %q", table)
	}
	return m, nil
}

// Select begins a fluent Selection rooted at table. Callers compose it
// with Selection's own Where/OrderBy/Limit/.../Execute, or pass it to
// Database.Execute.
func (db *Database) Select(table string) selection.Selection {
	return selection.Get(table)
}

// Query is the raw-filter read shorthand: it parses a Mongo-shaped
// filter document, materializes the named relation includes on each
// result row, and returns the matches. Filter may be nil to select
// every row.
func (db *Database) Query(ctx context.Context, table string, filter any, include ...string) ([]map[string]any, error) {
	q, err := query.Parse(filter)
	if err != nil {
		return nil, err
	}
	return db.Get(ctx, selection.Get(table).Where(q).Include(include...))
}

// Evaluate computes term over the rows s selects: one value per row, or
// a single value when term aggregates (the all-rows aggregate case) or
// when exactly one row matches.
func (db *Database) Evaluate(ctx context.Context, s selection.Selection, term any) (any, error) {
	res, err := db.Execute(ctx, s.Evaluate(term))
	if err != nil {
		return nil, &QueryError{Table: s.Table, Op: string(selection.KindEval), Err: err}
	}
	if len(res.Rows) == 1 {
		return res.Rows[0]["value"], nil
	}
	vals := make([]any, len(res.Rows))
	for i, row := range res.Rows {
		vals[i] = row["value"]
	}
	return vals, nil
}

// Execute validates and runs s against the underlying driver.
func (db *Database) Execute(ctx context.Context, s selection.Selection) (selection.Result, error) {
	return s.Execute(ctx, db.driver)
}

// Get runs s (a KindGet selection) and returns its rows. When a Cache is
// attached (WithCache), a cache hit skips the driver entirely; a miss
// executes normally and populates the cache. ErrNotFound semantics is
// left to callers that need a single row (see GetOne).
func (db *Database) Get(ctx context.Context, s selection.Selection) ([]map[string]any, error) {
	if db.cache != nil && s.Kind == selection.KindGet {
		key := selectionKey(s)
		if rows, ok := db.cacheLookup(ctx, key); ok {
			return rows, nil
		}
		res, err := db.Execute(ctx, s)
		if err != nil {
			return nil, &QueryError{Table: s.Table, Op: string(s.Kind), Err: err}
		}
		db.cacheStore(ctx, key, res.Rows)
		return res.Rows, nil
	}

	res, err := db.Execute(ctx, s)
	if err != nil {
		return nil, &QueryError{Table: s.Table, Op: string(s.Kind), Err: err}
	}
	return res.Rows, nil
}

// GetOne runs s and requires exactly one matching row: NotFoundError
// when nothing matches, NotSingularError when several rows do.
func (db *Database) GetOne(ctx context.Context, s selection.Selection) (map[string]any, error) {
	rows, err := db.Get(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Table: s.Table}
	}
	if len(rows) > 1 {
		return nil, &NotSingularError{Table: s.Table, Count: len(rows)}
	}
	return rows[0], nil
}

// Create seeds data with the model's declared defaults/generators, then
// inserts it, cascading any relation-write documents found among data's
// keys.
func (db *Database) Create(ctx context.Context, table string, data map[string]any) (map[string]any, error) {
	m, err := db.model(table)
	if err != nil {
		return nil, err
	}
	own, relDocs := splitRelationWrites(m, data)
	seeded := m.Create(own)

	row, err := db.driver.Create(ctx, selection.Create(table, seeded))
	if err != nil {
		return nil, NewMutationError(table, "create", err)
	}
	db.invalidateTable(ctx, table)

	parentID := primaryKeyValue(m, row)
	for name, doc := range relDocs {
		if err := db.WriteRelation(ctx, table, parentID, name, doc); err != nil {
			return row, err
		}
	}
	return row, nil
}

// Upsert runs the driver's create-or-update against s, which must already
// carry create/update payloads via Selection.Upsert.
func (db *Database) Upsert(ctx context.Context, s selection.Selection) (map[string]any, error) {
	row, err := db.driver.Upsert(ctx, s)
	if err != nil {
		return nil, NewMutationError(s.Table, "upsert", err)
	}
	db.invalidateTable(ctx, s.Table)
	return row, nil
}

// Set applies s's mutation args to every matching row, cascading relation
// writes found among those args the same way Create does.
func (db *Database) Set(ctx context.Context, s selection.Selection) (int, error) {
	m, err := db.model(s.Table)
	if err != nil {
		return 0, err
	}
	own, relDocs := splitRelationWrites(m, s.Args)
	s.Args = own

	n, err := db.driver.Set(ctx, s)
	if err != nil {
		return n, NewMutationError(s.Table, "set", err)
	}
	db.invalidateTable(ctx, s.Table)
	if len(relDocs) == 0 {
		return n, nil
	}

	rows, err := db.driver.Get(ctx, selection.Get(s.Table).Where(s.Query))
	if err != nil {
		return n, err
	}
	for _, row := range rows {
		parentID := primaryKeyValue(m, row)
		for name, doc := range relDocs {
			if err := db.WriteRelation(ctx, s.Table, parentID, name, doc); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// WithTransaction runs fn against a Database view scoped to a single
// driver transaction: commit on normal return, rollback on error or
// panic. The view shares this Database's registry and resolver but not
// its cache, so uncommitted rows never populate cached results.
func (db *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Database) error) error {
	err := db.driver.WithTransaction(ctx, func(ctx context.Context, txDriver driver.Driver) error {
		tx := &Database{registry: db.registry, resolver: db.resolver, driver: txDriver}
		return fn(ctx, tx)
	})
	if db.cache != nil {
		for _, name := range db.registry.Names() {
			db.invalidateTable(ctx, name)
		}
	}
	return err
}

// Remove deletes every row s matches.
func (db *Database) Remove(ctx context.Context, s selection.Selection) (int, error) {
	n, err := db.driver.Remove(ctx, s)
	if err != nil {
		return n, NewMutationError(s.Table, "remove", err)
	}
	db.invalidateTable(ctx, s.Table)
	return n, nil
}

// splitRelationWrites pulls apart data's keys into the model's own scalar
// fields and its declared relations' write documents, so Create/Set can
// insert/update the row itself before cascading into relation writes.
func splitRelationWrites(m *model.Model, data map[string]any) (own map[string]any, relDocs map[string]map[string]any) {
	own = make(map[string]any, len(data))
	relDocs = make(map[string]map[string]any)
	for k, v := range data {
		if _, isRelation := m.Relations[k]; isRelation {
			if doc, ok := v.(map[string]any); ok {
				relDocs[k] = doc
			}
			continue
		}
		own[k] = v
	}
	return own, relDocs
}

func primaryKeyValue(m *model.Model, row map[string]any) any {
	if len(m.PrimaryKey) == 0 {
		return nil
	}
	if len(m.PrimaryKey) == 1 {
		return row[m.PrimaryKey[0]]
	}
	composite := make(map[string]any, len(m.PrimaryKey))
	for _, k := range m.PrimaryKey {
		composite[k] = row[k]
	}
	return composite
}
