package cosmotype

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/relation"
	"github.com/cosmotype/cosmotype/selection"
)

// forEachItem runs fn once per item, concurrently: items within one
// cascade step (e.g. every entry of a $create batch) are independent
// writes against the target/link table, so there is no reason to
// serialize them. The first error cancels ctx for the rest and is
// returned once every goroutine has finished.
func forEachItem(ctx context.Context, items []any, fn func(ctx context.Context, item any) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error { return fn(gctx, item) })
	}
	return g.Wait()
}

// WriteRelation applies a relation write document - the value given for a
// relation field in a Create/Set payload, e.g.
// {"$connect": [1, 2], "$create": [{"name": "new"}]} - against baseTable's
// relationName relation for the parent row identified by parentID. Steps
// run in the cascade order DecomposeWrite mandates: disconnects and
// removes first (to free up one-to-one/link-row slots), then set, then
// create/upsert, then connect.
func (db *Database) WriteRelation(ctx context.Context, baseTable string, parentID any, relationName string, doc map[string]any) error {
	m, err := db.model(baseTable)
	if err != nil {
		return err
	}
	rel, ok := m.Relations[relationName]
	if !ok {
		return model.NewRelationUnresolvedError(baseTable, relationName, "no such relation declared")
	}

	for _, step := range relation.DecomposeWrite(relationName, doc) {
		if err := db.applyCascadeStep(ctx, baseTable, parentID, rel, step); err != nil {
			return fmt.Errorf("cosmotype: %s.%s %s: %w", baseTable, relationName, step.Op, err)
		}
	}

	db.invalidateTable(ctx, rel.TargetTable)
	if rel.Kind == model.ManyToMany {
		if linkTable, err := db.resolver.EnsureLinkTable(baseTable, rel.TargetTable); err == nil {
			db.invalidateTable(ctx, linkTable)
		}
	}
	return nil
}

func (db *Database) applyCascadeStep(ctx context.Context, baseTable string, parentID any, rel model.Relation, step relation.CascadeStep) error {
	switch step.Op {
	case relation.CascadeDisconnect:
		return db.disconnectRelation(ctx, baseTable, parentID, rel, toItems(step.Data))
	case relation.CascadeRemove:
		return db.removeRelation(ctx, rel, toItems(step.Data))
	case relation.CascadeSet:
		return db.setRelation(ctx, baseTable, parentID, rel, toItems(step.Data))
	case relation.CascadeCreate:
		return db.createRelation(ctx, baseTable, parentID, rel, toItems(step.Data))
	case relation.CascadeUpsert:
		return db.upsertRelation(ctx, baseTable, parentID, rel, toItems(step.Data))
	case relation.CascadeConnect:
		return db.connectRelation(ctx, baseTable, parentID, rel, toItems(step.Data))
	default:
		return fmt.Errorf("unrecognized cascade op %q", step.Op)
	}
}

// disconnectRelation clears the relation pointer for every target row
// matched by items, regardless of what it currently points to. This is
// the step ReciprocalOneToOneDisconnect relies on: clearing newChildID's
// existing link before it is reassigned, not just links owned by
// parentID.
func (db *Database) disconnectRelation(ctx context.Context, baseTable string, parentID any, rel model.Relation, items []any) error {
	if rel.Kind == model.ManyToMany {
		return db.unlinkManyToMany(ctx, baseTable, parentID, rel, items)
	}
	localFK, err := db.hasLocalForeignKey(baseTable, rel)
	if err != nil {
		return err
	}
	return forEachItem(ctx, items, func(ctx context.Context, item any) error {
		filter, err := db.itemFilter(rel.TargetTable, item)
		if err != nil {
			return err
		}
		if localFK {
			// The pointer lives on this side: null out every base row
			// aimed at the matched children.
			return db.forEachTargetKey(ctx, rel, filter, func(ctx context.Context, childKey map[string]any) error {
				where := localEqualsChild(rel, childKey)
				_, err := db.driver.Set(ctx, selection.Get(baseTable).Set(clearFields(rel.LocalFields)).Where(where))
				return err
			})
		}
		args := clearFields(rel.RemoteFields)
		_, err = db.driver.Set(ctx, selection.Get(rel.TargetTable).Set(args).Where(filter))
		return err
	})
}

// removeRelation deletes the related rows entirely (as opposed to just
// unlinking them).
func (db *Database) removeRelation(ctx context.Context, rel model.Relation, items []any) error {
	return forEachItem(ctx, items, func(ctx context.Context, item any) error {
		filter, err := db.itemFilter(rel.TargetTable, item)
		if err != nil {
			return err
		}
		_, err = db.driver.Remove(ctx, selection.Get(rel.TargetTable).Where(filter).Remove())
		return err
	})
}

// setRelation replaces the parent's entire set of related rows with
// exactly the ones items names: every currently-related row is
// disconnected first, then each named row is connected.
func (db *Database) setRelation(ctx context.Context, baseTable string, parentID any, rel model.Relation, items []any) error {
	if err := db.disconnectAllRelated(ctx, baseTable, parentID, rel); err != nil {
		return err
	}
	return db.connectRelation(ctx, baseTable, parentID, rel, items)
}

func (db *Database) disconnectAllRelated(ctx context.Context, baseTable string, parentID any, rel model.Relation) error {
	if rel.Kind == model.ManyToMany {
		linkTable, err := db.ensureLinkTable(ctx, baseTable, rel.TargetTable)
		if err != nil {
			return err
		}
		localCol := baseTable + "Id"
		_, err = db.driver.Remove(ctx, selection.Get(linkTable).Where(query.Field(localCol, query.EQ(parentID))).Remove())
		return err
	}
	localFK, err := db.hasLocalForeignKey(baseTable, rel)
	if err != nil {
		return err
	}
	if localFK {
		m, err := db.model(baseTable)
		if err != nil {
			return err
		}
		_, err = db.driver.Set(ctx, selection.Get(baseTable).Set(clearFields(rel.LocalFields)).Where(pkEquals(m, parentID)))
		return err
	}
	filter := remoteEqualsLocal(rel, parentID)
	args := clearFields(rel.RemoteFields)
	_, err = db.driver.Set(ctx, selection.Get(rel.TargetTable).Set(args).Where(filter))
	return err
}

// createRelation creates a new target row per item, linking it to parentID
// as it is created.
func (db *Database) createRelation(ctx context.Context, baseTable string, parentID any, rel model.Relation, items []any) error {
	localFK, err := db.hasLocalForeignKey(baseTable, rel)
	if err != nil {
		return err
	}
	return forEachItem(ctx, items, func(ctx context.Context, item any) error {
		data, _ := item.(map[string]any)
		data = cloneMap(data)

		if rel.Kind != model.ManyToMany && !localFK {
			for i, remote := range rel.RemoteFields {
				data[remote] = parentIDComponent(parentID, rel.LocalFields[i], i)
			}
		}

		targetModel, err := db.model(rel.TargetTable)
		if err != nil {
			return err
		}
		seeded := targetModel.Create(data)
		row, err := db.driver.Create(ctx, selection.Create(rel.TargetTable, seeded))
		if err != nil {
			return err
		}

		if rel.Kind == model.ManyToMany {
			childID := primaryKeyValue(targetModel, row)
			return db.linkManyToMany(ctx, baseTable, parentID, rel, childID)
		}
		if localFK {
			return db.pointParentAt(ctx, baseTable, parentID, rel, row)
		}
		return nil
	})
}

// pointParentAt writes childRow's remote key values into the parent
// row's local pointer fields.
func (db *Database) pointParentAt(ctx context.Context, baseTable string, parentID any, rel model.Relation, childRow map[string]any) error {
	m, err := db.model(baseTable)
	if err != nil {
		return err
	}
	args := make(map[string]any, len(rel.LocalFields))
	for i, local := range rel.LocalFields {
		args[local] = childRow[rel.RemoteFields[i]]
	}
	_, err = db.driver.Set(ctx, selection.Get(baseTable).Set(args).Where(pkEquals(m, parentID)))
	return err
}

// upsertRelation runs find-or-create against the target table for each
// item (a {"where", "create", "update"} document), then connects the
// result to parentID.
func (db *Database) upsertRelation(ctx context.Context, baseTable string, parentID any, rel model.Relation, items []any) error {
	localFK, err := db.hasLocalForeignKey(baseTable, rel)
	if err != nil {
		return err
	}
	return forEachItem(ctx, items, func(ctx context.Context, item any) error {
		doc, _ := item.(map[string]any)
		where, _ := doc["where"].(map[string]any)
		createData, _ := doc["create"].(map[string]any)
		updateData, _ := doc["update"].(map[string]any)

		filter, err := flatEqQuery(where)
		if err != nil {
			return err
		}

		if rel.Kind != model.ManyToMany && !localFK {
			createData = cloneMap(createData)
			for i, remote := range rel.RemoteFields {
				createData[remote] = parentIDComponent(parentID, rel.LocalFields[i], i)
			}
		}

		sel := selection.Get(rel.TargetTable).Where(filter).Upsert(createData, updateData)
		row, err := db.driver.Upsert(ctx, sel)
		if err != nil {
			return err
		}

		if rel.Kind == model.ManyToMany {
			targetModel, err := db.model(rel.TargetTable)
			if err != nil {
				return err
			}
			childID := primaryKeyValue(targetModel, row)
			return db.linkManyToMany(ctx, baseTable, parentID, rel, childID)
		}
		if localFK {
			return db.pointParentAt(ctx, baseTable, parentID, rel, row)
		}
		return nil
	})
}

// connectRelation links parentID to every existing target row items
// names. For a oneToOne relation, the target's existing reciprocal link
// (if any) is cleared first so the relation stays single-valued on both
// sides.
func (db *Database) connectRelation(ctx context.Context, baseTable string, parentID any, rel model.Relation, items []any) error {
	return forEachItem(ctx, items, func(ctx context.Context, item any) error {
		if rel.Kind == model.ManyToMany {
			filter, err := db.itemFilter(rel.TargetTable, item)
			if err != nil {
				return err
			}
			targetModel, err := db.model(rel.TargetTable)
			if err != nil {
				return err
			}
			rows, err := db.driver.Get(ctx, selection.Get(rel.TargetTable).Where(filter))
			if err != nil {
				return err
			}
			for _, row := range rows {
				childID := primaryKeyValue(targetModel, row)
				if err := db.linkManyToMany(ctx, baseTable, parentID, rel, childID); err != nil {
					return err
				}
			}
			return nil
		}

		// oneToOne connects run disconnect-then-set sequentially within
		// this single item's goroutine - the reciprocal clear and the new
		// pointer must not interleave with each other, only with other
		// items' independent connects.
		if rel.Kind == model.OneToOne {
			step := relation.ReciprocalOneToOneDisconnect(rel.TargetTable, item)
			if err := db.disconnectRelation(ctx, baseTable, parentID, rel, toItems(step.Data)); err != nil {
				return err
			}
		}

		filter, err := db.itemFilter(rel.TargetTable, item)
		if err != nil {
			return err
		}
		localFK, err := db.hasLocalForeignKey(baseTable, rel)
		if err != nil {
			return err
		}
		if localFK {
			// The pointer lives on this side: write the matched child's
			// key into the parent row's local fields.
			return db.forEachTargetKey(ctx, rel, filter, func(ctx context.Context, childKey map[string]any) error {
				m, err := db.model(baseTable)
				if err != nil {
					return err
				}
				args := make(map[string]any, len(rel.LocalFields))
				for i, local := range rel.LocalFields {
					args[local] = childKey[rel.RemoteFields[i]]
				}
				where := pkEquals(m, parentID)
				_, err = db.driver.Set(ctx, selection.Get(baseTable).Set(args).Where(where))
				return err
			})
		}
		args := make(map[string]any, len(rel.RemoteFields))
		for i, remote := range rel.RemoteFields {
			local := rel.LocalFields[i]
			args[remote] = parentIDComponent(parentID, local, i)
		}
		_, err = db.driver.Set(ctx, selection.Get(rel.TargetTable).Set(args).Where(filter))
		return err
	})
}

// hasLocalForeignKey reports whether rel's pointer column lives on the
// base model (a to-one relation whose local fields are plain columns,
// e.g. successorId) rather than on the target.
func (db *Database) hasLocalForeignKey(baseTable string, rel model.Relation) (bool, error) {
	if !rel.ToOne() {
		return false, nil
	}
	m, err := db.model(baseTable)
	if err != nil {
		return false, err
	}
	for _, local := range rel.LocalFields {
		if !m.IsPrimaryKey(local) {
			return true, nil
		}
	}
	return false, nil
}

// forEachTargetKey resolves filter against rel's target table and hands
// fn each matched row's remote-field key values.
func (db *Database) forEachTargetKey(ctx context.Context, rel model.Relation, filter query.Query, fn func(ctx context.Context, childKey map[string]any) error) error {
	rows, err := db.driver.Get(ctx, selection.Get(rel.TargetTable).Where(filter))
	if err != nil {
		return err
	}
	for _, row := range rows {
		key := make(map[string]any, len(rel.RemoteFields))
		for _, remote := range rel.RemoteFields {
			key[remote] = row[remote]
		}
		if err := fn(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// localEqualsChild selects base rows whose local pointer fields equal
// childKey's remote values.
func localEqualsChild(rel model.Relation, childKey map[string]any) query.Query {
	qs := make([]query.Query, len(rel.LocalFields))
	for i, local := range rel.LocalFields {
		qs[i] = query.Field(local, query.EQ(childKey[rel.RemoteFields[i]]))
	}
	if len(qs) == 1 {
		return qs[0]
	}
	return query.And(qs...)
}

// pkEquals selects the row(s) whose primary key equals id (scalar or
// composite map).
func pkEquals(m *model.Model, id any) query.Query {
	if composite, ok := id.(map[string]any); ok {
		qs := make([]query.Query, 0, len(m.PrimaryKey))
		for _, k := range m.PrimaryKey {
			qs = append(qs, query.Field(k, query.EQ(composite[k])))
		}
		if len(qs) == 1 {
			return qs[0]
		}
		return query.And(qs...)
	}
	return query.Field(m.PrimaryKey[0], query.EQ(id))
}

// linkManyToMany creates a link-table row joining parentID and childID if
// one does not already exist, keeping repeated connects idempotent.
func (db *Database) linkManyToMany(ctx context.Context, baseTable string, parentID any, rel model.Relation, childID any) error {
	linkTable, err := db.ensureLinkTable(ctx, baseTable, rel.TargetTable)
	if err != nil {
		return err
	}
	localCol := baseTable + "Id"
	remoteCol := rel.TargetTable + "Id"

	existing, err := db.driver.Get(ctx, selection.Get(linkTable).Where(query.And(
		query.Field(localCol, query.EQ(parentID)),
		query.Field(remoteCol, query.EQ(childID)),
	)))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = db.driver.Create(ctx, selection.Create(linkTable, map[string]any{
		localCol:  parentID,
		remoteCol: childID,
	}))
	return err
}

func (db *Database) unlinkManyToMany(ctx context.Context, baseTable string, parentID any, rel model.Relation, items []any) error {
	linkTable, err := db.ensureLinkTable(ctx, baseTable, rel.TargetTable)
	if err != nil {
		return err
	}
	localCol := baseTable + "Id"
	remoteCol := rel.TargetTable + "Id"

	for _, item := range items {
		childFilter, err := db.itemFilter(rel.TargetTable, item)
		if err != nil {
			return err
		}
		targetModel, err := db.model(rel.TargetTable)
		if err != nil {
			return err
		}
		rows, err := db.driver.Get(ctx, selection.Get(rel.TargetTable).Where(childFilter))
		if err != nil {
			return err
		}
		for _, row := range rows {
			childID := primaryKeyValue(targetModel, row)
			where := query.And(
				query.Field(localCol, query.EQ(parentID)),
				query.Field(remoteCol, query.EQ(childID)),
			)
			if _, err := db.driver.Remove(ctx, selection.Get(linkTable).Where(where).Remove()); err != nil {
				return err
			}
		}
	}
	return nil
}

// itemFilter resolves one $connect/$disconnect/$remove list entry into a
// query matching the target row(s) it names: either a scalar primary-key
// value, or a {"where": {...}} document of flat equality filters.
func (db *Database) itemFilter(targetTable string, item any) (query.Query, error) {
	if doc, ok := item.(map[string]any); ok {
		if where, ok := doc["where"].(map[string]any); ok {
			return flatEqQuery(where)
		}
		return flatEqQuery(doc)
	}
	targetModel, err := db.model(targetTable)
	if err != nil {
		return query.Query{}, err
	}
	if len(targetModel.PrimaryKey) == 0 {
		return query.Query{}, fmt.Errorf("model %q has no primary key to match a scalar relation-write entry against", targetTable)
	}
	return query.Field(targetModel.PrimaryKey[0], query.EQ(item)), nil
}

// flatEqQuery ANDs an equality clause per key in m. Callers supply flat,
// already-scalar filters - the cascade writer does not accept nested
// operator documents in relation-write "where" clauses.
func flatEqQuery(m map[string]any) (query.Query, error) {
	if len(m) == 0 {
		return query.Query{}, fmt.Errorf("empty where clause in relation write")
	}
	qs := make([]query.Query, 0, len(m))
	for k, v := range m {
		qs = append(qs, query.Field(k, query.EQ(v)))
	}
	if len(qs) == 1 {
		return qs[0], nil
	}
	return query.And(qs...), nil
}

// remoteEqualsLocal builds the filter selecting every target row whose
// RemoteFields currently equal parentID's corresponding LocalFields
// component(s).
func remoteEqualsLocal(rel model.Relation, parentID any) query.Query {
	qs := make([]query.Query, len(rel.RemoteFields))
	for i, remote := range rel.RemoteFields {
		qs[i] = query.Field(remote, query.EQ(parentIDComponent(parentID, rel.LocalFields[i], i)))
	}
	if len(qs) == 1 {
		return qs[0]
	}
	return query.And(qs...)
}

// parentIDComponent returns the value to use for a (possibly composite)
// primary key's i-th column: parentID itself for a single-column key, or
// the named component when primaryKeyValue returned a composite map.
func parentIDComponent(parentID any, localField string, i int) any {
	if composite, ok := parentID.(map[string]any); ok {
		return composite[localField]
	}
	return parentID
}

func clearFields(fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = nil
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// toItems normalizes a cascade step's Data into a flat list of entries:
// a []any is used as-is, anything else is treated as a single entry.
func toItems(data any) []any {
	if data == nil {
		return nil
	}
	if items, ok := data.([]any); ok {
		return items
	}
	return []any{data}
}
