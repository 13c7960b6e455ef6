package cosmotype

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cosmotype/cosmotype/selection"
)

// Cache stores serialized rows for read selections. Implementations
// back it with whatever store they like (in-process map, Redis, ...);
// the Database only needs point lookup, point store, and prefix
// invalidation, because every key it writes starts with the selection's
// table name.
type Cache interface {
	// Get returns the bytes stored under key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix drops every key starting with prefix. This is the
	// whole invalidation story: a mutation against a table drops
	// "<table>:" and takes every cached selection of it along.
	DeletePrefix(ctx context.Context, prefix string) error
}

// WithCache attaches c as the read cache for Get results. Every mutation
// (Create/Set/Remove/Upsert) invalidates the affected table's entries via
// Cache.DeletePrefix, so the cache is always a conservative, table-scoped
// view - it never needs per-row invalidation logic, only a coarser
// "anything about this table may have changed" signal.
func (db *Database) WithCache(c Cache) *Database {
	db.cache = c
	return db
}

// selectionKey renders everything that changes a read selection's result
// set into one table-prefixed key: kind, filter, includes, sort terms,
// paging, projection, grouping, having, joins and ref. Two selections with the same key return the same rows in
// the same order, which is exactly the contract a cache hit stands in
// for.
func selectionKey(s selection.Selection) string {
	sorts := ""
	for _, sort := range s.Sorts {
		term := sort.Path
		if sort.Term != nil {
			term = fmt.Sprintf("%+v", sort.Term)
		}
		if sort.Desc {
			term += " desc"
		}
		sorts += term + ","
	}
	limit, offset := 0, 0
	if s.LimitN != nil {
		limit = *s.LimitN
	}
	if s.OffsetN != nil {
		offset = *s.OffsetN
	}
	return s.Table + ":" + string(s.Kind) +
		":" + fmt.Sprintf("%+v", s.Query) +
		":include=" + fmt.Sprintf("%v", s.Includes) +
		":" + sorts +
		":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset) +
		":project=" + fmt.Sprintf("%+v", s.Projection) +
		":group=" + fmt.Sprintf("%v", s.GroupBy) +
		":having=" + fmt.Sprintf("%+v", s.HavingExpr) +
		":join=" + fmt.Sprintf("%+v", s.Joins) +
		":ref=" + s.Ref
}

func (db *Database) cacheLookup(ctx context.Context, key string) ([]map[string]any, bool) {
	if db.cache == nil {
		return nil, false
	}
	raw, err := db.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, false
	}
	var rows []map[string]any
	if err := msgpack.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (db *Database) cacheStore(ctx context.Context, key string, rows []map[string]any) {
	if db.cache == nil {
		return
	}
	raw, err := msgpack.Marshal(rows)
	if err != nil {
		return
	}
	_ = db.cache.Set(ctx, key, raw, 0)
}

func (db *Database) invalidateTable(ctx context.Context, table string) {
	if db.cache == nil {
		return
	}
	_ = db.cache.DeletePrefix(ctx, table+":")
}
