package cosmotype_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cosmotype "github.com/cosmotype/cosmotype"
	"github.com/cosmotype/cosmotype/memdriver"
	"github.com/cosmotype/cosmotype/model"
)

// mapCache is an in-process Cache with call counters, enough to observe
// hit/miss/invalidation behavior without a real cache backend.
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	hits    int
	misses  int
	stores  int
	deletes int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		c.misses++
		return nil, nil
	}
	c.hits++
	return raw, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.stores++
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	c.deletes++
	return nil
}

func TestCacheMemoizesGetAndInvalidatesOnWrite(t *testing.T) {
	reg := model.NewRegistry()
	db := cosmotype.NewWithRegistry(reg, memdriver.New(reg))
	cache := newMapCache()
	db.WithCache(cache)
	ctx := context.Background()

	_, err := db.Extend("user", map[string]any{"id": "primary", "name": "string"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Prepare(ctx))

	_, err = db.Create(ctx, "user", map[string]any{"name": "ada"})
	require.NoError(t, err)

	first, err := db.Get(ctx, db.Select("user"))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.stores, "a miss must populate the cache")

	second, err := db.Get(ctx, db.Select("user"))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits, "the repeat read must come from the cache")
	assert.Equal(t, first[0]["name"], second[0]["name"])

	_, err = db.Create(ctx, "user", map[string]any{"name": "grace"})
	require.NoError(t, err)

	third, err := db.Get(ctx, db.Select("user"))
	require.NoError(t, err)
	assert.Len(t, third, 2, "the write must invalidate cached rows for the table")
}
