package memdriver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/driver"
	"github.com/cosmotype/cosmotype/evaluator"
	"github.com/cosmotype/cosmotype/memdriver"
	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/selection"
)

func blogRegistry(t *testing.T) *model.Registry {
	t.Helper()
	reg := model.NewRegistry()
	_, err := reg.Extend("user", map[string]any{"id": "primary", "name": "string"}, model.Config{
		PrimaryKey:    []string{"id"},
		Autoincrement: true,
		Relations: map[string]model.Relation{
			"posts": {Kind: model.OneToMany, TargetTable: "post", LocalFields: []string{"id"}, RemoteFields: []string{"authorId"}},
			"tags":  {Kind: model.ManyToMany, TargetTable: "tag", LocalFields: []string{"id"}, RemoteFields: []string{"id"}},
		},
	})
	require.NoError(t, err)
	_, err = reg.Extend("post", map[string]any{"id": "primary", "authorId": "string", "published": "boolean"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
	})
	require.NoError(t, err)
	_, err = reg.Extend("tag", map[string]any{"id": "primary", "name": "string"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
	})
	require.NoError(t, err)
	_, err = reg.Extend(model.LinkTableName("user", "tag"), map[string]any{"userId": "string", "tagId": "string"}, model.Config{
		PrimaryKey: []string{"userId", "tagId"},
	})
	require.NoError(t, err)
	return reg
}

func TestGetMaterializesOneToManyInclude(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	user, err := d.Create(ctx, selection.Create("user", map[string]any{"id": int64(1), "name": "ada"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("post", map[string]any{"id": int64(1), "authorId": user["id"], "published": true}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("post", map[string]any{"id": int64(2), "authorId": user["id"], "published": false}))
	require.NoError(t, err)

	rows, err := d.Get(ctx, selection.Get("user").Where(query.Field("id", query.EQ(int64(1)))))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	posts, ok := rows[0]["posts"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, posts, 2)
}

func TestEveryVacuouslyTrueOnEmptyChildSet(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"id": int64(2), "name": "grace"}))
	require.NoError(t, err)

	rows, err := d.Get(ctx, selection.Get("user").Where(
		query.Field("posts", query.Every(query.Field("published", query.EQ(true)))),
	))
	require.NoError(t, err)
	require.Len(t, rows, 1, "a user with zero posts satisfies $every vacuously")
}

func TestManyToManyMaterialization(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"id": "u1", "name": "ada"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("tag", map[string]any{"id": "t1", "name": "go"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create(model.LinkTableName("user", "tag"), map[string]any{"userId": "u1", "tagId": "t1"}))
	require.NoError(t, err)

	rows, err := d.Get(ctx, selection.Get("user").Where(query.Field("id", query.EQ("u1"))))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	tags, ok := rows[0]["tags"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0]["name"])
}

func TestSetAndRemoveReportCounts(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, _ = d.Create(ctx, selection.Create("tag", map[string]any{"id": "t1", "name": "go"}))
	_, _ = d.Create(ctx, selection.Create("tag", map[string]any{"id": "t2", "name": "rust"}))

	n, err := d.Set(ctx, selection.Get("tag").Set(map[string]any{"name": "golang"}).Where(query.Field("id", query.EQ("t1"))))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := d.Get(ctx, selection.Get("tag").Where(query.Field("id", query.EQ("t1"))))
	require.NoError(t, err)
	assert.Equal(t, "golang", rows[0]["name"])

	n, err = d.Remove(ctx, selection.Get("tag").Remove())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := d.Stats()
	assert.Equal(t, int64(1), snap.Reads)
	assert.Equal(t, int64(4), snap.Writes, "two creates, one set, one remove")
}

func TestUpsertCreatesThenUpdatesIdempotently(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	sel := selection.Get("tag").Where(query.Field("id", query.EQ("t1"))).
		Upsert(map[string]any{"id": "t1", "name": "go"}, map[string]any{"name": "golang"})

	row, err := d.Upsert(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, "go", row["name"])

	row, err = d.Upsert(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, "golang", row["name"])

	rows, err := d.Get(ctx, selection.Get("tag"))
	require.NoError(t, err)
	assert.Len(t, rows, 1, "repeating the same upsert must not create a duplicate row")
}

func TestGetAgreesWithPortableEvaluator(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, _ = d.Create(ctx, selection.Create("tag", map[string]any{"id": "t1", "name": "go"}))
	_, _ = d.Create(ctx, selection.Create("tag", map[string]any{"id": "t2", "name": "rust"}))

	q := query.Field("name", query.EQ("rust"))
	rows, err := d.Get(ctx, selection.Get("tag").Where(q))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	matched, err := evaluator.Match(q, rows[0])
	require.NoError(t, err)
	assert.True(t, matched, "every row a driver returns for q must itself satisfy q under the portable evaluator")
}

func TestTransactionRollbackIsInvisible(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("tag", map[string]any{"id": "t1", "name": "go"}))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = d.WithTransaction(ctx, func(ctx context.Context, tx driver.Driver) error {
		if _, err := tx.Create(ctx, selection.Create("tag", map[string]any{"id": "t2", "name": "rust"})); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := d.Get(ctx, selection.Get("tag"))
	require.NoError(t, err)
	assert.Len(t, rows, 1, "the create performed inside the rolled-back transaction must not be observable")
}
