package cosmotype_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cosmotype "github.com/cosmotype/cosmotype"
	"github.com/cosmotype/cosmotype/memdriver"
	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/selection"
)

func newBlogDatabase(t *testing.T) *cosmotype.Database {
	t.Helper()
	reg := model.NewRegistry()
	d := memdriver.New(reg)
	db := cosmotype.NewWithRegistry(reg, d)

	_, err := db.Extend("user", map[string]any{"id": "primary", "name": "string"}, model.Config{
		PrimaryKey:    []string{"id"},
		Autoincrement: true,
		Relations: map[string]model.Relation{
			"posts": {Kind: model.OneToMany, TargetTable: "post", LocalFields: []string{"id"}, RemoteFields: []string{"authorId"}},
			"tags":  {Kind: model.ManyToMany, TargetTable: "tag", LocalFields: []string{"id"}, RemoteFields: []string{"id"}},
		},
	})
	require.NoError(t, err)
	_, err = db.Extend("post", map[string]any{"id": "primary", "authorId": "string", "title": "string"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
	})
	require.NoError(t, err)
	_, err = db.Extend("tag", map[string]any{"id": "primary", "name": "string"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.Prepare(context.Background()))
	return db
}

func TestCreateCascadesNestedRelationCreate(t *testing.T) {
	db := newBlogDatabase(t)
	ctx := context.Background()

	user, err := db.Create(ctx, "user", map[string]any{
		"name": "ada",
		"posts": map[string]any{
			"$create": []any{
				map[string]any{"title": "hello"},
				map[string]any{"title": "world"},
			},
		},
	})
	require.NoError(t, err)

	rows, err := db.Get(ctx, selection.Get("post").Where(query.Field("authorId", query.EQ(user["id"]))))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCreateCascadesManyToManyConnect(t *testing.T) {
	db := newBlogDatabase(t)
	ctx := context.Background()

	_, err := db.Create(ctx, "tag", map[string]any{"id": "t1", "name": "go"})
	require.NoError(t, err)

	user, err := db.Create(ctx, "user", map[string]any{
		"name": "grace",
		"tags": map[string]any{"$connect": []any{"t1"}},
	})
	require.NoError(t, err)

	rows, err := db.Get(ctx, selection.Get("user").Where(query.Field("id", query.EQ(user["id"]))))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	tags, ok := rows[0]["tags"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0]["name"])

	n, err := db.Set(ctx, selection.Get("user").Set(map[string]any{
		"tags": map[string]any{"$disconnect": []any{"t1"}},
	}).Where(query.Field("id", query.EQ(user["id"]))))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err = db.Get(ctx, selection.Get("user").Where(query.Field("id", query.EQ(user["id"]))))
	require.NoError(t, err)
	tags, _ = rows[0]["tags"].([]map[string]any)
	assert.Len(t, tags, 0, "disconnect must remove the link row, not just the in-memory view")
}

func TestOneToOneConnectClearsReciprocalLink(t *testing.T) {
	reg := model.NewRegistry()
	d := memdriver.New(reg)
	db := cosmotype.NewWithRegistry(reg, d)
	ctx := context.Background()

	_, err := db.Extend("user", map[string]any{"id": "primary", "name": "string"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
		Relations: map[string]model.Relation{
			"profile": {Kind: model.OneToOne, TargetTable: "profile", LocalFields: []string{"id"}, RemoteFields: []string{"ownerId"}},
		},
	})
	require.NoError(t, err)
	_, err = db.Extend("profile", map[string]any{"id": "primary", "ownerId": "string", "bio": "string"}, model.Config{
		PrimaryKey: []string{"id"}, Autoincrement: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Prepare(ctx))

	alice, err := db.Create(ctx, "user", map[string]any{"name": "alice"})
	require.NoError(t, err)
	bob, err := db.Create(ctx, "user", map[string]any{"name": "bob"})
	require.NoError(t, err)
	profile, err := db.Create(ctx, "profile", map[string]any{"bio": "hi"})
	require.NoError(t, err)

	n, err := db.Set(ctx, selection.Get("user").Set(map[string]any{
		"profile": map[string]any{"$connect": []any{profile["id"]}},
	}).Where(query.Field("id", query.EQ(alice["id"]))))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.Set(ctx, selection.Get("user").Set(map[string]any{
		"profile": map[string]any{"$connect": []any{profile["id"]}},
	}).Where(query.Field("id", query.EQ(bob["id"]))))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := db.Get(ctx, selection.Get("user").Where(query.Field("id", query.EQ(alice["id"]))))
	require.NoError(t, err)
	assert.Nil(t, rows[0]["profile"], "reassigning the profile to bob must clear alice's reciprocal link")
}

func TestManyToManyConnectIsIdempotent(t *testing.T) {
	db := newBlogDatabase(t)
	ctx := context.Background()

	_, err := db.Create(ctx, "tag", map[string]any{"id": "t1", "name": "go"})
	require.NoError(t, err)
	user, err := db.Create(ctx, "user", map[string]any{
		"name": "ada",
		"tags": map[string]any{"$connect": []any{"t1"}},
	})
	require.NoError(t, err)

	_, err = db.Set(ctx, db.Select("user").Set(map[string]any{
		"tags": map[string]any{"$connect": []any{"t1"}},
	}).Where(query.Field("id", query.EQ(user["id"]))))
	require.NoError(t, err)

	links, err := db.Get(ctx, db.Select(model.LinkTableName("user", "tag")))
	require.NoError(t, err)
	assert.Len(t, links, 1, "repeating $connect must not create a duplicate association row")
}
