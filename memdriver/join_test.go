package memdriver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/memdriver"
	"github.com/cosmotype/cosmotype/query"
	"github.com/cosmotype/cosmotype/selection"
)

func joinOn(left, leftPath, right, rightPath string) query.Query {
	t := field.Type{Kind: field.KindInteger}
	return query.Expr(eval.Eq(eval.Ref(left, leftPath, t), eval.Ref(right, rightPath, t)))
}

func TestJoinProducesNamedParticipantRecords(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"id": int64(1), "name": "ada"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("post", map[string]any{"id": int64(1), "authorId": int64(1), "published": true}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("post", map[string]any{"id": int64(2), "authorId": int64(1), "published": false}))
	require.NoError(t, err)

	rows, err := d.Get(ctx, selection.Get("user").As("u").Join(selection.Join{
		Name: "p",
		Table: "post",
		Kind: selection.JoinInner,
		On:   joinOn("p", "authorId", "u", "id"),
	}))
	require.NoError(t, err)
	require.Len(t, rows, 2, "one combined record per matching post")
	for _, rec := range rows {
		u, ok := rec["u"].(map[string]any)
		require.True(t, ok)
		p, ok := rec["p"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ada", u["name"])
		assert.Equal(t, u["id"], p["authorId"])
	}
}

func TestLeftOuterJoinKeepsUnmatchedBase(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"id": int64(1), "name": "ada"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("user", map[string]any{"id": int64(2), "name": "grace"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("post", map[string]any{"id": int64(1), "authorId": int64(1), "published": true}))
	require.NoError(t, err)

	join := selection.Join{Name: "p", Table: "post", On: joinOn("p", "authorId", "u", "id")}

	join.Kind = selection.JoinInner
	inner, err := d.Get(ctx, selection.Get("user").As("u").Join(join))
	require.NoError(t, err)
	assert.Len(t, inner, 1, "the inner join must drop the postless user")

	join.Kind = selection.JoinLeftOuter
	outer, err := d.Get(ctx, selection.Get("user").As("u").Join(join))
	require.NoError(t, err)
	require.Len(t, outer, 2)

	byName := map[any]map[string]any{}
	for _, rec := range outer {
		u := rec["u"].(map[string]any)
		byName[u["name"]] = rec
	}
	assert.NotNil(t, byName["ada"]["p"])
	assert.Nil(t, byName["grace"]["p"], "the left-outer participant must be nil when unmatched")
}

func TestJoinedProjectionReachesBothSides(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"id": int64(1), "name": "ada"}))
	require.NoError(t, err)
	_, err = d.Create(ctx, selection.Create("post", map[string]any{"id": int64(1), "authorId": int64(1), "published": true}))
	require.NoError(t, err)

	str := field.Type{Kind: field.KindString}
	rows, err := d.Get(ctx, selection.Get("user").As("u").
		Join(selection.Join{Name: "p", Table: "post", Kind: selection.JoinInner, On: joinOn("p", "authorId", "u", "id")}).
		Project(map[string]any{
			"author":    eval.Ref("u", "name", str),
			"published": eval.Ref("p", "published", field.Type{Kind: field.KindBoolean}),
		}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ada", rows[0]["author"])
	assert.Equal(t, true, rows[0]["published"])
}
