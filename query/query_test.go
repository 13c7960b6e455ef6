package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/query"
)

func TestParseBareValueIsEq(t *testing.T) {
	q, err := query.Parse(map[string]any{"name": "ada"})
	require.NoError(t, err)
	require.Len(t, q.Fields["name"], 1)
	assert.Equal(t, query.Clause{Op: query.OpEq, Value: "ada"}, q.Fields["name"][0])
}

func TestParseArrayIsIn(t *testing.T) {
	q, err := query.Parse(map[string]any{"id": []any{1, 2, 3}})
	require.NoError(t, err)
	require.Len(t, q.Fields["id"], 1)
	assert.Equal(t, query.OpIn, q.Fields["id"][0].Op)
	assert.Equal(t, []any{1, 2, 3}, q.Fields["id"][0].Value)
}

func TestParseExplicitOperatorMap(t *testing.T) {
	q, err := query.Parse(map[string]any{
		"age": map[string]any{"$gte": 18, "$lt": 65},
	})
	require.NoError(t, err)
	require.Len(t, q.Fields["age"], 2)
}

func TestParseNullIsExistsFalse(t *testing.T) {
	q, err := query.Parse(map[string]any{"manager": nil})
	require.NoError(t, err)
	assert.Equal(t, query.Exists(false), q.Fields["manager"][0])
}

func TestParseAutoFlattenDottedSubfields(t *testing.T) {
	q, err := query.Parse(map[string]any{
		"profile": map[string]any{"city": "nyc", "zip": "10001"},
	})
	require.NoError(t, err)
	assert.Equal(t, query.EQ("nyc"), q.Fields["profile.city"][0])
	assert.Equal(t, query.EQ("10001"), q.Fields["profile.zip"][0])
	_, hasOwnKey := q.Fields["profile"]
	assert.False(t, hasOwnKey)
}

// An empty $or matches nothing; an empty $and matches everything.
func TestOrEmptyMatchesNone(t *testing.T) {
	q, err := query.Parse(map[string]any{"$or": []any{}})
	require.NoError(t, err)
	assert.NotNil(t, q.Or)
	assert.Len(t, q.Or, 0)
}

func TestAndEmptyMatchesAll(t *testing.T) {
	q, err := query.Parse(map[string]any{"$and": []any{}})
	require.NoError(t, err)
	assert.NotNil(t, q.And)
	assert.Len(t, q.And, 0)
}

func TestParseNestedLogicalCombinators(t *testing.T) {
	q, err := query.Parse(map[string]any{
		"$or": []any{
			map[string]any{"status": "active"},
			map[string]any{"status": "pending"},
		},
		"role": "admin",
	})
	require.NoError(t, err)
	// Top-level field clauses and the $or combinator both apply, joined
	// with an implicit AND.
	require.Len(t, q.And, 2)
}

func TestParseRelationPredicates(t *testing.T) {
	q, err := query.Parse(map[string]any{
		"posts": map[string]any{"$every": map[string]any{"published": true}},
	})
	require.NoError(t, err)
	require.Len(t, q.Fields["posts"], 1)
	clause := q.Fields["posts"][0]
	assert.Equal(t, query.OpEvery, clause.Op)
	sub, ok := clause.Value.(query.Query)
	require.True(t, ok)
	assert.Equal(t, query.EQ(true), sub.Fields["published"][0])
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, query.Query{}.IsEmpty())
	assert.False(t, query.Field("x", query.EQ(1)).IsEmpty())
}

func TestEmptyAndOrHelpersMirrorParse(t *testing.T) {
	// And() with no arguments and a parsed {$and: []} both mean "matches
	// every row"; Or() with no arguments and {$or: []} both mean
	// "matches no rows".
	assert.True(t, query.And().IsEmpty())
	assert.False(t, query.Or().IsEmpty())
}
