package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/evaluator"
	"github.com/cosmotype/cosmotype/query"
)

func TestMatchFieldEquality(t *testing.T) {
	row := map[string]any{"name": "ada", "age": 36}
	q, err := query.Parse(map[string]any{"name": "ada"})
	require.NoError(t, err)
	ok, err := evaluator.Match(q, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchOrEmptyMatchesNothing(t *testing.T) {
	row := map[string]any{"name": "ada"}
	ok, err := evaluator.Match(query.Or(), row)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchAndEmptyMatchesEverything(t *testing.T) {
	row := map[string]any{"name": "ada"}
	ok, err := evaluator.Match(query.And(), row)
	require.NoError(t, err)
	assert.True(t, ok)
}

// $every over an empty child set is vacuously true.
func TestMatchEveryVacuousOnEmptyChildren(t *testing.T) {
	row := map[string]any{"posts": []any{}}
	q := query.Field("posts", query.Every(query.Field("published", query.EQ(true))))
	ok, err := evaluator.Match(q, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchEveryFailsOnUnpublishedChild(t *testing.T) {
	row := map[string]any{"posts": []any{
		map[string]any{"published": true},
		map[string]any{"published": false},
	}}
	q := query.Field("posts", query.Every(query.Field("published", query.EQ(true))))
	ok, err := evaluator.Match(q, row)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchSomeAndNone(t *testing.T) {
	row := map[string]any{"posts": []any{
		map[string]any{"published": false},
	}}
	some := query.Field("posts", query.Some(query.Field("published", query.EQ(true))))
	ok, err := evaluator.Match(some, row)
	require.NoError(t, err)
	assert.False(t, ok)

	none := query.Field("posts", query.None(query.Field("published", query.EQ(true))))
	ok, err = evaluator.Match(none, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchInNinEmptyArrays(t *testing.T) {
	row := map[string]any{"id": 1}
	inEmpty, err := query.Parse(map[string]any{"id": map[string]any{"$in": []any{}}})
	require.NoError(t, err)
	ok, err := evaluator.Match(inEmpty, row)
	require.NoError(t, err)
	assert.False(t, ok, "$in with an empty array matches nothing")

	ninEmpty, err := query.Parse(map[string]any{"id": map[string]any{"$nin": []any{}}})
	require.NoError(t, err)
	ok, err = evaluator.Match(ninEmpty, row)
	require.NoError(t, err)
	assert.True(t, ok, "$nin with an empty array matches everything")
}

func TestMatchExistsFalseOnMissingField(t *testing.T) {
	row := map[string]any{"name": "ada"}
	q := query.Field("managerId", query.Exists(false))
	ok, err := evaluator.Match(q, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchExpr(t *testing.T) {
	row := map[string]any{"a": true, "b": false}
	expr := eval.Or(eval.Ref("", "a", eval.Expr{}.Type), eval.Ref("", "b", eval.Expr{}.Type))
	// The Ref's annotated type defaults to the zero Type; allBoolean type
	// dispatch at *build* time only matters for emission, the evaluator
	// dispatches on the runtime value, so this still exercises $or
	// correctly.
	q := query.Expr(expr)
	ok, err := evaluator.Match(q, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalExprArithmetic(t *testing.T) {
	expr := eval.Add(eval.Literal(2), eval.Literal(3))
	v, err := evaluator.EvalExpr(expr, evaluator.RowResolver(nil))
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestEvalExprPowerAndLog(t *testing.T) {
	v, err := evaluator.EvalExpr(eval.Power(eval.Literal(2), eval.Literal(10)), evaluator.RowResolver(nil))
	require.NoError(t, err)
	assert.Equal(t, 1024.0, v)

	v, err = evaluator.EvalExpr(eval.Log(eval.Literal(8), eval.Literal(2)), evaluator.RowResolver(nil))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)

	_, err = evaluator.EvalExpr(eval.Log(eval.Literal(-1), eval.Literal(2)), evaluator.RowResolver(nil))
	assert.Error(t, err)
}

func TestEvalExprPolymorphicBitwiseAnd(t *testing.T) {
	row := map[string]any{"flags": int64(6)}
	expr := eval.And(eval.Ref("row", "flags", eval.Expr{}.Type), eval.Literal(2))
	v, err := evaluator.EvalExpr(expr, evaluator.RowResolver(row))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
