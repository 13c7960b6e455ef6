package memdriver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/memdriver"
	"github.com/cosmotype/cosmotype/selection"
)

func TestExecSubqueryProjection(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"name": "ada"}))
	require.NoError(t, err)
	for _, name := range []string{"go", "sql"} {
		_, err := d.Create(ctx, selection.Create("tag", map[string]any{"name": name}))
		require.NoError(t, err)
	}

	intType := field.Type{Kind: field.KindInteger}
	tagCount := selection.Get("tag").Evaluate(eval.Count(eval.Ref("", "id", intType)))

	rows, err := d.Eval(ctx, selection.Get("user").Evaluate(eval.Exec(tagCount, intType)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0]["value"])
}

func TestExecSubqueryEmptySetDefaults(t *testing.T) {
	reg := blogRegistry(t)
	d := memdriver.New(reg)
	ctx := context.Background()

	_, err := d.Create(ctx, selection.Create("user", map[string]any{"name": "ada"}))
	require.NoError(t, err)

	listType := field.Type{Kind: field.KindList}
	names := selection.Get("tag").Project(map[string]any{
		"name": eval.Ref("", "name", field.Type{Kind: field.KindString}),
	})

	rows, err := d.Eval(ctx, selection.Get("user").Evaluate(eval.Exec(names, listType)))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{}, rows[0]["value"], "an empty $array subquery must default to []")
}
