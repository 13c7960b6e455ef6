package memdriver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/memdriver"
	"github.com/cosmotype/cosmotype/model"
	"github.com/cosmotype/cosmotype/selection"
)

func TestCreateGeneratesUUIDPrimaryKey(t *testing.T) {
	reg := model.NewRegistry()
	_, err := reg.Extend("session", map[string]any{
		"id":   field.UUID(),
		"name": "string",
	}, model.Config{PrimaryKey: []string{"id"}})
	require.NoError(t, err)

	d := memdriver.New(reg)
	first, err := d.Create(context.Background(), selection.Create("session", map[string]any{"name": "a"}))
	require.NoError(t, err)
	second, err := d.Create(context.Background(), selection.Create("session", map[string]any{"name": "b"}))
	require.NoError(t, err)

	id, ok := first["id"].(string)
	require.True(t, ok)
	assert.Len(t, id, 36)
	assert.NotEqual(t, first["id"], second["id"])
}
