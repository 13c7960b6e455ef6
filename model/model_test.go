package model_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/field"
	"github.com/cosmotype/cosmotype/model"
)

func newUserRegistry(t *testing.T) *model.Registry {
	t.Helper()
	r := model.NewRegistry()
	_, err := r.Extend("user", map[string]any{
		"id":    "integer",
		"name":  "string(100)",
		"email": "string",
		"bio":   field.Field{Type: field.KindJSON, Nullable: true},
	}, model.Config{
		PrimaryKey:    []string{"id"},
		Autoincrement: true,
		Unique:        [][]string{{"email"}},
	})
	require.NoError(t, err)
	return r
}

func TestExtendMergesFields(t *testing.T) {
	r := newUserRegistry(t)
	_, err := r.Extend("user", map[string]any{"age": "integer"}, model.Config{})
	require.NoError(t, err)

	m, ok := r.Model("user")
	require.True(t, ok)
	assert.Contains(t, m.Fields, "age")
	assert.Contains(t, m.Fields, "name")
}

func TestIndexMissingError(t *testing.T) {
	r := model.NewRegistry()
	_, err := r.Extend("post", map[string]any{"id": "integer"}, model.Config{
		PrimaryKey: []string{"nonexistent"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrIndexMissing))
}

func TestPrimaryAutoIncMismatch(t *testing.T) {
	r := model.NewRegistry()
	_, err := r.Extend("post", map[string]any{
		"id": "primary",
	}, model.Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPrimaryAutoIncMismatch))
}

func TestCompositePrimaryKeyDisablesAutoincrement(t *testing.T) {
	r := model.NewRegistry()
	m, err := r.Extend("membership", map[string]any{
		"userId":  "integer",
		"groupId": "integer",
	}, model.Config{PrimaryKey: []string{"userId", "groupId"}, Autoincrement: true})
	require.NoError(t, err)
	assert.False(t, m.Autoincrement)
}

// TestCreateSetsExactlyDeclaredNonPKFields checks that Create seeds
// exactly the fields declared in Fields
// whose initial is non-nil and which are not part of the primary key,
// before overlaying data.
func TestCreateSetsExactlyDeclaredNonPKFields(t *testing.T) {
	r := model.NewRegistry()
	m, err := r.Extend("user", map[string]any{
		"id":      "primary",
		"name":    field.Field{Type: field.KindString, Initial: "anon"},
		"deleted": field.Field{Type: field.KindBoolean, Deprecated: true, Initial: true},
		"bio":     field.Field{Type: field.KindJSON, Nullable: true},
	}, model.Config{PrimaryKey: []string{"id"}, Autoincrement: true})
	require.NoError(t, err)

	rec := m.Create(map[string]any{"name": "alice"})
	assert.Equal(t, "alice", rec["name"])
	assert.NotContains(t, rec, "id")
	assert.NotContains(t, rec, "deleted")
	assert.NotContains(t, rec, "bio")
}

func TestFormatParseRoundTrip(t *testing.T) {
	r := newUserRegistry(t)
	m, _ := r.Model("user")

	in := map[string]any{"name": "bob", "bio": map[string]any{"city": "nyc", "zip": "10001"}}
	flat, err := m.Format(in, false)
	require.NoError(t, err)
	assert.Equal(t, "nyc", flat["bio.city"])

	back := model.Parse(flat)
	assert.Equal(t, in, back)
}

func TestFormatStrictRejectsUnknownField(t *testing.T) {
	r := newUserRegistry(t)
	m, _ := r.Model("user")
	_, err := m.Format(map[string]any{"bogus": 1}, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, field.ErrInvalidField))
}

func TestResolveValueNormalizesTimeOfDay(t *testing.T) {
	r := model.NewRegistry()
	m, err := r.Extend("schedule", map[string]any{"startAt": "time"}, model.Config{})
	require.NoError(t, err)

	in := time.Date(2024, 5, 6, 13, 45, 0, 0, time.UTC)
	out := m.ResolveValue("startAt", in).(time.Time)
	assert.Equal(t, 1970, out.Year())
	assert.Equal(t, time.January, out.Month())
	assert.Equal(t, 1, out.Day())
	assert.Equal(t, 13, out.Hour())
	assert.Equal(t, 45, out.Minute())
}

func TestMigrationRunsInOrderAndReportsErrors(t *testing.T) {
	r := model.NewRegistry()
	_, err := r.Extend("user", map[string]any{"id": "integer"}, model.Config{PrimaryKey: []string{"id"}})
	require.NoError(t, err)

	var ran []string
	require.NoError(t, r.AddMigration("user", model.Migration{
		Name: "add-age",
		Run: func(ctx context.Context) error {
			ran = append(ran, "add-age")
			return nil
		},
	}))
	require.NoError(t, r.AddMigration("user", model.Migration{
		Name: "broken",
		Run: func(ctx context.Context) error {
			return errors.New("boom")
		},
	}))

	var reported []error
	m, _ := r.Model("user")
	err = m.RunMigrations(context.Background(), map[string]bool{}, func(mg model.Migration, e error) {
		reported = append(reported, e)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"add-age"}, ran)
	require.Len(t, reported, 1)
}
