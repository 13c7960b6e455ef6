package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmotype/cosmotype/field"
)

func TestParseShorthand(t *testing.T) {
	tests := []struct {
		in      string
		want    field.Field
		wantErr bool
	}{
		{in: "string", want: field.Field{Type: field.KindString}},
		{in: "string(100)", want: field.Field{Type: field.KindString, Length: 100}},
		{in: "decimal(10,2)", want: field.Field{Type: field.KindDecimal, Precision: 10, Scale: 2}},
		{in: "INT", want: field.Field{Type: field.KindInteger}},
		{in: "bool", want: field.Field{Type: field.KindBoolean}},
		{in: "decimal(10)", wantErr: true},
		{in: "string(10,2)", wantErr: true},
		{in: "bogus", wantErr: true},
		{in: "timestamp(3)", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := field.ParseShorthand(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, field.ErrInvalidField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldValidate(t *testing.T) {
	require.Error(t, field.Field{Type: field.KindString, Precision: 2}.Validate())
	require.Error(t, field.Field{Type: field.KindBoolean, Length: 5}.Validate())
	require.Error(t, field.Field{Type: field.KindDecimal, Precision: 2, Scale: 5}.Validate())
	require.NoError(t, field.Field{Type: field.KindDecimal, Precision: 10, Scale: 2}.Validate())
}

func TestFieldDefault(t *testing.T) {
	assert.Equal(t, 0, field.Field{Type: field.KindInteger}.Default())
	assert.Equal(t, "", field.Field{Type: field.KindString}.Default())
	assert.Equal(t, []any{}, field.Field{Type: field.KindList}.Default())
	assert.Equal(t, map[string]any{}, field.Field{Type: field.KindJSON}.Default())
	assert.Nil(t, field.Field{Type: field.KindInteger, Nullable: true}.Default())
}

func TestEffectiveInitialDeepClones(t *testing.T) {
	f := field.Field{Type: field.KindJSON, Initial: map[string]any{"a": []any{1, 2}}}
	v1 := f.EffectiveInitial().(map[string]any)
	v1["a"].([]any)[0] = 99
	v2 := f.EffectiveInitial().(map[string]any)
	assert.Equal(t, 1, v2["a"].([]any)[0])
}

func TestUUIDGeneratesFreshDefaults(t *testing.T) {
	f := field.UUID()
	a, aok := f.EffectiveInitial().(string)
	b, bok := f.EffectiveInitial().(string)
	require.True(t, aok)
	require.True(t, bok)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestTypeOfAndInner(t *testing.T) {
	f := field.Field{
		Type: field.KindJSON,
		Shape: &field.Shape{
			Object: map[string]field.Field{
				"count": {Type: field.KindInteger},
				"tags":  {Type: field.KindList, Shape: &field.Shape{Array: true, Elem: &field.Field{Type: field.KindString}}},
			},
		},
	}
	typ := field.TypeOf(f)
	assert.Equal(t, field.KindJSON, typ.Kind)

	sub, ok := typ.InnerAt("count")
	require.True(t, ok)
	assert.Equal(t, field.KindInteger, sub.Kind)

	sub, ok = typ.InnerAt("tags")
	require.True(t, ok)
	assert.Equal(t, field.KindList, sub.Kind)
	require.NotNil(t, sub.Inner)
	assert.Equal(t, field.KindString, sub.Inner.Kind)

	_, ok = typ.InnerAt("missing")
	assert.False(t, ok)
}

func TestTypeOfValue(t *testing.T) {
	assert.Equal(t, field.KindBoolean, field.TypeOfValue(true).Kind)
	assert.Equal(t, field.KindInteger, field.TypeOfValue(1).Kind)
	assert.Equal(t, field.KindDouble, field.TypeOfValue(1.5).Kind)

	lst := field.TypeOfValue([]any{"a", "b"})
	assert.Equal(t, field.KindList, lst.Kind)
	require.NotNil(t, lst.Inner)
	assert.Equal(t, field.KindString, lst.Inner.Kind)

	empty := field.TypeOfValue([]any{})
	assert.Equal(t, field.KindList, empty.Kind)
	assert.Nil(t, empty.Inner)
}

func TestTransform(t *testing.T) {
	elem := field.Field{Type: field.KindInteger}
	t1 := field.TypeOf(field.Field{Type: field.KindList, Shape: &field.Shape{Array: true, Elem: &elem}})

	var seen []field.Kind
	out := field.Transform([]any{1, 2, 3}, t1, func(v any, ft field.Type) any {
		seen = append(seen, ft.Kind)
		return v
	})
	assert.Equal(t, []any{1, 2, 3}, out)
	assert.Contains(t, seen, field.KindInteger)
	assert.Contains(t, seen, field.KindList)
}
