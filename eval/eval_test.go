package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cosmotype/cosmotype/eval"
	"github.com/cosmotype/cosmotype/field"
)

// TestAndPolymorphicDispatch:
// $.and(row.flags, 6) on an integer is bitwise; $.and(row.a, row.b) on
// booleans is logical.
func TestAndPolymorphicDispatch(t *testing.T) {
	flags := eval.Ref("row", "flags", field.Type{Kind: field.KindInteger})
	bitwise := eval.And(flags, eval.Literal(6))
	assert.Equal(t, field.KindInteger, bitwise.Type.Kind)

	a := eval.Ref("row", "a", field.Type{Kind: field.KindBoolean})
	b := eval.Ref("row", "b", field.Type{Kind: field.KindBoolean})
	logical := eval.And(a, b)
	assert.Equal(t, field.KindBoolean, logical.Type.Kind)
}

func TestArithmeticResultIsNumeric(t *testing.T) {
	e := eval.Add(eval.Literal(1), eval.Literal(2.5))
	assert.True(t, e.Type.Kind.Numeric())
}

func TestComparisonResultIsBoolean(t *testing.T) {
	e := eval.Gt(eval.Literal(1), eval.Literal(2))
	assert.Equal(t, field.KindBoolean, e.Type.Kind)
}

func TestAggregateCountIsInteger(t *testing.T) {
	e := eval.Count(eval.Ref("posts", "id", field.Type{Kind: field.KindInteger}))
	assert.Equal(t, field.KindInteger, e.Type.Kind)
	assert.True(t, eval.IsAggregate(e.Op))
}

func TestArrayAggregateIsListOfElementType(t *testing.T) {
	e := eval.Array(eval.Literal("a"), eval.Literal("b"))
	assert.Equal(t, field.KindList, e.Type.Kind)
	assert.NotNil(t, e.Type.Inner)
	assert.Equal(t, field.KindString, e.Type.Inner.Kind)
}

func TestGetProjectsNestedType(t *testing.T) {
	profile := eval.Ref("user", "profile", field.Type{
		Kind:   field.KindJSON,
		Fields: map[string]field.Type{"city": {Kind: field.KindString}},
	})
	got := eval.Get(profile, "city")
	assert.Equal(t, field.KindString, got.Type.Kind)
}

func TestNumberCoercion(t *testing.T) {
	e := eval.Number(nil)
	assert.Equal(t, field.KindDouble, e.Type.Kind)
}

func TestExprImplementsTyped(t *testing.T) {
	var typed field.Typed = eval.Literal("x")
	assert.Equal(t, field.KindString, typed.ResultType().Kind)
}
