package field

import (
	"strings"
	"time"
)

// Type is the shape an evaluated expression carries.
// It mirrors a Field's Kind plus, for json/list values, the substructure
// needed to resolve dotted paths without re-inspecting raw data.
type Type struct {
	Kind Kind
	// Inner holds the element type for a list, or for a json field
	// declared as an array. Nil otherwise.
	Inner *Type
	// Fields holds named subfield types for a json object. Nil for
	// scalar, list, or array-shaped json types.
	Fields map[string]Type
}

// Typed is the minimal contract an IR node must satisfy to carry a
// resolvable type; eval.Expr implements it. Kept here (rather than
// imported) so this leaf package has no dependency on the eval IR.
type Typed interface {
	ResultType() Type
}

// TypeOf returns the evaluated-expression type for a declared Field
// (spec: fromField).
func TypeOf(f Field) Type {
	t := Type{Kind: f.Type}
	if f.Type != KindJSON && f.Type != KindList {
		return t
	}
	if f.Shape == nil {
		return t
	}
	if f.Shape.Array {
		if f.Shape.Elem != nil {
			inner := TypeOf(*f.Shape.Elem)
			t.Inner = &inner
		}
		return t
	}
	if f.Shape.Object != nil {
		fields := make(map[string]Type, len(f.Shape.Object))
		for name, sub := range f.Shape.Object {
			fields[name] = TypeOf(sub)
		}
		t.Fields = fields
	}
	return t
}

// TypeOfValue infers a concrete type from a runtime value's shape (spec:
// fromPrimitive). Arrays produce a homogeneous array type inferred from
// element 0; an empty array yields a list type with no element type
// (Kind == KindList, Inner nil).
func TypeOfValue(v any) Type {
	switch x := v.(type) {
	case nil:
		return Type{}
	case bool:
		return Type{Kind: KindBoolean}
	case string:
		return Type{Kind: KindString}
	case []byte:
		return Type{Kind: KindBinary}
	case time.Time:
		return Type{Kind: KindTimestamp}
	case int, int8, int16, int32, int64:
		return Type{Kind: KindInteger}
	case uint, uint8, uint16, uint32, uint64:
		return Type{Kind: KindUnsigned}
	case float32:
		return Type{Kind: KindFloat}
	case float64:
		return Type{Kind: KindDouble}
	case []any:
		t := Type{Kind: KindList}
		if len(x) > 0 {
			inner := TypeOfValue(x[0])
			t.Inner = &inner
		}
		return t
	case map[string]any:
		t := Type{Kind: KindJSON}
		fields := make(map[string]Type, len(x))
		for k, e := range x {
			fields[k] = TypeOfValue(e)
		}
		t.Fields = fields
		return t
	default:
		return Type{Kind: KindExpr}
	}
}

// TypeOfTerm returns a term's annotated type if it implements Typed,
// else falls back to TypeOfValue (spec: fromTerm).
func TypeOfTerm(term any) Type {
	if t, ok := term.(Typed); ok {
		return t.ResultType()
	}
	return TypeOfValue(term)
}

// InnerAt resolves the type at a dotted path within a json-typed Type
// (spec: getInner). Traverses object-typed json by segment; for a
// list/array-shaped type an undefined key yields the element type;
// dotted keys are rewritten by stripping the matched prefix as they are
// consumed.
func (t Type) InnerAt(path string) (Type, bool) {
	if path == "" {
		return t, true
	}
	if t.Kind != KindJSON && t.Kind != KindList {
		return Type{}, false
	}
	head, rest, hasRest := strings.Cut(path, ".")

	if t.Fields != nil {
		sub, ok := t.Fields[head]
		if !ok {
			return Type{}, false
		}
		if !hasRest {
			return sub, true
		}
		return sub.InnerAt(rest)
	}
	// Array-shaped: an undefined key (e.g. a numeric index, or any key
	// at all since arrays have no named members) yields the element type.
	if t.Inner == nil {
		return Type{}, false
	}
	if !hasRest {
		return *t.Inner, true
	}
	return t.Inner.InnerAt(rest)
}

// Transform recursively re-coerces value through the type tree, calling
// visit at every node (scalar or composite) so a driver's load/dump
// converters can apply per-Kind conversion (spec: transform).
func Transform(value any, t Type, visit func(v any, t Type) any) any {
	switch t.Kind {
	case KindJSON:
		if t.Fields != nil {
			m, ok := value.(map[string]any)
			if !ok {
				return visit(value, t)
			}
			out := make(map[string]any, len(m))
			for k, v := range m {
				sub, ok := t.Fields[k]
				if !ok {
					out[k] = v
					continue
				}
				out[k] = Transform(v, sub, visit)
			}
			return visit(out, t)
		}
		if t.Inner != nil {
			return transformList(value, *t.Inner, visit)
		}
		return visit(value, t)
	case KindList:
		if t.Inner != nil {
			return transformList(value, *t.Inner, visit)
		}
		return visit(value, t)
	default:
		return visit(value, t)
	}
}

func transformList(value any, elem Type, visit func(v any, t Type) any) any {
	list, ok := value.([]any)
	if !ok {
		return visit(value, Type{Kind: KindList, Inner: &elem})
	}
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = Transform(v, elem, visit)
	}
	return visit(out, Type{Kind: KindList, Inner: &elem})
}
