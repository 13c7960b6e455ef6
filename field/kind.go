// Package field implements the semantic type system shared by declared
// model fields and evaluated expressions.
//
// A [Kind] names a semantic field type. [Field] is the declared shape of a
// model column (length, precision, nullability, ...); [Type] is the shape
// an evaluated expression carries at IR-construction time so the relation
// resolver and drivers can cast, group, and sort without re-deriving types
// from raw values.
package field

// Kind enumerates the semantic field types.
type Kind string

// Declared field kinds.
const (
	KindInteger   Kind = "integer"
	KindUnsigned  Kind = "unsigned"
	KindFloat     Kind = "float"
	KindDouble    Kind = "double"
	KindDecimal   Kind = "decimal"
	KindChar      Kind = "char"
	KindString    Kind = "string"
	KindText      Kind = "text"
	KindBoolean   Kind = "boolean"
	KindTimestamp Kind = "timestamp"
	KindDate      Kind = "date"
	KindTime      Kind = "time"
	KindList      Kind = "list"
	KindJSON      Kind = "json"
	KindPrimary   Kind = "primary"
	KindBinary    Kind = "binary"
	KindExpr      Kind = "expr"
)

// Numeric reports whether the kind participates in arithmetic.
func (k Kind) Numeric() bool {
	switch k {
	case KindInteger, KindUnsigned, KindFloat, KindDouble, KindDecimal, KindPrimary:
		return true
	}
	return false
}

// Integral reports whether the kind is a whole-number type, the set that
// bitwise operators may widen into.
func (k Kind) Integral() bool {
	switch k {
	case KindInteger, KindUnsigned, KindPrimary:
		return true
	}
	return false
}

// Temporal reports whether the kind carries a point in time.
func (k Kind) Temporal() bool {
	switch k {
	case KindTimestamp, KindDate, KindTime:
		return true
	}
	return false
}

// knownKinds is used by shorthand parsing to validate a type name.
var knownKinds = map[string]Kind{
	"integer":   KindInteger,
	"int":       KindInteger,
	"unsigned":  KindUnsigned,
	"uint":      KindUnsigned,
	"float":     KindFloat,
	"double":    KindDouble,
	"decimal":   KindDecimal,
	"char":      KindChar,
	"string":    KindString,
	"text":      KindText,
	"boolean":   KindBoolean,
	"bool":      KindBoolean,
	"timestamp": KindTimestamp,
	"date":      KindDate,
	"time":      KindTime,
	"list":      KindList,
	"json":      KindJSON,
	"primary":   KindPrimary,
	"binary":    KindBinary,
	"expr":      KindExpr,
}
