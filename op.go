package cosmotype

import "github.com/cosmotype/cosmotype/eval"

// Op is the dotted-access namespace for building projection/aggregate
// expressions against a Selection, re-exporting
// package eval's builders so callers write cosmotype.Op.Sum(...) instead
// of importing eval directly.
var Op = struct {
	Add    func(args ...any) eval.Expr
	Sub    func(args ...any) eval.Expr
	Mul    func(args ...any) eval.Expr
	Div    func(args ...any) eval.Expr
	Modulo func(args ...any) eval.Expr
	Power  func(a, b any) eval.Expr
	Log    func(a, b any) eval.Expr

	Eq  func(a, b any) eval.Expr
	Ne  func(a, b any) eval.Expr
	Gt  func(a, b any) eval.Expr
	Gte func(a, b any) eval.Expr
	Lt  func(a, b any) eval.Expr
	Lte func(a, b any) eval.Expr

	And func(args ...any) eval.Expr
	Or  func(args ...any) eval.Expr
	Xor func(args ...any) eval.Expr
	Not func(a any) eval.Expr

	Sum    func(arg any) eval.Expr
	Avg    func(arg any) eval.Expr
	Min    func(arg any) eval.Expr
	Max    func(arg any) eval.Expr
	Count  func(arg any) eval.Expr
	Length func(arg any) eval.Expr

	Array  func(args ...any) eval.Expr
	Get    func(source any, path string) eval.Expr
	Size   func(arg any) eval.Expr
	El     func(list any, index any) eval.Expr
	Concat func(args ...any) eval.Expr
	Object func(fields map[string]any) eval.Expr
	If     func(cond, then, els any) eval.Expr
	Switch func(cases ...any) eval.Expr
	Literal func(v any) eval.Expr
}{
	Add:    eval.Add,
	Sub:    eval.Sub,
	Mul:    eval.Mul,
	Div:    eval.Div,
	Modulo: eval.Modulo,
	Power:  eval.Power,
	Log:    eval.Log,

	Eq:  eval.Eq,
	Ne:  eval.Ne,
	Gt:  eval.Gt,
	Gte: eval.Gte,
	Lt:  eval.Lt,
	Lte: eval.Lte,

	And: eval.And,
	Or:  eval.Or,
	Xor: eval.Xor,
	Not: eval.Not,

	Sum:    eval.Sum,
	Avg:    eval.Avg,
	Min:    eval.Min,
	Max:    eval.Max,
	Count:  eval.Count,
	Length: eval.Length,

	Array:   eval.Array,
	Get:     eval.Get,
	Size:    eval.Size,
	El:      eval.El,
	Concat:  eval.Concat,
	Object:  eval.Object,
	If:      eval.If,
	Switch:  eval.Switch,
	Literal: eval.Literal,
}
