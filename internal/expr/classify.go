package expr

import "github.com/lychee-technology/docbase"

// IsBooleanExpression identifies predicates acceptable to Filter
// (spec.md §4.4): a literal bool, a comparison or logical Binary, a
// Unary Not, or a Match.
func IsBooleanExpression(e docbase.Expression) bool {
	switch e.Kind {
	case docbase.ExprLiteral:
		return e.Literal.Kind == docbase.KindBool
	case docbase.ExprBinary:
		switch e.BinOp {
		case docbase.OpEq, docbase.OpNe, docbase.OpLt, docbase.OpLe,
			docbase.OpGt, docbase.OpGe, docbase.OpAnd, docbase.OpOr:
			return true
		default:
			return false
		}
	case docbase.ExprUnary:
		return e.UnOp == docbase.OpNot
	case docbase.ExprMatch:
		return true
	default:
		return false
	}
}
