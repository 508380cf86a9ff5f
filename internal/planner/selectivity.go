package planner

import "github.com/lychee-technology/docbase"

// estimateSelectivity implements spec.md §4.3's selectivity estimator:
// literal true/false → 1.0/0.0; equality → 0.1; inequality → 0.9;
// ordered comparisons → 0.3; And → product; Or → p+q-p·q; Not → 1-child;
// everything else defaults to 0.5.
func estimateSelectivity(e docbase.Expression) float64 {
	switch e.Kind {
	case docbase.ExprLiteral:
		if e.Literal.Kind == docbase.KindBool {
			if e.Literal.Bool {
				return 1.0
			}
			return 0.0
		}
		return 0.5
	case docbase.ExprBinary:
		switch e.BinOp {
		case docbase.OpEq:
			return 0.1
		case docbase.OpNe:
			return 0.9
		case docbase.OpLt, docbase.OpLe, docbase.OpGt, docbase.OpGe:
			return 0.3
		case docbase.OpAnd:
			p := estimateSelectivity(*e.Left)
			q := estimateSelectivity(*e.Right)
			return p * q
		case docbase.OpOr:
			p := estimateSelectivity(*e.Left)
			q := estimateSelectivity(*e.Right)
			return p + q - p*q
		default:
			return 0.5
		}
	case docbase.ExprUnary:
		if e.UnOp == docbase.OpNot {
			return 1.0 - estimateSelectivity(*e.Operand)
		}
		return 0.5
	default:
		return 0.5
	}
}
