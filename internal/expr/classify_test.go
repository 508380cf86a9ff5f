package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lychee-technology/docbase"
)

func TestIsBooleanExpression(t *testing.T) {
	tests := []struct {
		name string
		e    docbase.Expression
		want bool
	}{
		{"bool literal", docbase.Lit(docbase.NewBool(true)), true},
		{"non-bool literal", docbase.Lit(docbase.NewInt(1)), false},
		{"eq comparison", docbase.Binary(docbase.OpEq, docbase.Lit(docbase.NewInt(1)), docbase.Lit(docbase.NewInt(1))), true},
		{"and", docbase.Binary(docbase.OpAnd, docbase.Lit(docbase.NewBool(true)), docbase.Lit(docbase.NewBool(true))), true},
		{"not", docbase.Unary(docbase.OpNot, docbase.Lit(docbase.NewBool(true))), true},
		{"match", docbase.Match(docbase.Lit(docbase.NewString("x")), "x", ""), true},
		{"field ref alone", docbase.FieldExpr(docbase.NewFieldRef("x")), false},
		{"variable alone", docbase.Var("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBooleanExpression(tt.e))
		})
	}
}
