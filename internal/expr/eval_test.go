package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lychee-technology/docbase"
)

func TestEvalLiteralFieldVariable(t *testing.T) {
	row := docbase.NewObject(map[string]docbase.Datum{"name": docbase.NewString("ada")})
	assert.Equal(t, docbase.NewInt(7), Eval(docbase.Lit(docbase.NewInt(7)), row))
	assert.Equal(t, docbase.NewString("ada"), Eval(docbase.FieldExpr(docbase.NewFieldRef("name")), row))
	assert.True(t, Eval(docbase.FieldExpr(docbase.NewFieldRef("missing")), row).IsNull())
}

func TestEvalBinaryShortCircuit(t *testing.T) {
	row := docbase.Null()
	and := docbase.Binary(docbase.OpAnd, docbase.Lit(docbase.NewBool(false)), docbase.Lit(docbase.NewBool(true)))
	assert.False(t, Eval(and, row).Truthy())

	or := docbase.Binary(docbase.OpOr, docbase.Lit(docbase.NewBool(true)), docbase.Lit(docbase.NewBool(false)))
	assert.True(t, Eval(or, row).Truthy())
}

func TestEvalComparisons(t *testing.T) {
	row := docbase.Null()
	assert.True(t, Eval(docbase.Binary(docbase.OpLt, docbase.Lit(docbase.NewInt(1)), docbase.Lit(docbase.NewInt(2))), row).Bool)
	assert.True(t, Eval(docbase.Binary(docbase.OpGe, docbase.Lit(docbase.NewInt(2)), docbase.Lit(docbase.NewInt(2))), row).Bool)
	assert.True(t, Eval(docbase.Binary(docbase.OpEq, docbase.Lit(docbase.NewInt(2)), docbase.Lit(docbase.NewFloat(2.0))), row).Bool)
}

func TestEvalUnaryNot(t *testing.T) {
	row := docbase.Null()
	assert.False(t, Eval(docbase.Unary(docbase.OpNot, docbase.Lit(docbase.NewBool(true))), row).Bool)
	assert.True(t, Eval(docbase.Unary(docbase.OpNot, docbase.Lit(docbase.NewBool(false))), row).Bool)
}

// TestEvalMatchCoercesEveryKindToString guards spec.md §4.4's "coerces
// value to string": Match must not silently evaluate to false for a
// non-string/binary field just because stringify gave up on it.
func TestEvalMatchCoercesEveryKindToString(t *testing.T) {
	tests := []struct {
		name    string
		value   docbase.Datum
		pattern string
		want    bool
	}{
		{"null coerces to empty string", docbase.Null(), `^$`, true},
		{"bool true", docbase.NewBool(true), `^true$`, true},
		{"bool false", docbase.NewBool(false), `^false$`, true},
		{"int", docbase.NewInt(42), `^42$`, true},
		{"negative int", docbase.NewInt(-7), `^-7$`, true},
		{"float", docbase.NewFloat(3.5), `^3\.5$`, true},
		{"string", docbase.NewString("hello"), `^hel`, true},
		{"binary", docbase.NewBinary([]byte("bin")), `^bin$`, true},
		{"array renders as json", docbase.NewArray([]docbase.Datum{docbase.NewInt(1), docbase.NewInt(2)}), `^\[1,2\]$`, true},
		{"object renders as json", docbase.NewObject(map[string]docbase.Datum{"a": docbase.NewInt(1)}), `"a":1`, true},
		{"int does not match unrelated pattern", docbase.NewInt(42), `^43$`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := docbase.Match(docbase.Lit(tt.value), tt.pattern, "")
			got := Eval(e, docbase.Null())
			assert.Equal(t, tt.want, got.Bool)
		})
	}
}

func TestEvalMatchInvalidPatternEvaluatesFalseNotError(t *testing.T) {
	e := docbase.Match(docbase.Lit(docbase.NewString("x")), "(unterminated", "")
	got := Eval(e, docbase.Null())
	assert.False(t, got.Bool)
}

func TestEvalMatchCaseInsensitiveFlag(t *testing.T) {
	e := docbase.Match(docbase.Lit(docbase.NewString("HELLO")), "hello", "i")
	assert.True(t, Eval(e, docbase.Null()).Bool)
}

func TestEvalSubqueryUnwrapsExpressionKind(t *testing.T) {
	row := docbase.NewObject(map[string]docbase.Datum{"x": docbase.NewInt(9)})
	inner := &docbase.Query{Kind: docbase.QueryExpression, Expr: docbase.FieldExpr(docbase.NewFieldRef("x"))}
	e := docbase.Expression{Kind: docbase.ExprSubquery, Subquery: inner}
	assert.Equal(t, docbase.NewInt(9), Eval(e, row))
}

func TestEvalSubqueryNonExpressionKindIsNull(t *testing.T) {
	inner := &docbase.Query{Kind: docbase.QueryListTables, Database: "d"}
	e := docbase.Expression{Kind: docbase.ExprSubquery, Subquery: inner}
	assert.True(t, Eval(e, docbase.Null()).IsNull())
}
