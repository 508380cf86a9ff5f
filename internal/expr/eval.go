package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/lychee-technology/docbase"
)

// regexCache memoizes compiled patterns by "flags++pattern" so repeated
// Match evaluation (once per row) does not recompile per call.
var regexCache sync.Map // map[string]*regexp.Regexp

// Eval evaluates expr against row without mutation, per spec.md §4.4.
// row is usually an Object-shaped Datum; Field/Variable lookups against a
// non-object row resolve to Null, the same as a missing field.
func Eval(e docbase.Expression, row docbase.Datum) docbase.Datum {
	switch e.Kind {
	case docbase.ExprLiteral:
		return e.Literal

	case docbase.ExprField:
		return e.Field.Extract(row)

	case docbase.ExprVariable:
		// Variable lookup falls back to a single-segment field ref in the
		// row; lambda scoping is a future extension (spec.md §4.4).
		return docbase.NewFieldRef(e.Name).Extract(row)

	case docbase.ExprBinary:
		return evalBinary(e, row)

	case docbase.ExprUnary:
		return evalUnary(e, row)

	case docbase.ExprMatch:
		return evalMatch(e, row)

	case docbase.ExprSubquery:
		return evalSubquery(e, row)

	default:
		return docbase.Null()
	}
}

func evalBinary(e docbase.Expression, row docbase.Datum) docbase.Datum {
	switch e.BinOp {
	case docbase.OpAnd:
		left := Eval(*e.Left, row)
		if !left.Truthy() {
			return docbase.NewBool(false)
		}
		return docbase.NewBool(Eval(*e.Right, row).Truthy())
	case docbase.OpOr:
		left := Eval(*e.Left, row)
		if left.Truthy() {
			return docbase.NewBool(true)
		}
		return docbase.NewBool(Eval(*e.Right, row).Truthy())
	}

	left := Eval(*e.Left, row)
	right := Eval(*e.Right, row)
	switch e.BinOp {
	case docbase.OpEq:
		return docbase.NewBool(left.Equal(right))
	case docbase.OpNe:
		return docbase.NewBool(!left.Equal(right))
	case docbase.OpLt:
		return docbase.NewBool(left.Compare(right) == docbase.Less)
	case docbase.OpLe:
		cmp := left.Compare(right)
		return docbase.NewBool(cmp == docbase.Less || cmp == docbase.Equal)
	case docbase.OpGt:
		return docbase.NewBool(left.Compare(right) == docbase.Greater)
	case docbase.OpGe:
		cmp := left.Compare(right)
		return docbase.NewBool(cmp == docbase.Greater || cmp == docbase.Equal)
	default:
		return docbase.Null()
	}
}

func evalUnary(e docbase.Expression, row docbase.Datum) docbase.Datum {
	switch e.UnOp {
	case docbase.OpNot:
		return docbase.NewBool(!Eval(*e.Operand, row).Truthy())
	default:
		return docbase.Null()
	}
}

func evalMatch(e docbase.Expression, row docbase.Datum) docbase.Datum {
	value := Eval(*e.MatchValue, row)
	s := stringify(value)
	re, err := compileCached(e.MatchFlags, e.MatchPattern)
	if err != nil {
		// A compile failure evaluates to false, never an error
		// (spec.md §4.4).
		return docbase.NewBool(false)
	}
	return docbase.NewBool(re.MatchString(s))
}

func compileCached(flags, pattern string) (*regexp.Regexp, error) {
	key := flags + pattern
	if v, ok := regexCache.Load(key); ok {
		return v.(*regexp.Regexp), nil
	}
	full := pattern
	if flags != "" {
		full = fmt.Sprintf("(?%s)%s", flags, pattern)
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, err
	}
	regexCache.Store(key, re)
	return re, nil
}

// stringify coerces d to its canonical string form for Match (spec.md
// §4.4: Match "coerces value to string"). Null coerces to "" — there is
// no canonical non-empty rendering of absence, and "" matches nothing but
// a pattern that explicitly allows an empty string. Array/Object fall
// back to their JSON encoding so a Match against a composite field is at
// least well-defined rather than silently false.
func stringify(d docbase.Datum) string {
	switch d.Kind {
	case docbase.KindNull:
		return ""
	case docbase.KindBool:
		return strconv.FormatBool(d.Bool)
	case docbase.KindInt:
		return strconv.FormatInt(d.Int, 10)
	case docbase.KindFloat:
		return strconv.FormatFloat(d.Float, 'g', -1, 64)
	case docbase.KindString:
		return d.Str
	case docbase.KindBinary:
		return string(d.Binary)
	case docbase.KindArray, docbase.KindObject:
		if b, err := json.Marshal(toJSONValue(d)); err == nil {
			return string(b)
		}
		return ""
	default:
		return ""
	}
}

// toJSONValue converts d into the nearest encoding/json-friendly native
// value, for Array/Object rendering inside stringify.
func toJSONValue(d docbase.Datum) any {
	switch d.Kind {
	case docbase.KindNull:
		return nil
	case docbase.KindBool:
		return d.Bool
	case docbase.KindInt:
		return d.Int
	case docbase.KindFloat:
		return d.Float
	case docbase.KindString:
		return d.Str
	case docbase.KindBinary:
		return string(d.Binary)
	case docbase.KindArray:
		out := make([]any, len(d.Array))
		for i, el := range d.Array {
			out[i] = toJSONValue(el)
		}
		return out
	case docbase.KindObject:
		out := make(map[string]any, len(d.Object))
		for k, v := range d.Object {
			out[k] = toJSONValue(v)
		}
		return out
	default:
		return nil
	}
}

// evalSubquery implements spec.md §4.4: a Subquery whose inner query is
// itself an Expression unwraps and evaluates in the current row context;
// any other shape has no meaning outside a row source.
func evalSubquery(e docbase.Expression, row docbase.Datum) docbase.Datum {
	if e.Subquery == nil || e.Subquery.Kind != docbase.QueryExpression {
		return docbase.Null()
	}
	return Eval(e.Subquery.Expr, row)
}
