package docbase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		d    Datum
		want bool
	}{
		{"null", Null(), false},
		{"false", NewBool(false), false},
		{"true", NewBool(true), true},
		{"zero int", NewInt(0), false},
		{"nonzero int", NewInt(1), true},
		{"zero float", NewFloat(0), false},
		{"nonzero float", NewFloat(0.1), true},
		{"empty string", NewString(""), false},
		{"nonempty string", NewString("x"), true},
		{"empty binary", NewBinary(nil), false},
		{"nonempty binary", NewBinary([]byte{0}), true},
		{"empty array", NewArray(nil), false},
		{"nonempty array", NewArray([]Datum{Null()}), true},
		{"empty object", NewObject(map[string]Datum{}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Truthy())
		})
	}
}

func TestEqualNumericCrossKind(t *testing.T) {
	assert.True(t, NewInt(3).Equal(NewFloat(3.0)))
	assert.True(t, NewFloat(3.0).Equal(NewInt(3)))
	assert.False(t, NewInt(3).Equal(NewFloat(3.1)))
	assert.True(t, NewFloat(1.0000000001).Equal(NewFloat(1.0)))
}

func TestEqualStructural(t *testing.T) {
	a := NewObject(map[string]Datum{"x": NewInt(1), "y": NewArray([]Datum{NewString("a")})})
	b := NewObject(map[string]Datum{"x": NewInt(1), "y": NewArray([]Datum{NewString("a")})})
	c := NewObject(map[string]Datum{"x": NewInt(2)})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, NewString("a").Equal(NewInt(1)))
}

func TestCompareNumeric(t *testing.T) {
	assert.Equal(t, Less, NewInt(1).Compare(NewInt(2)))
	assert.Equal(t, Greater, NewFloat(2.5).Compare(NewInt(2)))
	assert.Equal(t, Equal, NewInt(2).Compare(NewFloat(2.0)))
}

func TestCompareCrossTypeIsEqual(t *testing.T) {
	// spec.md §3: undefined cross-type comparisons (other than numeric) are
	// treated as Equal so sorts stay stable instead of erroring.
	assert.Equal(t, Equal, NewString("a").Compare(NewBool(true)))
	assert.Equal(t, Equal, NewArray(nil).Compare(NewObject(nil)))
}

func TestCompareString(t *testing.T) {
	assert.Equal(t, Less, NewString("a").Compare(NewString("b")))
	assert.Equal(t, Greater, NewString("b").Compare(NewString("a")))
	assert.Equal(t, Equal, NewString("a").Compare(NewString("a")))
}

func TestFieldRefExtract(t *testing.T) {
	doc := NewObject(map[string]Datum{
		"a": NewObject(map[string]Datum{"b": NewInt(7)}),
	})
	ref := NewFieldRef("a", "b")
	assert.Equal(t, NewInt(7), ref.Extract(doc))
}

func TestFieldRefExtractMissingResolvesToNull(t *testing.T) {
	doc := NewObject(map[string]Datum{"a": NewInt(1)})
	assert.True(t, NewFieldRef("missing").Extract(doc).IsNull())
	assert.True(t, NewFieldRef("a", "b").Extract(doc).IsNull(), "path through a non-object resolves to Null")
}

func TestParseFieldRef(t *testing.T) {
	ref, err := ParseFieldRef("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ref.Segments)
	assert.Equal(t, "a.b.c", ref.String())

	_, err = ParseFieldRef("")
	assert.Error(t, err)
}

func TestDocID(t *testing.T) {
	id, ok := DocID(NewObject(map[string]Datum{"id": NewString("k1")}))
	assert.True(t, ok)
	assert.Equal(t, "k1", id)

	_, ok = DocID(NewObject(map[string]Datum{"id": NewInt(1)}))
	assert.False(t, ok, "non-string id field does not count")

	_, ok = DocID(NewInt(1))
	assert.False(t, ok, "non-object is never a document")
}

func TestWithID(t *testing.T) {
	doc := NewObject(map[string]Datum{"item": NewString("widget")})
	out := WithID(doc, "order-1")
	id, ok := DocID(out)
	require.True(t, ok)
	assert.Equal(t, "order-1", id)
	assert.Equal(t, "widget", out.Object["item"].Str)
	// original is untouched
	_, ok = DocID(doc)
	assert.False(t, ok)
}

func TestSortByFieldsStableTieBreak(t *testing.T) {
	docs := []Datum{
		NewObject(map[string]Datum{"id": NewString("a"), "age": NewInt(30), "name": NewString("z")}),
		NewObject(map[string]Datum{"id": NewString("b"), "age": NewInt(20), "name": NewString("y")}),
		NewObject(map[string]Datum{"id": NewString("c"), "age": NewInt(30), "name": NewString("x")}),
	}
	SortByFields(docs, []SortField{
		{Field: NewFieldRef("age")},
		{Field: NewFieldRef("name")},
	})
	ids := []string{}
	for _, d := range docs {
		id, _ := DocID(d)
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestSortByFieldsDescending(t *testing.T) {
	docs := []Datum{
		NewObject(map[string]Datum{"id": NewString("a"), "age": NewInt(1)}),
		NewObject(map[string]Datum{"id": NewString("b"), "age": NewInt(3)}),
		NewObject(map[string]Datum{"id": NewString("c"), "age": NewInt(2)}),
	}
	SortByFields(docs, []SortField{{Field: NewFieldRef("age"), Descending: true}})
	ids := []string{}
	for _, d := range docs {
		id, _ := DocID(d)
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNull:   "null",
		KindBool:   "bool",
		KindInt:    "int",
		KindFloat:  "float",
		KindString: "string",
		KindBinary: "binary",
		KindArray:  "array",
		KindObject: "object",
		KindParam:  "param",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
