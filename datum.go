package docbase

import (
	"fmt"
	"math"
	"sort"
)

// Kind identifies which variant a Datum holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
	KindArray
	KindObject
	// KindParam carries a named placeholder; nothing in the planner or
	// evaluator substitutes a value for it.
	KindParam
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindParam:
		return "param"
	default:
		return "unknown"
	}
}

// Datum is the root tagged-union value type used for every document field
// and every expression literal. Only one of the typed fields is populated,
// selected by Kind.
type Datum struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Binary []byte
	Array  []Datum
	Object map[string]Datum
	Param  string
}

func Null() Datum                { return Datum{Kind: KindNull} }
func NewBool(v bool) Datum       { return Datum{Kind: KindBool, Bool: v} }
func NewInt(v int64) Datum       { return Datum{Kind: KindInt, Int: v} }
func NewFloat(v float64) Datum   { return Datum{Kind: KindFloat, Float: v} }
func NewString(v string) Datum   { return Datum{Kind: KindString, Str: v} }
func NewBinary(v []byte) Datum   { return Datum{Kind: KindBinary, Binary: v} }
func NewArray(v []Datum) Datum   { return Datum{Kind: KindArray, Array: v} }
func NewObject(v map[string]Datum) Datum {
	return Datum{Kind: KindObject, Object: v}
}
func NewParam(name string) Datum { return Datum{Kind: KindParam, Param: name} }

// IsNull reports whether d is the Null variant.
func (d Datum) IsNull() bool { return d.Kind == KindNull }

// Truthy implements spec.md §3: Null/false/0/0.0/""/[]/binary{} are false,
// objects are always true.
func (d Datum) Truthy() bool {
	switch d.Kind {
	case KindNull:
		return false
	case KindBool:
		return d.Bool
	case KindInt:
		return d.Int != 0
	case KindFloat:
		return d.Float != 0
	case KindString:
		return d.Str != ""
	case KindBinary:
		return len(d.Binary) > 0
	case KindArray:
		return len(d.Array) > 0
	case KindObject:
		return true
	default:
		return false
	}
}

const floatEqEpsilon = 1e-9

// Equal implements spec.md §3 equality: Int/Float compare by mathematical
// value (epsilon-tolerant for Float-Float); every other pair compares
// structurally within its own type.
func (d Datum) Equal(other Datum) bool {
	if isNumeric(d) && isNumeric(other) {
		return numericEqual(d, other)
	}
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case KindNull:
		return true
	case KindBool:
		return d.Bool == other.Bool
	case KindString:
		return d.Str == other.Str
	case KindBinary:
		return string(d.Binary) == string(other.Binary)
	case KindArray:
		if len(d.Array) != len(other.Array) {
			return false
		}
		for i := range d.Array {
			if !d.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(d.Object) != len(other.Object) {
			return false
		}
		for k, v := range d.Object {
			ov, ok := other.Object[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	case KindParam:
		return d.Param == other.Param
	default:
		return false
	}
}

func isNumeric(d Datum) bool { return d.Kind == KindInt || d.Kind == KindFloat }

func asFloat(d Datum) float64 {
	if d.Kind == KindInt {
		return float64(d.Int)
	}
	return d.Float
}

func numericEqual(a, b Datum) bool {
	if a.Kind == KindInt && b.Kind == KindInt {
		return a.Int == b.Int
	}
	return math.Abs(asFloat(a)-asFloat(b)) <= floatEqEpsilon
}

// Ordering is the result of comparing two Datums for sort purposes.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Compare implements spec.md §3 ordering: defined between the numeric pair,
// same-typed strings/bools, and Null-vs-Null; every other cross-type pair
// is treated as Equal so sorts stay stable rather than erroring.
func (d Datum) Compare(other Datum) Ordering {
	if isNumeric(d) && isNumeric(other) {
		return compareFloat(asFloat(d), asFloat(other))
	}
	if d.Kind != other.Kind {
		return Equal
	}
	switch d.Kind {
	case KindNull:
		return Equal
	case KindBool:
		return compareBool(d.Bool, other.Bool)
	case KindString:
		return compareOrdered(d.Str, other.Str)
	case KindBinary:
		return compareOrdered(string(d.Binary), string(other.Binary))
	default:
		return Equal
	}
}

func compareFloat(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareBool(a, b bool) Ordering {
	if a == b {
		return Equal
	}
	if !a && b {
		return Less
	}
	return Greater
}

func compareOrdered(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// FieldRef is a non-empty dotted path of segments applied to a Datum
// left-to-right; missing intermediate objects resolve to Null, never error.
type FieldRef struct {
	Segments []string
}

func NewFieldRef(segments ...string) FieldRef {
	return FieldRef{Segments: segments}
}

// ParseFieldRef splits a dot-separated path into a FieldRef.
func ParseFieldRef(path string) (FieldRef, error) {
	if path == "" {
		return FieldRef{}, fmt.Errorf("field path must not be empty")
	}
	segs := splitDot(path)
	return FieldRef{Segments: segs}, nil
}

func splitDot(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func (f FieldRef) String() string {
	out := ""
	for i, seg := range f.Segments {
		if i > 0 {
			out += "."
		}
		out += seg
	}
	return out
}

// Extract walks d according to f's segments, left to right. A missing
// intermediate object, or a non-object encountered mid-path, resolves to
// Null rather than erroring, per spec.md §3.
func (f FieldRef) Extract(d Datum) Datum {
	cur := d
	for _, seg := range f.Segments {
		if cur.Kind != KindObject {
			return Null()
		}
		next, ok := cur.Object[seg]
		if !ok {
			return Null()
		}
		cur = next
	}
	return cur
}

// DocID extracts the required string "id" field of a document-shaped
// Datum. Returns ("", false) if absent or not a string.
func DocID(doc Datum) (string, bool) {
	if doc.Kind != KindObject {
		return "", false
	}
	idField, ok := doc.Object["id"]
	if !ok || idField.Kind != KindString {
		return "", false
	}
	return idField.Str, true
}

// WithID returns a copy of doc with its "id" field set.
func WithID(doc Datum, id string) Datum {
	out := make(map[string]Datum, len(doc.Object)+1)
	for k, v := range doc.Object {
		out[k] = v
	}
	out["id"] = NewString(id)
	return Datum{Kind: KindObject, Object: out}
}

// SortByFields stably sorts docs by the given field paths and directions.
// Ties on an earlier field fall through to later fields, matching
// spec.md §4.5's "stable ordering with tie-breaks on subsequent fields".
func SortByFields(docs []Datum, fields []SortField) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, f := range fields {
			a := f.Field.Extract(docs[i])
			b := f.Field.Extract(docs[j])
			cmp := a.Compare(b)
			if cmp == Equal {
				continue
			}
			if f.Descending {
				return cmp == Greater
			}
			return cmp == Less
		}
		return false
	})
}

// SortField pairs a field path with a sort direction for SortByFields.
type SortField struct {
	Field      FieldRef
	Descending bool
}
