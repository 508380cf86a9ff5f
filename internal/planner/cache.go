package planner

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lychee-technology/docbase"
)

// foldCache memoizes constant-folding results by a canonical string
// encoding of the expression tree (spec.md §4.3's "results are memoised
// by a keying of the expression tree").
type foldCache struct {
	mu    sync.Mutex
	table map[string]docbase.Expression
}

func newFoldCache() *foldCache {
	return &foldCache{table: make(map[string]docbase.Expression)}
}

func (c *foldCache) get(key string) (docbase.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.table[key]
	return e, ok
}

func (c *foldCache) put(key string, e docbase.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table[key] = e
}

// exprKey produces a deterministic string encoding of an expression tree
// suitable as a fold-cache key. It need not be human-readable, only
// injective over the shapes the planner produces.
func exprKey(e docbase.Expression) string {
	var b strings.Builder
	writeExprKey(&b, e)
	return b.String()
}

func writeExprKey(b *strings.Builder, e docbase.Expression) {
	b.WriteByte('(')
	b.WriteString(string(e.Kind))
	switch e.Kind {
	case docbase.ExprLiteral:
		b.WriteByte(':')
		b.WriteString(datumKey(e.Literal))
	case docbase.ExprField:
		b.WriteByte(':')
		b.WriteString(e.Field.String())
	case docbase.ExprVariable:
		b.WriteByte(':')
		b.WriteString(e.Name)
	case docbase.ExprBinary:
		b.WriteByte(':')
		b.WriteString(string(e.BinOp))
		writeExprKey(b, *e.Left)
		writeExprKey(b, *e.Right)
	case docbase.ExprUnary:
		b.WriteByte(':')
		b.WriteString(string(e.UnOp))
		writeExprKey(b, *e.Operand)
	case docbase.ExprMatch:
		writeExprKey(b, *e.MatchValue)
		b.WriteByte(':')
		b.WriteString(e.MatchFlags)
		b.WriteByte(':')
		b.WriteString(e.MatchPattern)
	case docbase.ExprSubquery:
		// A subquery is keyed by the identity of its *Query; the cached
		// expression holds that pointer, so the address is not reused.
		fmt.Fprintf(b, ":%p", e.Subquery)
	}
	b.WriteByte(')')
}

// datumKey renders a literal's full value, not just its Kind, so that two
// literals of the same kind but different value (e.g. Int(30) vs Int(50))
// never collide in the fold cache — the cache is built once per Optimizer
// and shared across every connection and query for the life of the
// process (cmd/server/main.go), so a kind-only key would let one query's
// folded expression leak into another's result.
func datumKey(d docbase.Datum) string {
	switch d.Kind {
	case docbase.KindNull:
		return "null"
	case docbase.KindBool:
		if d.Bool {
			return "true"
		}
		return "false"
	case docbase.KindInt:
		return "i:" + strconv.FormatInt(d.Int, 10)
	case docbase.KindFloat:
		return "f:" + strconv.FormatUint(math.Float64bits(d.Float), 16)
	case docbase.KindString:
		return "s:" + lenPrefixed(d.Str)
	case docbase.KindBinary:
		return "bin:" + lenPrefixed(base64.StdEncoding.EncodeToString(d.Binary))
	case docbase.KindArray:
		var b strings.Builder
		b.WriteString("arr:")
		for _, el := range d.Array {
			b.WriteString(lenPrefixed(datumKey(el)))
		}
		return b.String()
	case docbase.KindObject:
		keys := make([]string, 0, len(d.Object))
		for k := range d.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("obj:")
		for _, k := range keys {
			b.WriteString(lenPrefixed(k))
			b.WriteString(lenPrefixed(datumKey(d.Object[k])))
		}
		return b.String()
	case docbase.KindParam:
		return "p:" + d.Param
	default:
		return d.Kind.String()
	}
}

// lenPrefixed encodes s with its byte length so concatenating several
// encoded fields (array elements, object key/value pairs) stays unambiguous
// regardless of what characters s itself contains.
func lenPrefixed(s string) string {
	return strconv.Itoa(len(s)) + ":" + s
}

// exprEqual reports whether a and b are syntactically identical trees
// (used by Eq/Ne constant folding of equal non-parameter children,
// spec.md §4.3).
func exprEqual(a, b docbase.Expression) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == docbase.ExprLiteral && a.Literal.Kind == docbase.KindParam {
		return false
	}
	return exprKey(a) == exprKey(b)
}
