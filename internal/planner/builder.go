package planner

import (
	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/expr"
)

// Builder turns a Query tree into a Node tree, following the recursive
// descent shape of the teacher's query-tree normalizer, generalized from
// a two-level filter tree to the full Query AST (spec.md §4.3).
type Builder struct {
	logger *zap.Logger
}

// NewBuilder constructs a Builder. A nil logger falls back to zap.NewNop().
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build converts q into a Node tree and reprices every node bottom-up.
func (b *Builder) Build(q *docbase.Query) (*Node, error) {
	b.logger.Debug("building plan", zap.String("kind", string(q.Kind)))
	n, err := b.build(q)
	if err != nil {
		return nil, err
	}
	n.Export = q.Options.Export
	repriceTree(n)
	return n, nil
}

func (b *Builder) build(q *docbase.Query) (*Node, error) {
	if q == nil {
		return nil, docbase.NewMissingTableReference()
	}

	var source *Node
	var err error
	if q.Source != nil {
		source, err = b.build(q.Source)
		if err != nil {
			return nil, err
		}
	}

	switch q.Kind {
	case docbase.QueryCreateDatabase:
		if docbase.IsReservedDatabase(q.Database) {
			return nil, docbase.NewReservedNamespaceError(q.Database)
		}
		return &Node{Op: OpCreateDatabase, Database: q.Database}, nil
	case docbase.QueryDropDatabase:
		if docbase.IsReservedDatabase(q.Database) {
			return nil, docbase.NewReservedNamespaceError(q.Database)
		}
		return &Node{Op: OpDropDatabase, Database: q.Database}, nil
	case docbase.QueryListDatabases:
		return &Node{Op: OpListDatabases}, nil
	case docbase.QueryCreateTable:
		if docbase.IsReservedTable(q.TableRef.Table) {
			return nil, docbase.NewReservedNamespaceError(q.TableRef.Table)
		}
		return &Node{Op: OpCreateTable, TableRef: q.TableRef, Schema: q.Schema}, nil
	case docbase.QueryDropTable:
		if docbase.IsReservedTable(q.TableRef.Table) {
			return nil, docbase.NewReservedNamespaceError(q.TableRef.Table)
		}
		return &Node{Op: OpDropTable, TableRef: q.TableRef}, nil
	case docbase.QueryListTables:
		return &Node{Op: OpListTables, Database: q.Database}, nil

	case docbase.QueryTable:
		return &Node{Op: OpTableScan, TableRef: q.TableRef, Cursor: q.Options.Cursor}, nil

	case docbase.QueryGet:
		ref, err := tableRefOf(source, q)
		if err != nil {
			return nil, err
		}
		key, err := coerceKey(q.Key)
		if err != nil {
			return nil, err
		}
		return &Node{Op: OpGet, TableRef: ref, Key: key}, nil

	case docbase.QueryGetAll:
		ref, err := tableRefOf(source, q)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(q.Keys))
		for _, ke := range q.Keys {
			k, err := coerceKey(ke)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		return &Node{Op: OpGetAll, TableRef: ref, Keys: keys, Cursor: q.Options.Cursor}, nil

	case docbase.QueryInsert:
		ref, err := resolveTableRef(q.Source)
		if err != nil {
			return nil, err
		}
		return &Node{Op: OpInsert, TableRef: ref, Documents: q.Documents}, nil

	case docbase.QueryUpdate:
		if source == nil {
			return nil, docbase.NewInvalidInsertTarget("update requires a source query")
		}
		if _, terr := resolveNodeTableRef(source); terr != nil {
			return nil, docbase.NewInvalidExpression(
				"update source must resolve to a table, get, get_all, or insert")
		}
		return &Node{Op: OpUpdate, Source: source, Patch: q.Patch}, nil

	case docbase.QueryDelete:
		if source == nil {
			return nil, docbase.NewInvalidInsertTarget("delete requires a source query")
		}
		if _, terr := resolveNodeTableRef(source); terr != nil {
			return nil, docbase.NewInvalidExpression(
				"delete source must resolve to a table, get, get_all, or insert")
		}
		return &Node{Op: OpDelete, Source: source}, nil

	case docbase.QueryFilter:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		if !expr.IsBooleanExpression(q.Predicate) {
			return nil, docbase.NewInvalidExpression("filter predicate must be a boolean-shaped expression")
		}
		return &Node{Op: OpFilter, Source: source, Predicate: q.Predicate}, nil

	case docbase.QueryOrderBy:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		return &Node{Op: OpOrderBy, Source: source, Sort: q.Sort}, nil

	case docbase.QueryLimit:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		if q.Count < 0 {
			return nil, docbase.NewInvalidLimit(q.Count)
		}
		return &Node{Op: OpLimit, Source: source, Count: q.Count}, nil

	case docbase.QuerySkip:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		if q.Count < 0 {
			return nil, docbase.NewInvalidSkip(q.Count)
		}
		return &Node{Op: OpSkip, Source: source, Count: q.Count}, nil

	case docbase.QueryCount:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		return &Node{Op: OpCount, Source: source}, nil

	case docbase.QueryPluck:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		return &Node{Op: OpPluck, Source: source, Fields: q.Fields}, nil

	case docbase.QueryWithout:
		if source == nil {
			return nil, docbase.NewMissingTableReference()
		}
		return &Node{Op: OpWithout, Source: source, Fields: q.Fields}, nil

	case docbase.QueryExpression:
		if q.Expr.Kind == docbase.ExprSubquery {
			return &Node{Op: OpSubquery, Query: q.Expr.Subquery}, nil
		}
		if !q.Expr.IsLiteral() {
			return nil, docbase.NewUnsupportedOperation("bare non-constant expression has no row source")
		}
		return &Node{Op: OpConstant, Value: q.Expr.Literal}, nil

	case docbase.QuerySubquery:
		return &Node{Op: OpSubquery, Query: q.Query}, nil

	default:
		return nil, docbase.NewUnsupportedOperation("unrecognised query kind: " + string(q.Kind))
	}
}

// tableRefOf resolves a Get/GetAll's table reference either from an
// already-built Table source node or directly from the query's own
// TableRef field (for a Get/GetAll built without an explicit
// Source=Table, i.e. TableRef was set directly on the query).
func tableRefOf(source *Node, q *docbase.Query) (docbase.TableRef, error) {
	if source != nil {
		return resolveNodeTableRef(source)
	}
	if q.TableRef.Table != "" {
		return q.TableRef, nil
	}
	return docbase.TableRef{}, docbase.NewMissingTableReference()
}

// ResolveTableRef exposes resolveNodeTableRef to other packages (the
// evaluator needs it to find a mutation's write target).
func ResolveTableRef(n *Node) (docbase.TableRef, error) {
	return resolveNodeTableRef(n)
}

func resolveNodeTableRef(n *Node) (docbase.TableRef, error) {
	for cur := n; cur != nil; cur = cur.Source {
		switch cur.Op {
		case OpTableScan, OpGet, OpGetAll, OpInsert, OpCreateTable, OpDropTable:
			return cur.TableRef, nil
		}
	}
	return docbase.TableRef{}, docbase.NewMissingTableReference()
}

// resolveTableRef walks a Query's Source chain (ignoring pass-through
// wrappers) to find the concrete (db, table) a mutation should target.
// Per the Update/Delete source-resolution decision, any shape that does
// not bottom out at Table/Get/GetAll/Insert fails at build time.
func resolveTableRef(q *docbase.Query) (docbase.TableRef, error) {
	for cur := q; cur != nil; cur = cur.Source {
		switch cur.Kind {
		case docbase.QueryTable:
			return cur.TableRef, nil
		case docbase.QueryGet, docbase.QueryGetAll:
			if cur.TableRef.Table != "" {
				return cur.TableRef, nil
			}
			if cur.Source != nil {
				continue
			}
		case docbase.QueryInsert:
			return resolveTableRef(cur.Source)
		case docbase.QueryFilter, docbase.QueryOrderBy, docbase.QueryLimit,
			docbase.QuerySkip, docbase.QueryPluck, docbase.QueryWithout:
			continue
		default:
			return docbase.TableRef{}, docbase.NewInvalidInsertTarget(
				"mutation source must resolve to a table, get, get_all, or insert")
		}
	}
	return docbase.TableRef{}, docbase.NewMissingTableReference()
}

// coerceKey coerces a literal Int or String expression to its canonical
// string key form (spec.md §4.3); any other expression shape or literal
// kind fails.
func coerceKey(e docbase.Expression) (string, error) {
	if e.Kind != docbase.ExprLiteral {
		return "", docbase.NewInvalidExpression("get/get_all keys must be literal values")
	}
	switch e.Literal.Kind {
	case docbase.KindString:
		return e.Literal.Str, nil
	case docbase.KindInt:
		return formatInt(e.Literal.Int), nil
	default:
		return "", docbase.NewInvalidKeyType(e.Literal.Kind)
	}
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
