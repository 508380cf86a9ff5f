package evaluator

import (
	"context"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/expr"
	"github.com/lychee-technology/docbase/internal/planner"
	"github.com/lychee-technology/docbase/internal/storage"
)

// rowSource is a materialised row, threaded through the streaming operator
// chain along with the key of the last row the underlying scan emitted, so
// a continuation cursor can be derived once the chain bottoms out.
type rowSource struct {
	docs    []docbase.Datum
	lastKey string
	scanned bool // true once a TableScan/Get/GetAll leaf has been reached
	cursor  *docbase.Cursor
}

// drainStream materialises n's streaming operator chain (TableScan, Get,
// GetAll, Filter, Limit, Skip, Pluck, Without) into a page of documents plus an
// optional continuation cursor (spec.md §4.5, §8).
func (e *Evaluator) drainStream(ctx context.Context, n *planner.Node, stats *docbase.Stats) ([]docbase.Datum, *docbase.Cursor, error) {
	src, err := e.runStream(ctx, n, stats)
	if err != nil {
		return nil, nil, err
	}
	return src.docs, src.cursor, nil
}

func (e *Evaluator) runStream(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*rowSource, error) {
	switch n.Op {
	case planner.OpTableScan:
		return e.scanTable(ctx, n, stats)
	case planner.OpGet:
		doc, err := e.store.Get(ctx, n.TableRef.Database, n.TableRef.Table, n.Key)
		if err != nil {
			return nil, err
		}
		stats.RowsProcessed++
		src := &rowSource{scanned: true}
		if doc != nil {
			src.docs = []docbase.Datum{*doc}
			src.lastKey = n.Key
		}
		return src, nil
	case planner.OpGetAll:
		return e.scanGetAll(ctx, n, stats)
	case planner.OpFilter:
		return e.filterStream(ctx, n, stats)
	case planner.OpLimit:
		return e.limitStream(ctx, n, stats)
	case planner.OpSkip:
		return e.skipStream(ctx, n, stats)
	case planner.OpPluck:
		return e.pluckStream(ctx, n, stats, true)
	case planner.OpWithout:
		return e.pluckStream(ctx, n, stats, false)
	default:
		return nil, docbase.NewUnsupportedOperation("evaluator has no streaming rule for op " + string(n.Op))
	}
}

func (e *Evaluator) scanTable(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*rowSource, error) {
	startKey, limit, skip := cursorParams(n.Cursor)
	var pred storage.RowPredicate
	if n.Filter != nil {
		pred = func(doc docbase.Datum) bool { return expr.Eval(*n.Filter, doc).Truthy() }
	}
	ch, err := e.store.ScanTable(ctx, n.TableRef.Database, n.TableRef.Table, startKey, limit, skip, pred)
	if err != nil {
		return nil, err
	}
	return drainRows(ctx, ch, stats, n.Cursor.EffectiveBatchSize())
}

func (e *Evaluator) scanGetAll(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*rowSource, error) {
	startKey, limit, skip := cursorParams(n.Cursor)
	ch, err := e.store.StreamGetAll(ctx, n.TableRef.Database, n.TableRef.Table, n.Keys, startKey, limit, skip)
	if err != nil {
		return nil, err
	}
	return drainRows(ctx, ch, stats, n.Cursor.EffectiveBatchSize())
}

func drainRows(ctx context.Context, ch <-chan storage.RowOrError, stats *docbase.Stats, batchSize uint32) (*rowSource, error) {
	src := &rowSource{scanned: true}
	for {
		select {
		case <-ctx.Done():
			return nil, docbase.NewInternalError("query timed out", ctx.Err())
		case item, ok := <-ch:
			if !ok {
				src.cursor = deriveCursor(len(src.docs), batchSize, src.lastKey)
				return src, nil
			}
			if item.Err != nil {
				stats.ErrorCount++
				return nil, item.Err
			}
			stats.RowsProcessed++
			src.docs = append(src.docs, item.Doc)
			src.lastKey = item.Key
		}
	}
}

func (e *Evaluator) filterStream(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*rowSource, error) {
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	out := src.docs[:0]
	for _, d := range src.docs {
		if expr.Eval(n.Predicate, d).Truthy() {
			out = append(out, d)
		}
	}
	src.docs = out
	stats.RowsReturned += uint64(len(out))
	return src, nil
}

func (e *Evaluator) limitStream(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*rowSource, error) {
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	if n.Count >= 0 && int64(len(src.docs)) > n.Count {
		src.docs = src.docs[:n.Count]
	}
	return src, nil
}

func (e *Evaluator) skipStream(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*rowSource, error) {
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	if n.Count > 0 {
		if int64(len(src.docs)) <= n.Count {
			src.docs = nil
		} else {
			src.docs = src.docs[n.Count:]
		}
	}
	return src, nil
}

func (e *Evaluator) pluckStream(ctx context.Context, n *planner.Node, stats *docbase.Stats, keep bool) (*rowSource, error) {
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	for i, d := range src.docs {
		if keep {
			src.docs[i] = pluckFields(d, n.Fields)
		} else {
			src.docs[i] = withoutFields(d, n.Fields)
		}
	}
	return src, nil
}

func pluckFields(d docbase.Datum, fields []docbase.FieldRef) docbase.Datum {
	out := make(map[string]docbase.Datum, len(fields))
	for _, f := range fields {
		v := f.Extract(d)
		if v.IsNull() {
			continue
		}
		if len(f.Segments) > 0 {
			out[f.Segments[0]] = v
		}
	}
	return docbase.NewObject(out)
}

func withoutFields(d docbase.Datum, fields []docbase.FieldRef) docbase.Datum {
	drop := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f.Segments) == 1 {
			drop[f.Segments[0]] = true
		}
	}
	if d.Kind != docbase.KindObject {
		return d
	}
	out := make(map[string]docbase.Datum, len(d.Object))
	for k, v := range d.Object {
		if !drop[k] {
			out[k] = v
		}
	}
	return docbase.NewObject(out)
}

// evalCount materialises the source stream and returns its length. A
// standalone TableScan beneath Count still benefits from any predicate
// fused into it by the optimizer.
func (e *Evaluator) evalCount(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	stats.RowsReturned += uint64(len(src.docs))
	return &docbase.QueryResult{Count: uint64(len(src.docs))}, nil
}

// evalOrderBy fully materialises its source (sorting requires the whole
// set) and returns the sorted page with no continuation cursor.
func (e *Evaluator) evalOrderBy(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	docbase.SortByFields(src.docs, n.Sort)
	stats.RowsReturned += uint64(len(src.docs))
	return &docbase.QueryResult{Documents: src.docs}, nil
}
