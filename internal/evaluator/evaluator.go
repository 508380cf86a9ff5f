// Package evaluator drives an optimised plan tree against the storage
// contract, producing a streamed or materialised QueryResult plus
// per-query statistics (spec.md §4.5).
package evaluator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/planner"
	"github.com/lychee-technology/docbase/internal/schema"
	"github.com/lychee-technology/docbase/internal/storage"
)

// Evaluator holds the storage backend reference and logger used across
// every Evaluate call, following the one-struct, one-method-per-query-kind
// dispatch shape of the teacher's entity manager, retargeted from
// SQL/EAV bodies to plan-tree execution.
type Evaluator struct {
	store      storage.Storage
	logger     *zap.Logger
	exportHook ExportHook
}

// ExportHook snapshots database/table's just-scanned docs, e.g. to
// Parquet+S3 (SPEC_FULL.md §C). Evaluate calls it synchronously, after a
// successful scan-shaped result, when the query's export flag is set;
// a nil hook (the default) makes the flag a no-op.
type ExportHook func(ctx context.Context, database, table string, docs []docbase.Datum) error

// New constructs an Evaluator over store.
func New(store storage.Storage, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{store: store, logger: logger}
}

// SetExportHook wires the ad-hoc snapshot-export hook (SPEC_FULL.md §C).
func (e *Evaluator) SetExportHook(hook ExportHook) { e.exportHook = hook }

// Evaluate executes plan, honoring the query's timeout, and returns a
// typed QueryResult plus accumulated Stats (spec.md §4.5).
func (e *Evaluator) Evaluate(ctx context.Context, plan *planner.Node, timeout time.Duration) (*docbase.QueryResult, error) {
	if timeout <= 0 {
		timeout = docbase.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stats := &docbase.Stats{}
	start := time.Now()

	res, err := e.evaluateNode(ctx, plan, stats)
	stats.DurationNanos = time.Since(start).Nanoseconds()
	if err != nil {
		return nil, err
	}
	res.Stats = stats

	if plan.Export && e.exportHook != nil && res.Documents != nil {
		if ref, terr := planner.ResolveTableRef(plan); terr == nil {
			if herr := e.exportHook(ctx, ref.Database, ref.Table, res.Documents); herr != nil {
				e.logger.Warn("ad-hoc export hook failed",
					zap.String("database", ref.Database), zap.String("table", ref.Table), zap.Error(herr))
			}
		}
	}

	return res, nil
}

func (e *Evaluator) evaluateNode(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	switch n.Op {
	case planner.OpConstant:
		return e.evalConstant(n), nil

	case planner.OpCreateDatabase:
		if err := e.store.CreateDatabase(ctx, n.Database); err != nil {
			return nil, err
		}
		return &docbase.QueryResult{Created: 1}, nil

	case planner.OpDropDatabase:
		if err := e.store.DropDatabase(ctx, n.Database); err != nil {
			return nil, err
		}
		return &docbase.QueryResult{Dropped: 1}, nil

	case planner.OpCreateTable:
		if err := e.store.CreateTable(ctx, n.TableRef.Database, n.TableRef.Table); err != nil {
			return nil, err
		}
		if n.Schema != "" {
			if err := e.storeSchema(ctx, n.TableRef, n.Schema); err != nil {
				return nil, err
			}
		}
		return &docbase.QueryResult{Created: 1}, nil

	case planner.OpDropTable:
		if err := e.store.DropTable(ctx, n.TableRef.Database, n.TableRef.Table); err != nil {
			return nil, err
		}
		_ = e.store.Delete(ctx, docbase.SystemDatabasePrefix, "__schemas__", schema.Key(n.TableRef.Database, n.TableRef.Table))
		return &docbase.QueryResult{Dropped: 1}, nil

	case planner.OpListDatabases:
		return e.evalListDatabases(ctx, n, stats)

	case planner.OpListTables:
		return e.evalListTables(ctx, n, stats)

	case planner.OpGet:
		return e.evalGet(ctx, n, stats)

	case planner.OpInsert:
		return e.evalInsert(ctx, n, stats)

	case planner.OpUpdate:
		return e.evalUpdate(ctx, n, stats)

	case planner.OpDelete:
		return e.evalDelete(ctx, n, stats)

	case planner.OpCount:
		return e.evalCount(ctx, n, stats)

	case planner.OpOrderBy:
		return e.evalOrderBy(ctx, n, stats)

	case planner.OpTableScan, planner.OpGetAll, planner.OpFilter, planner.OpLimit, planner.OpSkip, planner.OpPluck, planner.OpWithout:
		docs, cursor, err := e.drainStream(ctx, n, stats)
		if err != nil {
			return nil, err
		}
		return &docbase.QueryResult{Documents: docs, Cursor: cursor}, nil

	case planner.OpSubquery:
		return nil, docbase.NewUnsupportedOperation("subquery evaluation requires a row context; use it inside an expression")

	default:
		return nil, docbase.NewUnsupportedOperation("evaluator has no rule for op " + string(n.Op))
	}
}

func (e *Evaluator) evalConstant(n *planner.Node) *docbase.QueryResult {
	if n.Value.Kind == docbase.KindArray {
		return &docbase.QueryResult{Documents: n.Value.Array}
	}
	return &docbase.QueryResult{Documents: []docbase.Datum{n.Value}}
}

func (e *Evaluator) evalListDatabases(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	startKey, limit, skip := cursorParams(nil)
	ch, err := e.store.StreamDatabases(ctx, startKey, limit, skip)
	if err != nil {
		return nil, err
	}
	names, err := drainStrings(ctx, ch, stats)
	if err != nil {
		return nil, err
	}
	return &docbase.QueryResult{Names: names}, nil
}

func (e *Evaluator) evalListTables(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	startKey, limit, skip := cursorParams(nil)
	ch, err := e.store.StreamTables(ctx, n.Database, startKey, limit, skip)
	if err != nil {
		return nil, err
	}
	names, err := drainStrings(ctx, ch, stats)
	if err != nil {
		return nil, err
	}
	return &docbase.QueryResult{Names: names}, nil
}

func drainStrings(ctx context.Context, ch <-chan storage.StringOrError, stats *docbase.Stats) ([]string, error) {
	var out []string
	for item := range ch {
		if item.Err != nil {
			stats.ErrorCount++
			return nil, item.Err
		}
		out = append(out, item.Value)
		stats.RowsReturned++
	}
	return out, nil
}

func (e *Evaluator) evalGet(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	doc, err := e.store.Get(ctx, n.TableRef.Database, n.TableRef.Table, n.Key)
	if err != nil {
		return nil, err
	}
	stats.RowsProcessed++
	if doc != nil {
		stats.RowsReturned++
	}
	return &docbase.QueryResult{Document: doc}, nil
}
