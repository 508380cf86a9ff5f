package evaluator

import (
	"context"

	"github.com/google/uuid"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/expr"
	"github.com/lychee-technology/docbase/internal/planner"
	"github.com/lychee-technology/docbase/internal/storage"
)

// evalInsert writes n.Documents to their table, generating a UUIDv7 "id"
// for any document that omits one (spec.md §3's invariant that every
// stored document has a string id matching its key).
func (e *Evaluator) evalInsert(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	batch := make([]storage.KeyedDocument, 0, len(n.Documents))
	generated := make([]docbase.Datum, 0)
	for _, doc := range n.Documents {
		id, ok := docbase.DocID(doc)
		if !ok {
			gen, err := uuid.NewV7()
			if err != nil {
				return nil, docbase.NewInternalError("failed generating document id", err)
			}
			id = gen.String()
			doc = docbase.WithID(doc, id)
			generated = append(generated, docbase.NewString(id))
		}
		batch = append(batch, storage.KeyedDocument{Key: id, Doc: doc})
	}
	if err := e.store.PutBatch(ctx, n.TableRef.Database, n.TableRef.Table, batch); err != nil {
		return nil, err
	}
	stats.RowsProcessed += uint64(len(batch))
	return &docbase.QueryResult{Inserted: uint64(len(batch)), GeneratedKeys: generated}, nil
}

// evalUpdate materialises n.Source, applies Patch to each matched document,
// and writes the merged result back. Patch is evaluated once per document
// with the document itself as the row context, then shallow-merged over it.
func (e *Evaluator) evalUpdate(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	ref, err := planner.ResolveTableRef(n.Source)
	if err != nil {
		return nil, err
	}
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	batch := make([]storage.KeyedDocument, 0, len(src.docs))
	for _, doc := range src.docs {
		id, ok := docbase.DocID(doc)
		if !ok {
			return nil, docbase.NewInternalError("matched document missing id", nil)
		}
		patch := expr.Eval(n.Patch, doc)
		merged := mergeDocument(doc, patch)
		batch = append(batch, storage.KeyedDocument{Key: id, Doc: merged})
	}
	if len(batch) > 0 {
		if err := e.store.PutBatch(ctx, ref.Database, ref.Table, batch); err != nil {
			return nil, err
		}
	}
	stats.RowsProcessed += uint64(len(batch))
	return &docbase.QueryResult{Updated: uint64(len(batch))}, nil
}

// mergeDocument shallow-merges patch's top-level fields over doc. A
// non-object patch replaces the document outright.
func mergeDocument(doc, patch docbase.Datum) docbase.Datum {
	if patch.Kind != docbase.KindObject {
		return patch
	}
	out := make(map[string]docbase.Datum, len(doc.Object)+len(patch.Object))
	for k, v := range doc.Object {
		out[k] = v
	}
	for k, v := range patch.Object {
		out[k] = v
	}
	return docbase.NewObject(out)
}

// evalDelete materialises n.Source and deletes each matched document by
// its id.
func (e *Evaluator) evalDelete(ctx context.Context, n *planner.Node, stats *docbase.Stats) (*docbase.QueryResult, error) {
	ref, err := planner.ResolveTableRef(n.Source)
	if err != nil {
		return nil, err
	}
	src, err := e.runStream(ctx, n.Source, stats)
	if err != nil {
		return nil, err
	}
	var deleted uint64
	for _, doc := range src.docs {
		id, ok := docbase.DocID(doc)
		if !ok {
			return nil, docbase.NewInternalError("matched document missing id", nil)
		}
		if err := e.store.Delete(ctx, ref.Database, ref.Table, id); err != nil {
			return nil, err
		}
		deleted++
	}
	stats.RowsProcessed += deleted
	return &docbase.QueryResult{Deleted: deleted}, nil
}
