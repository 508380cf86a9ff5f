package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/planner"
	"github.com/lychee-technology/docbase/internal/storage"
)

func newTestEvaluator(t *testing.T) (*Evaluator, storage.Storage) {
	t.Helper()
	cfg := docbase.DefaultConfig().Storage
	cfg.DataDir = t.TempDir()
	cfg.OperationSemaphore = 64
	cfg.PartitionCacheSize = 16
	store, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreateDatabase(context.Background(), "d"))
	require.NoError(t, store.CreateTable(context.Background(), "d", "users"))
	return New(store, nil), store
}

func buildPlan(t *testing.T, q *docbase.Query) *planner.Node {
	t.Helper()
	n, err := planner.NewBuilder(nil).Build(q)
	require.NoError(t, err)
	return planner.New(nil, 8).Optimize(n)
}

func insertDocs(t *testing.T, ev *Evaluator, docs []docbase.Datum) []docbase.Datum {
	t.Helper()
	q := &docbase.Query{
		Kind:      docbase.QueryInsert,
		Source:    &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
		Documents: docs,
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	require.EqualValues(t, len(docs), res.Inserted)
	return res.GeneratedKeys
}

func TestInsertGeneratesID(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	keys := insertDocs(t, ev, []docbase.Datum{
		docbase.NewObject(map[string]docbase.Datum{"name": docbase.NewString("ann")}),
	})
	require.Len(t, keys, 1)
	assert.Equal(t, docbase.KindString, keys[0].Kind)
	assert.NotEmpty(t, keys[0].Str)
}

func TestInsertKeepsProvidedID(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	keys := insertDocs(t, ev, []docbase.Datum{
		docbase.WithID(docbase.NewObject(map[string]docbase.Datum{"name": docbase.NewString("bob")}), "fixed-id"),
	})
	assert.Empty(t, keys)

	q := &docbase.Query{
		Kind:   docbase.QueryGet,
		Source: &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
		Key:    docbase.Lit(docbase.NewString("fixed-id")),
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	require.NotNil(t, res.Document)
	assert.Equal(t, "bob", res.Document.Object["name"].Str)
}

func TestFilterSelectsMatchingRows(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	insertDocs(t, ev, []docbase.Datum{
		docbase.NewObject(map[string]docbase.Datum{"age": docbase.NewInt(10)}),
		docbase.NewObject(map[string]docbase.Datum{"age": docbase.NewInt(30)}),
	})

	q := &docbase.Query{
		Kind:      docbase.QueryFilter,
		Predicate: docbase.Binary(docbase.OpGt, docbase.FieldExpr(docbase.NewFieldRef("age")), docbase.Lit(docbase.NewInt(18))),
		Source:    &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.EqualValues(t, 30, res.Documents[0].Object["age"].Int)
}

func TestLimitAndSkip(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	for i := 0; i < 5; i++ {
		insertDocs(t, ev, []docbase.Datum{
			docbase.NewObject(map[string]docbase.Datum{"n": docbase.NewInt(int64(i))}),
		})
	}
	q := &docbase.Query{
		Kind:  docbase.QueryLimit,
		Count: 2,
		Source: &docbase.Query{
			Kind:   docbase.QuerySkip,
			Count:  1,
			Source: &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
		},
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 2)
}

func TestCursorAbsentBelowBatchSize(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	insertDocs(t, ev, []docbase.Datum{docbase.NewObject(map[string]docbase.Datum{"n": docbase.NewInt(1)})})

	q := &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	assert.Nil(t, res.Cursor)
}

func TestCursorPresentAtBatchBoundary(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	for i := 0; i < 3; i++ {
		insertDocs(t, ev, []docbase.Datum{docbase.NewObject(map[string]docbase.Datum{"n": docbase.NewInt(int64(i))})})
	}
	q := &docbase.Query{
		Kind:     docbase.QueryTable,
		TableRef: docbase.TableRef{Database: "d", Table: "users"},
		Options:  docbase.QueryOptions{Cursor: &docbase.Cursor{BatchSize: 3}},
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	require.Len(t, res.Documents, 3)
	require.NotNil(t, res.Cursor)
	assert.EqualValues(t, 3, res.Cursor.BatchSize)
}

func TestUpdateAppliesPatch(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	insertDocs(t, ev, []docbase.Datum{
		docbase.WithID(docbase.NewObject(map[string]docbase.Datum{"status": docbase.NewString("open")}), "u1"),
	})
	q := &docbase.Query{
		Kind: docbase.QueryUpdate,
		Source: &docbase.Query{
			Kind:   docbase.QueryGet,
			Source: &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
			Key:    docbase.Lit(docbase.NewString("u1")),
		},
		Patch: docbase.Lit(docbase.NewObject(map[string]docbase.Datum{"status": docbase.NewString("closed")})),
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Updated)
}

func TestDeleteRemovesDocument(t *testing.T) {
	ev, store := newTestEvaluator(t)
	insertDocs(t, ev, []docbase.Datum{
		docbase.WithID(docbase.NewObject(map[string]docbase.Datum{"x": docbase.NewInt(1)}), "d1"),
	})
	q := &docbase.Query{
		Kind: docbase.QueryDelete,
		Source: &docbase.Query{
			Kind:   docbase.QueryGet,
			Source: &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
			Key:    docbase.Lit(docbase.NewString("d1")),
		},
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Deleted)

	doc, err := store.Get(context.Background(), "d", "users", "d1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCountMatchesFilteredRows(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	insertDocs(t, ev, []docbase.Datum{
		docbase.NewObject(map[string]docbase.Datum{"ok": docbase.NewBool(true)}),
		docbase.NewObject(map[string]docbase.Datum{"ok": docbase.NewBool(false)}),
	})
	q := &docbase.Query{
		Kind: docbase.QueryCount,
		Source: &docbase.Query{
			Kind:      docbase.QueryFilter,
			Predicate: docbase.Binary(docbase.OpEq, docbase.FieldExpr(docbase.NewFieldRef("ok")), docbase.Lit(docbase.NewBool(true))),
			Source:    &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
		},
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Count)
}

func TestCreateTableStoresSchemaDocument(t *testing.T) {
	ev, store := newTestEvaluator(t)
	q := &docbase.Query{
		Kind:     docbase.QueryCreateTable,
		TableRef: docbase.TableRef{Database: "d", Table: "products"},
		Schema:   `{"type":"object","properties":{"price":{"type":"number"}}}`,
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Created)

	stored, err := store.Get(context.Background(), docbase.SystemDatabasePrefix, "__schemas__", "d:products")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.Object["raw"].Str, "price")
}

func TestOrderBySortsAscending(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	insertDocs(t, ev, []docbase.Datum{
		docbase.NewObject(map[string]docbase.Datum{"n": docbase.NewInt(3)}),
		docbase.NewObject(map[string]docbase.Datum{"n": docbase.NewInt(1)}),
		docbase.NewObject(map[string]docbase.Datum{"n": docbase.NewInt(2)}),
	})
	q := &docbase.Query{
		Kind:   docbase.QueryOrderBy,
		Sort:   []docbase.SortField{{Field: docbase.NewFieldRef("n")}},
		Source: &docbase.Query{Kind: docbase.QueryTable, TableRef: docbase.TableRef{Database: "d", Table: "users"}},
	}
	res, err := ev.Evaluate(context.Background(), buildPlan(t, q), 0)
	require.NoError(t, err)
	require.Len(t, res.Documents, 3)
	assert.Nil(t, res.Cursor)
	assert.EqualValues(t, 1, res.Documents[0].Object["n"].Int)
	assert.EqualValues(t, 2, res.Documents[1].Object["n"].Int)
	assert.EqualValues(t, 3, res.Documents[2].Object["n"].Int)
}
