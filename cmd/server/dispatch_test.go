package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/evaluator"
	"github.com/lychee-technology/docbase/internal/planner"
	"github.com/lychee-technology/docbase/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := docbase.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.OperationSemaphore = 64
	cfg.Storage.PartitionCacheSize = 16

	store, err := storage.Open(cfg.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateDatabase(context.Background(), "shop"))
	require.NoError(t, store.CreateTable(context.Background(), "shop", "orders"))

	logger := zap.NewNop()
	return &Server{
		cfg:       cfg,
		logger:    logger,
		builder:   planner.NewBuilder(logger),
		optimizer: planner.New(logger, cfg.Query.OptimizerMaxPasses),
		evaluator: evaluator.New(store, logger),
	}
}

func TestDispatchPingReturnsPong(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.dispatch(context.Background(), &docbase.Envelope{
		Version: docbase.Version1, QueryID: "q1", Type: docbase.MessagePing,
	})
	assert.Equal(t, docbase.MessagePong, resp.Type)
	assert.Equal(t, "q1", resp.QueryID)
}

func TestDispatchInsertThenGetRoundTrips(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	doc := docbase.NewObject(map[string]docbase.Datum{
		"id":   docbase.NewString("order-1"),
		"item": docbase.NewString("widget"),
	})
	insertQuery := &docbase.Query{
		Kind: docbase.QueryInsert,
		Source: &docbase.Query{
			Kind:     docbase.QueryTable,
			TableRef: docbase.TableRef{Database: "shop", Table: "orders"},
		},
		Documents: []docbase.Datum{doc},
	}
	resp := srv.dispatch(ctx, &docbase.Envelope{
		Version: docbase.Version1, QueryID: "ins", Type: docbase.MessageQuery, Query: insertQuery,
	})
	require.Equal(t, docbase.MessageResponse, resp.Type, "insert should not error: %+v", resp.Err)
	assert.EqualValues(t, 1, resp.Result.Inserted)

	getQuery := &docbase.Query{
		Kind:     docbase.QueryGet,
		TableRef: docbase.TableRef{Database: "shop", Table: "orders"},
		Key:      docbase.Lit(docbase.NewString("order-1")),
	}
	resp = srv.dispatch(ctx, &docbase.Envelope{
		Version: docbase.Version1, QueryID: "get", Type: docbase.MessageQuery, Query: getQuery,
	})
	require.Equal(t, docbase.MessageResponse, resp.Type, "get should not error: %+v", resp.Err)
	require.NotNil(t, resp.Result.Document)
	assert.Equal(t, "widget", resp.Result.Document.Object["item"].Str)
}

func TestDispatchReservedTableCreateFails(t *testing.T) {
	srv := newTestServer(t)
	q := &docbase.Query{Kind: docbase.QueryCreateTable, TableRef: docbase.TableRef{Database: "shop", Table: "__schemas__"}}
	resp := srv.dispatch(context.Background(), &docbase.Envelope{
		Version: docbase.Version1, QueryID: "bad", Type: docbase.MessageQuery, Query: q,
	})
	require.Equal(t, docbase.MessageError, resp.Type)
	assert.Equal(t, string(docbase.ErrorTypeValidation), resp.Err.Type)
	assert.Contains(t, resp.Err.Message, "reserved")
}

func TestDispatchUnknownMessageTypeErrors(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.dispatch(context.Background(), &docbase.Envelope{
		Version: docbase.Version1, QueryID: "x", Type: docbase.MessageAuthRequest,
	})
	assert.Equal(t, docbase.MessageError, resp.Type)
}
