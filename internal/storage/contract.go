// Package storage implements the behavioural storage contract spec.md §4.1
// requires of any ordered key-value engine with column families (here,
// key-prefix namespaces), prefix iteration, batched writes, and
// forward-range cursors.
package storage

import (
	"context"

	"github.com/lychee-technology/docbase"
)

// Storage is the contract the evaluator depends on (spec.md §4.1). Every
// method returns a *docbase.DBError on failure.
type Storage interface {
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	DatabaseExists(ctx context.Context, name string) (bool, error)

	CreateTable(ctx context.Context, db, table string) error
	DropTable(ctx context.Context, db, table string) error
	TableExists(ctx context.Context, db, table string) (bool, error)

	Get(ctx context.Context, db, table, key string) (*docbase.Datum, error)
	Put(ctx context.Context, db, table, key string, doc docbase.Datum) error
	PutBatch(ctx context.Context, db, table string, docs []KeyedDocument) error
	Delete(ctx context.Context, db, table, key string) error

	ScanTable(ctx context.Context, db, table string, startKey string, limit, skip int, predicate RowPredicate) (<-chan RowOrError, error)
	StreamDatabases(ctx context.Context, startKey string, limit, skip int) (<-chan StringOrError, error)
	StreamTables(ctx context.Context, db, startKey string, limit, skip int) (<-chan StringOrError, error)
	StreamGetAll(ctx context.Context, db, table string, keys []string, startKey string, limit, skip int) (<-chan RowOrError, error)

	Close() error
}

// KeyedDocument pairs a key with its document for PutBatch.
type KeyedDocument struct {
	Key string
	Doc docbase.Datum
}

// RowPredicate is evaluated inside a scan to drop rows before they leave
// the engine ("predicate pushdown", spec.md §4.1).
type RowPredicate func(doc docbase.Datum) bool

// RowOrError is a single item of a document stream; a non-nil Err
// terminates the stream (spec.md §4.1's stream contract).
type RowOrError struct {
	Key string
	Doc docbase.Datum
	Err error
}

// StringOrError is a single item of a key-name stream (database/table
// listings).
type StringOrError struct {
	Value string
	Err   error
}

// streamBufferCap implements spec.md §4.1: "channel capacity =
// min(limit, 1000), at least 1".
func streamBufferCap(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 1000
	}
	return limit
}
