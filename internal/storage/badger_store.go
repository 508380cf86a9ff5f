package storage

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/wire"
)

// databaseRegistryPrefix and tableRegistryPrefix key the system metadata
// partitions recording which databases/tables exist (spec.md §4.1:
// "Databases are recorded as keys in a system namespace `__databases__`").
const (
	databaseRegistryPrefix = "\x01meta\x01db\x01"
	tableRegistryPrefix    = "\x01meta\x01table\x01"
)

// BadgerStore implements Storage atop a single embedded badger.DB, using
// key-prefix namespacing in place of literal RocksDB-style column
// families (spec.md §1, §4.1).
type BadgerStore struct {
	db   *badger.DB
	gate chan struct{}

	schemaMu   sync.Mutex
	partitions *partitionCache
}

// Open creates or opens a badger-backed Storage at cfg.DataDir, tuned by
// cfg's LSM knobs (spec.md §6), grounded on the teacher corpus's
// options-building `New(cfg Config)` pattern for badger.
func Open(cfg docbase.StorageConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.DataDir)
	opts = opts.
		WithCompression(options.ZSTD).
		WithMemTableSize(cfg.WriteBufferSizeBytes).
		WithNumMemtables(cfg.WriteBufferCount).
		WithNumCompactors(max1(cfg.MaxBackgroundJobs)).
		WithNumLevelZeroTables(cfg.Level0CompactionTrigger).
		WithNumLevelZeroTablesStall(cfg.Level0CompactionTrigger * 2).
		WithBlockCacheSize(cfg.BlockCacheSizeBytes).
		WithValueLogFileSize(cfg.TargetFileSizeBaseBytes).
		WithBaseTableSize(cfg.TargetFileSizeBaseBytes).
		WithBaseLevelSize(cfg.MaxBytesPerLevelBase)

	if cfg.WALSyncBytes > 0 {
		opts = opts.WithSyncWrites(false)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, docbase.NewBackendError(err)
	}

	gateSize := cfg.OperationSemaphore
	if gateSize <= 0 {
		gateSize = 1000
	}
	return &BadgerStore{
		db:         db,
		gate:       make(chan struct{}, gateSize),
		partitions: newPartitionCache(cfg.PartitionCacheSize),
	}, nil
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Close releases the underlying engine handle.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// acquire blocks until a concurrency-gate slot is available or ctx is
// done (spec.md §4.1's "process-wide semaphore bounds concurrent storage
// operations").
func (s *BadgerStore) acquire(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	default:
	}
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return docbase.NewResourceExhausted()
	}
}

func (s *BadgerStore) release() { <-s.gate }

// --- database / table lifecycle ---------------------------------------

func (s *BadgerStore) CreateDatabase(ctx context.Context, name string) error {
	if err := checkDatabaseMutable(name); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	key := []byte(databaseRegistryPrefix + name)
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return docbase.NewBackendError(err)
	}
	if exists {
		return docbase.NewDatabaseExists(name)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{1})
	}); err != nil {
		return docbase.NewBackendError(err)
	}
	return nil
}

func (s *BadgerStore) DropDatabase(ctx context.Context, name string) error {
	if err := checkDatabaseMutable(name); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	exists, err := s.databaseExistsLocked(name)
	if err != nil {
		return err
	}
	if !exists {
		return docbase.NewDatabaseNotFound(name)
	}

	prefix := databasePartitionPrefix(name)
	if err := s.dropByPrefix([]byte(prefix)); err != nil {
		return err
	}
	if err := s.dropByPrefix([]byte(tableRegistryPrefix + prefix)); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(databaseRegistryPrefix + name))
	}); err != nil {
		return docbase.NewBackendError(err)
	}
	s.partitions.removePrefix(prefix)
	return nil
}

func (s *BadgerStore) dropByPrefix(prefix []byte) error {
	for {
		var keys [][]byte
		err := s.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
			defer it.Close()
			count := 0
			for it.Seek(prefix); it.ValidForPrefix(prefix) && count < 1000; it.Next() {
				keys = append(keys, append([]byte(nil), it.Item().Key()...))
				count++
			}
			return nil
		})
		if err != nil {
			return docbase.NewBackendError(err)
		}
		if len(keys) == 0 {
			return nil
		}
		if err := s.db.Update(func(txn *badger.Txn) error {
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return docbase.NewBackendError(err)
		}
	}
}

func (s *BadgerStore) DatabaseExists(ctx context.Context, name string) (bool, error) {
	if err := checkDatabaseName(name); err != nil {
		return false, err
	}
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()
	return s.databaseExistsLocked(name)
}

func (s *BadgerStore) databaseExistsLocked(name string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(databaseRegistryPrefix + name))
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, docbase.NewBackendError(err)
	}
	return exists, nil
}

func (s *BadgerStore) CreateTable(ctx context.Context, db, table string) error {
	if err := checkTableMutable(db, table); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	dbExists, err := s.databaseExistsLocked(db)
	if err != nil {
		return err
	}
	if !dbExists {
		return docbase.NewDatabaseNotFound(db)
	}

	key := []byte(tableRegistryPrefix + partitionID(db, table))
	exists, err := s.tableExistsLocked(db, table)
	if err != nil {
		return err
	}
	if exists {
		return docbase.NewTableExists(db, table)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{1})
	}); err != nil {
		return docbase.NewBackendError(err)
	}
	s.partitions.getOrCreate(db, table)
	return nil
}

func (s *BadgerStore) DropTable(ctx context.Context, db, table string) error {
	if err := checkTableMutable(db, table); err != nil {
		return err
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	exists, err := s.tableExistsLocked(db, table)
	if err != nil {
		return err
	}
	if !exists {
		return docbase.NewTableNotFound(db, table)
	}
	if err := s.dropByPrefix(tableKeyPrefix(db, table)); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(tableRegistryPrefix + partitionID(db, table)))
	}); err != nil {
		return docbase.NewBackendError(err)
	}
	s.partitions.remove(partitionID(db, table))
	return nil
}

func (s *BadgerStore) TableExists(ctx context.Context, db, table string) (bool, error) {
	if err := checkDatabaseName(db); err != nil {
		return false, err
	}
	if err := checkTableName(table); err != nil {
		return false, err
	}
	if err := s.acquire(ctx); err != nil {
		return false, err
	}
	defer s.release()
	return s.tableExistsLocked(db, table)
}

func (s *BadgerStore) tableExistsLocked(db, table string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(tableRegistryPrefix + partitionID(db, table)))
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, docbase.NewBackendError(err)
	}
	return exists, nil
}

// --- point operations ---------------------------------------------------

func (s *BadgerStore) Get(ctx context.Context, db, table, key string) (*docbase.Datum, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	h := s.partitions.getOrCreate(db, table)
	fullKey := append(append([]byte(nil), h.prefix...), []byte(key)...)

	var doc *docbase.Datum
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fullKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			d, err := wire.DecodeDatum(bytes.NewReader(val))
			if err != nil {
				return err
			}
			doc = &d
			return nil
		})
	})
	if err != nil {
		return nil, docbase.NewBackendError(err)
	}
	return doc, nil
}

func (s *BadgerStore) Put(ctx context.Context, db, table, key string, doc docbase.Datum) error {
	return s.PutBatch(ctx, db, table, []KeyedDocument{{Key: key, Doc: doc}})
}

// PutBatch performs an atomic batch write (spec.md §4.1/§7: "Batch-write
// failures are atomic: none of the batch applied").
func (s *BadgerStore) PutBatch(ctx context.Context, db, table string, docs []KeyedDocument) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	h := s.partitions.getOrCreate(db, table)
	encoded := make([]keyValue, 0, len(docs))
	for _, kd := range docs {
		buf := &bytes.Buffer{}
		if err := wire.EncodeDatum(buf, kd.Doc); err != nil {
			return docbase.NewInternalError("failed to encode document", err)
		}
		fullKey := append(append([]byte(nil), h.prefix...), []byte(kd.Key)...)
		encoded = append(encoded, keyValue{key: fullKey, value: buf.Bytes()})
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, kv := range encoded {
			if err := txn.Set(kv.key, kv.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return docbase.NewBackendError(err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, db, table, key string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	h := s.partitions.getOrCreate(db, table)
	fullKey := append(append([]byte(nil), h.prefix...), []byte(key)...)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fullKey)
	}); err != nil {
		return docbase.NewBackendError(err)
	}
	return nil
}

type keyValue struct {
	key   []byte
	value []byte
}
