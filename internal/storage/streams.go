package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/wire"
)

// ScanTable streams documents from (db, table), honoring the exclusive
// start_key, limit/skip, and an optional pushed-down predicate
// (spec.md §4.1). Each stream has a bounded back-pressure buffer; if the
// consumer stops draining, the producer blocks on send until ctx is
// cancelled.
func (s *BadgerStore) ScanTable(ctx context.Context, db, table string, startKey string, limit, skip int, predicate RowPredicate) (<-chan RowOrError, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	h := s.partitions.getOrCreate(db, table)
	out := make(chan RowOrError, streamBufferCap(limit))

	go func() {
		defer s.release()
		defer close(out)

		skipped := 0
		emitted := 0
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = h.prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			seekKey := h.prefix
			if startKey != "" {
				seekKey = append(append([]byte(nil), h.prefix...), []byte(startKey)...)
			}
			for it.Seek(seekKey); it.ValidForPrefix(h.prefix); it.Next() {
				item := it.Item()
				rawKey := item.KeyCopy(nil)
				docKey := string(rawKey[len(h.prefix):])
				if startKey != "" && docKey == startKey {
					// start_key is exclusive (spec.md §4.1).
					continue
				}

				var doc docbase.Datum
				verr := item.Value(func(val []byte) error {
					d, err := wire.DecodeDatum(bytes.NewReader(val))
					if err != nil {
						return err
					}
					doc = d
					return nil
				})
				if verr != nil {
					select {
					case out <- RowOrError{Err: docbase.NewDecodeError(verr)}:
					case <-ctx.Done():
					}
					return nil
				}

				if predicate != nil && !predicate(doc) {
					continue
				}
				if skipped < skip {
					skipped++
					continue
				}
				if limit > 0 && emitted >= limit {
					return nil
				}
				select {
				case out <- RowOrError{Key: docKey, Doc: doc}:
					emitted++
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			select {
			case out <- RowOrError{Err: docbase.NewBackendError(err)}:
			default:
			}
		}
	}()

	return out, nil
}

// StreamDatabases lists registered database names (spec.md §4.1).
func (s *BadgerStore) StreamDatabases(ctx context.Context, startKey string, limit, skip int) (<-chan StringOrError, error) {
	return s.streamRegistry(ctx, databaseRegistryPrefix, startKey, limit, skip)
}

// StreamTables lists tables registered under db (spec.md §4.1).
func (s *BadgerStore) StreamTables(ctx context.Context, db string, startKey string, limit, skip int) (<-chan StringOrError, error) {
	prefix := tableRegistryPrefix + databasePartitionPrefix(db)
	return s.streamRegistryRaw(ctx, prefix, func(rawName string) string {
		return strings.TrimPrefix(rawName, databasePartitionPrefix(db))
	}, startKey, limit, skip)
}

func (s *BadgerStore) streamRegistry(ctx context.Context, prefix string, startKey string, limit, skip int) (<-chan StringOrError, error) {
	return s.streamRegistryRaw(ctx, prefix, func(name string) string { return name }, startKey, limit, skip)
}

func (s *BadgerStore) streamRegistryRaw(ctx context.Context, prefix string, project func(string) string, startKey string, limit, skip int) (<-chan StringOrError, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	out := make(chan StringOrError, streamBufferCap(limit))
	prefixBytes := []byte(prefix)

	go func() {
		defer s.release()
		defer close(out)

		skipped := 0
		emitted := 0
		err := s.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: prefixBytes})
			defer it.Close()

			seekKey := prefixBytes
			if startKey != "" {
				seekKey = append(append([]byte(nil), prefixBytes...), []byte(startKey)...)
			}
			for it.Seek(seekKey); it.ValidForPrefix(prefixBytes); it.Next() {
				rawName := string(it.Item().Key()[len(prefixBytes):])
				if startKey != "" && rawName == startKey {
					continue
				}
				if skipped < skip {
					skipped++
					continue
				}
				if limit > 0 && emitted >= limit {
					return nil
				}
				select {
				case out <- StringOrError{Value: project(rawName)}:
					emitted++
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			select {
			case out <- StringOrError{Err: docbase.NewBackendError(err)}:
			default:
			}
		}
	}()

	return out, nil
}

// StreamGetAll streams the documents for the given keys, in the order
// given, subject to start_key/limit/skip (spec.md §4.1's GetAll
// contract). A missing key is silently omitted, matching RethinkDB-style
// getAll semantics.
func (s *BadgerStore) StreamGetAll(ctx context.Context, db, table string, keys []string, startKey string, limit, skip int) (<-chan RowOrError, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	h := s.partitions.getOrCreate(db, table)
	out := make(chan RowOrError, streamBufferCap(limit))

	go func() {
		defer s.release()
		defer close(out)

		skipped := 0
		emitted := 0
		pastStart := startKey == ""
		for _, key := range keys {
			if !pastStart {
				if key == startKey {
					pastStart = true
				}
				continue
			}
			var doc docbase.Datum
			found := false
			err := s.db.View(func(txn *badger.Txn) error {
				fullKey := append(append([]byte(nil), h.prefix...), []byte(key)...)
				item, err := txn.Get(fullKey)
				if err == badger.ErrKeyNotFound {
					return nil
				}
				if err != nil {
					return err
				}
				return item.Value(func(val []byte) error {
					d, derr := wire.DecodeDatum(bytes.NewReader(val))
					if derr != nil {
						return derr
					}
					doc = d
					found = true
					return nil
				})
			})
			if err != nil {
				select {
				case out <- RowOrError{Err: docbase.NewBackendError(err)}:
				case <-ctx.Done():
				}
				return
			}
			if !found {
				continue
			}
			if skipped < skip {
				skipped++
				continue
			}
			if limit > 0 && emitted >= limit {
				return
			}
			select {
			case out <- RowOrError{Key: key, Doc: doc}:
				emitted++
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
