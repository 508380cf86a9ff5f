package evaluator

import "github.com/lychee-technology/docbase"

// cursorParams projects a Cursor into the (start_key, limit, skip)
// triple the storage contract expects (spec.md §4.1). A nil cursor scans
// from the smallest key with the default batch size.
func cursorParams(c *docbase.Cursor) (startKey string, limit, skip int) {
	if c == nil {
		return "", int(docbase.DefaultBatchSize), 0
	}
	return c.StartKey, int(c.EffectiveBatchSize()), 0
}

// deriveCursor implements spec.md §3: "the evaluator returns a non-empty
// continuation cursor iff the returned page size >= batch_size". lastKey
// is the key of the last document the underlying scan emitted.
func deriveCursor(pageSize int, batchSize uint32, lastKey string) *docbase.Cursor {
	if pageSize == 0 || uint32(pageSize) < batchSize {
		return nil
	}
	return &docbase.Cursor{StartKey: lastKey, BatchSize: batchSize}
}
