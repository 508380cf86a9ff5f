package evaluator

import (
	"context"
	"time"

	"github.com/lychee-technology/docbase"
	"github.com/lychee-technology/docbase/internal/schema"
)

// storeSchema validates raw as a structural JSON-schema document and
// stores it in the reserved __schemas__ system namespace, keyed by the
// table it describes. The document is never consulted again except on
// retrieval (spec.md §1 Non-goals, SPEC_FULL.md §B).
func (e *Evaluator) storeSchema(ctx context.Context, ref docbase.TableRef, raw string) error {
	if err := schema.Validate(raw); err != nil {
		return err
	}
	doc := schema.Document{
		Database:  ref.Database,
		Table:     ref.Table,
		Raw:       raw,
		Version:   1,
		CreatedAt: time.Now().UnixNano(),
	}
	key := schema.Key(ref.Database, ref.Table)
	return e.store.Put(ctx, docbase.SystemDatabasePrefix, "__schemas__", key, schema.ToDatum(doc))
}
