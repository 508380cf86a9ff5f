// Package schema implements the reserved-but-unenforced schema slot
// spec.md's Non-goals carve out: CreateTable may attach a JSON-schema
// document, which is validated structurally and stored for retrieval, but
// never consulted by Insert/Update (SPEC_FULL.md §B).
package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lychee-technology/docbase"
)

// Document is the stored, opaque schema record (spec.md's `__schemas__`
// system namespace), generalized from the teacher's JSONSchema/
// PropertySchema pair into a single self-describing JSON document rather
// than a hot-column binding table.
type Document struct {
	Database  string `json:"database"`
	Table     string `json:"table"`
	Raw       string `json:"raw"`
	Version   int64  `json:"version"`
	CreatedAt int64  `json:"created_at"`
}

// Validate checks that raw is a structurally well-formed JSON-schema
// document. It never validates stored documents against it — that
// enforcement is explicitly out of scope (spec.md §1 Non-goals).
func Validate(raw string) error {
	var s jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return docbase.NewInvalidConstant("schema document is not valid JSON-schema: " + err.Error())
	}
	if _, err := s.Resolve(&jsonschema.ResolveOptions{}); err != nil {
		return docbase.NewInvalidConstant("schema document failed to resolve: " + err.Error())
	}
	return nil
}

// ToDatum encodes doc as the Datum stored under the __schemas__ namespace.
func ToDatum(doc Document) docbase.Datum {
	return docbase.NewObject(map[string]docbase.Datum{
		"database":   docbase.NewString(doc.Database),
		"table":      docbase.NewString(doc.Table),
		"raw":        docbase.NewString(doc.Raw),
		"version":    docbase.NewInt(doc.Version),
		"created_at": docbase.NewInt(doc.CreatedAt),
	})
}

// FromDatum decodes a stored __schemas__ document back into a Document.
func FromDatum(d docbase.Datum) (Document, bool) {
	if d.Kind != docbase.KindObject {
		return Document{}, false
	}
	get := func(key string) docbase.Datum { return d.Object[key] }
	return Document{
		Database:  get("database").Str,
		Table:     get("table").Str,
		Raw:       get("raw").Str,
		Version:   get("version").Int,
		CreatedAt: get("created_at").Int,
	}, true
}

// Key derives the __schemas__ storage key for a (database, table) pair.
func Key(database, table string) string { return database + ":" + table }
