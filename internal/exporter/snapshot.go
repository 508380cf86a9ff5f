package exporter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lychee-technology/docbase"
)

// Snapshot writes docs to a temporary NDJSON file, loads it into DuckDB
// via read_json_auto, and copies the result to a local Parquet file under
// tempDir. Grounded on the teacher's ExportSnapshotToTmp COPY-to-parquet
// shape, retargeted from a postgres_scan/EAV pivot to a plain dump of
// already-fetched documents (this repository has no SQL backend to scan).
func (e *DuckExporter) Snapshot(ctx context.Context, tempDir, database, table string, docs []docbase.Datum, snapshotTS int64) (string, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	ndjsonPath := filepath.Join(tempDir, fmt.Sprintf("%s_%s_%d.ndjson", database, table, snapshotTS))
	if err := writeNDJSON(ndjsonPath, docs); err != nil {
		return "", err
	}
	defer os.Remove(ndjsonPath)

	parquetPath := filepath.Join(tempDir, fmt.Sprintf("%s_%s_%d.parquet", database, table, snapshotTS))
	ndjsonEsc := strings.ReplaceAll(ndjsonPath, "'", "''")
	parquetEsc := strings.ReplaceAll(parquetPath, "'", "''")

	stmt := fmt.Sprintf(
		`COPY (SELECT * FROM read_json_auto('%s')) TO '%s' (FORMAT PARQUET, COMPRESSION 'ZSTD');`,
		ndjsonEsc, parquetEsc)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if _, err := e.db.ExecContext(ctx2, stmt); err != nil {
		return "", fmt.Errorf("duckdb copy to parquet: %w", err)
	}
	return parquetPath, nil
}

func writeNDJSON(path string, docs []docbase.Datum) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ndjson temp file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, doc := range docs {
		if err := enc.Encode(datumToNative(doc)); err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
	}
	return nil
}

// datumToNative converts a Datum into a plain Go value suitable for
// encoding/json, the same shape read_json_auto infers a schema from.
func datumToNative(d docbase.Datum) any {
	switch d.Kind {
	case docbase.KindNull:
		return nil
	case docbase.KindBool:
		return d.Bool
	case docbase.KindInt:
		return d.Int
	case docbase.KindFloat:
		return d.Float
	case docbase.KindString:
		return d.Str
	case docbase.KindBinary:
		return base64.StdEncoding.EncodeToString(d.Binary)
	case docbase.KindArray:
		out := make([]any, len(d.Array))
		for i, v := range d.Array {
			out[i] = datumToNative(v)
		}
		return out
	case docbase.KindObject:
		out := make(map[string]any, len(d.Object))
		for k, v := range d.Object {
			out[k] = datumToNative(v)
		}
		return out
	default:
		return nil
	}
}
