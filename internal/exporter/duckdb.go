// Package exporter periodically snapshots a table to a Parquet file and
// uploads it to S3-compatible storage, generalizing the teacher's
// Postgres-changelog-to-S3 CDC exporter into a plain full-table snapshot
// of an already-scanned result set (SPEC_FULL.md §C).
package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
)

// DuckExporter owns a DuckDB connection configured with the pragmas and
// extensions needed to write Parquet and talk to S3-compatible storage.
type DuckExporter struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens an in-memory DuckDB handle tuned by cfg, almost verbatim the
// teacher's NewDuckExporter pragma/extension sequence, retargeted from a
// Postgres-scanning config to this repository's ExportConfig.
func Open(ctx context.Context, cfg docbase.ExportConfig, s3AccessKey, s3Secret string, logger *zap.Logger) (*DuckExporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pragmas := []string{
		fmt.Sprintf("PRAGMA memory_limit='%dMB';", cfg.DuckDBMemoryMB),
		fmt.Sprintf("PRAGMA threads=%d;", cfg.DuckDBThreads),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx2, p); err != nil {
			logger.Sugar().Warnw("duckdb pragma failed", "pragma", p, "err", err)
		}
	}

	for _, ext := range []string{"httpfs", "parquet"} {
		if _, err := db.ExecContext(ctx2, "INSTALL "+ext+";"); err != nil {
			logger.Sugar().Warnw("duckdb install extension failed", "ext", ext, "err", err)
			continue
		}
		if _, err := db.ExecContext(ctx2, "LOAD "+ext+";"); err != nil {
			logger.Sugar().Warnw("duckdb load extension failed", "ext", ext, "err", err)
		}
	}

	if s3AccessKey != "" {
		if _, err := db.ExecContext(ctx2, fmt.Sprintf("SET s3_access_key_id='%s';", s3AccessKey)); err != nil {
			logger.Sugar().Warnw("duckdb set s3_access_key_id failed", "err", err)
		}
	}
	if s3Secret != "" {
		if _, err := db.ExecContext(ctx2, fmt.Sprintf("SET s3_secret_access_key='%s';", s3Secret)); err != nil {
			logger.Sugar().Warnw("duckdb set s3_secret_access_key failed", "err", err)
		}
	}
	if cfg.S3Region != "" {
		if _, err := db.ExecContext(ctx2, fmt.Sprintf("SET s3_region='%s';", cfg.S3Region)); err != nil {
			logger.Sugar().Warnw("duckdb set s3_region failed", "err", err)
		}
	}
	if cfg.S3Endpoint != "" {
		ep := strings.TrimPrefix(strings.TrimPrefix(cfg.S3Endpoint, "https://"), "http://")
		for _, stmt := range []string{
			fmt.Sprintf("SET s3_endpoint='%s';", ep),
			"SET s3_url_style='path';",
		} {
			if _, err := db.ExecContext(ctx2, stmt); err != nil {
				logger.Sugar().Warnw("duckdb s3 endpoint pragma failed", "stmt", stmt, "err", err)
			}
		}
	}

	return &DuckExporter{db: db, logger: logger}, nil
}

// Close releases the DuckDB handle.
func (e *DuckExporter) Close() error { return e.db.Close() }
