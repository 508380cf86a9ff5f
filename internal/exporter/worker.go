package exporter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/docbase"
)

// TableSource fetches every document currently stored in (database, table);
// cmd/server builds one on the storage layer's ScanTable with no limit.
type TableSource func(ctx context.Context, database, table string) ([]docbase.Datum, error)

// Worker runs the snapshot export loop described in SPEC_FULL.md §C: on
// every tick, snapshot each configured table to Parquet and upload it to
// S3, the way the teacher's CDC flusher loops on an interval ticker.
type Worker struct {
	cfg        docbase.ExportConfig
	exporter   *DuckExporter
	fetch      TableSource
	logger     *zap.Logger
	s3AccessID string
	s3Secret   string
}

// NewWorker constructs a Worker. s3AccessID/s3Secret are passed separately
// from cfg since credentials should not sit in a config struct that may be
// logged or serialized.
func NewWorker(cfg docbase.ExportConfig, exporter *DuckExporter, fetch TableSource, s3AccessID, s3Secret string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{cfg: cfg, exporter: exporter, fetch: fetch, logger: logger, s3AccessID: s3AccessID, s3Secret: s3Secret}
}

// Run ticks every cfg.Interval until ctx is cancelled, snapshotting and
// uploading every (database, table) pair in targets.
func (w *Worker) Run(ctx context.Context, targets []docbase.TableRef) {
	if !w.cfg.Enabled {
		return
	}
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ref := range targets {
				if err := w.exportOnce(ctx, ref); err != nil {
					w.logger.Error("snapshot export failed",
						zap.String("database", ref.Database), zap.String("table", ref.Table), zap.Error(err))
				}
			}
		}
	}
}

func (w *Worker) exportOnce(ctx context.Context, ref docbase.TableRef) error {
	docs, err := w.fetch(ctx, ref.Database, ref.Table)
	if err != nil {
		return fmt.Errorf("fetch table for export: %w", err)
	}

	snapshotTS := time.Now().UnixNano()
	parquetPath, err := w.exporter.Snapshot(ctx, w.cfg.TempDir, ref.Database, ref.Table, docs, snapshotTS)
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("%s%s/%s_%d.parquet", w.cfg.S3Prefix, ref.Database, ref.Table, snapshotTS)
	if err := UploadFile(ctx, w.cfg.S3Endpoint, w.s3AccessID, w.s3Secret, w.cfg.S3Bucket, objectName, parquetPath); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	w.logger.Info("snapshot exported",
		zap.String("database", ref.Database), zap.String("table", ref.Table), zap.String("object", objectName))
	return nil
}
