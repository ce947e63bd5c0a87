package resource

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"
)

// SnapshotWriter persists one resource's rows as a snapshot file
type SnapshotWriter interface {
	Save(file string, rows any) ([]byte, error)
}

// Uploader publishes snapshot bytes to object storage
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// ExportResult describes one written snapshot
type ExportResult struct {
	Resource string
	File     string
	Count    int
	Key      string // object key; empty when nothing was uploaded
}

// Exporter refreshes the fallback snapshots from live data
type Exporter struct {
	registry *Registry
	writer   SnapshotWriter
	uploader Uploader
	prefix   string
	logger   *zap.Logger
}

// NewExporter creates an Exporter. A nil uploader writes local files only.
func NewExporter(registry *Registry, writer SnapshotWriter, uploader Uploader, prefix string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{registry: registry, writer: writer, uploader: uploader, prefix: prefix, logger: logger}
}

// Export reads every fallback-capable resource live and writes its snapshot.
// Live failures abort before any file is replaced for that resource.
func (e *Exporter) Export(ctx context.Context) ([]ExportResult, error) {
	var results []ExportResult
	for _, def := range e.registry.All() {
		if !def.HasFallback() {
			continue
		}

		rows, count, err := def.Fetch(ctx)
		if err != nil {
			return results, fmt.Errorf("export %s: %w", def.Name, err)
		}
		data, err := e.writer.Save(def.FallbackFile, rows)
		if err != nil {
			return results, fmt.Errorf("export %s: %w", def.Name, err)
		}

		res := ExportResult{Resource: def.Name, File: def.FallbackFile, Count: count}
		if e.uploader != nil {
			res.Key = path.Join(e.prefix, def.FallbackFile)
			if err := e.uploader.Upload(ctx, res.Key, data, "application/json"); err != nil {
				return results, fmt.Errorf("export %s: %w", def.Name, err)
			}
		}

		e.logger.Info("Snapshot exported",
			zap.String("resource", def.Name),
			zap.String("file", def.FallbackFile),
			zap.Int("count", count),
			zap.String("key", res.Key),
		)
		results = append(results, res)
	}
	return results, nil
}
