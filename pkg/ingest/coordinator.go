package ingest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/logger"
	"github.com/vibedata/platform/pkg/pool"
)

// Coordinator enumerates configured file sources and drives the
// materializer per matched file. One file's failure never stops the
// remaining files; failures are counted and reported in the summary.
type Coordinator struct {
	materializer *Materializer
	workers      int
	logger       *zap.Logger
}

// CoordinatorConfig tunes the coordinator
type CoordinatorConfig struct {
	// Workers bounds concurrent materializations. Table replaces are
	// serialized on the shared store handle regardless.
	Workers int
}

// SourceFiles lists the files one enabled source currently matches
type SourceFiles struct {
	Source string
	Dir    string
	Files  []FileInfo
}

// FileInfo is one matched file
type FileInfo struct {
	Name string
	Size int64
}

// NewCoordinator creates an ingestion coordinator
func NewCoordinator(materializer *Materializer, cfg *CoordinatorConfig, log *zap.Logger) *Coordinator {
	workers := runtime.NumCPU()
	if cfg != nil && cfg.Workers > 0 {
		workers = cfg.Workers
	}
	if log == nil {
		log = logger.Get()
	}
	return &Coordinator{
		materializer: materializer,
		workers:      workers,
		logger:       log.With(zap.String("component", "ingestion_coordinator")),
	}
}

// IngestAll materializes every file matched by enabled file sources.
// Fail-soft: the run always completes enumeration and reports aggregate
// counts.
func (c *Coordinator) IngestAll(ctx context.Context, cfg *config.Config) pool.Summary {
	var items []pool.Item

	for _, fs := range cfg.EnabledFileSources() {
		dir := cfg.Resolve(fs.Path)
		matches, err := filepath.Glob(filepath.Join(dir, fs.Pattern))
		if err != nil {
			c.logger.Error("invalid glob pattern",
				zap.String("source", fs.Name),
				zap.String("pattern", fs.Pattern),
				zap.Error(err))
			continue
		}

		source := fs.Name
		for _, match := range matches {
			filePath := match
			items = append(items, func(ctx context.Context) error {
				_, _, err := c.materializer.Materialize(ctx, filePath, "")
				if err != nil {
					c.logger.Error("materialization failed",
						zap.String("source", source),
						zap.String("file", filepath.Base(filePath)),
						zap.Error(err))
				}
				return err
			})
		}
	}

	summary := pool.Run(ctx, c.workers, items)
	c.logger.Info("ingestion complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed))
	return summary
}

// IngestOne materializes a single file, bypassing the enabled and
// pattern filters entirely: an explicit request is always attempted.
func (c *Coordinator) IngestOne(ctx context.Context, filePath, tableName string) (string, int64, error) {
	return c.materializer.Materialize(ctx, filePath, tableName)
}

// ListFiles enumerates the files each enabled source currently matches
func (c *Coordinator) ListFiles(cfg *config.Config) []SourceFiles {
	var out []SourceFiles

	for _, fs := range cfg.EnabledFileSources() {
		dir := cfg.Resolve(fs.Path)
		sf := SourceFiles{Source: fs.Name, Dir: dir}

		matches, err := filepath.Glob(filepath.Join(dir, fs.Pattern))
		if err != nil {
			c.logger.Warn("invalid glob pattern",
				zap.String("source", fs.Name),
				zap.Error(err))
			continue
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			sf.Files = append(sf.Files, FileInfo{Name: filepath.Base(match), Size: info.Size()})
		}
		out = append(out, sf)
	}
	return out
}
