// Package sync reconciles the local artifact tree against remote object
// storage. Reconciliation is tier-based: the raw tier moves bulk data
// files by name, the database tier moves the single analytical store
// artifact, and the logs tier pushes run logs with timestamped names.
//
// Membership comparison for the raw tier is by name only, not content.
// The database tier additionally compares byte size. Bulk transfers are
// unconditional (no checksumming), so re-running a sync with no changes
// re-transfers the same bytes; the result is byte-identical either way.
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/errors"
	"github.com/vibedata/platform/pkg/logger"
	"github.com/vibedata/platform/pkg/objectstore"
	"github.com/vibedata/platform/pkg/pool"
)

// RawPatterns is the fixed glob set defining raw tier membership
var RawPatterns = []string{"*.csv", "*.parquet", "*.json"}

// Scope selects which tiers participate in a reconciliation. The zero
// value means both raw and database, matching the default run.
type Scope struct {
	Raw      bool
	Database bool
	Logs     bool
}

func (s Scope) normalized() Scope {
	if !s.Raw && !s.Database && !s.Logs {
		return Scope{Raw: true, Database: true}
	}
	return s
}

// TransferOptions tunes a download or upload run
type TransferOptions struct {
	// Overwrite controls whether existing local files are replaced on
	// download. Uploads always overwrite: remote state reflects the
	// latest local push.
	Overwrite bool
	// Suffix optionally restricts downloads to keys with this suffix
	Suffix string
}

// Reconciler computes drift between local directories and remote
// containers and performs directional transfers with per-item
// accounting.
type Reconciler struct {
	store   objectstore.Client
	cfg     *config.Config
	workers int
	logger  *zap.Logger
}

// ReconcilerConfig tunes the reconciler
type ReconcilerConfig struct {
	// Workers bounds concurrent transfers
	Workers int
}

// NewReconciler creates a reconciler over the given object store client
func NewReconciler(store objectstore.Client, cfg *config.Config, rc *ReconcilerConfig, log *zap.Logger) *Reconciler {
	workers := runtime.NumCPU()
	if rc != nil && rc.Workers > 0 {
		workers = rc.Workers
	}
	if log == nil {
		log = logger.Get()
	}
	return &Reconciler{
		store:   store,
		cfg:     cfg,
		workers: workers,
		logger:  log.With(zap.String("component", "sync_reconciler")),
	}
}

// Status re-lists both sides of every in-scope tier and reports drift.
// Nothing is cached between calls.
func (r *Reconciler) Status(ctx context.Context, scope Scope) (*Report, error) {
	scope = scope.normalized()
	report := &Report{}

	if scope.Raw {
		local, err := r.localRawNames()
		if err != nil {
			return nil, err
		}

		var remote []string
		objects, err := r.store.List(ctx, r.cfg.Azure.Containers.Raw)
		if err != nil {
			// A failed listing degrades to an empty remote set so the
			// report still covers the local side
			r.logger.Warn("failed to list raw container",
				zap.String("container", r.cfg.Azure.Containers.Raw),
				zap.Error(err))
		} else {
			for _, obj := range objects {
				remote = append(remote, obj.Key)
			}
		}

		report.Raw = Diff(local, remote)
	}

	if scope.Database {
		report.Database = r.databaseStatus(ctx)
	}

	return report, nil
}

// Download transfers remote objects to the local tree. Each item is
// independent; one failure never blocks the rest.
func (r *Reconciler) Download(ctx context.Context, scope Scope, opts TransferOptions) pool.Summary {
	scope = scope.normalized()
	var total pool.Summary

	if scope.Raw {
		total.Add(r.downloadRaw(ctx, opts))
	}

	if scope.Database {
		item := r.downloadItem(
			r.cfg.Azure.Containers.Database,
			r.cfg.Storage.DatabaseKey,
			r.cfg.DatabasePath(),
			opts.Overwrite,
		)
		total.Add(pool.Run(ctx, 1, []pool.Item{item}))
	}

	r.logger.Info("download complete",
		zap.Int64("succeeded", total.Succeeded),
		zap.Int64("failed", total.Failed),
		zap.Int64("skipped", total.Skipped))
	return total
}

// Upload transfers local files to their remote containers. Uploads
// always overwrite so the remote reflects the latest local state.
func (r *Reconciler) Upload(ctx context.Context, scope Scope, opts TransferOptions) pool.Summary {
	scope = scope.normalized()
	var total pool.Summary

	if scope.Raw {
		total.Add(r.uploadRaw(ctx))
	}

	if scope.Database {
		total.Add(r.uploadDatabase(ctx))
	}

	if scope.Logs {
		total.Add(r.uploadLogs(ctx))
	}

	r.logger.Info("upload complete",
		zap.Int64("succeeded", total.Succeeded),
		zap.Int64("failed", total.Failed),
		zap.Int64("skipped", total.Skipped))
	return total
}

// downloadRaw pulls every raw container object matching the optional
// suffix filter
func (r *Reconciler) downloadRaw(ctx context.Context, opts TransferOptions) pool.Summary {
	container := r.cfg.Azure.Containers.Raw
	objects, err := r.store.List(ctx, container)
	if err != nil {
		r.logger.Error("failed to list raw container",
			zap.String("container", container),
			zap.Error(err))
		return pool.Summary{Failed: 1}
	}

	var items []pool.Item
	for _, obj := range objects {
		if opts.Suffix != "" && !hasSuffix(obj.Key, opts.Suffix) {
			continue
		}
		localPath := filepath.Join(r.cfg.RawDir(), obj.Key)
		items = append(items, r.downloadItem(container, obj.Key, localPath, opts.Overwrite))
	}

	return pool.Run(ctx, r.workers, items)
}

// downloadItem builds the transfer for one remote object. The write
// commits with a rename; a failed transfer leaves no file behind.
func (r *Reconciler) downloadItem(container, key, localPath string, overwrite bool) pool.Item {
	return func(ctx context.Context) error {
		if !overwrite {
			if _, err := os.Stat(localPath); err == nil {
				r.logger.Debug("skipped existing file", zap.String("path", localPath))
				return pool.ErrSkipped
			}
		}

		data, err := r.store.Get(ctx, container, key)
		if err != nil {
			r.logger.Error("download failed",
				zap.String("container", container),
				zap.String("key", key),
				zap.Error(err))
			return err
		}

		if err := writeFileAtomic(localPath, data); err != nil {
			r.logger.Error("failed to write local file",
				zap.String("path", localPath),
				zap.Error(err))
			return err
		}

		r.logger.Info("object downloaded",
			zap.String("container", container),
			zap.String("key", key),
			zap.Int("size", len(data)))
		return nil
	}
}

// uploadRaw pushes every local raw file under its base name
func (r *Reconciler) uploadRaw(ctx context.Context) pool.Summary {
	container := r.cfg.Azure.Containers.Raw
	paths, err := r.localRawPaths()
	if err != nil {
		r.logger.Error("failed to enumerate raw files", zap.Error(err))
		return pool.Summary{Failed: 1}
	}

	var items []pool.Item
	for _, path := range paths {
		items = append(items, r.uploadItem(container, filepath.Base(path), path))
	}

	return pool.Run(ctx, r.workers, items)
}

// uploadDatabase pushes the analytical store artifact under its
// well-known key
func (r *Reconciler) uploadDatabase(ctx context.Context) pool.Summary {
	dbPath := r.cfg.DatabasePath()
	if _, err := os.Stat(dbPath); err != nil {
		r.logger.Warn("database not found, skipping upload", zap.String("path", dbPath))
		return pool.Summary{Skipped: 1}
	}

	item := r.uploadItem(r.cfg.Azure.Containers.Database, r.cfg.Storage.DatabaseKey, dbPath)
	return pool.Run(ctx, 1, []pool.Item{item})
}

// uploadLogs pushes run logs with a timestamp in the remote name so log
// history is preserved across runs
func (r *Reconciler) uploadLogs(ctx context.Context) pool.Summary {
	container := r.cfg.Azure.Containers.Logs
	matches, err := filepath.Glob(filepath.Join(r.cfg.LogsDir(), "*.log"))
	if err != nil {
		r.logger.Error("failed to enumerate log files", zap.Error(err))
		return pool.Summary{Failed: 1}
	}

	timestamp := time.Now().Format("20060102_150405")
	var items []pool.Item
	for _, path := range matches {
		base := filepath.Base(path)
		ext := filepath.Ext(base)
		key := fmt.Sprintf("%s_%s%s", base[:len(base)-len(ext)], timestamp, ext)
		items = append(items, r.uploadItem(container, key, path))
	}

	return pool.Run(ctx, r.workers, items)
}

// uploadItem builds the transfer for one local file
func (r *Reconciler) uploadItem(container, key, localPath string) pool.Item {
	return func(ctx context.Context) error {
		data, err := os.ReadFile(localPath)
		if err != nil {
			r.logger.Error("failed to read local file",
				zap.String("path", localPath),
				zap.Error(err))
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to read local file").
				WithDetail("path", localPath)
		}

		if err := r.store.Put(ctx, container, key, data); err != nil {
			r.logger.Error("upload failed",
				zap.String("container", container),
				zap.String("key", key),
				zap.Error(err))
			return err
		}

		r.logger.Info("object uploaded",
			zap.String("container", container),
			zap.String("key", key),
			zap.Int("size", len(data)))
		return nil
	}
}

// localRawPaths enumerates raw tier files by the fixed pattern set
func (r *Reconciler) localRawPaths() ([]string, error) {
	dir := r.cfg.RawDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	for _, pattern := range RawPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid raw pattern").
				WithDetail("pattern", pattern)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func (r *Reconciler) localRawNames() ([]string, error) {
	paths, err := r.localRawPaths()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names, nil
}

// writeFileAtomic writes data to path via a temp file and rename,
// creating parent directories as needed
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").
			WithDetail("path", filepath.Dir(path))
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write file").
			WithDetail("path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to commit file").
			WithDetail("path", path)
	}
	return nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
