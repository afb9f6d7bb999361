package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/objectstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	catalogPath := filepath.Join(dataDir, "sources.yml")
	require.NoError(t, os.WriteFile(catalogPath, []byte("azure:\n  enabled: true\n"), 0o644))

	cfg, err := config.Load(catalogPath, dataDir)
	require.NoError(t, err)
	return cfg
}

func newTestReconciler(t *testing.T) (*Reconciler, *objectstore.Memory, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	store := objectstore.NewMemory()
	return NewReconciler(store, cfg, &ReconcilerConfig{Workers: 2}, zap.NewNop()), store, cfg
}

func writeLocal(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("raw drift both ways", func(t *testing.T) {
		r, store, cfg := newTestReconciler(t)
		writeLocal(t, filepath.Join(cfg.RawDir(), "sales.csv"), "a,b\n1,2\n")
		writeLocal(t, filepath.Join(cfg.RawDir(), "temp.json"), "{}")
		writeLocal(t, filepath.Join(cfg.RawDir(), "notes.txt"), "not raw tier")
		require.NoError(t, store.Put(ctx, "raw", "sales.csv", []byte("a,b\n1,2\n")))
		require.NoError(t, store.Put(ctx, "raw", "old.parquet", []byte("p")))

		report, err := r.Status(ctx, Scope{Raw: true})
		require.NoError(t, err)
		require.NotNil(t, report.Raw)
		assert.Nil(t, report.Database)

		assert.Equal(t, []string{"temp.json"}, report.Raw.OnlyLocal)
		assert.Equal(t, []string{"old.parquet"}, report.Raw.OnlyRemote)
		assert.Equal(t, []string{"sales.csv"}, report.Raw.InBoth)
	})

	t.Run("database states", func(t *testing.T) {
		tests := []struct {
			name   string
			local  string
			remote string
			want   DBState
		}{
			{name: "absent", want: DBAbsent},
			{name: "local only", local: "db", want: DBLocalOnly},
			{name: "remote only", remote: "db", want: DBRemoteOnly},
			{name: "match", local: "same", remote: "nice", want: DBMatch},
			{name: "differ", local: "short", remote: "rather longer", want: DBDiffer},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r, store, cfg := newTestReconciler(t)
				if tt.local != "" {
					writeLocal(t, cfg.DatabasePath(), tt.local)
				}
				if tt.remote != "" {
					require.NoError(t, store.Put(ctx, "duckdb", "vibe.duckdb", []byte(tt.remote)))
				}

				report, err := r.Status(ctx, Scope{Database: true})
				require.NoError(t, err)
				require.NotNil(t, report.Database)
				assert.Equal(t, tt.want, report.Database.State)
				assert.Equal(t, int64(len(tt.local)), report.Database.LocalSize)
				assert.Equal(t, int64(len(tt.remote)), report.Database.RemoteSize)
			})
		}
	})

	t.Run("default scope covers raw and database", func(t *testing.T) {
		r, _, _ := newTestReconciler(t)
		report, err := r.Status(ctx, Scope{})
		require.NoError(t, err)
		assert.NotNil(t, report.Raw)
		assert.NotNil(t, report.Database)
	})

	t.Run("listing failure degrades to empty remote set", func(t *testing.T) {
		cfg := testConfig(t)
		writeLocal(t, filepath.Join(cfg.RawDir(), "only.csv"), "x")
		r := NewReconciler(objectstore.Disabled{}, cfg, nil, zap.NewNop())

		report, err := r.Status(ctx, Scope{Raw: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"only.csv"}, report.Raw.OnlyLocal)
		assert.Empty(t, report.Raw.OnlyRemote)
	})
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, store, cfg := newTestReconciler(t)

	content := "id,amount\n1,9.50\n2,3.25\n"
	writeLocal(t, filepath.Join(cfg.RawDir(), "orders.csv"), content)
	writeLocal(t, cfg.DatabasePath(), "duckdb bytes")

	summary := r.Upload(ctx, Scope{}, TransferOptions{})
	assert.Equal(t, int64(2), summary.Succeeded)
	assert.Equal(t, int64(0), summary.Failed)

	// Remove the local copies and pull everything back
	require.NoError(t, os.Remove(filepath.Join(cfg.RawDir(), "orders.csv")))
	require.NoError(t, os.Remove(cfg.DatabasePath()))

	summary = r.Download(ctx, Scope{}, TransferOptions{Overwrite: true})
	assert.Equal(t, int64(2), summary.Succeeded)

	got, err := os.ReadFile(filepath.Join(cfg.RawDir(), "orders.csv"))
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	db, err := os.ReadFile(cfg.DatabasePath())
	require.NoError(t, err)
	assert.Equal(t, "duckdb bytes", string(db))

	obj, err := store.Stat(ctx, "duckdb", "vibe.duckdb")
	require.NoError(t, err)
	assert.Equal(t, int64(len("duckdb bytes")), obj.Size)
}

func TestDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("skips existing files without overwrite", func(t *testing.T) {
		r, store, cfg := newTestReconciler(t)
		writeLocal(t, filepath.Join(cfg.RawDir(), "keep.csv"), "local version")
		require.NoError(t, store.Put(ctx, "raw", "keep.csv", []byte("remote version")))
		require.NoError(t, store.Put(ctx, "raw", "new.csv", []byte("fresh")))

		summary := r.Download(ctx, Scope{Raw: true}, TransferOptions{Overwrite: false})
		assert.Equal(t, int64(1), summary.Succeeded)
		assert.Equal(t, int64(1), summary.Skipped)

		got, err := os.ReadFile(filepath.Join(cfg.RawDir(), "keep.csv"))
		require.NoError(t, err)
		assert.Equal(t, "local version", string(got))
	})

	t.Run("overwrite replaces existing files", func(t *testing.T) {
		r, store, cfg := newTestReconciler(t)
		writeLocal(t, filepath.Join(cfg.RawDir(), "keep.csv"), "local version")
		require.NoError(t, store.Put(ctx, "raw", "keep.csv", []byte("remote version")))

		summary := r.Download(ctx, Scope{Raw: true}, TransferOptions{Overwrite: true})
		assert.Equal(t, int64(1), summary.Succeeded)

		got, err := os.ReadFile(filepath.Join(cfg.RawDir(), "keep.csv"))
		require.NoError(t, err)
		assert.Equal(t, "remote version", string(got))
	})

	t.Run("suffix filter", func(t *testing.T) {
		r, store, cfg := newTestReconciler(t)
		require.NoError(t, store.Put(ctx, "raw", "a.csv", []byte("a")))
		require.NoError(t, store.Put(ctx, "raw", "b.json", []byte("b")))

		summary := r.Download(ctx, Scope{Raw: true}, TransferOptions{Overwrite: true, Suffix: ".csv"})
		assert.Equal(t, int64(1), summary.Succeeded)

		_, err := os.Stat(filepath.Join(cfg.RawDir(), "a.csv"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(cfg.RawDir(), "b.json"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing remote database fails the item", func(t *testing.T) {
		r, _, _ := newTestReconciler(t)
		summary := r.Download(ctx, Scope{Database: true}, TransferOptions{Overwrite: true})
		assert.Equal(t, int64(1), summary.Failed)
	})
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("missing database is skipped, not failed", func(t *testing.T) {
		r, _, _ := newTestReconciler(t)
		summary := r.Upload(ctx, Scope{Database: true}, TransferOptions{})
		assert.Equal(t, int64(1), summary.Skipped)
		assert.Equal(t, int64(0), summary.Failed)
	})

	t.Run("logs upload with timestamped names", func(t *testing.T) {
		r, store, cfg := newTestReconciler(t)
		writeLocal(t, filepath.Join(cfg.LogsDir(), "pipeline_runs.log"), "log line\n")

		summary := r.Upload(ctx, Scope{Logs: true}, TransferOptions{})
		assert.Equal(t, int64(1), summary.Succeeded)

		objects, err := store.List(ctx, "logs")
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Regexp(t, `^pipeline_runs_\d{8}_\d{6}\.log$`, objects[0].Key)
	})

	t.Run("empty raw dir uploads nothing", func(t *testing.T) {
		r, _, _ := newTestReconciler(t)
		summary := r.Upload(ctx, Scope{Raw: true}, TransferOptions{})
		assert.Equal(t, int64(0), summary.Total())
	})
}
