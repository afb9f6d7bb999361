package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/config"
)

func testCatalog(t *testing.T) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	catalog := `
sources:
  files:
    csv_files:
      pattern: "*.csv"
      path: data/raw
      enabled: true
    json_files:
      pattern: "*.json"
      path: data/raw
      enabled: true
    parquet_files:
      pattern: "*.parquet"
      path: data/raw
      enabled: false
`
	catalogPath := filepath.Join(dataDir, "sources.yml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(catalog), 0o644))

	cfg, err := config.Load(catalogPath, dataDir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cfg.RawDir(), 0o755))
	return cfg
}

func newTestCoordinator(t *testing.T, cfg *config.Config) *Coordinator {
	t.Helper()
	m := NewMaterializer(cfg.DatabasePath(), NewRunLog(cfg.RunLogPath()), zap.NewNop())
	t.Cleanup(func() { _ = m.Close() })
	return NewCoordinator(m, &CoordinatorConfig{Workers: 2}, zap.NewNop())
}

func TestIngestAll(t *testing.T) {
	ctx := context.Background()

	t.Run("fail-soft across files", func(t *testing.T) {
		cfg := testCatalog(t)
		writeFile(t, cfg.RawDir(), "orders.csv", "id\n1\n2\n")
		writeFile(t, cfg.RawDir(), "customers.csv", "id,name\n1,Ada\n")
		writeFile(t, cfg.RawDir(), "broken.json", "{not valid json")

		summary := newTestCoordinator(t, cfg).IngestAll(ctx, cfg)
		assert.Equal(t, int64(2), summary.Succeeded)
		assert.Equal(t, int64(1), summary.Failed)
	})

	t.Run("disabled sources are skipped", func(t *testing.T) {
		cfg := testCatalog(t)
		writeFile(t, cfg.RawDir(), "ignored.parquet", "not parquet")

		summary := newTestCoordinator(t, cfg).IngestAll(ctx, cfg)
		assert.Equal(t, int64(0), summary.Total())
	})

	t.Run("empty raw dir", func(t *testing.T) {
		cfg := testCatalog(t)
		summary := newTestCoordinator(t, cfg).IngestAll(ctx, cfg)
		assert.Equal(t, int64(0), summary.Total())
	})
}

func TestIngestOne(t *testing.T) {
	ctx := context.Background()
	cfg := testCatalog(t)
	coordinator := newTestCoordinator(t, cfg)

	// Outside the raw dir and not matched by any source pattern; explicit
	// requests bypass the catalog entirely.
	elsewhere := filepath.Join(cfg.DataDir(), "elsewhere")
	require.NoError(t, os.MkdirAll(elsewhere, 0o755))
	path := writeFile(t, elsewhere, "adhoc.csv", "id\n1\n")

	table, rows, err := coordinator.IngestOne(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, "raw_adhoc", table)
	assert.Equal(t, int64(1), rows)
}

func TestListFiles(t *testing.T) {
	cfg := testCatalog(t)
	writeFile(t, cfg.RawDir(), "orders.csv", "id\n1\n")
	writeFile(t, cfg.RawDir(), "weather.json", "[]")

	sources := newTestCoordinator(t, cfg).ListFiles(cfg)
	require.Len(t, sources, 2)

	byName := map[string][]FileInfo{}
	for _, sf := range sources {
		byName[sf.Source] = sf.Files
	}
	require.Len(t, byName["csv_files"], 1)
	assert.Equal(t, "orders.csv", byName["csv_files"][0].Name)
	assert.Greater(t, byName["csv_files"][0].Size, int64(0))
	require.Len(t, byName["json_files"], 1)
	assert.Equal(t, "weather.json", byName["json_files"][0].Name)
}
