package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/errors"
)

func seedStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "vibe.duckdb")

	db, err := sql.Open("duckdb", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE trips AS
		SELECT * FROM (VALUES (1, 'oslo', 12.5), (2, 'lima', 3.25), (3, 'oslo', 8.0))
		AS t(id, city, fare)`)
	require.NoError(t, err)
	return dbPath
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("writes one parquet file per export", func(t *testing.T) {
		dbPath := seedStore(t)
		outputDir := filepath.Join(t.TempDir(), "dashboard", "src", "data")

		exporter := NewExporter(dbPath, zap.NewNop())
		summary, err := exporter.Run(ctx, outputDir, []Export{
			{Name: "trips_all", Query: "SELECT id, city, fare FROM trips"},
			{Name: "trips_by_city", Query: "SELECT city, COUNT(*) AS n, SUM(fare) AS total FROM trips GROUP BY city"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.Succeeded)
		assert.Equal(t, int64(0), summary.Failed)

		for _, name := range []string{"trips_all.parquet", "trips_by_city.parquet"} {
			info, err := os.Stat(filepath.Join(outputDir, name))
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		}
	})

	t.Run("failed export counted, rest still run", func(t *testing.T) {
		dbPath := seedStore(t)
		outputDir := t.TempDir()

		exporter := NewExporter(dbPath, zap.NewNop())
		summary, err := exporter.Run(ctx, outputDir, []Export{
			{Name: "bad", Query: "SELECT * FROM no_such_table"},
			{Name: "good", Query: "SELECT id FROM trips"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.Succeeded)
		assert.Equal(t, int64(1), summary.Failed)

		_, statErr := os.Stat(filepath.Join(outputDir, "good.parquet"))
		assert.NoError(t, statErr)
	})

	t.Run("missing store is fatal", func(t *testing.T) {
		exporter := NewExporter(filepath.Join(t.TempDir(), "absent.duckdb"), zap.NewNop())
		_, err := exporter.Run(ctx, t.TempDir(), DefaultExports)
		require.Error(t, err)
		assert.True(t, errors.IsFatal(err))
	})
}
