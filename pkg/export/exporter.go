// Package export writes curated tables from the analytical store to
// Parquet files consumed by the dashboard. The store is opened
// read-only; exports never mutate tables.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/errors"
	"github.com/vibedata/platform/pkg/logger"
	"github.com/vibedata/platform/pkg/pool"
)

// Export is one named query exported to <Name>.parquet
type Export struct {
	Name  string
	Query string
}

// DefaultExports are the dashboard tables
var DefaultExports = []Export{
	{
		Name: "customer_orders",
		Query: `SELECT customer_id, customer_name, email, city, country,
			total_orders, total_revenue, completed_orders,
			first_order_date, last_order_date, customer_segment
		FROM customer_orders`,
	},
	{
		Name: "orders_summary",
		Query: `SELECT customer_id, total_orders, total_revenue,
			completed_orders, pending_orders, cancelled_orders,
			first_order_date, last_order_date
		FROM orders_summary`,
	},
	{
		Name: "weather_daily",
		Query: `SELECT forecast_date, temperature_min_c, temperature_max_c,
			temperature_avg_c, precipitation_mm, weather_comfort_score,
			year, month, day, day_of_week, is_weekend
		FROM weather_daily`,
	},
}

// Exporter runs named exports against the analytical store
type Exporter struct {
	dbPath string
	logger *zap.Logger
}

// NewExporter creates an exporter over the store at dbPath
func NewExporter(dbPath string, log *zap.Logger) *Exporter {
	if log == nil {
		log = logger.Get()
	}
	return &Exporter{
		dbPath: dbPath,
		logger: log.With(zap.String("component", "exporter")),
	}
}

// Run writes each export to outputDir. Exports share one read-only
// store handle and run sequentially; a failed export is counted and the
// rest still run.
func (e *Exporter) Run(ctx context.Context, outputDir string, exports []Export) (pool.Summary, error) {
	if _, err := os.Stat(e.dbPath); err != nil {
		return pool.Summary{}, errors.Wrap(err, errors.ErrorTypeConfig, "analytical store not found").
			WithDetail("path", e.dbPath)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return pool.Summary{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("path", outputDir)
	}

	db, err := sql.Open("duckdb", e.dbPath+"?access_mode=read_only")
	if err != nil {
		return pool.Summary{}, errors.Wrap(err, errors.ErrorTypeQuery, "failed to open analytical store").
			WithDetail("path", e.dbPath)
	}
	defer db.Close()

	var summary pool.Summary
	for _, exp := range exports {
		if err := e.runOne(ctx, db, outputDir, exp); err != nil {
			e.logger.Error("export failed",
				zap.String("export", exp.Name),
				zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Succeeded++
	}

	e.logger.Info("export complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed))
	return summary, nil
}

func (e *Exporter) runOne(ctx context.Context, db *sql.DB, outputDir string, exp Export) error {
	outputPath := filepath.Join(outputDir, exp.Name+".parquet")
	quoted := strings.ReplaceAll(outputPath, "'", "''")

	copyQuery := fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)", exp.Query, quoted)
	if _, err := db.ExecContext(ctx, copyQuery); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to export table").
			WithDetail("export", exp.Name)
	}

	var rowCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", exp.Query)
	if err := db.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to count exported rows").
			WithDetail("export", exp.Name)
	}

	e.logger.Info("table exported",
		zap.String("export", exp.Name),
		zap.String("output", outputPath),
		zap.Int64("rows", rowCount))
	return nil
}
