// Package ingest materializes local data files into the DuckDB
// analytical store. Each materialization is a full replace: readers see
// either the previous table or the new one, never a partial state.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/errors"
)

// Materializer replaces named tables in the analytical store with file
// contents. The store handle is shared, so table replaces are serialized
// even though replaces on distinct table names would be safe.
type Materializer struct {
	dbPath string
	runLog *RunLog
	logger *zap.Logger

	mu sync.Mutex
	db *sql.DB
}

// Column is one inferred column of a data file
type Column struct {
	Name string
	Type string
}

// FileSchema is the read-only inspection result for a file that has not
// been ingested yet
type FileSchema struct {
	Columns  []Column
	RowCount int64
}

// NewMaterializer creates a materializer bound to the store at dbPath.
// The store file and its parent directory are created on first use.
func NewMaterializer(dbPath string, runLog *RunLog, logger *zap.Logger) *Materializer {
	return &Materializer{
		dbPath: dbPath,
		runLog: runLog,
		logger: logger.With(zap.String("component", "materializer")),
	}
}

// DeriveTableName derives a deterministic table name from a file name:
// lowercased stem, hyphens and spaces folded to underscores, prefixed
// raw_. Names differing only by case or separator collide into the same
// table; last materialized wins.
func DeriveTableName(filePath string) string {
	stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	stem = strings.ToLower(stem)
	stem = strings.ReplaceAll(stem, "-", "_")
	stem = strings.ReplaceAll(stem, " ", "_")
	return "raw_" + stem
}

// readFunction maps a file extension to the DuckDB table function that
// reads it. The format set is closed; anything else is an unsupported
// format error the caller counts without aborting.
func readFunction(filePath string) (string, error) {
	quoted := strings.ReplaceAll(filePath, "'", "''")
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", quoted), nil
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", quoted), nil
	case ".json":
		return fmt.Sprintf("read_json_auto('%s')", quoted), nil
	default:
		return "", errors.New(errors.ErrorTypeFormat, "unsupported file format").
			WithDetail("file", filePath).
			WithDetail("extension", filepath.Ext(filePath))
	}
}

// Materialize reads filePath and replaces tableName with its contents.
// An empty tableName is derived from the file name. Returns the table
// name and the loaded row count.
func (m *Materializer) Materialize(ctx context.Context, filePath, tableName string) (string, int64, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeFile, "file not found").
			WithDetail("file", filePath)
	}

	if tableName == "" {
		tableName = DeriveTableName(filePath)
	}

	readFunc, err := readFunction(filePath)
	if err != nil {
		return "", 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	db, err := m.openLocked()
	if err != nil {
		return "", 0, err
	}

	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", tableName, readFunc)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeQuery, "failed to materialize table").
			WithDetail("file", filePath).
			WithDetail("table", tableName)
	}

	var rowCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)
	if err := db.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeQuery, "failed to count rows").
			WithDetail("table", tableName)
	}

	m.logger.Info("table materialized",
		zap.String("file", filepath.Base(filePath)),
		zap.String("table", tableName),
		zap.Int64("rows", rowCount))

	// Run log append is best-effort and never rolls back the replace
	if m.runLog != nil {
		record := Record{
			Timestamp: time.Now(),
			FileName:  filepath.Base(filePath),
			TableName: tableName,
			RowCount:  rowCount,
		}
		if err := m.runLog.Append(record); err != nil {
			m.logger.Warn("failed to append run record", zap.Error(err))
		}
	}

	return tableName, rowCount, nil
}

// Describe inspects a data file without ingesting it: inferred columns
// and row count, using the same format dispatch as Materialize. The
// inspection runs against an in-memory store and never touches the
// analytical database.
func (m *Materializer) Describe(ctx context.Context, filePath string) (*FileSchema, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "file not found").
			WithDetail("file", filePath)
	}

	readFunc, err := readFunction(filePath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to open in-memory store")
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM %s)", readFunc)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to describe file").
			WithDetail("file", filePath)
	}
	defer rows.Close()

	schema := &FileSchema{}
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan schema row")
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read schema rows")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", readFunc)
	if err := db.QueryRowContext(ctx, countQuery).Scan(&schema.RowCount); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to count rows").
			WithDetail("file", filePath)
	}

	return schema, nil
}

// Close releases the store handle
func (m *Materializer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// openLocked opens the store handle on first use; callers hold m.mu
func (m *Materializer) openLocked() (*sql.DB, error) {
	if m.db != nil {
		return m.db, nil
	}

	if err := os.MkdirAll(filepath.Dir(m.dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create database directory").
			WithDetail("path", filepath.Dir(m.dbPath))
	}

	db, err := sql.Open("duckdb", m.dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to open analytical store").
			WithDetail("path", m.dbPath)
	}
	m.db = db
	return db, nil
}
