package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one append-only run log line. Records are observational
// only: never mutated, never deleted.
type Record struct {
	Timestamp time.Time
	FileName  string
	TableName string
	RowCount  int64
}

// RunLog appends ingestion records to a log file. Appends are serialized
// under a process-level lock.
type RunLog struct {
	path string
	mu   sync.Mutex
}

// NewRunLog creates a run log writing to path
func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

// Append writes one record. The parent directory is created lazily.
func (l *RunLog) Append(record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] INGESTED file=%s table=%s rows=%d\n",
		record.Timestamp.Format(time.RFC3339),
		record.FileName,
		record.TableName,
		record.RowCount)

	_, err = f.WriteString(line)
	return err
}
