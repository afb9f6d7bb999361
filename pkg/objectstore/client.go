// Package objectstore provides the thin capability surface over remote
// object storage used by the sync reconciler and the post-ingestion
// upload path. Containers group objects per storage tier (raw, database,
// logs). Objects are not versioned: a put with an existing key replaces
// it, last writer wins.
package objectstore

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Object describes one remote object
type Object struct {
	Container    string
	Key          string
	Size         int64
	LastModified time.Time
}

// Client is the capability set against a remote object store. A put is
// always an overwrite; there is no optimistic concurrency. Stat and Get
// on a missing key return a not_found error, which callers treat as an
// expected outcome rather than a failure.
type Client interface {
	List(ctx context.Context, container string) ([]Object, error)
	Stat(ctx context.Context, container, key string) (*Object, error)
	Get(ctx context.Context, container, key string) ([]byte, error)
	Put(ctx context.Context, container, key string, data []byte) error
}

// ContentType maps a file name to the blob content type set on upload
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".log":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
