package sync

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/errors"
)

// SyncDiff is the set difference between local file names and remote
// object keys, derived per invocation and never stored
type SyncDiff struct {
	OnlyLocal  []string
	OnlyRemote []string
	InBoth     []string
}

// Diff computes membership difference both ways. Equality is by name
// only: a file present on both sides with different bytes is reported
// as in sync.
func Diff(local, remote []string) *SyncDiff {
	localSet := make(map[string]struct{}, len(local))
	for _, name := range local {
		localSet[name] = struct{}{}
	}
	remoteSet := make(map[string]struct{}, len(remote))
	for _, key := range remote {
		remoteSet[key] = struct{}{}
	}

	diff := &SyncDiff{}
	for name := range localSet {
		if _, ok := remoteSet[name]; ok {
			diff.InBoth = append(diff.InBoth, name)
		} else {
			diff.OnlyLocal = append(diff.OnlyLocal, name)
		}
	}
	for key := range remoteSet {
		if _, ok := localSet[key]; !ok {
			diff.OnlyRemote = append(diff.OnlyRemote, key)
		}
	}

	sort.Strings(diff.OnlyLocal)
	sort.Strings(diff.OnlyRemote)
	sort.Strings(diff.InBoth)
	return diff
}

// DBState classifies the database tier comparison
type DBState string

const (
	// DBMatch means both sides exist with equal byte size
	DBMatch DBState = "match"
	// DBDiffer means both sides exist with different byte size
	DBDiffer DBState = "differ"
	// DBLocalOnly means only the local artifact exists
	DBLocalOnly DBState = "local_only"
	// DBRemoteOnly means only the remote artifact exists
	DBRemoteOnly DBState = "remote_only"
	// DBAbsent means neither side exists
	DBAbsent DBState = "absent"
)

// DBStatus is the database tier drift report. Unlike the raw tier it
// compares byte size, not just presence. Size equality still
// under-detects same-size content drift; that is the documented
// tradeoff, not full content hashing.
type DBStatus struct {
	Key        string
	State      DBState
	LocalSize  int64
	RemoteSize int64
}

// String renders the status the way operators read it
func (s *DBStatus) String() string {
	switch s.State {
	case DBMatch:
		return "MATCH"
	case DBDiffer:
		return fmt.Sprintf("DIFFER (local: %d, azure: %d)", s.LocalSize, s.RemoteSize)
	case DBLocalOnly:
		return "LOCAL ONLY"
	case DBRemoteOnly:
		return "AZURE ONLY"
	default:
		return "NOT FOUND"
	}
}

// Report is the per-tier drift report from Status
type Report struct {
	Raw      *SyncDiff
	Database *DBStatus
}

// databaseStatus stats both sides of the database tier and compares
// byte sizes
func (r *Reconciler) databaseStatus(ctx context.Context) *DBStatus {
	status := &DBStatus{Key: r.cfg.Storage.DatabaseKey}

	var localSize int64
	localExists := false
	if info, err := os.Stat(r.cfg.DatabasePath()); err == nil {
		localExists = true
		localSize = info.Size()
	}

	var remoteSize int64
	remoteExists := false
	obj, err := r.store.Stat(ctx, r.cfg.Azure.Containers.Database, r.cfg.Storage.DatabaseKey)
	switch {
	case err == nil:
		remoteExists = true
		remoteSize = obj.Size
	case errors.IsNotFound(err):
	default:
		r.logger.Warn("failed to stat remote database",
			zap.String("container", r.cfg.Azure.Containers.Database),
			zap.String("key", r.cfg.Storage.DatabaseKey),
			zap.Error(err))
	}

	status.LocalSize = localSize
	status.RemoteSize = remoteSize

	switch {
	case localExists && remoteExists && localSize == remoteSize:
		status.State = DBMatch
	case localExists && remoteExists:
		status.State = DBDiffer
	case localExists:
		status.State = DBLocalOnly
	case remoteExists:
		status.State = DBRemoteOnly
	default:
		status.State = DBAbsent
	}

	return status
}
