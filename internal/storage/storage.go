// Package storage defines snapshot persistence contracts.
package storage

import (
	"context"

	"github.com/meiran-labs/lessons-crawler/internal/lessons"
)

// SnapshotStore reads the latest snapshot version for a subject and appends
// new versions. Prior versions are never mutated. Each method is called at
// most once per crawl run.
type SnapshotStore interface {
	// LastSnapshot returns the most recent snapshot for the subject, or an
	// empty snapshot (no error) when none exists yet.
	LastSnapshot(ctx context.Context, subject string) (lessons.Snapshot, error)
	// StoreSnapshot persists a new snapshot version and returns its location.
	StoreSnapshot(ctx context.Context, snap lessons.Snapshot) (string, error)
}
