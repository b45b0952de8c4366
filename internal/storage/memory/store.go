// Package memory provides an in-memory SnapshotStore for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/meiran-labs/lessons-crawler/internal/lessons"
)

// Store keeps snapshot versions per subject, append-only, in memory.
type Store struct {
	mu       sync.Mutex
	versions map[string][]lessons.Snapshot
}

// New creates an empty Store.
func New() *Store {
	return &Store{versions: make(map[string][]lessons.Snapshot)}
}

// LastSnapshot returns a copy of the newest version for the subject, or an
// empty snapshot when none exists.
func (s *Store) LastSnapshot(_ context.Context, subject string) (lessons.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.versions[subject]
	if len(history) == 0 {
		return lessons.Snapshot{Subject: subject, Lessons: []lessons.Lesson{}}, nil
	}
	return history[len(history)-1].Clone(), nil
}

// StoreSnapshot appends a new version and returns a mem:// locator.
func (s *Store) StoreSnapshot(_ context.Context, snap lessons.Snapshot) (string, error) {
	if snap.Subject == "" {
		return "", fmt.Errorf("snapshot subject is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[snap.Subject] = append(s.versions[snap.Subject], snap.Clone())
	return fmt.Sprintf("mem://%s/%d", snap.Subject, len(s.versions[snap.Subject])), nil
}

// Versions returns how many snapshot versions exist for the subject.
func (s *Store) Versions(subject string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions[subject])
}
