package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meiran-labs/lessons-crawler/internal/lessons"
)

func TestLastSnapshotEmptySubject(t *testing.T) {
	t.Parallel()

	store := New()
	snap, err := store.LastSnapshot(context.Background(), "rabbi-fireman")
	require.NoError(t, err)
	require.Equal(t, "rabbi-fireman", snap.Subject)
	require.Empty(t, snap.Lessons)
}

func TestStoreSnapshotAppendsVersions(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	first := lessons.Snapshot{
		Subject:    "rabbi-fireman",
		CapturedAt: time.Unix(1700000000, 0).UTC(),
		Lessons:    []lessons.Lesson{{URL: "https://example.org/lesson/1/"}},
	}
	uri, err := store.StoreSnapshot(ctx, first)
	require.NoError(t, err)
	require.NotEmpty(t, uri)

	second := first
	second.Lessons = append([]lessons.Lesson{}, first.Lessons...)
	second.Lessons = append(second.Lessons, lessons.Lesson{URL: "https://example.org/lesson/2/"})
	_, err = store.StoreSnapshot(ctx, second)
	require.NoError(t, err)

	require.Equal(t, 2, store.Versions("rabbi-fireman"))

	latest, err := store.LastSnapshot(ctx, "rabbi-fireman")
	require.NoError(t, err)
	require.Len(t, latest.Lessons, 2)
}

func TestStoredSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	snap := lessons.Snapshot{
		Subject: "rabbi-fireman",
		Lessons: []lessons.Lesson{{URL: "https://example.org/lesson/1/", Tags: []string{"a"}}},
	}
	_, err := store.StoreSnapshot(ctx, snap)
	require.NoError(t, err)

	// Mutating the caller's value after storing must not change the version.
	snap.Lessons[0].Tags[0] = "mutated"

	latest, err := store.LastSnapshot(ctx, "rabbi-fireman")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, latest.Lessons[0].Tags)
}

func TestStoreSnapshotRequiresSubject(t *testing.T) {
	t.Parallel()

	store := New()
	_, err := store.StoreSnapshot(context.Background(), lessons.Snapshot{})
	require.Error(t, err)
}
