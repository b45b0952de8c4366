// Package gcs provides a SnapshotStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/meiran-labs/lessons-crawler/internal/lessons"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Store keeps snapshot versions as JSON objects named
// {prefix}/{subject}/{timestamp}-{uuid}.json, so the lexically greatest name
// is the newest version and versions are append-only by construction.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed snapshot store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "snapshots"
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// LastSnapshot loads the newest snapshot version for the subject. A subject
// with no versions yet yields an empty snapshot.
func (s *Store) LastSnapshot(ctx context.Context, subject string) (lessons.Snapshot, error) {
	if subject == "" {
		return lessons.Snapshot{}, fmt.Errorf("subject is required")
	}
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: s.subjectPrefix(subject)})

	latest := ""
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return lessons.Snapshot{}, fmt.Errorf("list snapshot versions: %w", err)
		}
		if attrs.Name > latest {
			latest = attrs.Name
		}
	}
	if latest == "" {
		return lessons.Snapshot{Subject: subject, Lessons: []lessons.Lesson{}}, nil
	}

	reader, err := bucket.Object(latest).NewReader(ctx)
	if err != nil {
		return lessons.Snapshot{}, fmt.Errorf("open snapshot %s: %w", latest, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return lessons.Snapshot{}, fmt.Errorf("read snapshot %s: %w", latest, err)
	}
	var snap lessons.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return lessons.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", latest, err)
	}
	return snap, nil
}

// StoreSnapshot writes a new snapshot version and returns its gs:// URI.
func (s *Store) StoreSnapshot(ctx context.Context, snap lessons.Snapshot) (string, error) {
	if snap.Subject == "" {
		return "", fmt.Errorf("snapshot subject is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("%s%s-%s.json",
		s.subjectPrefix(snap.Subject),
		snap.CapturedAt.UTC().Format("20060102T150405Z"),
		uuid.NewString(),
	)
	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write snapshot: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

func (s *Store) subjectPrefix(subject string) string {
	return fmt.Sprintf("%s/%s/", s.prefix, subject)
}
