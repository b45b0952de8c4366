// Package runstore persists a crawl-run audit ledger in Postgres.
package runstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Run is one crawl run's ledger row.
type Run struct {
	ID             string
	Subject        string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         string
	PagesScanned   int
	LessonsAdded   int
	LessonsSkipped int
	LessonsFailed  int
	TotalLessons   int
	ErrorText      string
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes run rows into Postgres.
type Store struct {
	pool  execCloser
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "crawl_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "crawl_runs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordStart inserts the run row at crawl start.
func (s *Store) RecordStart(ctx context.Context, run Run) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run store is not configured")
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	subject,
	started_at,
	status
) VALUES (
	$1,$2,$3,$4
)`, s.table)

	if _, err := s.pool.Exec(ctx, query, run.ID, run.Subject, run.StartedAt, run.Status); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFinish updates the run row with the final outcome and counters.
func (s *Store) RecordFinish(ctx context.Context, run Run) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run store is not configured")
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	finished_at = $2,
	status = $3,
	pages_scanned = $4,
	lessons_added = $5,
	lessons_skipped = $6,
	lessons_failed = $7,
	total_lessons = $8,
	error_text = $9
WHERE id = $1`, s.table)

	args := []any{
		run.ID,
		run.FinishedAt,
		run.Status,
		run.PagesScanned,
		run.LessonsAdded,
		run.LessonsSkipped,
		run.LessonsFailed,
		run.TotalLessons,
		run.ErrorText,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}
