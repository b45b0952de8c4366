// Package reconcile orchestrates one incremental crawl run: it loads the
// prior snapshot, discovers the listing pages, scans them in order while
// skipping already-known lessons, and persists the merged snapshot as a new
// version.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/lessons"
	"github.com/meiran-labs/lessons-crawler/internal/metrics"
	"github.com/meiran-labs/lessons-crawler/internal/notify"
	"github.com/meiran-labs/lessons-crawler/internal/runstore"
	"github.com/meiran-labs/lessons-crawler/internal/storage"
)

// State is the reconciler's position in the run lifecycle.
type State string

// Run lifecycle states, in order.
const (
	StateIdle                 State = "idle"
	StateAnnounced            State = "announced"
	StatePaginationDiscovered State = "pagination_discovered"
	StatePerPageScan          State = "per_page_scan"
	StateFinalizing           State = "finalizing"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Scraper performs the three extraction stages, all routed through the
// resource-filtering fetch primitive.
type Scraper interface {
	DiscoverPages(ctx context.Context, rootURL string) ([]string, error)
	ExtractItemURLs(ctx context.Context, pageURL string) ([]string, error)
	ExtractLesson(ctx context.Context, itemURL string) (lessons.Lesson, error)
}

// RunRecorder persists the run ledger. May be left nil.
type RunRecorder interface {
	RecordStart(ctx context.Context, run runstore.Run) error
	RecordFinish(ctx context.Context, run runstore.Run) error
}

// BrowserReleaser releases the shared browser process. Close must be
// idempotent; the reconciler calls it on every exit path.
type BrowserReleaser interface {
	Close()
}

// Clock supplies snapshot and ledger timestamps.
type Clock interface {
	Now() time.Time
}

// Config identifies the crawl subject and its listing root.
type Config struct {
	Subject string
	RootURL string
	// OnPage, when set, observes per-page progress (scanned, total).
	OnPage func(scanned, total int)
}

// Status is a point-in-time view of a run, safe to read while it executes.
type Status struct {
	RunID          string    `json:"run_id"`
	State          State     `json:"state"`
	StartedAt      time.Time `json:"started_at,omitzero"`
	TotalPages     int       `json:"total_pages"`
	PagesScanned   int       `json:"pages_scanned"`
	LessonsAdded   int       `json:"lessons_added"`
	LessonsSkipped int       `json:"lessons_skipped"`
	LessonsFailed  int       `json:"lessons_failed"`
	TotalLessons   int       `json:"total_lessons"`
}

// Reconciler owns the working record set for the duration of one run. It is
// not safe for concurrent Run calls; Status may be read from other
// goroutines.
type Reconciler struct {
	cfg      Config
	scraper  Scraper
	store    storage.SnapshotStore
	notifier notify.Notifier
	runs     RunRecorder
	browser  BrowserReleaser
	clock    Clock
	logger   *zap.Logger

	mu     sync.Mutex
	status Status
}

// New constructs a Reconciler.
func New(
	cfg Config,
	scraper Scraper,
	store storage.SnapshotStore,
	notifier notify.Notifier,
	runs RunRecorder,
	browser BrowserReleaser,
	clock Clock,
	logger *zap.Logger,
) (*Reconciler, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if cfg.RootURL == "" {
		return nil, fmt.Errorf("root url is required")
	}
	if scraper == nil || store == nil || notifier == nil || browser == nil || clock == nil {
		return nil, fmt.Errorf("scraper, store, notifier, browser and clock are required")
	}
	return &Reconciler{
		cfg:      cfg,
		scraper:  scraper,
		store:    store,
		notifier: notifier,
		runs:     runs,
		browser:  browser,
		clock:    clock,
		logger:   logger,
		status:   Status{State: StateIdle},
	}, nil
}

// Status returns the current run view.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Run executes one crawl run to completion. The browser is released exactly
// once on every exit path. Pagination discovery and snapshot storage
// failures abort the run; single pages and single items only log and skip.
func (r *Reconciler) Run(ctx context.Context) error {
	defer r.browser.Close()

	runID := uuid.NewString()
	started := r.clock.Now()
	r.update(func(s *Status) {
		*s = Status{RunID: runID, State: StateAnnounced, StartedAt: started}
	})

	r.logAndNotify(ctx, fmt.Sprintf("start scraping %s (run %s)", r.cfg.Subject, runID))
	r.recordStart(ctx, runID, started)

	prior, err := r.store.LastSnapshot(ctx, r.cfg.Subject)
	if err != nil {
		return r.fail(ctx, runID, started, fmt.Errorf("load prior snapshot: %w", err))
	}
	r.logAndNotify(ctx, fmt.Sprintf(
		"read %d lessons of %s from snapshot storage", len(prior.Lessons), r.cfg.Subject,
	))

	pages, err := r.scraper.DiscoverPages(ctx, r.cfg.RootURL)
	if err != nil {
		return r.fail(ctx, runID, started, fmt.Errorf("discover pages: %w", err))
	}
	r.update(func(s *Status) {
		s.State = StatePaginationDiscovered
		s.TotalPages = len(pages)
	})
	r.logger.Info("pagination discovered",
		zap.String("run_id", runID),
		zap.Int("pages", len(pages)),
	)

	working := prior.Clone().Lessons
	known := prior.URLIndex()
	for i, pageURL := range pages {
		r.update(func(s *Status) { s.State = StatePerPageScan })
		working = r.scanPage(ctx, pageURL, working, known)
		metrics.ObservePageScanned()
		r.update(func(s *Status) {
			s.PagesScanned = i + 1
			s.TotalLessons = len(working)
		})
		if r.cfg.OnPage != nil {
			r.cfg.OnPage(i+1, len(pages))
		}
	}

	r.update(func(s *Status) { s.State = StateFinalizing })
	snap := lessons.Snapshot{
		Subject:    r.cfg.Subject,
		CapturedAt: r.clock.Now(),
		Lessons:    working,
	}
	uri, err := r.store.StoreSnapshot(ctx, snap.Clone())
	if err != nil {
		return r.fail(ctx, runID, started, fmt.Errorf("store snapshot: %w", err))
	}

	r.logAndNotify(ctx, fmt.Sprintf(
		"total of %d lessons for %s saved to %s", len(snap.Lessons), snap.Subject, uri,
	))
	r.update(func(s *Status) { s.State = StateCompleted })
	metrics.ObserveRun("completed")
	r.recordFinish(ctx, runID, started, "completed", len(working), "")
	return nil
}

// scanPage processes one listing page. Listing extraction failure skips the
// page; a single lesson's failure skips that lesson. Neither aborts the run.
func (r *Reconciler) scanPage(
	ctx context.Context,
	pageURL string,
	working []lessons.Lesson,
	known map[string]struct{},
) []lessons.Lesson {
	itemURLs, err := r.scraper.ExtractItemURLs(ctx, pageURL)
	if err != nil {
		r.logger.Error("listing page scan failed, skipping page",
			zap.String("page", pageURL),
			zap.Error(err),
		)
		return working
	}

	for _, itemURL := range itemURLs {
		if _, exists := known[itemURL]; exists {
			r.logger.Debug("lesson already exists", zap.String("url", itemURL))
			metrics.ObserveLesson("skipped")
			r.update(func(s *Status) { s.LessonsSkipped++ })
			continue
		}

		lesson, err := r.scraper.ExtractLesson(ctx, itemURL)
		if err != nil {
			r.logger.Error("lesson extraction failed, skipping item",
				zap.String("url", itemURL),
				zap.Error(err),
			)
			metrics.ObserveLesson("failed")
			r.update(func(s *Status) { s.LessonsFailed++ })
			continue
		}

		if !lesson.Valid {
			r.logger.Info("lesson is invalid", zap.String("url", itemURL))
		}
		if !lesson.HasPublishDate() {
			r.logger.Debug("lesson has no publish date", zap.String("url", itemURL))
		}

		working = append(working, lesson)
		known[itemURL] = struct{}{}
		metrics.ObserveLesson("added")
		r.update(func(s *Status) { s.LessonsAdded++ })
		r.logger.Info("lesson saved",
			zap.String("page", pageURL),
			zap.String("id", lesson.ID),
		)
	}
	return working
}

func (r *Reconciler) fail(ctx context.Context, runID string, started time.Time, err error) error {
	r.update(func(s *Status) { s.State = StateFailed })
	r.logger.Error("crawl run failed", zap.String("run_id", runID), zap.Error(err))
	r.notify(ctx, fmt.Sprintf("error in crawl run %s: %v", runID, err))
	metrics.ObserveRun("failed")
	r.recordFinish(ctx, runID, started, "failed", 0, err.Error())
	return err
}

// logAndNotify mirrors milestone messages to both the log and the
// notification channel, awaiting delivery so ordering matches.
func (r *Reconciler) logAndNotify(ctx context.Context, text string) {
	r.logger.Info(text)
	r.notify(ctx, text)
}

func (r *Reconciler) notify(ctx context.Context, text string) {
	if err := r.notifier.Send(ctx, text); err != nil {
		r.logger.Warn("notification delivery failed", zap.Error(err))
	}
}

func (r *Reconciler) recordStart(ctx context.Context, runID string, started time.Time) {
	if r.runs == nil {
		return
	}
	err := r.runs.RecordStart(ctx, runstore.Run{
		ID:        runID,
		Subject:   r.cfg.Subject,
		StartedAt: started,
		Status:    "running",
	})
	if err != nil {
		r.logger.Warn("record run start failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (r *Reconciler) recordFinish(
	ctx context.Context,
	runID string,
	started time.Time,
	status string,
	totalLessons int,
	errText string,
) {
	if r.runs == nil {
		return
	}
	st := r.Status()
	err := r.runs.RecordFinish(ctx, runstore.Run{
		ID:             runID,
		Subject:        r.cfg.Subject,
		StartedAt:      started,
		FinishedAt:     r.clock.Now(),
		Status:         status,
		PagesScanned:   st.PagesScanned,
		LessonsAdded:   st.LessonsAdded,
		LessonsSkipped: st.LessonsSkipped,
		LessonsFailed:  st.LessonsFailed,
		TotalLessons:   totalLessons,
		ErrorText:      errText,
	})
	if err != nil {
		r.logger.Warn("record run finish failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (r *Reconciler) update(mutate func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mutate(&r.status)
}
