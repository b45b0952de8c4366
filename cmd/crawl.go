package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/api"
	"github.com/meiran-labs/lessons-crawler/internal/browser"
	"github.com/meiran-labs/lessons-crawler/internal/clock/system"
	"github.com/meiran-labs/lessons-crawler/internal/config"
	"github.com/meiran-labs/lessons-crawler/internal/fetcher"
	"github.com/meiran-labs/lessons-crawler/internal/hash/sha256"
	"github.com/meiran-labs/lessons-crawler/internal/logging"
	"github.com/meiran-labs/lessons-crawler/internal/metrics"
	"github.com/meiran-labs/lessons-crawler/internal/notify"
	"github.com/meiran-labs/lessons-crawler/internal/reconcile"
	"github.com/meiran-labs/lessons-crawler/internal/runstore"
	"github.com/meiran-labs/lessons-crawler/internal/scrape"
	"github.com/meiran-labs/lessons-crawler/internal/storage"
	"github.com/meiran-labs/lessons-crawler/internal/storage/gcs"
	"github.com/meiran-labs/lessons-crawler/internal/storage/memory"
)

// newCrawlCmd creates the 'crawl' subcommand, which executes exactly one
// crawl run. Scheduling is the caller's concern (cron, cloud scheduler).
func newCrawlCmd() *cobra.Command {
	var showProgress bool
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one incremental crawl of the configured subject",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), showProgress)
		},
	}
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a terminal progress bar over listing pages")
	return cmd
}

func runCrawl(parent context.Context, showProgress bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := browser.New(browser.Config{UserAgent: cfg.Crawl.UserAgent}, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer b.Close()

	f, err := fetcher.New(b, fetcher.Config{
		Retries:        cfg.Crawl.Retries,
		UserAgent:      cfg.Crawl.UserAgent,
		AcceptLanguage: cfg.Crawl.AcceptLanguage,
		NavTimeout:     cfg.NavTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}

	clk := system.New()
	scraper := scrape.New(f, sha256.New(), clk, logger)

	snapshots, cleanupStore, err := buildSnapshotStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupStore()

	notifier, cleanupNotify, err := buildNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupNotify()

	runs, cleanupRuns, err := buildRunStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupRuns()

	rcfg := reconcile.Config{
		Subject: cfg.Crawl.Subject,
		RootURL: cfg.Crawl.RabbiURL,
	}
	if showProgress {
		var bar *progressbar.ProgressBar
		rcfg.OnPage = func(scanned, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "listing pages")
			}
			_ = bar.Set(scanned)
		}
	}

	reconciler, err := reconcile.New(rcfg, scraper, snapshots, notifier, runs, b, clk, logger)
	if err != nil {
		return fmt.Errorf("init reconciler: %w", err)
	}

	stopServer := startStatusServer(cfg, reconciler, logger)
	defer stopServer()

	if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("crawl run: %w", err)
	}
	logger.Info("crawl command finished")
	return nil
}

func buildSnapshotStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.SnapshotStore, func(), error) {
	if cfg.Storage.GCSBucket == "" {
		logger.Warn("storage.gcs_bucket not set, snapshots stay in memory only")
		return memory.New(), func() {}, nil
	}
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init gcs client: %w", err)
	}
	store, err := gcs.New(client, gcs.Config{
		Bucket: cfg.Storage.GCSBucket,
		Prefix: cfg.Storage.Prefix,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("init snapshot store: %w", err)
	}
	return store, func() { _ = client.Close() }, nil
}

func buildNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Notifier, func(), error) {
	var channels []notify.Notifier
	cleanup := func() {}

	if cfg.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			return nil, nil, fmt.Errorf("init telegram notifier: %w", err)
		}
		channels = append(channels, tg)
	}

	if cfg.Notify.PubSubProject != "" {
		client, err := pubsub.NewClient(ctx, cfg.Notify.PubSubProject)
		if err != nil {
			return nil, nil, fmt.Errorf("init pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Notify.PubSubTopic)
		ps, err := notify.NewPubSub(topic, cfg.Crawl.Subject)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		channels = append(channels, ps)
		cleanup = func() {
			topic.Stop()
			_ = client.Close()
		}
	}

	if len(channels) == 0 {
		return notify.NewLog(logger), cleanup, nil
	}
	return notify.NewMulti(channels...), cleanup, nil
}

func buildRunStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (reconcile.RunRecorder, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Debug("db.dsn not set, run ledger disabled")
		return nil, func() {}, nil
	}
	store, err := runstore.New(ctx, runstore.Config{
		DSN:   cfg.DB.DSN,
		Table: cfg.DB.Table,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init run store: %w", err)
	}
	return store, store.Close, nil
}

// startStatusServer serves health, metrics and run status while the crawl
// runs. Disabled when server.port is 0.
func startStatusServer(cfg config.Config, reconciler *reconcile.Reconciler, logger *zap.Logger) func() {
	if cfg.Server.Port <= 0 {
		return func() {}
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(reconciler, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown", zap.Error(err))
		}
	}
}
