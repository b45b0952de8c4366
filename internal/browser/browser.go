// Package browser manages the headless Chrome process and exposes a small
// query surface over rendered pages.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the shared browser process.
type Config struct {
	UserAgent string
}

// Browser owns one headless Chrome process for the lifetime of a crawl run.
// Tabs are opened per fetch attempt; Close releases everything exactly once.
type Browser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
	closeOnce     sync.Once
}

// New launches headless Chrome and warms up the browser context.
func New(cfg Config, logger *zap.Logger) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Browser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// NewTab opens a fresh tab context off the shared browser. The returned
// cancel func closes the tab.
func (b *Browser) NewTab() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(b.browserCtx)
}

// Close tears down the browser process. Safe to call more than once.
func (b *Browser) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.browserCancel()
		b.allocCancel()
		if b.logger != nil {
			b.logger.Info("browser closed")
		}
	})
}
