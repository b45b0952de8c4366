// Package fetcher implements the retry-governed, resource-filtering page
// fetch primitive. Every page the crawler touches goes through Fetch: one
// fresh tab per attempt, outbound headers set, a request-interception policy
// installed, then a caller-supplied extraction function run against the
// loaded page. The tab is always closed before retrying or returning.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpfetch "github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/browser"
	"github.com/meiran-labs/lessons-crawler/internal/metrics"
)

// ErrRetriesExhausted marks a fetch that failed on every attempt. The last
// attempt's error is wrapped alongside it.
var ErrRetriesExhausted = errors.New("fetch retries exhausted")

// Config controls fetch behavior.
type Config struct {
	// Retries is the total attempt budget, not a count of re-attempts.
	Retries        int
	UserAgent      string
	AcceptLanguage string
	NavTimeout     time.Duration
}

// Extract runs against a loaded page and produces the caller's value.
type Extract[T any] func(ctx context.Context, page *browser.Page) (T, error)

// Fetcher opens tabs on a shared browser and applies the block policy to
// every outbound request.
type Fetcher struct {
	browser *browser.Browser
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Fetcher.
func New(b *browser.Browser, cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.Retries < 1 {
		return nil, fmt.Errorf("retries must be >= 1, got %d", cfg.Retries)
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	return &Fetcher{browser: b, cfg: cfg, logger: logger}, nil
}

// Fetch navigates to the URL and runs extract against the rendered page,
// retrying from a fresh tab until the attempt budget runs out. On exhaustion
// the returned error wraps both ErrRetriesExhausted and the last attempt
// error, and the caller decides whether that is fatal to the run or only to
// one item.
func Fetch[T any](ctx context.Context, f *Fetcher, url string, extract Extract[T]) (T, error) {
	v, err := retryDo(ctx, f.cfg.Retries, func() (T, error) {
		v, err := attempt(ctx, f, url, extract)
		if err != nil {
			metrics.ObserveFetchAttempt("error")
			f.logger.Error("cannot scrap url", zap.String("url", url), zap.Error(err))
			return v, err
		}
		metrics.ObserveFetchAttempt("ok")
		return v, nil
	})
	if err != nil {
		metrics.ObserveRetriesExhausted()
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", url, err)
	}
	return v, nil
}

// retryDo runs op up to attempts times, immediately, with no backoff between
// attempts. The budget is an explicit countdown so the loop always
// terminates at the configured maximum.
func retryDo[T any](ctx context.Context, attempts int, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for remaining := attempts; remaining > 0; remaining-- {
		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

func attempt[T any](ctx context.Context, f *Fetcher, url string, extract Extract[T]) (T, error) {
	var zero T

	tabCtx, closeTab := f.browser.NewTab()
	defer closeTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, f.cfg.NavTimeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	f.interceptRequests(tabCtx, url)

	f.logger.Info("open url", zap.String("url", url))
	tasks := chromedp.Tasks{
		cdpfetch.Enable(),
		network.Enable(),
		network.SetExtraHTTPHeaders(f.extraHeaders()),
		chromedp.Navigate(url),
	}
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return zero, fmt.Errorf("navigate %s: %w", url, err)
	}

	v, err := extract(tabCtx, browser.NewPage(f.logger))
	if err != nil {
		return zero, fmt.Errorf("extract from %s: %w", url, err)
	}
	return v, nil
}

func (f *Fetcher) extraHeaders() network.Headers {
	headers := network.Headers{}
	if f.cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = f.cfg.AcceptLanguage
	}
	if f.cfg.UserAgent != "" {
		headers["User-Agent"] = f.cfg.UserAgent
	}
	return headers
}

// interceptRequests installs the block policy on the tab. Every paused
// request is classified synchronously by Blocked; the abort/continue command
// itself runs on a goroutine because CDP events arrive on the tab's event
// loop.
func (f *Fetcher) interceptRequests(tabCtx context.Context, pageURL string) {
	chromedp.ListenTarget(tabCtx, func(ev any) {
		pause, ok := ev.(*cdpfetch.EventRequestPaused)
		if !ok {
			return
		}
		blocked := Blocked(pause.ResourceType)
		go func() {
			c := chromedp.FromContext(tabCtx)
			execCtx := cdp.WithExecutor(tabCtx, c.Target)
			if blocked {
				f.logger.Debug("skip resource",
					zap.String("resource", string(pause.ResourceType)),
					zap.String("url", pause.Request.URL),
				)
				if err := cdpfetch.FailRequest(pause.RequestID, network.ErrorReasonAborted).Do(execCtx); err != nil {
					f.logResourceError(pageURL, pause, err)
				}
				return
			}
			f.logger.Debug("download resource",
				zap.String("resource", string(pause.ResourceType)),
				zap.String("url", pause.Request.URL),
			)
			if err := cdpfetch.ContinueRequest(pause.RequestID).Do(execCtx); err != nil {
				f.logResourceError(pageURL, pause, err)
			}
		}()
	})
}

func (f *Fetcher) logResourceError(pageURL string, pause *cdpfetch.EventRequestPaused, err error) {
	// The tab may already be gone by the time the command lands; that is
	// expected during teardown and only worth a debug line.
	if errors.Is(err, context.Canceled) {
		return
	}
	f.logger.Error("error handling resource",
		zap.String("resource", string(pause.ResourceType)),
		zap.String("page_url", pageURL),
		zap.Error(err),
	)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
