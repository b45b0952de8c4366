// Package scrape extracts structured lesson data from the rendered pages of
// the lessons site: pagination discovery, listing item URLs, and per-lesson
// field extraction.
package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/browser"
	"github.com/meiran-labs/lessons-crawler/internal/fetcher"
	"github.com/meiran-labs/lessons-crawler/internal/lessons"
)

// Site selectors. The listing grid selector doubles as the DOM-ready marker
// on both listing and lesson pages.
const (
	paginationLastSel = "a.facetwp-page.last"
	listingReadySel   = ".jet-listing-grid__items[data-nav]"
	itemContainerSel  = "div[data-post-id]"
	itemAnchorSel     = "a[href]"
	mediaAnchorSel    = `a[href$="mp3"]`
	titleSel          = "h1.elementor-heading-title.elementor-size-default"
	keywordsSel       = `a[href*="shiurim-tags"]`
	seriesSel         = `a[href*="shiurim-series"]`
	publishDateSel    = "span.elementor-icon-list-text.elementor-post-info__item"
	canonicalSel      = `link[rel="canonical"][href*="meirtv"]`
)

// Page is the query surface extractors need from a loaded tab. Lookups
// report presence explicitly so a legitimately missing field never throws.
// *browser.Page satisfies it; tests use a fake.
type Page interface {
	WaitReady(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, bool)
	Attr(ctx context.Context, selector, attr string) (string, bool)
	NestedAttrs(ctx context.Context, containerSel, childSel, attr string) ([]string, error)
}

// Hasher computes the fallback lesson ID from the item URL.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock stamps extraction times.
type Clock interface {
	Now() time.Time
}

// Scraper routes every extraction through the resource-filtering fetch
// primitive.
type Scraper struct {
	fetcher *fetcher.Fetcher
	hasher  Hasher
	clock   Clock
	logger  *zap.Logger
}

// New constructs a Scraper.
func New(f *fetcher.Fetcher, hasher Hasher, clock Clock, logger *zap.Logger) *Scraper {
	return &Scraper{fetcher: f, hasher: hasher, clock: clock, logger: logger}
}

// DiscoverPages fetches the listing root and returns the full ordered list
// of listing page URLs, 1 through the last-page indicator.
func (s *Scraper) DiscoverPages(ctx context.Context, rootURL string) ([]string, error) {
	return fetcher.Fetch(ctx, s.fetcher, rootURL, func(ctx context.Context, p *browser.Page) ([]string, error) {
		return discoverPages(ctx, p, rootURL)
	})
}

// ExtractItemURLs fetches one listing page and returns the lesson URLs it
// links to, in document order.
func (s *Scraper) ExtractItemURLs(ctx context.Context, pageURL string) ([]string, error) {
	return fetcher.Fetch(ctx, s.fetcher, pageURL, func(ctx context.Context, p *browser.Page) ([]string, error) {
		return extractItemURLs(ctx, p)
	})
}

// ExtractLesson fetches one lesson page and extracts its record. Fields are
// individually fault-tolerant; only a failure to load the page at all
// surfaces as an error.
func (s *Scraper) ExtractLesson(ctx context.Context, itemURL string) (lessons.Lesson, error) {
	return fetcher.Fetch(ctx, s.fetcher, itemURL, func(ctx context.Context, p *browser.Page) (lessons.Lesson, error) {
		return s.extractLesson(ctx, p, itemURL)
	})
}
