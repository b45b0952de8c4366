package scrape

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/hash/sha256"
)

// fakePage is an in-memory Page: selectors present in the maps resolve,
// everything else reads as absent.
type fakePage struct {
	readyErr  map[string]error
	texts     map[string]string
	attrs     map[string]map[string]string
	nested    []string
	nestedErr error
}

func (p *fakePage) WaitReady(_ context.Context, selector string) error {
	if p.readyErr != nil {
		if err, ok := p.readyErr[selector]; ok {
			return err
		}
	}
	return nil
}

func (p *fakePage) Text(_ context.Context, selector string) (string, bool) {
	v, ok := p.texts[selector]
	return v, ok
}

func (p *fakePage) Attr(_ context.Context, selector, attr string) (string, bool) {
	attrs, ok := p.attrs[selector]
	if !ok {
		return "", false
	}
	v, ok := attrs[attr]
	return v, ok
}

func (p *fakePage) NestedAttrs(_ context.Context, _, _, _ string) ([]string, error) {
	if p.nestedErr != nil {
		return nil, p.nestedErr
	}
	return p.nested, nil
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

func newTestScraper() *Scraper {
	return New(nil, sha256.New(), fakeClock{now: time.Unix(1700000000, 0).UTC()}, zap.NewNop())
}

func TestDiscoverPages(t *testing.T) {
	t.Run("four pages in ascending order", func(t *testing.T) {
		page := &fakePage{texts: map[string]string{paginationLastSel: "4"}}
		root := "https://example.org/lessons/?fwp_rabbi=fireman"

		got, err := discoverPages(context.Background(), page, root)
		require.NoError(t, err)
		want := []string{
			root + "&_paged=1",
			root + "&_paged=2",
			root + "&_paged=3",
			root + "&_paged=4",
		}
		require.Equal(t, want, got)
	})

	t.Run("single page", func(t *testing.T) {
		page := &fakePage{texts: map[string]string{paginationLastSel: " 1 "}}
		got, err := discoverPages(context.Background(), page, "https://example.org/x?a=b")
		require.NoError(t, err)
		require.Equal(t, []string{"https://example.org/x?a=b&_paged=1"}, got)
	})

	t.Run("non-numeric indicator fails", func(t *testing.T) {
		page := &fakePage{texts: map[string]string{paginationLastSel: "last"}}
		_, err := discoverPages(context.Background(), page, "https://example.org/x?a=b")
		require.Error(t, err)
	})

	t.Run("absent indicator fails", func(t *testing.T) {
		page := &fakePage{}
		_, err := discoverPages(context.Background(), page, "https://example.org/x?a=b")
		require.Error(t, err)
	})

	t.Run("wait failure propagates", func(t *testing.T) {
		page := &fakePage{readyErr: map[string]error{paginationLastSel: errors.New("timeout")}}
		_, err := discoverPages(context.Background(), page, "https://example.org/x?a=b")
		require.Error(t, err)
	})
}

func TestExtractItemURLs(t *testing.T) {
	t.Run("document order preserved", func(t *testing.T) {
		page := &fakePage{nested: []string{
			"https://example.org/lesson/2/",
			"https://example.org/lesson/1/",
		}}
		got, err := extractItemURLs(context.Background(), page)
		require.NoError(t, err)
		require.Equal(t, []string{
			"https://example.org/lesson/2/",
			"https://example.org/lesson/1/",
		}, got)
	})

	t.Run("empty listing page is not an error", func(t *testing.T) {
		page := &fakePage{nested: []string{}}
		got, err := extractItemURLs(context.Background(), page)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("grid wait failure propagates", func(t *testing.T) {
		page := &fakePage{readyErr: map[string]error{listingReadySel: errors.New("timeout")}}
		_, err := extractItemURLs(context.Background(), page)
		require.Error(t, err)
	})
}

func TestExtractLesson(t *testing.T) {
	const itemURL = "https://example.org/lesson/teshuva-1/"

	t.Run("all fields present", func(t *testing.T) {
		page := &fakePage{
			texts: map[string]string{
				titleSel:       " The Gates of Return ",
				keywordsSel:    "teshuva, elul",
				seriesSel:      "gates, return",
				publishDateSel: "פורסם (ינואר 5, 2023)",
			},
			attrs: map[string]map[string]string{
				mediaAnchorSel: {"href": "https://cdn.example.org/teshuva-1.mp3"},
				canonicalSel:   {"href": "https://meirtv.com/lessons/teshuva-1/"},
			},
		}

		lesson, err := newTestScraper().extractLesson(context.Background(), page, itemURL)
		require.NoError(t, err)
		require.Equal(t, "teshuva-1", lesson.ID)
		require.Equal(t, itemURL, lesson.URL)
		require.Equal(t, "https://cdn.example.org/teshuva-1.mp3", lesson.MediaURL)
		require.Equal(t, "The Gates of Return", lesson.Title)
		require.Equal(t, []string{"teshuva", "elul", "gates", "return"}, lesson.Tags)
		require.Equal(t, time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC), lesson.PublishDate)
		require.True(t, lesson.Valid)
		require.False(t, lesson.UpdatedAt.IsZero())
	})

	t.Run("title without media is invalid but still returned", func(t *testing.T) {
		page := &fakePage{
			texts: map[string]string{titleSel: "No Audio Here"},
		}
		lesson, err := newTestScraper().extractLesson(context.Background(), page, itemURL)
		require.NoError(t, err)
		require.Empty(t, lesson.MediaURL)
		require.Equal(t, "No Audio Here", lesson.Title)
		require.False(t, lesson.Valid)
	})

	t.Run("missing canonical link falls back to digest id", func(t *testing.T) {
		page := &fakePage{
			texts: map[string]string{titleSel: "t"},
			attrs: map[string]map[string]string{
				mediaAnchorSel: {"href": "https://cdn.example.org/a.mp3"},
			},
		}
		lesson, err := newTestScraper().extractLesson(context.Background(), page, itemURL)
		require.NoError(t, err)
		require.NotEmpty(t, lesson.ID)
		require.Len(t, lesson.ID, 64)
		require.True(t, lesson.Valid)
	})

	t.Run("unparseable date stays absent", func(t *testing.T) {
		page := &fakePage{
			texts: map[string]string{
				titleSel:       "t",
				publishDateSel: "(sometime 99, never)",
			},
		}
		lesson, err := newTestScraper().extractLesson(context.Background(), page, itemURL)
		require.NoError(t, err)
		require.False(t, lesson.HasPublishDate())
	})

	t.Run("only series tags", func(t *testing.T) {
		page := &fakePage{
			texts: map[string]string{
				titleSel:  "t",
				seriesSel: "gates , return",
			},
		}
		lesson, err := newTestScraper().extractLesson(context.Background(), page, itemURL)
		require.NoError(t, err)
		require.Equal(t, []string{"gates", "return"}, lesson.Tags)
	})

	t.Run("page wait failure propagates", func(t *testing.T) {
		page := &fakePage{readyErr: map[string]error{listingReadySel: fmt.Errorf("timeout")}}
		_, err := newTestScraper().extractLesson(context.Background(), page, itemURL)
		require.Error(t, err)
	})
}
