package scrape

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meiran-labs/lessons-crawler/internal/lessons"
)

// extractLesson reads every record field independently. A missing selector
// leaves that field absent and never aborts the rest; the record is returned
// even when it ends up invalid so layout breakage stays inspectable.
func (s *Scraper) extractLesson(ctx context.Context, p Page, itemURL string) (lessons.Lesson, error) {
	if err := p.WaitReady(ctx, listingReadySel); err != nil {
		return lessons.Lesson{}, fmt.Errorf("wait lesson page: %w", err)
	}

	mediaURL, ok := p.Attr(ctx, mediaAnchorSel, "href")
	if !ok {
		s.logger.Info("lesson has no media file", zap.String("url", itemURL))
	}

	title, ok := p.Text(ctx, titleSel)
	if !ok {
		s.logger.Info("lesson has no title", zap.String("url", itemURL))
	}
	title = strings.TrimSpace(title)

	tags := s.extractTags(ctx, p)

	lesson := lessons.Lesson{
		ID:        s.lessonID(ctx, p, itemURL),
		URL:       itemURL,
		MediaURL:  mediaURL,
		Title:     title,
		Tags:      tags,
		UpdatedAt: s.clock.Now(),
		Valid:     lessons.Validity(mediaURL, title),
	}

	if raw, ok := p.Text(ctx, publishDateSel); ok {
		if date, parsed := ParseDate(raw); parsed {
			lesson.PublishDate = date
		} else {
			// The date stays absent, never defaulted to now.
			s.logger.Warn("could not parse publish date",
				zap.String("url", itemURL),
				zap.String("raw", raw),
			)
		}
	}

	return lesson, nil
}

// extractTags concatenates keyword tags then series tags, comma-split and
// trimmed, preserving order. An absent source contributes nothing.
func (s *Scraper) extractTags(ctx context.Context, p Page) []string {
	var tags []string
	if raw, ok := p.Text(ctx, keywordsSel); ok {
		tags = append(tags, splitTags(raw)...)
	}
	if raw, ok := p.Text(ctx, seriesSel); ok {
		tags = append(tags, splitTags(raw)...)
	}
	return tags
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

// lessonID derives the record ID from the canonical link's second-to-last
// path segment. When the canonical link is absent it falls back to a digest
// of the item URL so every stored record still carries a stable ID. The ID
// is derived once here and never recomputed.
func (s *Scraper) lessonID(ctx context.Context, p Page, itemURL string) string {
	if canonical, ok := p.Attr(ctx, canonicalSel, "href"); ok {
		segments := strings.Split(canonical, "/")
		if len(segments) >= 2 {
			return segments[len(segments)-2]
		}
	}
	digest, err := s.hasher.Hash([]byte(itemURL))
	if err != nil {
		s.logger.Error("hash fallback id failed", zap.String("url", itemURL), zap.Error(err))
		return ""
	}
	s.logger.Debug("canonical link absent, using digest id", zap.String("url", itemURL))
	return digest
}
