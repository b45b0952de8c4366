package scrape

import (
	"context"
	"fmt"
)

// extractItemURLs collects the lesson URL from every item container on a
// listing page, in document order. Zero containers is a valid empty page,
// not a failure. Duplicates are permitted here; the reconciler resolves them.
func extractItemURLs(ctx context.Context, p Page) ([]string, error) {
	if err := p.WaitReady(ctx, listingReadySel); err != nil {
		return nil, fmt.Errorf("wait listing grid: %w", err)
	}
	urls, err := p.NestedAttrs(ctx, itemContainerSel, itemAnchorSel, "href")
	if err != nil {
		return nil, fmt.Errorf("collect item urls: %w", err)
	}
	return urls, nil
}
