package scrape

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// discoverPages reads the last-page number from the pagination control and
// synthesizes the listing page URLs in ascending order. A missing or
// non-numeric indicator fails the whole fetch; it is never read as "1 page".
func discoverPages(ctx context.Context, p Page, rootURL string) ([]string, error) {
	if err := p.WaitReady(ctx, paginationLastSel); err != nil {
		return nil, fmt.Errorf("wait pagination control: %w", err)
	}
	raw, ok := p.Text(ctx, paginationLastSel)
	if !ok {
		return nil, errors.New("pagination control has no text")
	}
	last, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse last page number %q: %w", raw, err)
	}
	if last < 1 {
		return nil, fmt.Errorf("last page number %d out of range", last)
	}

	urls := make([]string, 0, last)
	for i := 1; i <= last; i++ {
		urls = append(urls, fmt.Sprintf("%s&_paged=%d", rootURL, i))
	}
	return urls, nil
}
