package browser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Page queries the DOM of one loaded tab. All lookups run as synchronous
// JavaScript so an absent element is reported as (value, false) instead of
// blocking until the navigation deadline.
type Page struct {
	logger *zap.Logger
}

// NewPage wraps a tab for querying. The tab context travels through the
// method arguments, not the struct.
func NewPage(logger *zap.Logger) *Page {
	return &Page{logger: logger}
}

// queryResult is the wire shape returned by the query scripts.
type queryResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// WaitReady blocks until the selector is present in the DOM or the context
// expires.
func (p *Page) WaitReady(ctx context.Context, selector string) error {
	if err := chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Text returns the text content of the first element matching the selector.
func (p *Page) Text(ctx context.Context, selector string) (string, bool) {
	var res queryResult
	if err := chromedp.Run(ctx, chromedp.Evaluate(textScript(selector), &res)); err != nil {
		p.logger.Debug("text query failed", zap.String("selector", selector), zap.Error(err))
		return "", false
	}
	return res.Value, res.Found
}

// Attr returns the named attribute of the first element matching the
// selector. DOM properties (e.g. the absolute href) win over raw attributes.
func (p *Page) Attr(ctx context.Context, selector, attr string) (string, bool) {
	var res queryResult
	if err := chromedp.Run(ctx, chromedp.Evaluate(attrScript(selector, attr), &res)); err != nil {
		p.logger.Debug("attr query failed",
			zap.String("selector", selector),
			zap.String("attr", attr),
			zap.Error(err),
		)
		return "", false
	}
	return res.Value, res.Found
}

// NestedAttrs collects, in document order, the attribute of the first child
// matching childSel inside every container matching containerSel. Containers
// without a matching child are skipped. Zero containers yield an empty slice.
func (p *Page) NestedAttrs(ctx context.Context, containerSel, childSel, attr string) ([]string, error) {
	values := []string{}
	if err := chromedp.Run(ctx, chromedp.Evaluate(nestedAttrsScript(containerSel, childSel, attr), &values)); err != nil {
		return nil, fmt.Errorf("collect %q/%q: %w", containerSel, childSel, err)
	}
	return values, nil
}

func textScript(selector string) string {
	return fmt.Sprintf(
		`(() => {
			const el = document.querySelector(%s);
			if (!el) { return {found: false, value: ""}; }
			return {found: true, value: el.textContent || ""};
		})()`,
		strconv.Quote(selector),
	)
}

func attrScript(selector, attr string) string {
	return fmt.Sprintf(
		`(() => {
			const el = document.querySelector(%s);
			if (!el) { return {found: false, value: ""}; }
			const prop = el[%s];
			if (typeof prop === "string" && prop !== "") { return {found: true, value: prop}; }
			const raw = el.getAttribute(%s);
			if (raw === null) { return {found: false, value: ""}; }
			return {found: true, value: raw};
		})()`,
		strconv.Quote(selector), strconv.Quote(attr), strconv.Quote(attr),
	)
}

func nestedAttrsScript(containerSel, childSel, attr string) string {
	return fmt.Sprintf(
		`(() => {
			return Array.from(document.querySelectorAll(%s))
				.map((c) => {
					const el = c.querySelector(%s);
					return el ? (el.getAttribute(%s) || el[%s] || null) : null;
				})
				.filter((v) => v !== null);
		})()`,
		strconv.Quote(containerSel), strconv.Quote(childSel),
		strconv.Quote(attr), strconv.Quote(attr),
	)
}
