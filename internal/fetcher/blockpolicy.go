package fetcher

import (
	"strings"

	"github.com/chromedp/cdproto/network"
)

// blockedResources is the fixed set of resource classifications that are
// aborted before leaving the process. Document and Script stay allowed so the
// extractable content still renders; everything else is bandwidth or a
// tracking side channel. Blocking XHR means extraction functions that depend
// on XHR-delivered content fail silently; that trade-off is accepted.
//
// Keys are normalized to lowercase. The Puppeteer-era names (beacon,
// csp_report, imageset) are kept alongside their CDP spellings so the policy
// survives either classification vocabulary.
var blockedResources = map[string]struct{}{
	"image":              {},
	"stylesheet":         {},
	"media":              {},
	"font":               {},
	"texttrack":          {},
	"object":             {},
	"beacon":             {},
	"csp_report":         {},
	"cspviolationreport": {},
	"imageset":           {},
	"xhr":                {},
	"other":              {},
	"ping":               {},
}

// Blocked classifies one outbound request by its declared resource type.
// It is a pure function so the interception side channel can be tested
// without a network stack.
func Blocked(rt network.ResourceType) bool {
	key := strings.ToLower(strings.TrimSpace(string(rt)))
	_, hit := blockedResources[key]
	return hit
}
