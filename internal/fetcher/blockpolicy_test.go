package fetcher

import (
	"testing"

	"github.com/chromedp/cdproto/network"
)

func TestBlockedResourceTypes(t *testing.T) {
	blocked := []network.ResourceType{
		network.ResourceTypeImage,
		network.ResourceTypeStylesheet,
		network.ResourceTypeMedia,
		network.ResourceTypeFont,
		network.ResourceTypeTextTrack,
		network.ResourceTypeXHR,
		network.ResourceTypePing,
		network.ResourceTypeCSPViolationReport,
		network.ResourceTypeOther,
	}
	for _, rt := range blocked {
		if !Blocked(rt) {
			t.Fatalf("expected %q to be blocked", rt)
		}
	}

	allowed := []network.ResourceType{
		network.ResourceTypeDocument,
		network.ResourceTypeScript,
		network.ResourceTypeFetch,
		network.ResourceTypeWebSocket,
		network.ResourceTypeManifest,
	}
	for _, rt := range allowed {
		if Blocked(rt) {
			t.Fatalf("expected %q to be allowed", rt)
		}
	}
}

func TestBlockedNormalizesInput(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{" Image ", true},
		{"IMAGE", true},
		{"beacon", true},
		{"csp_report", true},
		{"imageset", true},
		{"document", false},
		{"script", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Blocked(network.ResourceType(tc.raw)); got != tc.want {
			t.Fatalf("Blocked(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
