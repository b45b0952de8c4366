package scrape

import (
	"strconv"
	"strings"
	"time"
)

// hebrewMonths maps the site's Hebrew month names to calendar months.
var hebrewMonths = map[string]time.Month{
	"ינואר":   time.January,
	"פברואר":  time.February,
	"מרץ":     time.March,
	"אפריל":   time.April,
	"מאי":     time.May,
	"יוני":    time.June,
	"יולי":    time.July,
	"אוגוסט":  time.August,
	"ספטמבר":  time.September,
	"אוקטובר": time.October,
	"נובמבר":  time.November,
	"דצמבר":   time.December,
}

// monthByName resolves a Hebrew month name. The boolean distinguishes
// "January" from "not recognized"; the month value alone cannot, which is
// exactly the trap a truthiness check falls into.
func monthByName(name string) (time.Month, bool) {
	m, ok := hebrewMonths[strings.TrimSpace(name)]
	return m, ok
}

// ParseDate extracts a publish date from the page's metadata text. The date
// sits between the first pair of parentheses as "<month> <day>, <year>" with
// a Hebrew month name. Any failure yields (zero, false); the caller decides
// whether and how to default, never this function.
func ParseDate(raw string) (time.Time, bool) {
	open := strings.Index(raw, "(")
	closing := strings.Index(raw, ")")
	if open < 0 || closing < 0 || closing <= open+1 {
		return time.Time{}, false
	}
	inner := strings.Replace(raw[open+1:closing], ",", "", 1)
	parts := strings.Fields(inner)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	month, ok := monthByName(parts[0])
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year <= 0 {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components instead of failing, so a
	// round-trip mismatch means the calendar date was invalid.
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
