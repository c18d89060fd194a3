package core

import (
	"regexp"
	"strings"
	"time"
)

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

var flexibleDateFormats = []string{
	"2006-01-02",
	"2 January 2006",
	"January 2 2006",
}

// ParseDateFlexible tries to parse a date string from various common formats.
// Ordinal suffixes ("1st", "22nd") are stripped before parsing. Returns the
// zero time when no format matches.
func ParseDateFlexible(s string) time.Time {
	s = ordinalSuffix.ReplaceAllString(strings.TrimSpace(s), "$1")
	for _, layout := range flexibleDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseTimeRange converts a natural-language time range into a concrete
// [start, end] window relative to now.
//
// Recognized: explicit dates (see ParseDateFlexible), "today", "yesterday",
// "this week", "last week", "this month", "last month". An empty string
// defaults to the trailing 30 days. A string that contains digits but parses
// as nothing yields an inverted window (end before start) so queries return
// no rows instead of guessing. Storage keeps dates at day granularity, so a
// same-instant window would still match everything recorded today.
func ParseTimeRange(s string, now time.Time) (time.Time, time.Time) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if strings.TrimSpace(s) == "" {
		return now.AddDate(0, 0, -30), now
	}

	// A specific date wins over relative keywords.
	datePart, _, _ := strings.Cut(s, "T")
	if t := ParseDateFlexible(datePart); !t.IsZero() {
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "today"):
		return dayStart, now
	case strings.Contains(lower, "yesterday"):
		return dayStart.AddDate(0, 0, -1), dayStart.Add(-time.Nanosecond)
	case strings.Contains(lower, "this week"):
		return dayStart.AddDate(0, 0, -weekdayOffset(now)), now
	case strings.Contains(lower, "last week"):
		end := dayStart.AddDate(0, 0, -weekdayOffset(now)).Add(-time.Nanosecond)
		start := dayStart.AddDate(0, 0, -weekdayOffset(now)-7)
		return start, end
	case strings.Contains(lower, "this month"):
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case strings.Contains(lower, "last month"):
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return thisMonth.AddDate(0, -1, 0), thisMonth.Add(-time.Nanosecond)
	}

	// Looks date-ish but unparsable: inverted range yields no expenses even
	// after both ends are truncated to their calendar dates.
	if strings.ContainsAny(lower, "0123456789") && !strings.Contains(lower, "year") {
		return now, now.AddDate(0, 0, -1)
	}

	return now.AddDate(0, 0, -30), now
}

// weekdayOffset returns days elapsed since Monday.
func weekdayOffset(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 { // Sunday
		return 6
	}
	return wd - 1
}
