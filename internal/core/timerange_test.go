package core

import (
	"testing"
	"time"
)

func TestParseDateFlexible(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-09-12", date(2025, 9, 12)},
		{"12 September 2025", date(2025, 9, 12)},
		{"September 12 2025", date(2025, 9, 12)},
		{"1st January 2025", date(2025, 1, 1)},
		{"not a date", time.Time{}},
	}
	for _, tc := range cases {
		if got := ParseDateFlexible(tc.in); !got.Equal(tc.want) {
			t.Fatalf("ParseDateFlexible(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeRange(t *testing.T) {
	// Wednesday
	now := time.Date(2025, 9, 10, 15, 30, 0, 0, time.UTC)

	t.Run("empty defaults to last 30 days", func(t *testing.T) {
		start, end := ParseTimeRange("", now)
		if !start.Equal(now.AddDate(0, 0, -30)) || !end.Equal(now) {
			t.Fatalf("got [%v, %v]", start, end)
		}
	})

	t.Run("today", func(t *testing.T) {
		start, end := ParseTimeRange("today", now)
		if start.Day() != 10 || start.Hour() != 0 || !end.Equal(now) {
			t.Fatalf("got [%v, %v]", start, end)
		}
	})

	t.Run("yesterday ends before midnight", func(t *testing.T) {
		start, end := ParseTimeRange("yesterday", now)
		if start.Day() != 9 || !end.Before(time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("got [%v, %v]", start, end)
		}
		if end.Day() != 9 {
			t.Fatalf("end landed on wrong day: %v", end)
		}
	})

	t.Run("this week starts Monday", func(t *testing.T) {
		start, _ := ParseTimeRange("this week", now)
		if start.Weekday() != time.Monday || start.Day() != 8 {
			t.Fatalf("got start %v", start)
		}
	})

	t.Run("last month covers full month", func(t *testing.T) {
		start, end := ParseTimeRange("last month", now)
		if start.Month() != time.August || start.Day() != 1 {
			t.Fatalf("got start %v", start)
		}
		if end.Month() != time.August || end.Day() != 31 {
			t.Fatalf("got end %v", end)
		}
	})

	t.Run("explicit date gives single day", func(t *testing.T) {
		start, end := ParseTimeRange("2025-09-12", now)
		if start.Day() != 12 || end.Day() != 12 {
			t.Fatalf("got [%v, %v]", start, end)
		}
		if !start.Before(end) {
			t.Fatalf("expected start < end, got [%v, %v]", start, end)
		}
	})

	t.Run("unparsable numeric yields inverted range", func(t *testing.T) {
		start, end := ParseTimeRange("32 Oktober 20", now)
		if !end.Before(start) {
			t.Fatalf("expected end before start, got [%v, %v]", start, end)
		}
		// Day granularity: the ends must land on different calendar dates,
		// or today's rows would still match a date-truncated query.
		if start.Format("2006-01-02") == end.Format("2006-01-02") {
			t.Fatalf("range collapses to one date: [%v, %v]", start, end)
		}
	})
}
