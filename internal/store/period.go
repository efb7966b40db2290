package store

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for all calendar dates.
const DateLayout = "2006-01-02"

// Period identifies a reporting window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as a YYYY-MM-DD calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// civilDate strips the time-of-day component, leaving a pure calendar date.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the week containing d.
//
// This is the only week-start computation in the codebase. Every query that
// buckets by week must go through it (directly or via PeriodBounds); a second
// independently written weekday calculation is how weekly totals stop
// agreeing with each other.
func WeekStart(d time.Time) time.Time {
	d = civilDate(d)
	// time.Weekday counts Sunday=0; shift so Monday=0.
	daysSinceMonday := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -daysSinceMonday)
}

// PeriodBounds returns the half-open interval [start, end) of the day, week
// (Monday-start) or month containing ref. Bounds are pure calendar dates;
// any time-of-day on ref is discarded.
func PeriodBounds(p Period, ref time.Time) (start, end time.Time) {
	switch p {
	case PeriodWeek:
		start = WeekStart(ref)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		start = civilDate(ref)
		return start, start.AddDate(0, 0, 1)
	}
}
