package utils

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Now returns the current time in UTC. Every persisted timestamp goes through it.
func Now() time.Time {
	return time.Now().UTC()
}

// DayKey returns the compact UTC date used in document numbers.
func DayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDateRange parses inclusive YYYY-MM-DD bounds into a half open [from, to) range.
// Empty values default to today.
func ParseDateRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := StartOfDay(now)
	end := start

	if from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, Validation("invalid from date %q, expected YYYY-MM-DD", from)
		}
		start = parsed
	}
	if to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, Validation("invalid to date %q, expected YYYY-MM-DD", to)
		}
		end = parsed
	} else if from != "" {
		end = start
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, Validation("to date %s is before from date %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	return start, end.AddDate(0, 0, 1), nil
}

// FormatDate renders a date for report rows.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// FormatDuration renders request latency for access logs.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}
