package util

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day layout used by anchor tables and responses.
const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FromUnixMillis converts a millisecond epoch to its UTC calendar day.
func FromUnixMillis(ms int64) time.Time {
	return Day(time.UnixMilli(ms))
}

// FormatDay renders t as YYYY-MM-DD in UTC.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
