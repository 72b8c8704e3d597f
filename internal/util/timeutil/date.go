package timeutil

import (
	"fmt"
	"time"
)

// Common time format strings
const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
)

// Now returns the current time. This can be overridden for testing.
var Now = func() time.Time {
	return time.Now()
}

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsDay reports whether t is already a Day.
func IsDay(t time.Time) bool {
	return t.Location() == time.UTC && t.Equal(Day(t))
}

// Today is Day(Now()).
func Today() time.Time {
	return Day(Now())
}

// ParseDate parses a date in DateFormat, or a timestamp whose day is
// taken, and returns it as a Day.
func ParseDate(s string) (time.Time, error) {
	formats := []string{
		DateFormat,
		time.RFC3339,
		DateTimeFormat,
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return Day(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// AddDays moves a day by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}
