package timeutil

import (
	"fmt"
	"time"
)

// MinutesPerDay bounds a minute-of-day value; 24:00 is not a valid wall-clock
// minute but is accepted as an exclusive end-of-window.
const MinutesPerDay = 24 * 60

// ParseHHMM converts a "HH:mm" wall-clock string to a minute-of-day integer.
func ParseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time %q: expected HH:mm", s)
	}
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("parse time %q: expected HH:mm", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("parse time %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders a minute-of-day integer as "HH:mm".
func FormatHHMM(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// DateOf strips the time-of-day component, returning midnight UTC for the
// calendar date of t. All persisted appointment dates are normalized this way
// so that date and minute-of-day are never mixed in one comparison.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders a normalized date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MinuteOfDay returns the wall-clock minute of t within its own day.
func MinuteOfDay(t time.Time) int {
	return t.UTC().Hour()*60 + t.UTC().Minute()
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
