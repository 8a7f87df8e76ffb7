// Package dates normalizes the loosely formatted dates users type into
// application logs. Parsing never fails: anything unreadable is treated as
// "now", so an unparseable date always looks recent.
package dates

import (
	"time"
)

// Layout is the canonical dd/mm/yyyy rendering stored in update logs.
const Layout = "02/01/2006"

// layouts are tried in order; day-first wins over year-first for each separator.
var layouts = []string{
	"2-1-2006", "2006-1-2",
	"2/1/2006", "2006/1/2",
	"2.1.2006", "2006.1.2",
	"2 1 2006", "2006 1 2",
	"02012006", "20060102",
}

const day = 24 * time.Hour

// Now returns the local wall-clock time expressed in UTC. All date math in
// this module happens on wall-clock values so DST shifts never skew a day count.
func Now() time.Time {
	return Wall(time.Now())
}

// Wall re-expresses t's local wall-clock reading as a UTC instant.
func Wall(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Parse is ParseAt with the current wall-clock time as fallback.
func Parse(s string) time.Time {
	return ParseAt(s, Now())
}

// ParseAt returns the first successful parse of s, or now when s is empty or
// matches none of the accepted layouts.
func ParseAt(s string, now time.Time) time.Time {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return now
}

// Format renders t as dd/mm/yyyy.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Truncate drops the time of day.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of whole days from `from` to `to`, floored
// towards negative infinity.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	n := d / day
	if d%day < 0 {
		n--
	}
	return int(n)
}

// WeekStart returns the Sunday that opens the week containing t, at midnight.
func WeekStart(t time.Time) time.Time {
	t = Truncate(t)
	return t.AddDate(0, 0, -int(t.Weekday()))
}
