// Package updatelog models an application's history: newline separated
// "<label> - <dd/mm/yyyy>" lines, oldest first.
package updatelog

import (
	"strings"
	"time"

	"github.com/garnizeh/jobtrack/internal/dates"
)

// Separator splits a line into its label and date.
const Separator = " - "

// Well-known labels.
const (
	Applied    = "Applied"
	NoResponse = "No Response"
	Rejected   = "Rejected"
)

// Entry is one parsed log line. Dated is false for a line without a
// separator; Date is then empty and must not be parsed.
type Entry struct {
	Label string
	Date  string
	Dated bool
}

// Line renders a single log line.
func Line(label string, date time.Time) string {
	return label + Separator + dates.Format(date)
}

// ParseLine splits a line on the separator. Only the text between the first
// and second separator is taken as the date.
func ParseLine(line string) Entry {
	line = strings.TrimSuffix(line, "\r")
	parts := strings.Split(line, Separator)
	if len(parts) < 2 {
		return Entry{Label: line}
	}
	return Entry{Label: parts[0], Date: parts[1], Dated: true}
}

// Lines returns the raw lines of a log, or nil for a blank log.
func Lines(log string) []string {
	if strings.TrimSpace(log) == "" {
		return nil
	}
	lines := strings.Split(log, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Entries parses every line of log in order.
func Entries(log string) []Entry {
	lines := Lines(log)
	if lines == nil {
		return nil
	}
	out := make([]Entry, len(lines))
	for i, l := range lines {
		out[i] = ParseLine(l)
	}
	return out
}

// Append adds a line for label at date. A blank log becomes just the new
// line; otherwise the log is trimmed and the line goes after a newline.
func Append(log, label string, date time.Time) string {
	line := Line(label, date)
	if strings.TrimSpace(log) == "" {
		return line
	}
	return strings.TrimSpace(log) + "\n" + line
}

// LastEntry returns the final line of log.
func LastEntry(log string) (Entry, bool) {
	lines := Lines(log)
	if len(lines) == 0 {
		return Entry{}, false
	}
	return ParseLine(lines[len(lines)-1]), true
}

// AppliedDate returns the date of the first "Applied" line. now is the
// fallback for an unparseable date.
func AppliedDate(log string, now time.Time) (time.Time, bool) {
	for _, l := range Lines(log) {
		if strings.HasPrefix(l, Applied+Separator) {
			return dates.ParseAt(ParseLine(l).Date, now), true
		}
	}
	return time.Time{}, false
}

// HasLinePrefix reports whether any line starts with one of prefixes.
func HasLinePrefix(log string, prefixes ...string) bool {
	for _, l := range Lines(log) {
		for _, p := range prefixes {
			if strings.HasPrefix(l, p) {
				return true
			}
		}
	}
	return false
}
