package updatelog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/jobtrack/internal/updatelog"
)

func jan(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }

func TestAppend(t *testing.T) {
	cases := []struct {
		name string
		log  string
		want string
	}{
		{"empty", "", "Interviewing - 04/01/2024"},
		{"whitespace only", "  \n ", "Interviewing - 04/01/2024"},
		{"existing", "Applied - 01/01/2024", "Applied - 01/01/2024\nInterviewing - 04/01/2024"},
		{"trailing newline trimmed", "Applied - 01/01/2024\n", "Applied - 01/01/2024\nInterviewing - 04/01/2024"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, updatelog.Append(tc.log, "Interviewing", jan(4)))
		})
	}
}

func TestAppendThenLastEntryRoundTrip(t *testing.T) {
	log := updatelog.Append("Applied - 01/01/2024", "Offer", jan(20))

	entries := updatelog.Entries(log)
	require.Len(t, entries, 2)

	last, ok := updatelog.LastEntry(log)
	require.True(t, ok)
	assert.Equal(t, updatelog.Entry{Label: "Offer", Date: "20/01/2024", Dated: true}, last)
	assert.Equal(t, entries[1], last)
}

func TestEntries_MalformedLine(t *testing.T) {
	entries := updatelog.Entries("Applied - 01/01/2024\nsomething odd\r\nRejected - 09/01/2024")
	require.Len(t, entries, 3)
	assert.False(t, entries[1].Dated)
	assert.Equal(t, "something odd", entries[1].Label)
	assert.Equal(t, "09/01/2024", entries[2].Date)
}

func TestEntries_Blank(t *testing.T) {
	assert.Nil(t, updatelog.Entries(""))
	_, ok := updatelog.LastEntry("   ")
	assert.False(t, ok)
}

func TestParseLine_ExtraSeparators(t *testing.T) {
	e := updatelog.ParseLine("Phone - screen - 02/02/2024")
	assert.Equal(t, "Phone", e.Label)
	assert.Equal(t, "screen", e.Date)
}

func TestAppliedDate(t *testing.T) {
	now := time.Date(2030, time.June, 1, 8, 0, 0, 0, time.UTC)

	got, ok := updatelog.AppliedDate("Applied - 03/01/2024\nRejected - 09/01/2024", now)
	require.True(t, ok)
	assert.Equal(t, jan(3), got)

	got, ok = updatelog.AppliedDate("Applied - whenever", now)
	require.True(t, ok)
	assert.Equal(t, now, got)

	_, ok = updatelog.AppliedDate("Interviewing - 03/01/2024", now)
	assert.False(t, ok)
}

func TestHasLinePrefix(t *testing.T) {
	log := "Applied - 01/01/2024\nNo Response - 20/01/2024"
	assert.True(t, updatelog.HasLinePrefix(log, updatelog.Rejected, updatelog.NoResponse))
	assert.False(t, updatelog.HasLinePrefix(log, updatelog.Rejected))
}
