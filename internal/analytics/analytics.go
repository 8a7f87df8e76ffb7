// Package analytics derives dashboard statistics from an in-memory snapshot
// of applications. Nothing here touches storage.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/jobtrack/internal/dates"
	"github.com/garnizeh/jobtrack/internal/updatelog"
	"github.com/garnizeh/jobtrack/pkg/models"
)

// Cohort counts applications whose Applied date falls in one Sunday-based week.
type Cohort struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Range string `json:"range"`
}

// Stats is the summary bundle shown next to the application list.
type Stats struct {
	Total            int     `json:"total"`
	InProcess        int     `json:"in_process"`
	Inactive         int     `json:"rejected_or_no_response"`
	AvgFirstResponse *string `json:"avg_first_response"`
	RejectionRate    string  `json:"rejection_rate"`
}

// Compute builds the Stats bundle. now is the fallback for unparseable dates.
func Compute(apps []models.Application, now time.Time) Stats {
	active := ActiveCount(apps)
	s := Stats{
		Total:         len(apps),
		InProcess:     active,
		Inactive:      len(apps) - active,
		RejectionRate: FormatNumber(RejectionRate(apps)) + "%",
	}
	if avg, ok := AverageFirstResponseDays(apps, now); ok {
		v := FormatNumber(avg) + " days"
		s.AvgFirstResponse = &v
	}
	return s
}

// StatusDistribution counts applications per current status.
func StatusDistribution(apps []models.Application) map[string]int {
	out := make(map[string]int)
	for _, a := range apps {
		out[a.Status]++
	}
	return out
}

// WeeklyCohorts buckets Applied dates into weeks starting on Sunday and
// labels them "Week 1", "Week 2", ... in ascending order of week start.
// Applications without an Applied line are left out.
func WeeklyCohorts(apps []models.Application, now time.Time) []Cohort {
	counts := make(map[time.Time]int)
	for _, a := range apps {
		applied, ok := updatelog.AppliedDate(a.Updates, now)
		if !ok {
			continue
		}
		counts[dates.WeekStart(applied)]++
	}

	starts := make([]time.Time, 0, len(counts))
	for s := range counts {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	out := make([]Cohort, 0, len(starts))
	for i, s := range starts {
		end := s.AddDate(0, 0, 6)
		out = append(out, Cohort{
			Label: fmt.Sprintf("Week %d", i+1),
			Count: counts[s],
			Range: s.Format("02/01") + " → " + end.Format("02/01"),
		})
	}
	return out
}

// ActiveCount is the number of applications whose log has no line starting
// with Rejected or No Response.
func ActiveCount(apps []models.Application) int {
	inactive := 0
	for _, a := range apps {
		if updatelog.HasLinePrefix(a.Updates, updatelog.Rejected, updatelog.NoResponse) {
			inactive++
		}
	}
	return len(apps) - inactive
}

// AverageFirstResponseDays averages the day gap between the first and second
// log lines over every application that has both. Applications whose first
// two lines are not both dated are skipped.
func AverageFirstResponseDays(apps []models.Application, now time.Time) (float64, bool) {
	var sum, n int
	for _, a := range apps {
		entries := updatelog.Entries(a.Updates)
		if len(entries) < 2 || !entries[0].Dated || !entries[1].Dated {
			continue
		}
		applied := dates.ParseAt(entries[0].Date, now)
		first := dates.ParseAt(entries[1].Date, now)
		sum += dates.DaysBetween(applied, first)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// RejectionRate is the percentage of applications currently Rejected or No
// Response, compared case-insensitively. An empty collection yields 0.
func RejectionRate(apps []models.Application) float64 {
	if len(apps) == 0 {
		return 0
	}
	rejected := 0
	for _, a := range apps {
		if IsInactiveStatus(a.Status) {
			rejected++
		}
	}
	return float64(rejected) / float64(len(apps)) * 100
}

// IsInactiveStatus reports whether status is rejected or no response.
func IsInactiveStatus(status string) bool {
	s := strings.ToLower(status)
	return s == "rejected" || s == "no response"
}

// FormatNumber renders whole numbers without a fraction and everything else
// rounded to one decimal.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
