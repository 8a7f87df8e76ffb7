// Package reconcile rebuilds a user's application collection from an
// uploaded snapshot, either replacing it (restore) or folding both together
// (merge) while keeping identities unique and the order newest-first.
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garnizeh/jobtrack/internal/dates"
	"github.com/garnizeh/jobtrack/internal/updatelog"
	"github.com/garnizeh/jobtrack/pkg/models"
)

type Mode string

const (
	Restore Mode = "restore"
	Merge   Mode = "merge"
)

var (
	ErrInvalidMode   = errors.New("invalid reconcile mode")
	ErrInvalidRecord = errors.New("invalid record")
	ErrDuplicateID   = errors.New("duplicate id")
)

// ParseMode accepts "restore" or "merge".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Restore, Merge:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Validate checks every incoming record before anything destructive happens.
// company, role and status are required; restore also requires a positive id.
func Validate(incoming []models.Application, mode Mode) error {
	for i, a := range incoming {
		switch {
		case strings.TrimSpace(a.Company) == "":
			return fmt.Errorf("%w: record %d: missing company", ErrInvalidRecord, i)
		case strings.TrimSpace(a.Role) == "":
			return fmt.Errorf("%w: record %d: missing role", ErrInvalidRecord, i)
		case strings.TrimSpace(a.Status) == "":
			return fmt.Errorf("%w: record %d: missing status", ErrInvalidRecord, i)
		case mode == Restore && a.ID <= 0:
			return fmt.Errorf("%w: record %d: missing id", ErrInvalidRecord, i)
		}
	}
	return nil
}

// RankKey is the Applied date of an application, or the zero time when the
// log has none, so undated applications sort last newest-first.
func RankKey(a models.Application, now time.Time) time.Time {
	if t, ok := updatelog.AppliedDate(a.Updates, now); ok {
		return t
	}
	return time.Time{}
}

// SortNewestFirst orders apps by RankKey descending, keeping input order for ties.
func SortNewestFirst(apps []models.Application, now time.Time) {
	type ranked struct {
		app models.Application
		key time.Time
	}
	rs := make([]ranked, len(apps))
	for i, a := range apps {
		rs[i] = ranked{app: a, key: RankKey(a, now)}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].key.After(rs[j].key) })
	for i := range rs {
		apps[i] = rs[i].app
	}
}

// Reconcile returns the complete collection to store, newest first, with
// final ids. Restore keeps only incoming with its ids verbatim; merge keeps
// existing and incoming together. Ids are assigned by a fold over the sorted
// list: the first claim on an id keeps it, a later colliding item gets the
// next id the store would allocate. In restore mode a collision is an error.
func Reconcile(existing, incoming []models.Application, mode Mode, ids models.IDState, now time.Time) ([]models.Application, error) {
	if err := Validate(incoming, mode); err != nil {
		return nil, err
	}

	var work []models.Application
	switch mode {
	case Restore:
		work = append(work, incoming...)
	case Merge:
		work = make([]models.Application, 0, len(existing)+len(incoming))
		work = append(work, existing...)
		work = append(work, incoming...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if now.IsZero() {
		now = dates.Now()
	}
	SortNewestFirst(work, now)

	claimed := make(map[int64]struct{}, len(ids.Reserved)+len(work))
	for id := range ids.Reserved {
		claimed[id] = struct{}{}
	}
	high := ids.High

	for i := range work {
		id := work[i].ID
		if _, taken := claimed[id]; id <= 0 || taken {
			if mode == Restore {
				return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
			}
			for {
				high++
				if _, taken := claimed[high]; !taken {
					break
				}
			}
			id = high
		}
		work[i].ID = id
		claimed[id] = struct{}{}
		if id > high {
			high = id
		}
	}
	return work, nil
}
