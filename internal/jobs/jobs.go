// Package jobs runs queued background work, such as outgoing notifications,
// on a small pool of workers with retry backoff and a dead-letter table.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/garnizeh/jobtrack/pkg/models"
)

// Job statuses as stored in the jobs table.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *models.BackgroundJob) error

// ErrMaxAttempts indicates the job reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt > 16 {
		attempt = 16
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
