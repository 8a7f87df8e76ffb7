// Package notify delivers "No Response" transition notices. Transitions are
// queued as background jobs and mailed by a worker pool handler.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/garnizeh/jobtrack/internal/jobs"
	"github.com/garnizeh/jobtrack/internal/lifecycle"
	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

// JobType is the jobs table type for a No Response notice.
const JobType = "notify.no_response"

const (
	jobPriority    = 100
	jobMaxAttempts = 5
)

// Payload is the queued notice.
type Payload struct {
	Recipient     string `json:"recipient"`
	ApplicationID int64  `json:"application_id"`
	Company       string `json:"company"`
	Role          string `json:"role"`
	Days          int    `json:"days"`
}

// Queue implements lifecycle.Notifier by enqueueing a job per transition.
type Queue struct {
	repo   repository.JobRepo
	logger *slog.Logger
}

var _ lifecycle.Notifier = (*Queue)(nil)

func NewQueue(repo repository.JobRepo, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{repo: repo, logger: logger}
}

// NoResponse enqueues the notice. A failed enqueue is logged; the
// transition has already committed and stays.
func (q *Queue) NoResponse(ctx context.Context, ev lifecycle.Event) {
	p := Payload{
		Recipient:     ev.Recipient,
		ApplicationID: ev.ApplicationID,
		Company:       ev.Company,
		Role:          ev.Role,
		Days:          ev.Days,
	}
	id, err := jobs.Enqueue(ctx, q.repo, JobType, p, jobPriority, jobMaxAttempts)
	if err != nil {
		q.logger.Error("enqueue no response notice",
			slog.Int64("application_id", ev.ApplicationID),
			slog.Any("err", err),
		)
		return
	}
	q.logger.Debug("no response notice queued", slog.Int64("job_id", id), slog.Int64("application_id", ev.ApplicationID))
}

// Subject and Body render the notice text.
func (p Payload) Subject() string {
	return fmt.Sprintf("No response: %s at %s", p.Role, p.Company)
}

func (p Payload) Body() string {
	return fmt.Sprintf("Your application for %s at %s was marked as No Response after %d days without a reply.\n",
		p.Role, p.Company, p.Days)
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Handler returns the worker pool handler for JobType. A nil sender means
// mail is not configured: notices are logged and dropped.
func Handler(sender Sender, logger *slog.Logger) jobs.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, j *models.BackgroundJob) error {
		var p Payload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", JobType, err)
		}
		if sender == nil || p.Recipient == "" {
			logger.Info("no response notice not mailed",
				slog.Int64("application_id", p.ApplicationID),
				slog.Bool("mail_configured", sender != nil),
			)
			return nil
		}
		if err := sender.Send(ctx, p.Recipient, p.Subject(), p.Body()); err != nil {
			return fmt.Errorf("send no response notice: %w", err)
		}
		logger.Info("no response notice sent", slog.Int64("application_id", p.ApplicationID))
		return nil
	}
}
