package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

const (
	defaultIdle    = 500 * time.Millisecond
	defaultBackoff = time.Second
)

type WorkerPool struct {
	repo        repository.JobRepo
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	idle        time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewWorkerPool(repo repository.JobRepo, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		repo:        repo,
		handlers:    handlers,
		logger:      logger,
		workerCount: workerCount,
		idle:        defaultIdle,
		stop:        make(chan struct{}),
	}
}

// SetPollInterval changes how long an idle worker waits before polling again.
// It must be called before Start.
func (p *WorkerPool) SetPollInterval(d time.Duration) {
	if d > 0 {
		p.idle = d
	}
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// wait sleeps for d unless the pool is stopping. It reports whether the
// worker should keep going.
func (p *WorkerPool) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.stop:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", slog.Int("id", id))
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", slog.Int("id", id))
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			p.logger.Error("fetch job", slog.Any("err", err))
			if !p.wait(ctx, defaultBackoff) {
				return
			}
			continue
		}
		if job == nil {
			if !p.wait(ctx, p.idle) {
				return
			}
			continue
		}
		p.run(ctx, job)
	}
}

func (p *WorkerPool) run(ctx context.Context, job *models.BackgroundJob) {
	log := p.logger.With(slog.Int64("job_id", job.ID), slog.String("type", job.Type))

	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler"
		if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
			log.Error("move to dead letter", slog.Any("err", err))
		}
		return
	}

	err := h(ctx, job)
	if err == nil {
		job.Status = StatusDone
		if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
			log.Error("mark job done", slog.Any("err", upErr))
		}
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		log.Warn("job failed permanently", slog.Int("attempts", job.Attempts), slog.Any("err", fmt.Errorf("%w: %v", ErrMaxAttempts, err)))
		if mvErr := p.repo.MoveToDeadLetter(ctx, job); mvErr != nil {
			log.Error("move to dead letter", slog.Any("err", mvErr))
		}
		return
	}

	t := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
		log.Error("update job for retry", slog.Any("err", upErr))
	}
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	return Enqueue(ctx, p.repo, typ, payload, priority, maxAttempts)
}

// Enqueue marshals payload and stores a new job in repo.
func Enqueue(ctx context.Context, repo repository.JobRepo, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	j := &models.BackgroundJob{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return repo.Enqueue(ctx, j)
}
