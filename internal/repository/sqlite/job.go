package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/jobtrack/pkg/models"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *SQLiteRepo) Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = time.Now().UTC()
	}
	ts := now()
	q := `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.conn.Exec(ctx, q, j.Type, string(j.Payload), "queued", j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().Unix(), ts, ts)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	j.ID, j.Status = id, "queued"
	return id, nil
}

// FetchNext claims the next runnable job by priority and schedule. The
// claimed job is marked running so concurrent workers skip it.
func (r *SQLiteRepo) FetchNext(ctx context.Context) (*models.BackgroundJob, error) {
	var j *models.BackgroundJob
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		q := `SELECT ` + jobColumns + ` FROM jobs WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ? ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1`
		job, err := scanJob(tx.QueryRowContext(ctx, q, ts, ts))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("fetch next job: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = 'running', updated = ? WHERE id = ?`, ts, job.ID); err != nil {
			return fmt.Errorf("claim job %d: %w", job.ID, err)
		}
		job.Status = "running"
		j = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	return j, nil
}

func scanJob(row scanner) (*models.BackgroundJob, error) {
	var (
		j           models.BackgroundJob
		payload     sql.NullString
		scheduledAt int64
		nextTry     sql.NullInt64
		lastError   sql.NullString
		created     int64
		updated     int64
	)
	if err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduledAt, &nextTry, &lastError, &created, &updated); err != nil {
		return nil, err
	}
	j.ScheduledAt = time.Unix(scheduledAt, 0).UTC()
	j.Created = time.Unix(created, 0).UTC()
	j.Updated = time.Unix(updated, 0).UTC()
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.Unix(nextTry.Int64, 0).UTC()
		j.NextTryAt = &t
	}
	j.LastError = lastError.String
	return &j, nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *SQLiteRepo) UpdateJob(ctx context.Context, j *models.BackgroundJob) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.Unix()
	}
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.conn.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, now(), j.ID)

	return err
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *SQLiteRepo) MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
		if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, now()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID)
		return err
	})
}
