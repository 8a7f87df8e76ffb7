package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/jobtrack/internal/query"
	"github.com/garnizeh/jobtrack/pkg/models"
	"github.com/garnizeh/jobtrack/pkg/repository"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (models.Application, error) {
	var (
		a       models.Application
		updates sql.NullString
		notes   sql.NullString
		userID  sql.NullInt64
	)
	if err := s.Scan(&a.ID, &a.Company, &a.Role, &a.Status, &updates, &notes, &userID); err != nil {
		return a, err
	}
	a.Updates = updates.String
	a.Notes = notes.String
	if userID.Valid {
		v := userID.Int64
		a.UserID = &v
	}
	return a, nil
}

func collect(rows *sql.Rows) ([]models.Application, error) {
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListApplications runs the filtered, ordered read for one user.
func (r *SQLiteRepo) ListApplications(ctx context.Context, f query.Filter) ([]models.Application, error) {
	q, args := query.Build(f)
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return collect(rows)
}

// ListAllApplications returns every application the user owns, by id.
func (r *SQLiteRepo) ListAllApplications(ctx context.Context, userID int64) ([]models.Application, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+query.Columns+` FROM applications WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list all applications: %w", err)
	}
	return collect(rows)
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id, userID int64) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+query.Columns+` FROM applications WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &a, nil
}

func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO applications (company, role, status, updates, notes, user_id) VALUES (?, ?, ?, ?, ?, ?)`,
		a.Company, a.Role, a.Status, a.Updates, a.Notes, a.UserID)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

// MutateApplication reads one owned row, lets fn edit it and writes status,
// updates and notes back in the same transaction. The write only lands if
// the log is still what was read; otherwise ErrConflict is returned.
func (r *SQLiteRepo) MutateApplication(ctx context.Context, id, userID int64, fn repository.MutateFunc) (*models.Application, error) {
	var out *models.Application
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+query.Columns+` FROM applications WHERE id = ? AND user_id = ?`, id, userID)
		a, err := scanApplication(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("application %d: %w", id, repository.ErrNotFound)
			}
			return err
		}

		prev := a.Updates
		changed, err := fn(&a)
		if err != nil {
			return err
		}
		if changed {
			res, err := tx.ExecContext(ctx, `UPDATE applications SET status = ?, updates = ?, notes = ? WHERE id = ? AND user_id = ? AND IFNULL(updates, '') = ?`,
				a.Status, a.Updates, a.Notes, id, userID, prev)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("application %d: %w", id, repository.ErrConflict)
			}
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepo) DeleteApplication(ctx context.Context, id, userID int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM applications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("application %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

// RebuildApplications replaces the user's applications with whatever build
// returns, inside a single transaction. Readers see either the old or the
// new collection, never an empty one.
func (r *SQLiteRepo) RebuildApplications(ctx context.Context, userID int64, build repository.BuildFunc) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+query.Columns+` FROM applications WHERE user_id = ? ORDER BY id`, userID)
		if err != nil {
			return fmt.Errorf("load existing: %w", err)
		}
		existing, err := collect(rows)
		if err != nil {
			return fmt.Errorf("load existing: %w", err)
		}

		ids, err := idState(ctx, tx, userID)
		if err != nil {
			return err
		}

		next, err := build(existing, ids)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear applications: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO applications (id, company, role, status, updates, notes, user_id) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range next {
			if _, err := stmt.ExecContext(ctx, a.ID, a.Company, a.Role, a.Status, a.Updates, a.Notes, userID); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("insert application %d: %w", a.ID, repository.ErrDuplicate)
				}
				return fmt.Errorf("insert application %d: %w", a.ID, err)
			}
		}

		r.logger.Info("applications rebuilt",
			slog.Int64("user_id", userID),
			slog.Int("before", len(existing)),
			slog.Int("after", len(next)),
		)
		return nil
	})
}

func idState(ctx context.Context, tx *sql.Tx, userID int64) (models.IDState, error) {
	ids := models.IDState{Reserved: make(map[int64]struct{})}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM applications WHERE user_id IS NULL OR user_id != ?`, userID)
	if err != nil {
		return ids, fmt.Errorf("load reserved ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return ids, err
		}
		ids.Reserved[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return ids, err
	}

	row := tx.QueryRowContext(ctx, `SELECT MAX(
		COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'applications'), 0),
		COALESCE((SELECT MAX(id) FROM applications), 0))`)
	if err := row.Scan(&ids.High); err != nil {
		return ids, fmt.Errorf("load id sequence: %w", err)
	}
	return ids, nil
}
