package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/db"
	"github.com/alexanderramin/crewdesk/internal/domain"
)

const workLogColumns = `id, user_id, user_name, user_email, job_id, client_id, client_name,
		work_date, start_time, end_time, duration_minutes, notes, version, created_at, updated_at`

// SQLiteWorkLogRepo implements WorkLogRepo using a SQLite database.
type SQLiteWorkLogRepo struct {
	db db.DBTX
}

// NewSQLiteWorkLogRepo creates a new SQLiteWorkLogRepo.
func NewSQLiteWorkLogRepo(db db.DBTX) *SQLiteWorkLogRepo {
	return &SQLiteWorkLogRepo{db: db}
}

func (r *SQLiteWorkLogRepo) Create(ctx context.Context, e *domain.WorkLogEntry) error {
	query := `INSERT INTO work_logs (` + workLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if e.Version == 0 {
		e.Version = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.UserName,
		e.UserEmail,
		nullableStringToValue(e.JobID),
		e.ClientID,
		e.ClientName,
		formatTime(e.WorkDate),
		formatTime(e.StartTime),
		nullableTimeToString(e.EndTime),
		nullableIntToValue(e.DurationMinutes),
		e.Notes,
		e.Version,
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		if e.IsOpen() && e.JobID != nil && db.IsConstraint(err) {
			return &domain.ConflictError{Entity: "work log", ID: e.ID, Detail: "worker already has an open entry for job " + *e.JobID}
		}
		return fmt.Errorf("inserting work log: %w", db.Classify(err))
	}
	return nil
}

func (r *SQLiteWorkLogRepo) GetByID(ctx context.Context, id string) (*domain.WorkLogEntry, error) {
	query := `SELECT ` + workLogColumns + ` FROM work_logs WHERE id = ?`
	e, err := scanWorkLog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("work log %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning work log: %w", db.Classify(err))
	}
	return e, nil
}

// List returns entries whose work date falls in the filter range (bounds
// included), ordered by work date then start time.
func (r *SQLiteWorkLogRepo) List(ctx context.Context, filter contract.WorkLogFilter) ([]*domain.WorkLogEntry, error) {
	var where []string
	var args []any

	if filter.Range != nil {
		where = append(where, `work_date >= ?`, `work_date <= ?`)
		args = append(args, formatTime(filter.Range.Start), formatTime(filter.Range.End))
	}
	if filter.UserID != "" {
		where = append(where, `user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.JobID != "" {
		where = append(where, `job_id = ?`)
		args = append(args, filter.JobID)
	}
	if filter.OpenOnly {
		where = append(where, `end_time IS NULL`)
	}

	query := `SELECT ` + workLogColumns + ` FROM work_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY work_date, start_time, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing work logs: %w", db.Classify(err))
	}
	defer rows.Close()
	return scanWorkLogs(rows)
}

func (r *SQLiteWorkLogRepo) FindOpen(ctx context.Context, userID string, jobID *string) (*domain.WorkLogEntry, error) {
	// "IS ?" compares NULL-safely, so a nil jobID finds open manual entries.
	query := `SELECT ` + workLogColumns + ` FROM work_logs
		WHERE user_id = ? AND job_id IS ? AND end_time IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`
	e, err := scanWorkLog(r.db.QueryRowContext(ctx, query, userID, nullableStringToValue(jobID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open work log for %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("finding open work log: %w", db.Classify(err))
	}
	return e, nil
}

func (r *SQLiteWorkLogRepo) CloseIfOpen(ctx context.Context, id string, end time.Time, durationMinutes *int, now time.Time) (bool, error) {
	query := `UPDATE work_logs SET end_time = ?, duration_minutes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND end_time IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		formatTime(end), nullableIntToValue(durationMinutes), formatTime(now), id)
	if err != nil {
		return false, fmt.Errorf("closing work log: %w", db.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing work log: %w", db.Classify(err))
	}
	return affected == 1, nil
}

func (r *SQLiteWorkLogRepo) Update(ctx context.Context, e *domain.WorkLogEntry, expectedVersion int64) error {
	query := `UPDATE work_logs SET work_date = ?, start_time = ?, end_time = ?, duration_minutes = ?,
		notes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND (? = 0 OR version = ?)
		RETURNING version`
	var version int64
	err := r.db.QueryRowContext(ctx, query,
		formatTime(e.WorkDate),
		formatTime(e.StartTime),
		nullableTimeToString(e.EndTime),
		nullableIntToValue(e.DurationMinutes),
		e.Notes,
		formatTime(e.UpdatedAt),
		e.ID,
		expectedVersion,
		expectedVersion,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, e.ID); getErr != nil {
			return getErr
		}
		return &domain.ConflictError{Entity: "work log", ID: e.ID, Detail: fmt.Sprintf("expected version %d", expectedVersion)}
	}
	if err != nil {
		return fmt.Errorf("updating work log: %w", db.Classify(err))
	}
	e.Version = version
	return nil
}

func (r *SQLiteWorkLogRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM work_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting work log: %w", db.Classify(err))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("work log %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanWorkLogs(rows *sql.Rows) ([]*domain.WorkLogEntry, error) {
	var entries []*domain.WorkLogEntry
	for rows.Next() {
		e, err := scanWorkLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work logs: %w", db.Classify(err))
	}
	return entries, nil
}

func scanWorkLog(row rowScanner) (*domain.WorkLogEntry, error) {
	var e domain.WorkLogEntry
	var jobID, endStr sql.NullString
	var duration sql.NullInt64
	var workDateStr, startStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&e.ID, &e.UserID, &e.UserName, &e.UserEmail, &jobID, &e.ClientID, &e.ClientName,
		&workDateStr, &startStr, &endStr, &duration, &e.Notes, &e.Version,
		&createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	e.JobID = nullStringPtr(jobID)
	e.DurationMinutes = nullIntPtr(duration)
	if e.WorkDate, err = parseTime(workDateStr, "work_date"); err != nil {
		return nil, err
	}
	if e.StartTime, err = parseTime(startStr, "start_time"); err != nil {
		return nil, err
	}
	if e.EndTime, err = parseNullableTime(endStr, "end_time"); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &e, nil
}
