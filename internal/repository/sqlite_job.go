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

// jobColumns is the canonical SELECT column list for jobs, aliased "j".
// The trailing column folds the worker set into one unit-separator joined string.
const jobColumns = `j.id, j.client_id, j.date, j.duration_minutes, j.status,
		j.location_id, j.location_label, j.location_address, j.notes, j.version,
		j.created_at, j.updated_at,
		(SELECT group_concat(a.user_id, char(31)) FROM job_assignees a WHERE a.job_id = j.id)`

const assigneeSeparator = "\x1f"

// SQLiteJobRepo implements JobRepo using a SQLite database.
type SQLiteJobRepo struct {
	db db.DBTX
}

// NewSQLiteJobRepo creates a new SQLiteJobRepo.
func NewSQLiteJobRepo(db db.DBTX) *SQLiteJobRepo {
	return &SQLiteJobRepo{db: db}
}

func (r *SQLiteJobRepo) Create(ctx context.Context, j *domain.Job) error {
	query := `INSERT INTO jobs (id, client_id, date, duration_minutes, status,
		location_id, location_label, location_address, notes, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if j.Version == 0 {
		j.Version = 1
	}
	locID, locLabel, locAddress := locationValues(j.Location)
	_, err := r.db.ExecContext(ctx, query,
		j.ID,
		j.ClientID,
		formatTime(j.Date),
		j.DurationMinutes,
		string(j.Status),
		locID,
		locLabel,
		locAddress,
		j.Notes,
		j.Version,
		formatTime(j.CreatedAt),
		formatTime(j.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting job: %w", db.Classify(err))
	}
	for _, userID := range j.AssignedUserIDs {
		if err := r.insertAssignee(ctx, j.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteJobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning job: %w", db.Classify(err))
	}
	return j, nil
}

// List returns jobs matching every set field of filter, ordered by date.
func (r *SQLiteJobRepo) List(ctx context.Context, filter contract.JobFilter) ([]*domain.Job, error) {
	var where []string
	var args []any

	if filter.Range != nil {
		where = append(where, `j.date >= ?`, `j.date <= ?`)
		args = append(args, formatTime(filter.Range.Start), formatTime(filter.Range.End))
	}
	if filter.Status != "" {
		where = append(where, `j.status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.ClientID != "" {
		where = append(where, `j.client_id = ?`)
		args = append(args, filter.ClientID)
	}
	if workers := domain.NormalizeUserIDs(filter.WorkerIDs); len(workers) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM job_assignees a
			WHERE a.job_id = j.id AND a.user_id IN (`+placeholders(len(workers))+`))`)
		for _, w := range workers {
			args = append(args, w)
		}
	}

	query := `SELECT ` + jobColumns + ` FROM jobs j`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY j.date, j.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", db.Classify(err))
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", db.Classify(err))
	}
	return jobs, nil
}

// Update writes the administrator-editable fields. Status and worker set are
// untouched; they have their own conditional writes.
func (r *SQLiteJobRepo) Update(ctx context.Context, j *domain.Job, expectedVersion int64) error {
	query := `UPDATE jobs SET client_id = ?, date = ?, duration_minutes = ?,
		location_id = ?, location_label = ?, location_address = ?, notes = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND (? = 0 OR version = ?)
		RETURNING version`
	locID, locLabel, locAddress := locationValues(j.Location)
	var version int64
	err := r.db.QueryRowContext(ctx, query,
		j.ClientID,
		formatTime(j.Date),
		j.DurationMinutes,
		locID,
		locLabel,
		locAddress,
		j.Notes,
		formatTime(j.UpdatedAt),
		j.ID,
		expectedVersion,
		expectedVersion,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return r.missOrConflict(ctx, j.ID, fmt.Sprintf("expected version %d", expectedVersion))
	}
	if err != nil {
		return fmt.Errorf("updating job: %w", db.Classify(err))
	}
	j.Version = version
	return nil
}

// CompareAndSetStatus moves a job from -> to only if its stored status is still from.
func (r *SQLiteJobRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.JobStatus, now time.Time) error {
	query := `UPDATE jobs SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, string(to), formatTime(now), id, string(from))
	if err != nil {
		return fmt.Errorf("updating job status: %w", db.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating job status: %w", db.Classify(err))
	}
	if affected == 0 {
		return r.missOrConflict(ctx, id, fmt.Sprintf("expected status %s", from))
	}
	return nil
}

// ReplaceAssignees overwrites the worker set. Callers run it inside a
// transaction so the delete and inserts land together.
func (r *SQLiteJobRepo) ReplaceAssignees(ctx context.Context, id string, userIDs []string, now time.Time) error {
	if err := r.touch(ctx, id, now); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM job_assignees WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("clearing job assignees: %w", db.Classify(err))
	}
	for _, userID := range domain.NormalizeUserIDs(userIDs) {
		if err := r.insertAssignee(ctx, id, userID); err != nil {
			return err
		}
	}
	return nil
}

// AddAssignee inserts a single worker; adding an existing worker is a no-op.
func (r *SQLiteJobRepo) AddAssignee(ctx context.Context, id, userID string, now time.Time) error {
	if err := r.touch(ctx, id, now); err != nil {
		return err
	}
	return r.insertAssignee(ctx, id, userID)
}

// RemoveAssignee deletes a single worker; removing an absent worker is a no-op.
func (r *SQLiteJobRepo) RemoveAssignee(ctx context.Context, id, userID string, now time.Time) error {
	if err := r.touch(ctx, id, now); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM job_assignees WHERE job_id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("removing job assignee: %w", db.Classify(err))
	}
	return nil
}

func (r *SQLiteJobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", db.Classify(err))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteJobRepo) insertAssignee(ctx context.Context, jobID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO job_assignees (job_id, user_id) VALUES (?, ?)`, jobID, userID)
	if err != nil {
		return fmt.Errorf("inserting job assignee: %w", db.Classify(err))
	}
	return nil
}

// touch bumps updated_at and version, failing with ErrNotFound for a missing job.
func (r *SQLiteJobRepo) touch(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET version = version + 1, updated_at = ? WHERE id = ?`, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("touching job: %w", db.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touching job: %w", db.Classify(err))
	}
	if affected == 0 {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// missOrConflict explains a conditional write that matched no row.
func (r *SQLiteJobRepo) missOrConflict(ctx context.Context, id, expectation string) error {
	var status string
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT status, version FROM jobs WHERE id = ?`, id).Scan(&status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("re-reading job: %w", db.Classify(err))
	}
	return &domain.ConflictError{
		Entity: "job",
		ID:     id,
		Detail: fmt.Sprintf("%s, stored status %s version %d", expectation, status, version),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var dateStr, statusStr, createdAtStr, updatedAtStr string
	var locID, locLabel, locAddress, assignees sql.NullString

	err := row.Scan(
		&j.ID, &j.ClientID, &dateStr, &j.DurationMinutes, &statusStr,
		&locID, &locLabel, &locAddress, &j.Notes, &j.Version,
		&createdAtStr, &updatedAtStr, &assignees,
	)
	if err != nil {
		return nil, err
	}

	j.Status = domain.JobStatus(statusStr)
	if locID.Valid || locLabel.Valid || locAddress.Valid {
		j.Location = &domain.JobLocation{ID: locID.String, Label: locLabel.String, Address: locAddress.String}
	}
	if assignees.Valid && assignees.String != "" {
		j.AssignedUserIDs = domain.NormalizeUserIDs(strings.Split(assignees.String, assigneeSeparator))
	} else {
		j.AssignedUserIDs = []string{}
	}

	if j.Date, err = parseTime(dateStr, "date"); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAtStr, "created_at"); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAtStr, "updated_at"); err != nil {
		return nil, err
	}
	return &j, nil
}

func locationValues(loc *domain.JobLocation) (id, label, address any) {
	if loc == nil {
		return nil, nil, nil
	}
	return loc.ID, loc.Label, loc.Address
}
