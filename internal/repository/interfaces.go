package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/domain"
)

// JobRepo persists jobs and their worker sets. Writes that can race take the
// state they expect to replace and fail with domain.ErrConflict when the
// stored row no longer matches.
type JobRepo interface {
	Create(ctx context.Context, j *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, filter contract.JobFilter) ([]*domain.Job, error)
	// Update writes the editable fields. A zero expectedVersion skips the version check.
	Update(ctx context.Context, j *domain.Job, expectedVersion int64) error
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.JobStatus, now time.Time) error
	ReplaceAssignees(ctx context.Context, id string, userIDs []string, now time.Time) error
	AddAssignee(ctx context.Context, id, userID string, now time.Time) error
	RemoveAssignee(ctx context.Context, id, userID string, now time.Time) error
	Delete(ctx context.Context, id string) error
}

// WorkLogRepo persists work log entries.
type WorkLogRepo interface {
	Create(ctx context.Context, e *domain.WorkLogEntry) error
	GetByID(ctx context.Context, id string) (*domain.WorkLogEntry, error)
	List(ctx context.Context, filter contract.WorkLogFilter) ([]*domain.WorkLogEntry, error)
	// FindOpen returns the newest entry for (userID, jobID) with no end time,
	// or domain.ErrNotFound. A nil jobID matches manual entries.
	FindOpen(ctx context.Context, userID string, jobID *string) (*domain.WorkLogEntry, error)
	// CloseIfOpen sets the end time only while the entry is still open and
	// reports whether this call claimed it.
	CloseIfOpen(ctx context.Context, id string, end time.Time, durationMinutes *int, now time.Time) (bool, error)
	Update(ctx context.Context, e *domain.WorkLogEntry, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}
