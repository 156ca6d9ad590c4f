package contract

import (
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
)

// JobPatch carries the administrator-editable fields of a job. Status and
// the worker set are deliberately absent: they change only through the
// lifecycle and assignment services.
type JobPatch struct {
	ClientID        *string
	Date            *time.Time
	DurationMinutes *int
	Location        *domain.JobLocation
	ClearLocation   bool
	Notes           *string

	// ExpectedVersion, when non-zero, rejects the write with ErrConflict if
	// the stored job has moved on.
	ExpectedVersion int64
}

// Apply copies the set fields onto j.
func (p JobPatch) Apply(j *domain.Job) {
	if p.ClientID != nil {
		j.ClientID = *p.ClientID
	}
	if p.Date != nil {
		j.Date = *p.Date
	}
	if p.DurationMinutes != nil {
		j.DurationMinutes = *p.DurationMinutes
	}
	if p.ClearLocation {
		j.Location = nil
	}
	if p.Location != nil {
		loc := *p.Location
		j.Location = &loc
	}
	if p.Notes != nil {
		j.Notes = *p.Notes
	}
}

// WorkEvent describes a worker pressing start or complete on a job. Client
// and user names are denormalized onto the resulting work log entry.
type WorkEvent struct {
	JobID      string
	JobDate    time.Time
	ClientID   string
	ClientName string
	UserID     string
	UserName   string
	UserEmail  string
}

// ManualLogRequest is an administrator-entered interval not tied to a job.
type ManualLogRequest struct {
	UserID     string
	UserName   string
	UserEmail  string
	ClientID   string
	ClientName string
	WorkDate   time.Time
	Start      domain.ClockTime
	End        domain.ClockTime
	Notes      string
}

// LogEntryPatch is an administrator edit of a work log entry. The stored
// duration is recomputed whenever the edited entry has both a start and an end.
type LogEntryPatch struct {
	WorkDate  *time.Time
	StartTime *time.Time
	EndTime   *time.Time
	Notes     *string

	ExpectedVersion int64
}

// IsEmpty reports whether the patch changes nothing.
func (p LogEntryPatch) IsEmpty() bool {
	return p.WorkDate == nil && p.StartTime == nil && p.EndTime == nil && p.Notes == nil
}

// WorkerAction is a worker pressing start or complete on one of their jobs.
// The job's client and date are read from the store.
type WorkerAction struct {
	JobID      string
	UserID     string
	UserName   string
	UserEmail  string
	ClientName string
}

// Event builds the reconciliation event for job as performed by a.
func (a WorkerAction) Event(job *domain.Job) WorkEvent {
	return WorkEvent{
		JobID:      job.ID,
		JobDate:    job.Date,
		ClientID:   job.ClientID,
		ClientName: a.ClientName,
		UserID:     a.UserID,
		UserName:   a.UserName,
		UserEmail:  a.UserEmail,
	}
}
