package testutil

import (
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/google/uuid"
)

// Job options
type JobOption func(*domain.Job)

func WithJobDate(d time.Time) JobOption {
	return func(j *domain.Job) {
		j.Date = d
	}
}

func WithJobStatus(s domain.JobStatus) JobOption {
	return func(j *domain.Job) {
		j.Status = s
	}
}

func WithAssignees(ids ...string) JobOption {
	return func(j *domain.Job) {
		j.AssignedUserIDs = domain.NormalizeUserIDs(ids)
	}
}

func WithLocation(label, address string) JobOption {
	return func(j *domain.Job) {
		j.Location = &domain.JobLocation{Label: label, Address: address}
	}
}

func WithJobNotes(n string) JobOption {
	return func(j *domain.Job) {
		j.Notes = n
	}
}

func NewTestJob(clientID string, opts ...JobOption) *domain.Job {
	now := time.Now().UTC().Truncate(time.Millisecond)
	j := &domain.Job{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		Date:            now,
		DurationMinutes: domain.DefaultJobDurationMin,
		Status:          domain.JobScheduled,
		AssignedUserIDs: []string{},
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Work log options
type WorkLogOption func(*domain.WorkLogEntry)

func ForJob(jobID string) WorkLogOption {
	return func(e *domain.WorkLogEntry) {
		e.JobID = &jobID
	}
}

func WithInterval(start time.Time, minutes int) WorkLogOption {
	return func(e *domain.WorkLogEntry) {
		end := start.Add(time.Duration(minutes) * time.Minute)
		e.WorkDate = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		e.StartTime = start
		e.EndTime = &end
	}
}

func WithStoredMinutes(m int) WorkLogOption {
	return func(e *domain.WorkLogEntry) {
		e.DurationMinutes = &m
	}
}

func WithUserEmail(email string) WorkLogOption {
	return func(e *domain.WorkLogEntry) {
		e.UserEmail = email
	}
}

func WithCreatedAt(t time.Time) WorkLogOption {
	return func(e *domain.WorkLogEntry) {
		e.CreatedAt = t
		e.UpdatedAt = t
	}
}

// NewTestWorkLog builds an open entry started now unless options say otherwise.
func NewTestWorkLog(userID string, opts ...WorkLogOption) *domain.WorkLogEntry {
	now := time.Now().UTC().Truncate(time.Millisecond)
	e := &domain.WorkLogEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		WorkDate:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		StartTime: now,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
