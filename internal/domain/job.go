package domain

import (
	"slices"
	"strings"
	"time"
)

// JobLocation overrides the client's default address for a single job.
type JobLocation struct {
	ID      string
	Label   string
	Address string
}

type Job struct {
	ID              string
	ClientID        string
	Date            time.Time
	DurationMinutes int
	Status          JobStatus
	AssignedUserIDs []string
	Location        *JobLocation
	Notes           string

	// Version increments on every stored write and backs conditional updates.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EndsAt returns the scheduled end of the job.
func (j *Job) EndsAt() time.Time {
	return j.Date.Add(time.Duration(j.DurationMinutes) * time.Minute)
}

// HasAssignee reports whether userID is in the job's worker set.
func (j *Job) HasAssignee(userID string) bool {
	_, found := slices.BinarySearch(j.AssignedUserIDs, userID)
	return found
}

// Validate checks the fields an administrator controls.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.ClientID) == "" {
		return NewValidationError("client_id", "is required")
	}
	if j.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if j.DurationMinutes <= 0 {
		return NewValidationError("duration_minutes", "must be positive, got %d", j.DurationMinutes)
	}
	if !j.Status.Valid() {
		return NewValidationError("status", "unknown status %q", j.Status)
	}
	return nil
}

// NormalizeUserIDs trims, de-duplicates and sorts worker ids, dropping blanks.
func NormalizeUserIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// TransitionPolicy holds deployment-level allowances on top of the strict
// status machine.
type TransitionPolicy struct {
	// AllowDirectComplete permits scheduled -> completed, used for backfilled records.
	AllowDirectComplete bool
}

var jobTransitions = map[JobStatus][]JobStatus{
	JobScheduled:  {JobInProgress, JobCancelled},
	JobInProgress: {JobCompleted, JobCancelled},
}

// CanTransition reports whether from -> to is legal under policy.
// Same-state re-application is never legal.
func CanTransition(from, to JobStatus, policy TransitionPolicy) bool {
	if slices.Contains(jobTransitions[from], to) {
		return true
	}
	return policy.AllowDirectComplete && from == JobScheduled && to == JobCompleted
}

// CheckTransition returns a *TransitionError when from -> to is illegal.
func CheckTransition(jobID string, from, to JobStatus, policy TransitionPolicy) error {
	if !CanTransition(from, to, policy) {
		return &TransitionError{JobID: jobID, Current: from, Requested: to}
	}
	return nil
}
