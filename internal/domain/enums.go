package domain

type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// ValidJobStatuses is the canonical set of accepted job status strings.
var ValidJobStatuses = map[JobStatus]bool{
	JobScheduled:  true,
	JobInProgress: true,
	JobCompleted:  true,
	JobCancelled:  true,
}

// IsTerminal reports whether no further transition is possible from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobCancelled
}

func (s JobStatus) Valid() bool {
	return ValidJobStatuses[s]
}

// DefaultJobDurationMin is applied when a job is created without a duration.
const DefaultJobDurationMin = 60

// UnknownWorkerKey groups work log entries that carry neither a user id nor an email.
const UnknownWorkerKey = "unknown"
