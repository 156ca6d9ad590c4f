package contract

import (
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
)

// JobFilter selects jobs for a query or subscription. Zero-valued fields do
// not constrain the result. Results are ordered ascending by date.
type JobFilter struct {
	Range    *daterange.Range
	Status   domain.JobStatus
	ClientID string
	// WorkerIDs matches jobs assigned to any of the listed workers.
	WorkerIDs []string
}

// Validate rejects unknown statuses before a query reaches the store.
func (f JobFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return domain.NewValidationError("status", "unknown status %q", f.Status)
	}
	return nil
}

// ForWorker narrows the filter to jobs assigned to a single worker.
func (f JobFilter) ForWorker(userID string) JobFilter {
	f.WorkerIDs = []string{userID}
	return f
}

// WorkLogFilter selects work log entries. Range applies to WorkDate.
// Results are ordered ascending by work date, then start time.
type WorkLogFilter struct {
	Range  *daterange.Range
	UserID string
	JobID  string
	// OpenOnly restricts the result to entries without an end time.
	OpenOnly bool
}

// RangePtr is a convenience for building filters inline.
func RangePtr(r daterange.Range) *daterange.Range {
	return &r
}
