package domain

import (
	"math"
	"strings"
	"time"
)

// WorkLogEntry is a recorded (or still running) interval of work by one worker.
// JobID is nil for entries an administrator created by hand.
type WorkLogEntry struct {
	ID        string
	UserID    string
	UserName  string
	UserEmail string

	JobID      *string
	ClientID   string
	ClientName string

	WorkDate        time.Time
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes *int
	Notes           string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the entry still represents work in progress.
func (e *WorkLogEntry) IsOpen() bool {
	return e.EndTime == nil
}

// IsManual reports whether the entry was created without a job event.
func (e *WorkLogEntry) IsManual() bool {
	return e.JobID == nil
}

// EffectiveMinutes returns the stored duration when present, otherwise the
// duration derived from start and end. Open entries contribute 0.
func (e *WorkLogEntry) EffectiveMinutes() int {
	if e.DurationMinutes != nil {
		return *e.DurationMinutes
	}
	if e.EndTime == nil {
		return 0
	}
	return DurationBetween(e.StartTime, *e.EndTime)
}

// WorkerKey is the grouping key for per-worker totals: user id, then email,
// then UnknownWorkerKey.
func (e *WorkLogEntry) WorkerKey() string {
	return CoalesceStr(strings.TrimSpace(e.UserID), strings.TrimSpace(e.UserEmail), UnknownWorkerKey)
}

// Validate checks required fields before any write.
func (e *WorkLogEntry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return NewValidationError("user_id", "is required")
	}
	if e.StartTime.IsZero() {
		return NewValidationError("start_time", "is required")
	}
	if e.DurationMinutes != nil && *e.DurationMinutes < 0 {
		return NewValidationError("duration_minutes", "must not be negative")
	}
	return nil
}

// DurationBetween returns whole minutes between start and end, rounded, never negative.
func DurationBetween(start, end time.Time) int {
	minutes := math.Round(end.Sub(start).Minutes())
	if minutes < 0 {
		return 0
	}
	return int(minutes)
}
