package server

import (
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/report"
)

// JobLocation is the wire form of domain.JobLocation.
type JobLocation struct {
	ID      string `json:"id,omitempty"`
	Label   string `json:"label,omitempty"`
	Address string `json:"address,omitempty"`
}

type JobDTO struct {
	ID              string       `json:"id"`
	ClientID        string       `json:"client_id"`
	Date            time.Time    `json:"date"`
	DurationMinutes int          `json:"duration_minutes"`
	Status          string       `json:"status"`
	AssignedUserIDs []string     `json:"assigned_user_ids"`
	Location        *JobLocation `json:"location,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Version         int64        `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func toJobDTO(j *domain.Job) JobDTO {
	dto := JobDTO{
		ID:              j.ID,
		ClientID:        j.ClientID,
		Date:            j.Date,
		DurationMinutes: j.DurationMinutes,
		Status:          string(j.Status),
		AssignedUserIDs: j.AssignedUserIDs,
		Notes:           j.Notes,
		Version:         j.Version,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
	if dto.AssignedUserIDs == nil {
		dto.AssignedUserIDs = []string{}
	}
	if j.Location != nil {
		dto.Location = &JobLocation{ID: j.Location.ID, Label: j.Location.Label, Address: j.Location.Address}
	}
	return dto
}

func toJobDTOs(jobs []*domain.Job) []JobDTO {
	out := make([]JobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobDTO(j))
	}
	return out
}

type WorkLogDTO struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	UserName         string     `json:"user_name,omitempty"`
	UserEmail        string     `json:"user_email,omitempty"`
	JobID            *string    `json:"job_id"`
	ClientID         string     `json:"client_id,omitempty"`
	ClientName       string     `json:"client_name,omitempty"`
	WorkDate         time.Time  `json:"work_date"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	DurationMinutes  *int       `json:"duration_minutes"`
	EffectiveMinutes int        `json:"effective_minutes"`
	Notes            string     `json:"notes,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toWorkLogDTO(e *domain.WorkLogEntry) WorkLogDTO {
	return WorkLogDTO{
		ID:               e.ID,
		UserID:           e.UserID,
		UserName:         e.UserName,
		UserEmail:        e.UserEmail,
		JobID:            e.JobID,
		ClientID:         e.ClientID,
		ClientName:       e.ClientName,
		WorkDate:         e.WorkDate,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		DurationMinutes:  e.DurationMinutes,
		EffectiveMinutes: e.EffectiveMinutes(),
		Notes:            e.Notes,
		Version:          e.Version,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toWorkLogDTOs(entries []*domain.WorkLogEntry) []WorkLogDTO {
	out := make([]WorkLogDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWorkLogDTO(e))
	}
	return out
}

type DayDTO struct {
	Day  string   `json:"day"`
	Jobs []JobDTO `json:"jobs"`
}

// TotalsDTO is the per-worker breakdown of a work log query.
type TotalsDTO struct {
	Workers      []report.WorkerTotal `json:"workers"`
	TotalMinutes int                  `json:"total_minutes"`
	Formatted    string               `json:"formatted"`
}

// SnapshotDTO is one SSE event payload.
type SnapshotDTO[T any] struct {
	Seq      uint64    `json:"seq"`
	LoadedAt time.Time `json:"loaded_at"`
	Items    []T       `json:"items"`
}

// CreateJobRequest creates a job and optionally assigns workers to it.
type CreateJobRequest struct {
	ClientID        string       `json:"client_id"`
	Date            time.Time    `json:"date"`
	DurationMinutes int          `json:"duration_minutes"`
	Location        *JobLocation `json:"location"`
	Notes           string       `json:"notes"`
	WorkerIDs       []string     `json:"worker_ids"`
}

func (r CreateJobRequest) job() *domain.Job {
	j := &domain.Job{
		ClientID:        strings.TrimSpace(r.ClientID),
		Date:            r.Date.UTC(),
		DurationMinutes: r.DurationMinutes,
		Notes:           r.Notes,
	}
	if r.Location != nil {
		j.Location = &domain.JobLocation{ID: r.Location.ID, Label: r.Location.Label, Address: r.Location.Address}
	}
	return j
}

// UpdateJobRequest is a partial edit. Absent fields are left unchanged.
type UpdateJobRequest struct {
	ClientID        *string      `json:"client_id"`
	Date            *time.Time   `json:"date"`
	DurationMinutes *int         `json:"duration_minutes"`
	Location        *JobLocation `json:"location"`
	ClearLocation   bool         `json:"clear_location"`
	Notes           *string      `json:"notes"`
	Version         int64        `json:"version"`
}

func (r UpdateJobRequest) patch() contract.JobPatch {
	p := contract.JobPatch{
		ClientID:        r.ClientID,
		DurationMinutes: r.DurationMinutes,
		ClearLocation:   r.ClearLocation,
		Notes:           r.Notes,
		ExpectedVersion: r.Version,
	}
	if r.Date != nil {
		d := r.Date.UTC()
		p.Date = &d
	}
	if r.Location != nil {
		p.Location = &domain.JobLocation{ID: r.Location.ID, Label: r.Location.Label, Address: r.Location.Address}
	}
	return p
}

// WorkerRequest identifies the worker acting on a job.
type WorkerRequest struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	ClientName string `json:"client_name"`
}

func (r WorkerRequest) action(jobID string) contract.WorkerAction {
	return contract.WorkerAction{
		JobID:      jobID,
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserEmail:  r.UserEmail,
		ClientName: r.ClientName,
	}
}

type AssignRequest struct {
	UserIDs []string `json:"user_ids"`
}

type TransitionResponse struct {
	Job          JobDTO      `json:"job"`
	Entry        *WorkLogDTO `json:"entry,omitempty"`
	Transitioned bool        `json:"transitioned"`
}

// WorkEventRequest records a start or completion without touching job status.
type WorkEventRequest struct {
	JobID      string    `json:"job_id"`
	JobDate    time.Time `json:"job_date"`
	ClientID   string    `json:"client_id"`
	ClientName string    `json:"client_name"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
}

func (r WorkEventRequest) event() contract.WorkEvent {
	return contract.WorkEvent{
		JobID:      r.JobID,
		JobDate:    r.JobDate,
		ClientID:   r.ClientID,
		ClientName: r.ClientName,
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserEmail:  r.UserEmail,
	}
}

// ManualLogRequest enters an interval by hand. Date is YYYY-MM-DD; start
// and end are HH:MM in the server's location.
type ManualLogRequest struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Notes      string `json:"notes"`
}

func (r ManualLogRequest) request(loc *time.Location) (contract.ManualLogRequest, error) {
	day, err := parseDayParam(r.Date, loc)
	if err != nil {
		return contract.ManualLogRequest{}, err
	}
	start, err := domain.ParseClockTime(r.Start)
	if err != nil {
		return contract.ManualLogRequest{}, err
	}
	end, err := domain.ParseClockTime(r.End)
	if err != nil {
		return contract.ManualLogRequest{}, err
	}
	return contract.ManualLogRequest{
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserEmail:  r.UserEmail,
		ClientID:   r.ClientID,
		ClientName: r.ClientName,
		WorkDate:   day,
		Start:      start,
		End:        end,
		Notes:      r.Notes,
	}, nil
}

type UpdateWorkLogRequest struct {
	WorkDate  *time.Time `json:"work_date"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Notes     *string    `json:"notes"`
	Version   int64      `json:"version"`
}

func (r UpdateWorkLogRequest) patch() contract.LogEntryPatch {
	return contract.LogEntryPatch{
		WorkDate:        r.WorkDate,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Notes:           r.Notes,
		ExpectedVersion: r.Version,
	}
}
