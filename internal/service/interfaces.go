package service

import (
	"context"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
)

type JobService interface {
	Create(ctx context.Context, j *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, filter contract.JobFilter) ([]*domain.Job, error)
	Update(ctx context.Context, id string, patch contract.JobPatch) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, filter contract.JobFilter) (*feed.Subscription[*domain.Job], error)
}

// LifecycleService is the only writer of job status.
type LifecycleService interface {
	Start(ctx context.Context, id string) (*domain.Job, error)
	Complete(ctx context.Context, id string) (*domain.Job, error)
	Cancel(ctx context.Context, id string) (*domain.Job, error)
	Transition(ctx context.Context, id string, to domain.JobStatus) (*domain.Job, error)
}

type AssignmentService interface {
	Assign(ctx context.Context, jobID string, userIDs []string) (*domain.Job, error)
	AddWorker(ctx context.Context, jobID, userID string) (*domain.Job, error)
	RemoveWorker(ctx context.Context, jobID, userID string) (*domain.Job, error)
}

type WorkLogService interface {
	RecordStart(ctx context.Context, ev contract.WorkEvent) (*domain.WorkLogEntry, error)
	RecordCompletion(ctx context.Context, ev contract.WorkEvent) (*domain.WorkLogEntry, error)
	CreateManual(ctx context.Context, req contract.ManualLogRequest) (*domain.WorkLogEntry, error)
	Update(ctx context.Context, id string, patch contract.LogEntryPatch) (*domain.WorkLogEntry, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.WorkLogEntry, error)
	List(ctx context.Context, filter contract.WorkLogFilter) ([]*domain.WorkLogEntry, error)
	Subscribe(ctx context.Context, filter contract.WorkLogFilter) (*feed.Subscription[*domain.WorkLogEntry], error)
}

// JobWorkflow pairs a worker's status change with the matching work log
// reconciliation.
type JobWorkflow interface {
	StartJobForWorker(ctx context.Context, action contract.WorkerAction) (*WorkflowResult, error)
	CompleteJobForWorker(ctx context.Context, action contract.WorkerAction) (*WorkflowResult, error)
}

// WorkflowResult is the job and work log entry after a worker action.
// Transitioned is false when a teammate had already moved the job.
type WorkflowResult struct {
	Job          *domain.Job
	Entry        *domain.WorkLogEntry
	Transitioned bool
}
