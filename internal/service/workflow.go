package service

import (
	"context"
	"errors"
	"strings"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/repository"
)

type jobWorkflow struct {
	jobs      repository.JobRepo
	lifecycle LifecycleService
	logs      WorkLogService
	settings
}

func NewJobWorkflow(jobs repository.JobRepo, lifecycle LifecycleService, logs WorkLogService, opts ...Option) JobWorkflow {
	return &jobWorkflow{jobs: jobs, lifecycle: lifecycle, logs: logs, settings: newSettings(opts)}
}

// StartJobForWorker moves the job to in_progress and opens the worker's
// entry. A job a teammate already started still opens an entry for this
// worker.
func (w *jobWorkflow) StartJobForWorker(ctx context.Context, action contract.WorkerAction) (res *WorkflowResult, err error) {
	done := w.track(ctx, "start-job-for-worker", map[string]any{"job_id": action.JobID, "user_id": action.UserID})
	defer func() { done(err) }()

	job, transitioned, err := w.advance(ctx, action, domain.JobInProgress, w.lifecycle.Start)
	if err != nil {
		return nil, err
	}
	entry, err := w.logs.RecordStart(ctx, action.Event(job))
	if err != nil {
		return nil, err
	}
	return &WorkflowResult{Job: job, Entry: entry, Transitioned: transitioned}, nil
}

// CompleteJobForWorker moves the job to completed and closes the worker's
// entry. A job a teammate already completed still closes this worker's entry.
func (w *jobWorkflow) CompleteJobForWorker(ctx context.Context, action contract.WorkerAction) (res *WorkflowResult, err error) {
	done := w.track(ctx, "complete-job-for-worker", map[string]any{"job_id": action.JobID, "user_id": action.UserID})
	defer func() { done(err) }()

	job, transitioned, err := w.advance(ctx, action, domain.JobCompleted, w.lifecycle.Complete)
	if err != nil {
		return nil, err
	}
	entry, err := w.logs.RecordCompletion(ctx, action.Event(job))
	if err != nil {
		return nil, err
	}
	return &WorkflowResult{Job: job, Entry: entry, Transitioned: transitioned}, nil
}

// advance applies move unless the job is already in target, which counts as
// success without a transition. Only assigned workers may act on a job.
func (w *jobWorkflow) advance(
	ctx context.Context,
	action contract.WorkerAction,
	target domain.JobStatus,
	move func(context.Context, string) (*domain.Job, error),
) (*domain.Job, bool, error) {
	if strings.TrimSpace(action.UserID) == "" {
		return nil, false, domain.NewValidationError("user_id", "is required")
	}
	job, err := w.jobs.GetByID(ctx, action.JobID)
	if err != nil {
		return nil, false, err
	}
	if !job.HasAssignee(action.UserID) {
		return nil, false, domain.NewValidationError("user_id", "worker %s is not assigned to job %s", action.UserID, job.ID)
	}
	if job.Status == target {
		return job, false, nil
	}

	moved, err := move(ctx, job.ID)
	if err == nil {
		return moved, true, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, false, err
	}
	// Lost the race; fine if the winner moved the job where we wanted it.
	current, getErr := w.jobs.GetByID(ctx, job.ID)
	if getErr != nil {
		return nil, false, getErr
	}
	if current.Status == target {
		return current, false, nil
	}
	return nil, false, err
}
