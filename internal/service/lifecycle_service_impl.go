package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
)

type lifecycleService struct {
	jobs repository.JobRepo
	settings
}

func NewLifecycleService(jobs repository.JobRepo, opts ...Option) LifecycleService {
	return &lifecycleService{jobs: jobs, settings: newSettings(opts)}
}

func (s *lifecycleService) Start(ctx context.Context, id string) (*domain.Job, error) {
	return s.Transition(ctx, id, domain.JobInProgress)
}

func (s *lifecycleService) Complete(ctx context.Context, id string) (*domain.Job, error) {
	return s.Transition(ctx, id, domain.JobCompleted)
}

func (s *lifecycleService) Cancel(ctx context.Context, id string) (*domain.Job, error) {
	return s.Transition(ctx, id, domain.JobCancelled)
}

// Transition moves the job to status to. The legality check runs against
// the status read here and the write is conditional on that same status, so
// a concurrent transition makes this call fail with ErrConflict.
func (s *lifecycleService) Transition(ctx context.Context, id string, to domain.JobStatus) (job *domain.Job, err error) {
	fields := map[string]any{"job_id": id, "to": string(to)}
	done := s.track(ctx, "transition-job", fields)
	defer func() { done(err) }()

	if !to.Valid() {
		return nil, domain.NewValidationError("status", "unknown status %q", to)
	}
	job, err = s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := job.Status
	fields["from"] = string(from)
	if err = domain.CheckTransition(id, from, to, s.policy); err != nil {
		return nil, err
	}

	now := s.clock()
	if err = s.jobs.CompareAndSetStatus(ctx, id, from, to, now); err != nil {
		return nil, fmt.Errorf("moving job %s to %s: %w", id, to, err)
	}
	job.Status = to
	job.UpdatedAt = now
	job.Version++
	s.publish(feed.TopicJobs, id, feed.OpUpdated)
	return job, nil
}
