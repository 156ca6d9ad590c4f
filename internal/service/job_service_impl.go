package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
	"github.com/google/uuid"
)

type jobService struct {
	jobs repository.JobRepo
	settings
}

func NewJobService(jobs repository.JobRepo, opts ...Option) JobService {
	return &jobService{jobs: jobs, settings: newSettings(opts)}
}

// Create stores a new scheduled job with no workers. A zero duration takes
// the default.
func (s *jobService) Create(ctx context.Context, j *domain.Job) (err error) {
	done := s.track(ctx, "create-job", map[string]any{"client_id": j.ClientID})
	defer func() { done(err) }()

	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.DurationMinutes == 0 {
		j.DurationMinutes = domain.DefaultJobDurationMin
	}
	now := s.clock()
	j.Status = domain.JobScheduled
	j.AssignedUserIDs = []string{}
	j.Version = 1
	j.CreatedAt = now
	j.UpdatedAt = now
	if err = j.Validate(); err != nil {
		return err
	}
	if err = s.jobs.Create(ctx, j); err != nil {
		return err
	}
	s.publish(feed.TopicJobs, j.ID, feed.OpCreated)
	return nil
}

func (s *jobService) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.GetByID(ctx, id)
}

func (s *jobService) List(ctx context.Context, filter contract.JobFilter) ([]*domain.Job, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.jobs.List(ctx, filter)
}

// Update applies patch to the administrator-editable fields. Without an
// explicit expected version the write is conditional on the version read
// here, so a concurrent edit surfaces as ErrConflict instead of being lost.
func (s *jobService) Update(ctx context.Context, id string, patch contract.JobPatch) (job *domain.Job, err error) {
	done := s.track(ctx, "update-job", map[string]any{"job_id": id})
	defer func() { done(err) }()

	job, err = s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := patch.ExpectedVersion
	if expected == 0 {
		expected = job.Version
	}
	patch.Apply(job)
	job.UpdatedAt = s.clock()
	if err = job.Validate(); err != nil {
		return nil, err
	}
	if err = s.jobs.Update(ctx, job, expected); err != nil {
		return nil, fmt.Errorf("updating job %s: %w", id, err)
	}
	s.publish(feed.TopicJobs, id, feed.OpUpdated)
	return job, nil
}

// Delete removes the job and its worker set. Work log entries stay.
func (s *jobService) Delete(ctx context.Context, id string) (err error) {
	done := s.track(ctx, "delete-job", map[string]any{"job_id": id})
	defer func() { done(err) }()

	if err = s.jobs.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(feed.TopicJobs, id, feed.OpDeleted)
	return nil
}

// Subscribe streams snapshots of the jobs matching filter until the
// subscription is closed or ctx ends.
func (s *jobService) Subscribe(ctx context.Context, filter contract.JobFilter) (*feed.Subscription[*domain.Job], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.WorkerIDs = slices.Clone(filter.WorkerIDs)
	if filter.Range != nil {
		filter.Range = contract.RangePtr(*filter.Range)
	}
	load := func(ctx context.Context) ([]*domain.Job, error) {
		return s.jobs.List(ctx, filter)
	}
	return feed.Watch(ctx, s.hub, feed.TopicJobs, load, s.watch), nil
}
