package service

import (
	"context"
	"strings"

	"github.com/alexanderramin/crewdesk/internal/db"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
)

type assignmentService struct {
	jobs repository.JobRepo
	uow  db.UnitOfWork
	settings
}

func NewAssignmentService(jobs repository.JobRepo, uow db.UnitOfWork, opts ...Option) AssignmentService {
	return &assignmentService{jobs: jobs, uow: uow, settings: newSettings(opts)}
}

// Assign overwrites the worker set. Repeating the call is a no-op.
func (s *assignmentService) Assign(ctx context.Context, jobID string, userIDs []string) (job *domain.Job, err error) {
	workers := domain.NormalizeUserIDs(userIDs)
	done := s.track(ctx, "assign-workers", map[string]any{"job_id": jobID, "workers": len(workers)})
	defer func() { done(err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteJobRepo(tx).ReplaceAssignees(ctx, jobID, workers, s.clock())
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, jobID)
}

// AddWorker inserts one worker without reading the rest of the set, so two
// administrators adding different workers never lose either.
func (s *assignmentService) AddWorker(ctx context.Context, jobID, userID string) (job *domain.Job, err error) {
	done := s.track(ctx, "add-worker", map[string]any{"job_id": jobID, "user_id": userID})
	defer func() { done(err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteJobRepo(tx).AddAssignee(ctx, jobID, userID, s.clock())
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, jobID)
}

// RemoveWorker deletes one worker; removing an absent worker is a no-op.
func (s *assignmentService) RemoveWorker(ctx context.Context, jobID, userID string) (job *domain.Job, err error) {
	done := s.track(ctx, "remove-worker", map[string]any{"job_id": jobID, "user_id": userID})
	defer func() { done(err) }()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteJobRepo(tx).RemoveAssignee(ctx, jobID, userID, s.clock())
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, jobID)
}

func (s *assignmentService) reload(ctx context.Context, jobID string) (*domain.Job, error) {
	s.publish(feed.TopicJobs, jobID, feed.OpUpdated)
	return s.jobs.GetByID(ctx, jobID)
}
