package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
	"github.com/google/uuid"
)

type workLogService struct {
	logs repository.WorkLogRepo
	settings
}

func NewWorkLogService(logs repository.WorkLogRepo, opts ...Option) WorkLogService {
	return &workLogService{logs: logs, settings: newSettings(opts)}
}

// RecordStart opens a new entry for the worker on the job, starting now.
// If the worker already has an open entry for the job, that entry is
// returned unchanged.
func (s *workLogService) RecordStart(ctx context.Context, ev contract.WorkEvent) (entry *domain.WorkLogEntry, err error) {
	fields := map[string]any{"job_id": ev.JobID, "user_id": ev.UserID}
	done := s.track(ctx, "record-start", fields)
	defer func() { done(err) }()

	if err = validateWorkEvent(ev); err != nil {
		return nil, err
	}
	now := s.clock()
	entry = s.entryFromEvent(ev, now)

	err = s.logs.Create(ctx, entry)
	if errors.Is(err, domain.ErrConflict) {
		existing, findErr := s.logs.FindOpen(ctx, ev.UserID, entry.JobID)
		if findErr != nil {
			return nil, fmt.Errorf("recording start for job %s: %w", ev.JobID, err)
		}
		fields["reused"] = true
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	s.publish(feed.TopicWorkLogs, entry.ID, feed.OpCreated)
	return entry, nil
}

// RecordCompletion closes the worker's open entry for the job. When there is
// none, or a concurrent completion claimed it first, a closed zero-length
// entry is created instead so the completion is still attributed.
func (s *workLogService) RecordCompletion(ctx context.Context, ev contract.WorkEvent) (entry *domain.WorkLogEntry, err error) {
	fields := map[string]any{"job_id": ev.JobID, "user_id": ev.UserID}
	done := s.track(ctx, "record-completion", fields)
	defer func() { done(err) }()

	if err = validateWorkEvent(ev); err != nil {
		return nil, err
	}
	now := s.clock()
	jobID := ev.JobID

	open, err := s.logs.FindOpen(ctx, ev.UserID, &jobID)
	switch {
	case err == nil:
		var claimed bool
		claimed, err = s.logs.CloseIfOpen(ctx, open.ID, now, nil, now)
		if err != nil {
			return nil, err
		}
		if claimed {
			open.EndTime = &now
			open.UpdatedAt = now
			open.Version++
			fields["entry_id"] = open.ID
			s.publish(feed.TopicWorkLogs, open.ID, feed.OpUpdated)
			return open, nil
		}
		fields["lost_claim"] = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	entry = s.entryFromEvent(ev, now)
	entry.EndTime = &now
	zero := 0
	entry.DurationMinutes = &zero
	if err = s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}
	fields["fallback"] = true
	fields["entry_id"] = entry.ID
	s.publish(feed.TopicWorkLogs, entry.ID, feed.OpCreated)
	return entry, nil
}

// CreateManual stores an administrator-entered interval with its duration
// computed up front.
func (s *workLogService) CreateManual(ctx context.Context, req contract.ManualLogRequest) (entry *domain.WorkLogEntry, err error) {
	done := s.track(ctx, "create-manual-log", map[string]any{"user_id": req.UserID})
	defer func() { done(err) }()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	if req.WorkDate.IsZero() {
		return nil, domain.NewValidationError("work_date", "is required")
	}
	start := req.Start.On(req.WorkDate, s.loc)
	end := req.End.On(req.WorkDate, s.loc)
	if end.Before(start) {
		return nil, domain.NewValidationError("end", "%s is before start %s", req.End, req.Start)
	}
	minutes := domain.DurationBetween(start, end)

	now := s.clock()
	endUTC := end.UTC()
	entry = &domain.WorkLogEntry{
		ID:              uuid.New().String(),
		UserID:          strings.TrimSpace(req.UserID),
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		ClientID:        req.ClientID,
		ClientName:      req.ClientName,
		WorkDate:        s.workDate(req.WorkDate),
		StartTime:       start.UTC(),
		EndTime:         &endUTC,
		DurationMinutes: &minutes,
		Notes:           req.Notes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = entry.Validate(); err != nil {
		return nil, err
	}
	if err = s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.publish(feed.TopicWorkLogs, entry.ID, feed.OpCreated)
	return entry, nil
}

// Update applies an administrator edit. When the edited entry has both a
// start and an end, the stored duration is recomputed from them.
func (s *workLogService) Update(ctx context.Context, id string, patch contract.LogEntryPatch) (entry *domain.WorkLogEntry, err error) {
	done := s.track(ctx, "update-log-entry", map[string]any{"entry_id": id})
	defer func() { done(err) }()

	entry, err = s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := patch.ExpectedVersion
	if expected == 0 {
		expected = entry.Version
	}

	if patch.WorkDate != nil {
		entry.WorkDate = s.workDate(*patch.WorkDate)
	}
	if patch.StartTime != nil {
		entry.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		end := patch.EndTime.UTC()
		entry.EndTime = &end
	}
	if patch.Notes != nil {
		entry.Notes = *patch.Notes
	}
	if entry.EndTime != nil {
		if entry.EndTime.Before(entry.StartTime) {
			return nil, domain.NewValidationError("end_time", "is before start_time")
		}
		minutes := domain.DurationBetween(entry.StartTime, *entry.EndTime)
		entry.DurationMinutes = &minutes
	}
	entry.UpdatedAt = s.clock()
	if err = entry.Validate(); err != nil {
		return nil, err
	}
	if err = s.logs.Update(ctx, entry, expected); err != nil {
		return nil, fmt.Errorf("updating work log %s: %w", id, err)
	}
	s.publish(feed.TopicWorkLogs, id, feed.OpUpdated)
	return entry, nil
}

func (s *workLogService) Delete(ctx context.Context, id string) (err error) {
	done := s.track(ctx, "delete-log-entry", map[string]any{"entry_id": id})
	defer func() { done(err) }()

	if err = s.logs.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(feed.TopicWorkLogs, id, feed.OpDeleted)
	return nil
}

func (s *workLogService) GetByID(ctx context.Context, id string) (*domain.WorkLogEntry, error) {
	return s.logs.GetByID(ctx, id)
}

func (s *workLogService) List(ctx context.Context, filter contract.WorkLogFilter) ([]*domain.WorkLogEntry, error) {
	return s.logs.List(ctx, filter)
}

func (s *workLogService) Subscribe(ctx context.Context, filter contract.WorkLogFilter) (*feed.Subscription[*domain.WorkLogEntry], error) {
	if filter.Range != nil {
		filter.Range = contract.RangePtr(*filter.Range)
	}
	load := func(ctx context.Context) ([]*domain.WorkLogEntry, error) {
		return s.logs.List(ctx, filter)
	}
	return feed.Watch(ctx, s.hub, feed.TopicWorkLogs, load, s.watch), nil
}

func (s *workLogService) entryFromEvent(ev contract.WorkEvent, now time.Time) *domain.WorkLogEntry {
	day := ev.JobDate
	if day.IsZero() {
		day = now
	}
	return &domain.WorkLogEntry{
		ID:         uuid.New().String(),
		UserID:     strings.TrimSpace(ev.UserID),
		UserName:   ev.UserName,
		UserEmail:  ev.UserEmail,
		JobID:      domain.StrPtr(strings.TrimSpace(ev.JobID)),
		ClientID:   ev.ClientID,
		ClientName: ev.ClientName,
		WorkDate:   s.workDate(day),
		StartTime:  now,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// workDate is the start of t's calendar day in the service location, in UTC.
func (s *workLogService) workDate(t time.Time) time.Time {
	return daterange.StartOfDay(t.In(s.loc)).UTC()
}

func validateWorkEvent(ev contract.WorkEvent) error {
	if strings.TrimSpace(ev.UserID) == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	if strings.TrimSpace(ev.JobID) == "" {
		return domain.NewValidationError("job_id", "is required")
	}
	return nil
}
