package service

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
	"github.com/alexanderramin/crewdesk/internal/testutil"
)

var testDay = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires every service against one database and one hub.
type fixture struct {
	db      *sql.DB
	jobRepo *repository.SQLiteJobRepo
	logRepo *repository.SQLiteWorkLogRepo
	hub     *feed.Hub
	clock   *testClock

	jobs        JobService
	lifecycle   LifecycleService
	assignments AssignmentService
	logs        WorkLogService
	workflow    JobWorkflow
}

func newFixture(t *testing.T, database *sql.DB, extra ...Option) *fixture {
	t.Helper()
	f := &fixture{
		db:      database,
		jobRepo: repository.NewSQLiteJobRepo(database),
		logRepo: repository.NewSQLiteWorkLogRepo(database),
		hub:     feed.NewHub(),
		clock:   newTestClock(testDay.Add(9 * time.Hour)),
	}
	watch := feed.DefaultOptions()
	watch.MinInterval = 0
	watch.RetryDelay = 5 * time.Millisecond

	opts := append([]Option{
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
		WithHub(f.hub),
		WithWatchOptions(watch),
	}, extra...)

	f.jobs = NewJobService(f.jobRepo, opts...)
	f.lifecycle = NewLifecycleService(f.jobRepo, opts...)
	f.assignments = NewAssignmentService(f.jobRepo, testutil.NewTestUoW(database), opts...)
	f.logs = NewWorkLogService(f.logRepo, opts...)
	f.workflow = NewJobWorkflow(f.jobRepo, f.lifecycle, f.logs, opts...)
	return f
}

func newMemFixture(t *testing.T, extra ...Option) *fixture {
	return newFixture(t, testutil.NewTestDB(t), extra...)
}

// seedJob stores a job through the repository, bypassing service defaults.
func (f *fixture) seedJob(t *testing.T, opts ...testutil.JobOption) *domain.Job {
	t.Helper()
	base := []testutil.JobOption{testutil.WithJobDate(testDay.Add(10 * time.Hour))}
	j := testutil.NewTestJob("client-1", append(base, opts...)...)
	if err := f.jobRepo.Create(t.Context(), j); err != nil {
		t.Fatalf("seeding job: %v", err)
	}
	return j
}
