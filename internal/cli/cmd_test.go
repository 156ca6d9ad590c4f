package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/crewdesk/internal/cli/formatter"
	"github.com/alexanderramin/crewdesk/internal/config"
	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
	"github.com/alexanderramin/crewdesk/internal/service"
	"github.com/alexanderramin/crewdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cliNow = time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

func init() {
	formatter.SetColor(false)
}

// testApp wires a full App backed by an in-memory DB for CLI integration tests.
func testApp(t *testing.T) *App {
	t.Helper()
	database := testutil.NewTestDB(t)
	jobRepo := repository.NewSQLiteJobRepo(database)
	logRepo := repository.NewSQLiteWorkLogRepo(database)

	watch := feed.DefaultOptions()
	watch.MinInterval = 0
	opts := []service.Option{
		service.WithClock(func() time.Time { return cliNow }),
		service.WithLocation(time.UTC),
		service.WithHub(feed.NewHub()),
		service.WithWatchOptions(watch),
	}
	lifecycle := service.NewLifecycleService(jobRepo, opts...)
	logs := service.NewWorkLogService(logRepo, opts...)

	return &App{
		Jobs:        service.NewJobService(jobRepo, opts...),
		Lifecycle:   lifecycle,
		Assignments: service.NewAssignmentService(jobRepo, testutil.NewTestUoW(database), opts...),
		WorkLogs:    logs,
		Workflow:    service.NewJobWorkflow(jobRepo, lifecycle, logs, opts...),
		Location:    time.UTC,
		Now:         func() time.Time { return cliNow },
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// seedJob creates a job at 10:00 on cliNow's day through the CLI and returns its id.
func seedJob(t *testing.T, app *App, extra ...string) string {
	t.Helper()
	args := append([]string{"job", "create", "--client", "acme", "--at", "2024-03-14 10:00"}, extra...)
	_, err := executeCmd(t, app, args...)
	require.NoError(t, err)

	jobs, err := app.Jobs.List(context.Background(), contract.JobFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	return jobs[len(jobs)-1].ID
}

// --- root ---

func TestRootCmd_NoArgs_ShowsHelp(t *testing.T) {
	out, err := executeCmd(t, testApp(t))
	require.NoError(t, err)
	assert.Contains(t, out, "crewdesk")
	assert.Contains(t, out, "worklog")
}

// --- job commands ---

func TestJobCreate_AndShow(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "job", "create", "--client", "acme", "--at", "2024-03-14 10:00",
		"--duration", "90", "--worker", "u2", "--worker", "u1", "--location-label", "Annex")
	require.NoError(t, err)
	assert.Contains(t, out, "Created job")
	assert.Contains(t, out, "2024-03-14 10:00")

	jobs, err := app.Jobs.List(context.Background(), contract.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	j := jobs[0]
	assert.Equal(t, 90, j.DurationMinutes)
	assert.Equal(t, []string{"u1", "u2"}, j.AssignedUserIDs)
	assert.Equal(t, domain.JobScheduled, j.Status)

	out, err = executeCmd(t, app, "job", "show", j.ID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, j.ID)
	assert.Contains(t, out, "Annex")
	assert.Contains(t, out, "1 hr 30 min")
}

func TestJobCreate_RequiresFlags(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "job", "create", "--client", "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at")
}

func TestJobCreate_BadTime(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "job", "create", "--client", "acme", "--at", "tomorrow")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestJobList_FiltersAndRange(t *testing.T) {
	app := testApp(t)
	seedJob(t, app)
	_, err := executeCmd(t, app, "job", "create", "--client", "later", "--at", "2024-04-20 09:00")
	require.NoError(t, err)

	out, err := executeCmd(t, app, "job", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "acme")
	assert.NotContains(t, out, "later", "default range is the rolling week")

	out, err = executeCmd(t, app, "job", "list", "--range", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "later")

	out, err = executeCmd(t, app, "job", "list", "--from", "2024-04-01", "--to", "2024-04-30")
	require.NoError(t, err)
	assert.Contains(t, out, "later")
	assert.NotContains(t, out, "acme")

	out, err = executeCmd(t, app, "job", "list", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs found.")

	_, err = executeCmd(t, app, "job", "list", "--status", "paused")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = executeCmd(t, app, "job", "list", "--range", "fortnight")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestJobUpdate_OnlyChangedFields(t *testing.T) {
	app := testApp(t)
	id := seedJob(t, app, "--notes", "ring bell")

	out, err := executeCmd(t, app, "job", "update", id, "--duration", "45")
	require.NoError(t, err)
	assert.Contains(t, out, "version 2")

	j, err := app.Jobs.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 45, j.DurationMinutes)
	assert.Equal(t, "ring bell", j.Notes)

	_, err = executeCmd(t, app, "job", "update", id, "--notes", "x", "--expected-version", "1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestJobLifecycleCommands(t *testing.T) {
	app := testApp(t)
	id := seedJob(t, app)

	_, err := executeCmd(t, app, "job", "complete", id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	out, err := executeCmd(t, app, "job", "start", id)
	require.NoError(t, err)
	assert.Contains(t, out, "In progress")

	_, err = executeCmd(t, app, "job", "start", id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	out, err = executeCmd(t, app, "job", "cancel", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
}

func TestJobStartAsWorker_RecordsWorkLog(t *testing.T) {
	app := testApp(t)
	id := seedJob(t, app, "--worker", "u1", "--worker", "u2")

	out, err := executeCmd(t, app, "job", "start", id, "--as", "u1", "--name", "Amy")
	require.NoError(t, err)
	assert.Contains(t, out, "is now")
	assert.Contains(t, out, "Amy")

	out, err = executeCmd(t, app, "job", "start", id, "--as", "u2")
	require.NoError(t, err)
	assert.Contains(t, out, "was already")

	open, err := app.WorkLogs.List(context.Background(), contract.WorkLogFilter{JobID: id, OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = executeCmd(t, app, "job", "complete", id, "--as", "stranger")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestJobAssignment(t *testing.T) {
	app := testApp(t)
	id := seedJob(t, app)

	out, err := executeCmd(t, app, "job", "assign", id, "u3", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "u1, u3")

	out, err = executeCmd(t, app, "job", "add-worker", id, "u2")
	require.NoError(t, err)
	assert.Contains(t, out, "u1, u2, u3")

	out, err = executeCmd(t, app, "job", "remove-worker", id, "u3")
	require.NoError(t, err)
	assert.Contains(t, out, "u1, u2")

	out, err = executeCmd(t, app, "job", "assign", id)
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}

func TestJobDelete_UnknownAndAmbiguousIDs(t *testing.T) {
	app := testApp(t)
	id := seedJob(t, app)

	_, err := executeCmd(t, app, "job", "delete", "zzz-not-there")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := executeCmd(t, app, "job", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted job")

	_, err = executeCmd(t, app, "job", "show", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMatchPrefix(t *testing.T) {
	id, err := matchPrefix("job", "ab", []string{"abc", "xyz"})
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = matchPrefix("job", "a", []string{"abc", "abd"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestJobStatsAndDays(t *testing.T) {
	app := testApp(t)
	seedJob(t, app)
	_, err := executeCmd(t, app, "job", "create", "--client", "beta", "--at", "2024-03-16 09:00")
	require.NoError(t, err)

	out, err := executeCmd(t, app, "job", "stats")
	require.NoError(t, err)
	assert.Regexp(t, `Scheduled today\s+1`, out)
	assert.Regexp(t, `Scheduled this week\s+2`, out)

	out, err = executeCmd(t, app, "job", "days")
	require.NoError(t, err)
	assert.Contains(t, out, "TODAY (1)")
	assert.Contains(t, out, "SAT, MAR 16 (1)")
	assert.Less(t, strings.Index(out, "acme"), strings.Index(out, "beta"))
}

func TestJobWatch_PrintsSnapshots(t *testing.T) {
	app := testApp(t)
	seedJob(t, app)

	out, err := executeCmd(t, app, "job", "watch", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "acme")
}

// --- worklog commands ---

func TestWorkLogStartComplete(t *testing.T) {
	app := testApp(t)
	id := seedJob(t, app)

	out, err := executeCmd(t, app, "worklog", "start", "--job", id, "--user", "u1", "--name", "Amy")
	require.NoError(t, err)
	assert.Contains(t, out, "open")

	out, err = executeCmd(t, app, "log", "complete", "--job", id, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "closed")

	j, err := app.Jobs.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobScheduled, j.Status, "work log commands leave the job status alone")
}

func TestWorkLogAddEditRemove(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "worklog", "add", "--user", "u1", "--date", "2024-03-14",
		"--start", "09:00", "--end", "11:30", "--notes", "stocktake")
	require.NoError(t, err)
	assert.Contains(t, out, "2 hrs 30 min")

	entries, err := app.WorkLogs.List(context.Background(), contract.WorkLogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	id := entries[0].ID

	out, err = executeCmd(t, app, "worklog", "edit", id, "--end", "2024-03-14 10:00")
	require.NoError(t, err)
	assert.Contains(t, out, "1 hr")

	_, err = executeCmd(t, app, "worklog", "edit", id)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = executeCmd(t, app, "worklog", "add", "--user", "u1", "--date", "2024-03-14",
		"--start", "11:00", "--end", "10:00")
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err = executeCmd(t, app, "worklog", "remove", id[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted work log")
}

func TestWorkLogListAndTotals(t *testing.T) {
	app := testApp(t)
	for _, args := range [][]string{
		{"--user", "u1", "--name", "Amy", "--start", "09:00", "--end", "10:00"},
		{"--user", "u1", "--name", "Amy", "--start", "13:00", "--end", "13:30"},
		{"--user", "u2", "--name", "Bo", "--start", "09:00", "--end", "11:00"},
	} {
		_, err := executeCmd(t, app, append([]string{"worklog", "add", "--date", "2024-03-14"}, args...)...)
		require.NoError(t, err)
	}

	out, err := executeCmd(t, app, "worklog", "list", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Amy")
	assert.NotContains(t, out, "Bo")
	assert.Contains(t, out, "Total: 1 hr 30 min")

	out, err = executeCmd(t, app, "worklog", "totals")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Bo"), strings.Index(out, "Amy"), "highest total first")
	assert.Contains(t, out, "All workers: 3 hrs 30 min")

	out, err = executeCmd(t, app, "worklog", "list", "--open")
	require.NoError(t, err)
	assert.Contains(t, out, "No work log entries found.")
}

func TestWorkLogWatch_PrintsSnapshot(t *testing.T) {
	app := testApp(t)
	_, err := executeCmd(t, app, "worklog", "add", "--user", "u1", "--date", "2024-03-14", "--start", "09:00", "--end", "10:00")
	require.NoError(t, err)

	out, err := executeCmd(t, app, "worklog", "watch", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 hr")
}

// --- serve / config ---

func TestServeCmd_Unconfigured(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "serve")
	assert.Error(t, err)
}

func TestServeCmd_RunsServe(t *testing.T) {
	app := testApp(t)
	called := false
	app.Serve = func(ctx context.Context) error {
		called = true
		return nil
	}
	_, err := executeCmd(t, app, "serve")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestConfigShow(t *testing.T) {
	app := testApp(t)
	app.Config = &config.Config{
		DB:      config.DBConfig{Path: "/tmp/crew.db"},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
	}
	out, err := executeCmd(t, app, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "path: /tmp/crew.db")
}
