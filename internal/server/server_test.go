package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/crewdesk/internal/config"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/feed"
	"github.com/alexanderramin/crewdesk/internal/repository"
	"github.com/alexanderramin/crewdesk/internal/service"
	"github.com/alexanderramin/crewdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var serverNow = time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	database := testutil.NewTestDB(t)
	jobRepo := repository.NewSQLiteJobRepo(database)
	logRepo := repository.NewSQLiteWorkLogRepo(database)

	watch := feed.DefaultOptions()
	watch.MinInterval = 0
	opts := []service.Option{
		service.WithClock(func() time.Time { return serverNow }),
		service.WithLocation(time.UTC),
		service.WithHub(feed.NewHub()),
		service.WithWatchOptions(watch),
	}
	lifecycle := service.NewLifecycleService(jobRepo, opts...)
	logs := service.NewWorkLogService(logRepo, opts...)

	return New(config.ServerConfig{}, Services{
		Jobs:        service.NewJobService(jobRepo, opts...),
		Lifecycle:   lifecycle,
		Assignments: service.NewAssignmentService(jobRepo, testutil.NewTestUoW(database), opts...),
		WorkLogs:    logs,
		Workflow:    service.NewJobWorkflow(jobRepo, lifecycle, logs, opts...),
		Location:    time.UTC,
		Now:         func() time.Time { return serverNow },
	}, zaptest.NewLogger(t))
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, rec).Error.Code
}

func createJob(t *testing.T, s *Server, workers ...string) JobDTO {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/jobs", CreateJobRequest{
		ClientID:  "acme",
		Date:      time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC),
		WorkerIDs: workers,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[JobDTO](t, rec)
}

func TestHealth(t *testing.T) {
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, errorCode(t, rec))

	rec = do(t, s, http.MethodPut, "/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, CodeMethodNotAllowed, errorCode(t, rec))
}

func TestCreateAndGetJob(t *testing.T) {
	s := testServer(t)
	created := createJob(t, s, "u2", "u1")

	assert.Equal(t, "scheduled", created.Status)
	assert.Equal(t, []string{"u1", "u2"}, created.AssignedUserIDs)
	assert.Equal(t, domain.DefaultJobDurationMin, created.DurationMinutes)

	rec := do(t, s, http.MethodGet, "/jobs/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[JobDTO](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "acme", got.ClientID)
}

func TestCreateJob_RejectsBadBodies(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty body", nil},
		{"malformed", `{"client_id":`},
		{"unknown field", `{"client_id":"acme","colour":"red"}`},
		{"missing client", CreateJobRequest{Date: serverNow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeValidation, errorCode(t, rec))
		})
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, errorCode(t, rec))
}

func TestListJobs_Filters(t *testing.T) {
	s := testServer(t)
	a := createJob(t, s, "u1")
	createJob(t, s, "u2")

	rec := do(t, s, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]JobDTO](t, rec), 2)

	rec = do(t, s, http.MethodGet, "/jobs?worker_id=u1", nil)
	jobs := decode[[]JobDTO](t, rec)
	require.Len(t, jobs, 1)
	assert.Equal(t, a.ID, jobs[0].ID)

	rec = do(t, s, http.MethodGet, "/jobs?from=2024-03-20&to=2024-03-21", nil)
	assert.Empty(t, decode[[]JobDTO](t, rec))

	rec = do(t, s, http.MethodGet, "/jobs?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/jobs?range=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, errorCode(t, rec))
}

func TestUpdateJob(t *testing.T) {
	s := testServer(t)
	j := createJob(t, s)

	rec := do(t, s, http.MethodPatch, "/jobs/"+j.ID, map[string]any{"notes": "gate code 1234"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[JobDTO](t, rec)
	assert.Equal(t, "gate code 1234", updated.Notes)
	assert.Greater(t, updated.Version, j.Version)

	rec = do(t, s, http.MethodPatch, "/jobs/"+j.ID, map[string]any{"notes": "stale", "version": j.Version})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, errorCode(t, rec))
}

func TestDeleteJob(t *testing.T) {
	s := testServer(t)
	j := createJob(t, s)

	rec := do(t, s, http.MethodDelete, "/jobs/"+j.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/jobs/"+j.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitions_WithoutWorker(t *testing.T) {
	s := testServer(t)
	j := createJob(t, s)

	rec := do(t, s, http.MethodPost, "/jobs/"+j.ID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeInvalidTransition, errorCode(t, rec))

	rec = do(t, s, http.MethodPost, "/jobs/"+j.ID+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[TransitionResponse](t, rec)
	assert.Equal(t, "in_progress", res.Job.Status)
	assert.Nil(t, res.Entry)

	rec = do(t, s, http.MethodPost, "/jobs/"+j.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[TransitionResponse](t, rec).Job.Status)
}

func TestTransitions_WorkerWorkflow(t *testing.T) {
	s := testServer(t)
	j := createJob(t, s, "u1")
	worker := WorkerRequest{UserID: "u1", UserName: "Una", ClientName: "Acme"}

	rec := do(t, s, http.MethodPost, "/jobs/"+j.ID+"/start", worker)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[TransitionResponse](t, rec)
	assert.True(t, started.Transitioned)
	assert.Equal(t, "in_progress", started.Job.Status)
	require.NotNil(t, started.Entry)
	assert.Nil(t, started.Entry.EndTime)
	assert.Equal(t, "Una", started.Entry.UserName)

	rec = do(t, s, http.MethodPost, "/jobs/"+j.ID+"/complete", worker)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	completed := decode[TransitionResponse](t, rec)
	assert.Equal(t, "completed", completed.Job.Status)
	require.NotNil(t, completed.Entry)
	assert.Equal(t, started.Entry.ID, completed.Entry.ID)
	assert.NotNil(t, completed.Entry.EndTime)

	rec = do(t, s, http.MethodPost, "/jobs/"+j.ID+"/start", WorkerRequest{UserID: "stranger"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkers(t *testing.T) {
	s := testServer(t)
	j := createJob(t, s)

	rec := do(t, s, http.MethodPut, "/jobs/"+j.ID+"/workers", AssignRequest{UserIDs: []string{"u3", "u1", "u3"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1", "u3"}, decode[JobDTO](t, rec).AssignedUserIDs)

	rec = do(t, s, http.MethodPost, "/jobs/"+j.ID+"/workers", WorkerRequest{UserID: "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1", "u2", "u3"}, decode[JobDTO](t, rec).AssignedUserIDs)

	rec = do(t, s, http.MethodDelete, "/jobs/"+j.ID+"/workers/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[JobDTO](t, rec)
	assert.Equal(t, []string{"u2", "u3"}, got.AssignedUserIDs)
	assert.Equal(t, "scheduled", got.Status)

	rec = do(t, s, http.MethodPut, "/jobs/missing/workers", AssignRequest{UserIDs: []string{"u1"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobStatsAndDays(t *testing.T) {
	s := testServer(t)
	createJob(t, s)
	rec := do(t, s, http.MethodPost, "/jobs", CreateJobRequest{ClientID: "beta", Date: serverNow.AddDate(0, 0, 2)})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/jobs/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"today_scheduled":1,"week_scheduled":2,"completed_this_week":0}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/jobs/days", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]DayDTO](t, rec)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-14", days[0].Day)
	assert.Equal(t, "2024-03-16", days[1].Day)
	assert.Equal(t, "beta", days[1].Jobs[0].ClientID)
}

func TestWorkLogEvents(t *testing.T) {
	s := testServer(t)
	ev := WorkEventRequest{JobID: "job-1", JobDate: serverNow, ClientID: "acme", UserID: "u1"}

	rec := do(t, s, http.MethodPost, "/worklogs/start", ev)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opened := decode[WorkLogDTO](t, rec)
	assert.Nil(t, opened.EndTime)

	rec = do(t, s, http.MethodGet, "/worklogs?open=true", nil)
	require.Len(t, decode[[]WorkLogDTO](t, rec), 1)

	rec = do(t, s, http.MethodPost, "/worklogs/complete", ev)
	require.Equal(t, http.StatusOK, rec.Code)
	closed := decode[WorkLogDTO](t, rec)
	assert.Equal(t, opened.ID, closed.ID)
	assert.NotNil(t, closed.EndTime)

	rec = do(t, s, http.MethodGet, "/worklogs?open=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManualWorkLog_CRUD(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/worklogs", ManualLogRequest{
		UserID: "u1", UserName: "Una", Date: "2024-03-14", Start: "09:00", End: "11:30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[WorkLogDTO](t, rec)
	assert.Nil(t, entry.JobID)
	require.NotNil(t, entry.DurationMinutes)
	assert.Equal(t, 150, *entry.DurationMinutes)
	assert.Equal(t, "/worklogs/"+entry.ID, rec.Header().Get("Location"))

	end := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	rec = do(t, s, http.MethodPatch, "/worklogs/"+entry.ID, UpdateWorkLogRequest{EndTime: &end})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 60, decode[WorkLogDTO](t, rec).EffectiveMinutes)

	rec = do(t, s, http.MethodPatch, "/worklogs/"+entry.ID, UpdateWorkLogRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/worklogs/"+entry.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/worklogs/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/worklogs/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualWorkLog_Validation(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name string
		req  ManualLogRequest
	}{
		{"bad date", ManualLogRequest{UserID: "u1", Date: "14/03/2024", Start: "09:00", End: "10:00"}},
		{"bad clock", ManualLogRequest{UserID: "u1", Date: "2024-03-14", Start: "9am", End: "10:00"}},
		{"end before start", ManualLogRequest{UserID: "u1", Date: "2024-03-14", Start: "11:00", End: "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/worklogs", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeValidation, errorCode(t, rec))
		})
	}
}

func TestWorkLogTotals(t *testing.T) {
	s := testServer(t)
	for _, m := range []ManualLogRequest{
		{UserID: "u1", Date: "2024-03-14", Start: "09:00", End: "10:00"},
		{UserID: "u2", Date: "2024-03-14", Start: "09:00", End: "11:30"},
		{UserID: "u1", Date: "2024-03-15", Start: "09:00", End: "09:30"},
	} {
		rec := do(t, s, http.MethodPost, "/worklogs", m)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, s, http.MethodGet, "/worklogs/totals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decode[TotalsDTO](t, rec)
	assert.Equal(t, 240, totals.TotalMinutes)
	assert.Equal(t, "4 hrs", totals.Formatted)
	require.Len(t, totals.Workers, 2)
	assert.Equal(t, "u2", totals.Workers[0].Key)
	assert.Equal(t, 150, totals.Workers[0].Minutes)
	assert.Equal(t, 2, totals.Workers[1].Entries)

	rec = do(t, s, http.MethodGet, "/worklogs/totals?user_id=nobody", nil)
	assert.Empty(t, decode[TotalsDTO](t, rec).Workers)
}

func TestStreamJobs_FirstSnapshot(t *testing.T) {
	s := testServer(t)
	j := createJob(t, s)

	rec := do(t, s, http.MethodGet, "/jobs/stream?count=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "id: 1\n")
	assert.Contains(t, body, "event: snapshot\n")

	data := eventData(t, body)
	snap := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	items := snap["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, j.ID, items[0].(map[string]any)["id"])
}

func TestStreamWorkLogs_BadCount(t *testing.T) {
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/worklogs/stream?count=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamJobs_SeesLaterWrites(t *testing.T) {
	s := testServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/jobs/stream?count=2", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Contains(t, first, `"items":[]`)

	createJob(t, s)
	second := readEvent(t, reader)
	assert.Contains(t, second, `"client_id":"acme"`)
}

func TestRecovery(t *testing.T) {
	s := testServer(t)
	h := s.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, CodeInternal, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "panic: boom")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("job x: %w", domain.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{&domain.ConflictError{Entity: "job", ID: "x"}, http.StatusConflict, CodeConflict},
		{&domain.TransitionError{}, http.StatusConflict, CodeInvalidTransition},
		{domain.NewValidationError("f", "bad"), http.StatusBadRequest, CodeValidation},
		{fmt.Errorf("query: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{assert.AnError, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := testServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// eventData returns the data line of the first event in body.
func eventData(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if rest, ok := strings.CutPrefix(line, "data: "); ok {
			return rest
		}
	}
	t.Fatalf("no data line in %q", body)
	return ""
}

// readEvent reads one blank-line terminated event from r.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var sb strings.Builder
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" {
			return sb.String()
		}
		sb.WriteString(line)
	}
}
