package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/crewdesk/internal/contract"
	"github.com/alexanderramin/crewdesk/internal/daterange"
	"github.com/alexanderramin/crewdesk/internal/domain"
	"github.com/alexanderramin/crewdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workLogTestSetup(t *testing.T) *SQLiteWorkLogRepo {
	t.Helper()
	return NewSQLiteWorkLogRepo(testutil.NewTestDB(t))
}

func TestWorkLogRepo_CreateAndGetByID(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()

	start := day.Add(9 * time.Hour)
	entry := testutil.NewTestWorkLog("u1",
		testutil.ForJob("job-1"),
		testutil.WithInterval(start, 90),
		testutil.WithUserEmail("u1@example.com"),
	)
	entry.ClientName = "Acme"
	require.NoError(t, repo.Create(ctx, entry))

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.JobID)
	assert.Equal(t, "job-1", *got.JobID)
	assert.Equal(t, "Acme", got.ClientName)
	assert.Equal(t, "u1@example.com", got.UserEmail)
	assert.True(t, got.WorkDate.Equal(day))
	assert.True(t, got.StartTime.Equal(start))
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(start.Add(90*time.Minute)))
	assert.Nil(t, got.DurationMinutes)
	assert.Equal(t, 90, got.EffectiveMinutes())
}

func TestWorkLogRepo_ManualEntryHasNullJob(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()

	entry := testutil.NewTestWorkLog("u1", testutil.WithInterval(day.Add(9*time.Hour), 30), testutil.WithStoredMinutes(30))
	require.NoError(t, repo.Create(ctx, entry))

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.JobID)
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, 30, *got.DurationMinutes)
}

func TestWorkLogRepo_FindOpen(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	open := testutil.NewTestWorkLog("u1", testutil.ForJob("job-1"), testutil.WithCreatedAt(base))
	closed := testutil.NewTestWorkLog("u1", testutil.ForJob("job-1"), testutil.WithInterval(base, 5),
		testutil.WithCreatedAt(base.Add(time.Hour)))
	otherUser := testutil.NewTestWorkLog("u2", testutil.ForJob("job-1"), testutil.WithCreatedAt(base.Add(time.Hour)))
	for _, e := range []*domain.WorkLogEntry{open, closed, otherUser} {
		require.NoError(t, repo.Create(ctx, e))
	}

	jobID := "job-1"
	got, err := repo.FindOpen(ctx, "u1", &jobID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, got.ID)

	_, err = repo.FindOpen(ctx, "u3", &jobID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindOpen(ctx, "u1", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound, "nil job id only matches manual entries")
}

func TestWorkLogRepo_Create_SecondOpenEntryConflicts(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()

	first := testutil.NewTestWorkLog("u1", testutil.ForJob("job-1"))
	require.NoError(t, repo.Create(ctx, first))

	dup := testutil.NewTestWorkLog("u1", testutil.ForJob("job-1"))
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Closed entries and other workers are unaffected.
	require.NoError(t, repo.Create(ctx, testutil.NewTestWorkLog("u1", testutil.ForJob("job-1"), testutil.WithInterval(day, 10))))
	require.NoError(t, repo.Create(ctx, testutil.NewTestWorkLog("u2", testutil.ForJob("job-1"))))

	// Once closed, the worker may start the job again.
	end := first.StartTime.Add(time.Minute)
	claimed, err := repo.CloseIfOpen(ctx, first.ID, end, nil, end)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.Create(ctx, dup))
}

func TestWorkLogRepo_CloseIfOpen_ClaimsOnce(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()

	entry := testutil.NewTestWorkLog("u1", testutil.ForJob("job-1"))
	require.NoError(t, repo.Create(ctx, entry))

	end := entry.StartTime.Add(45 * time.Minute)
	claimed, err := repo.CloseIfOpen(ctx, entry.ID, end, nil, end)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.CloseIfOpen(ctx, entry.ID, end.Add(time.Minute), nil, end)
	require.NoError(t, err)
	assert.False(t, claimed, "second close must not claim an already closed entry")

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(end))
	assert.Equal(t, 45, got.EffectiveMinutes())
}

func TestWorkLogRepo_List(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()

	a := testutil.NewTestWorkLog("u1", testutil.WithInterval(day.Add(13*time.Hour), 60), testutil.ForJob("j1"))
	b := testutil.NewTestWorkLog("u1", testutil.WithInterval(day.Add(8*time.Hour), 60))
	c := testutil.NewTestWorkLog("u2", testutil.WithInterval(day.AddDate(0, 0, 1).Add(8*time.Hour), 60), testutil.ForJob("j1"))
	outside := testutil.NewTestWorkLog("u1", testutil.WithInterval(day.AddDate(0, 1, 0), 60))
	open := testutil.NewTestWorkLog("u2", testutil.ForJob("j2"))
	open.WorkDate = day
	for _, e := range []*domain.WorkLogEntry{a, b, c, outside, open} {
		require.NoError(t, repo.Create(ctx, e))
	}

	week := contract.RangePtr(daterange.RollingWeek(day))
	got, err := repo.List(ctx, contract.WorkLogFilter{Range: week})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, c.ID, got[3].ID, "next day sorts last")

	mine, err := repo.List(ctx, contract.WorkLogFilter{Range: week, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, b.ID, mine[0].ID, "same day ordered by start time")
	assert.Equal(t, a.ID, mine[1].ID)

	forJob, err := repo.List(ctx, contract.WorkLogFilter{JobID: "j1"})
	require.NoError(t, err)
	assert.Len(t, forJob, 2)

	openOnly, err := repo.List(ctx, contract.WorkLogFilter{OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, openOnly, 1)
	assert.Equal(t, open.ID, openOnly[0].ID)
}

func TestWorkLogRepo_UpdateAndDelete(t *testing.T) {
	repo := workLogTestSetup(t)
	ctx := context.Background()

	entry := testutil.NewTestWorkLog("u1", testutil.WithInterval(day.Add(9*time.Hour), 150), testutil.WithStoredMinutes(150))
	require.NoError(t, repo.Create(ctx, entry))

	end := day.Add(10 * time.Hour)
	entry.EndTime = &end
	entry.DurationMinutes = testutil.Ptr(60)
	entry.Notes = "left early"
	require.NoError(t, repo.Update(ctx, entry, 1))
	assert.Equal(t, int64(2), entry.Version)

	assert.ErrorIs(t, repo.Update(ctx, entry, 1), domain.ErrConflict)

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, *got.DurationMinutes)
	assert.Equal(t, "left early", got.Notes)

	require.NoError(t, repo.Delete(ctx, entry.ID))
	assert.ErrorIs(t, repo.Delete(ctx, entry.ID), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, entry, 0), domain.ErrNotFound)
}
