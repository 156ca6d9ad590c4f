package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"jobs", "job_assignees", "work_logs"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_jobs_date",
		"idx_jobs_status_date",
		"idx_jobs_client",
		"idx_job_assignees_user",
		"idx_work_logs_work_date",
		"idx_work_logs_open",
		"idx_work_logs_job",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_StatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO jobs (id, client_id, date, status, created_at, updated_at)
		VALUES ('j1', 'c1', '2024-03-14T09:00:00.000Z', 'paused', 'x', 'x')`)
	require.Error(t, err)
	assert.True(t, IsConstraint(err))
}

func TestMigrate_AssigneesCascadeWithJob(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO jobs (id, client_id, date, created_at, updated_at)
		VALUES ('j1', 'c1', '2024-03-14T09:00:00.000Z', 'x', 'x')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO job_assignees (job_id, user_id) VALUES ('j1', 'u1')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM jobs WHERE id = 'j1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM job_assignees`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpenDB_FileBacked(t *testing.T) {
	path := t.TempDir() + "/nested/crewdesk.db"
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}
