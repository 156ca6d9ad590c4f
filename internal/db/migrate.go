package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Timestamps are stored as fixed-width UTC text (see repository.timeLayout)
// so that lexical comparison in range predicates matches time order.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id                TEXT PRIMARY KEY,
		client_id         TEXT NOT NULL,
		date              TEXT NOT NULL,
		duration_minutes  INTEGER NOT NULL DEFAULT 60 CHECK(duration_minutes > 0),
		status            TEXT NOT NULL DEFAULT 'scheduled'
		                  CHECK(status IN ('scheduled','in_progress','completed','cancelled')),
		location_id       TEXT,
		location_label    TEXT,
		location_address  TEXT,
		notes             TEXT NOT NULL DEFAULT '',
		version           INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_date ON jobs(date)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_date ON jobs(status, date)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_client ON jobs(client_id)`,

	// One row per (job, worker) so add/remove are single-row writes.
	`CREATE TABLE IF NOT EXISTS job_assignees (
		job_id   TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		user_id  TEXT NOT NULL,
		PRIMARY KEY (job_id, user_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_job_assignees_user ON job_assignees(user_id)`,

	// No foreign key to jobs: work logs outlive the jobs they came from.
	`CREATE TABLE IF NOT EXISTS work_logs (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL CHECK(user_id != ''),
		user_name         TEXT NOT NULL DEFAULT '',
		user_email        TEXT NOT NULL DEFAULT '',
		job_id            TEXT,
		client_id         TEXT NOT NULL DEFAULT '',
		client_name       TEXT NOT NULL DEFAULT '',
		work_date         TEXT NOT NULL,
		start_time        TEXT NOT NULL,
		end_time          TEXT,
		duration_minutes  INTEGER CHECK(duration_minutes IS NULL OR duration_minutes >= 0),
		notes             TEXT NOT NULL DEFAULT '',
		version           INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_work_logs_work_date ON work_logs(work_date)`,
	`CREATE INDEX IF NOT EXISTS idx_work_logs_open ON work_logs(user_id, job_id, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_work_logs_job ON work_logs(job_id)`,

	// At most one open entry per (worker, job). Manual entries are exempt.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_work_logs_one_open
		ON work_logs(user_id, job_id) WHERE end_time IS NULL AND job_id IS NOT NULL`,
}
