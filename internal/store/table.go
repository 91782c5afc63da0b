package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobscout-engine/internal/domain"
)

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  job_id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  company_url TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  posted_date TEXT NOT NULL DEFAULT '',
  posted_date_ts TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  seniority_level TEXT NOT NULL DEFAULT '',
  employment_type TEXT NOT NULL DEFAULT '',
  job_function TEXT NOT NULL DEFAULT '',
  industries TEXT NOT NULL DEFAULT '',
  applicant_count TEXT NOT NULL DEFAULT '',
  first_seen TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  reason TEXT NOT NULL,
  partial INTEGER NOT NULL DEFAULT 0,
  records INTEGER NOT NULL DEFAULT 0,
  added INTEGER NOT NULL DEFAULT 0,
  pages INTEGER NOT NULL DEFAULT 0,
  duplicates INTEGER NOT NULL DEFAULT 0,
  dropped INTEGER NOT NULL DEFAULT 0,
  detail_failures INTEGER NOT NULL DEFAULT 0,
  total_available INTEGER NOT NULL DEFAULT 0,
  limit_value INTEGER NOT NULL DEFAULT 0,
  limit_source TEXT NOT NULL DEFAULT '',
  last_error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_jobs_first_seen
ON jobs(first_seen);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_runs_started_at
ON runs(started_at);
`); err != nil {
		return err
	}

	// Mark schema v1
	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

type StoredJob struct {
	domain.JobRecord
	FirstSeen time.Time `json:"firstSeen"`
}

type ListJobsOpts struct {
	Window string // 24h | 7d | all
	Limit  int
}

// ListJobs returns stored jobs, newest first.
func ListJobs(ctx context.Context, db *sql.DB, opts ListJobsOpts) ([]StoredJob, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	now := time.Now().UTC()
	var since time.Time
	switch opts.Window {
	case "all":
	case "24h":
		since = now.Add(-24 * time.Hour)
	default:
		since = now.Add(-7 * 24 * time.Hour)
	}

	where := ""
	var args []any
	if !since.IsZero() {
		where = "WHERE first_seen >= ?"
		args = append(args, since.Format(time.RFC3339))
	}
	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
SELECT job_id, title, company, company_url, location, posted_date, posted_date_ts, salary, url,
       description, seniority_level, employment_type, job_function, industries, applicant_count, first_seen
FROM jobs
%s
ORDER BY first_seen DESC, job_id
LIMIT ?;
`, where)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredJob
	for rows.Next() {
		var j StoredJob
		var firstSeen string
		if err := rows.Scan(
			&j.JobID,
			&j.Title,
			&j.Company,
			&j.CompanyURL,
			&j.Location,
			&j.PostedDateText,
			&j.PostedDateTimestamp,
			&j.Salary,
			&j.URL,
			&j.Description,
			&j.SeniorityLevel,
			&j.EmploymentType,
			&j.JobFunction,
			&j.Industries,
			&j.ApplicantCount,
			&firstSeen,
		); err != nil {
			return nil, err
		}
		j.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CleanupOldJobs deletes jobs first seen more than olderThan ago.
func CleanupOldJobs(ctx context.Context, db *sql.DB, olderThan time.Duration) (deleted int64, err error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `
DELETE FROM jobs
WHERE first_seen < ?;
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
