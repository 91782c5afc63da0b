package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/types"
)

// InsertRecordIgnore stores rec unless its job id is already present.
func InsertRecordIgnore(ctx context.Context, db *sql.DB, rec domain.JobRecord, seen time.Time) (added bool, err error) {
	res, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs (job_id, title, company, company_url, location, posted_date, posted_date_ts, salary, url,
  description, seniority_level, employment_type, job_function, industries, applicant_count, first_seen)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.JobID, rec.Title, rec.Company, rec.CompanyURL, rec.Location, rec.PostedDateText, rec.PostedDateTimestamp,
		rec.Salary, rec.URL, rec.Description, rec.SeniorityLevel, rec.EmploymentType, rec.JobFunction,
		rec.Industries, rec.ApplicantCount, seen.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Sink writes records into the SQLite dataset.
type Sink struct {
	db  *DB
	log *zap.Logger

	mu    sync.Mutex
	added int
}

var _ types.Sink = (*Sink)(nil)

func NewSink(db *DB, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{db: db, log: logger.Named("sqlite")}
}

func (s *Sink) Put(ctx context.Context, rec domain.JobRecord) error {
	added, err := InsertRecordIgnore(ctx, s.db.Pool, rec, time.Now())
	if err != nil {
		return apperrors.Sink("sqlite", err)
	}
	if added {
		s.mu.Lock()
		s.added++
		s.mu.Unlock()
	} else {
		s.log.Debug("job already stored", zap.String("job_id", rec.JobID))
	}
	return nil
}

// Added is the number of records this sink stored for the first time.
func (s *Sink) Added() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added
}

// SaveRun records a finished run's summary.
func SaveRun(ctx context.Context, db *sql.DB, sum types.Summary, added int) error {
	partial := 0
	if sum.Partial {
		partial = 1
	}
	_, err := db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (run_id, started_at, finished_at, reason, partial, records, added, pages, duplicates,
  dropped, detail_failures, total_available, limit_value, limit_source, last_error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		sum.RunID, sum.StartedAt.UTC().Format(time.RFC3339), sum.FinishedAt.UTC().Format(time.RFC3339),
		string(sum.Reason), partial, sum.Records, added, sum.Pages, sum.Duplicates, sum.Dropped,
		sum.DetailFailures, sum.TotalAvailable, sum.Limit, string(sum.LimitSource), sum.LastError,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run summary, or ok=false when none exists.
func LastRun(ctx context.Context, db *sql.DB) (sum types.Summary, added int, ok bool, err error) {
	var started, finished, reason, source string
	var partial int
	err = db.QueryRowContext(ctx, `
SELECT run_id, started_at, finished_at, reason, partial, records, added, pages, duplicates,
       dropped, detail_failures, total_available, limit_value, limit_source, last_error
FROM runs
ORDER BY started_at DESC
LIMIT 1;`).Scan(
		&sum.RunID, &started, &finished, &reason, &partial, &sum.Records, &added, &sum.Pages, &sum.Duplicates,
		&sum.Dropped, &sum.DetailFailures, &sum.TotalAvailable, &sum.Limit, &source, &sum.LastError,
	)
	if err == sql.ErrNoRows {
		return types.Summary{}, 0, false, nil
	}
	if err != nil {
		return types.Summary{}, 0, false, err
	}
	sum.StartedAt, _ = time.Parse(time.RFC3339, started)
	sum.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	sum.Reason = types.StopReason(reason)
	sum.LimitSource = types.LimitSource(source)
	sum.Partial = partial == 1
	return sum, added, true, nil
}
