package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
	apperrors "jobscout-engine/internal/errors"
	"jobscout-engine/internal/scrape/types"
)

// NewPostgresPool creates a pool and checks the connection.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres url is required")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS linkedin_jobs (
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
  first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresSink writes records into a shared Postgres dataset. Rows already
// present are left untouched.
type PostgresSink struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ types.Sink = (*PostgresSink)(nil)

func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*PostgresSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create linkedin_jobs: %w", err)
	}
	return &PostgresSink{pool: pool, log: logger.Named("postgres")}, nil
}

func (s *PostgresSink) Put(ctx context.Context, rec domain.JobRecord) error {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO linkedin_jobs (job_id, title, company, company_url, location, posted_date, posted_date_ts, salary, url,
  description, seniority_level, employment_type, job_function, industries, applicant_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (job_id) DO NOTHING`,
		rec.JobID, rec.Title, rec.Company, rec.CompanyURL, rec.Location, rec.PostedDateText, rec.PostedDateTimestamp,
		rec.Salary, rec.URL, rec.Description, rec.SeniorityLevel, rec.EmploymentType, rec.JobFunction,
		rec.Industries, rec.ApplicantCount,
	)
	if err != nil {
		return apperrors.Sink(fmt.Sprintf("postgres insert (job %s)", rec.JobID), err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Debug("job already stored", zap.String("job_id", rec.JobID))
	}
	return nil
}
