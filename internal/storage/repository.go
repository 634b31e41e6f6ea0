// Package storage records analysis jobs in SQLite so their outcome can be
// looked up after the worker has finished.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"courtstats/internal/core"

	_ "modernc.org/sqlite"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// Job is one analysis job and, once finished, its outcome.
type Job struct {
	ID            string            `json:"job_id"`
	SourceRef     string            `json:"source_ref"`
	Status        string            `json:"status"`
	IncludeOrders bool              `json:"include_orders,omitempty"`
	Summary       *core.Statistics  `json:"summary,omitempty"`
	Health        *core.HealthGauge `json:"health,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Error         string            `json:"error,omitempty"`
	RequestedAt   time.Time         `json:"requested_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// JobResult is what the worker learns about a job.
type JobResult struct {
	SourceRef   string
	Summary     core.Statistics
	Health      core.HealthGauge
	Warnings    []string
	Error       string
	CompletedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The server and the worker may share one file.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateJob records a queued job.
func (r *SQLiteRepository) CreateJob(ctx context.Context, id, sourceRef string, includeOrders bool, requestedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (id, source_ref, status, include_orders, requested_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, sourceRef, StatusQueued, includeOrders, requestedAt.UTC())
	if err != nil {
		return fmt.Errorf("create job %s: %w", id, err)
	}
	return nil
}

// CompleteJob stores the outcome of a job. A job the server never recorded
// is inserted, so the worker can run against a separate database.
func (r *SQLiteRepository) CompleteJob(ctx context.Context, id string, res JobResult) error {
	status := StatusCompleted
	var summary, health sql.NullString
	if res.Error != "" {
		status = StatusFailed
	} else {
		var err error
		if summary, err = jsonColumn(res.Summary); err != nil {
			return err
		}
		if health, err = jsonColumn(res.Health); err != nil {
			return err
		}
	}
	var warnings sql.NullString
	if len(res.Warnings) > 0 {
		var err error
		if warnings, err = jsonColumn(res.Warnings); err != nil {
			return err
		}
	}
	completed := res.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (id, source_ref, status, summary_json, health_json, warnings_json, error, requested_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			summary_json = excluded.summary_json,
			health_json = excluded.health_json,
			warnings_json = excluded.warnings_json,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		id, res.SourceRef, status, summary, health, warnings, res.Error, completed.UTC(), completed.UTC())
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// GetJob returns ErrJobNotFound for unknown ids.
func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (Job, error) {
	row := r.db.QueryRowContext(ctx, selectJobs+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns the most recently requested jobs first.
func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, selectJobs+` ORDER BY requested_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// PruneJobs deletes finished jobs completed before cutoff.
func (r *SQLiteRepository) PruneJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM analysis_jobs WHERE status != ? AND completed_at < ?`,
		StatusQueued, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

const selectJobs = `
	SELECT id, source_ref, status, include_orders, summary_json, health_json,
	       warnings_json, error, requested_at, completed_at
	FROM analysis_jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (Job, error) {
	var (
		job                       Job
		summary, health, warnings sql.NullString
		completed                 sql.NullTime
	)
	if err := s.Scan(&job.ID, &job.SourceRef, &job.Status, &job.IncludeOrders,
		&summary, &health, &warnings, &job.Error, &job.RequestedAt, &completed); err != nil {
		return Job{}, err
	}
	if summary.Valid {
		job.Summary = new(core.Statistics)
		if err := json.Unmarshal([]byte(summary.String), job.Summary); err != nil {
			return Job{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	if health.Valid {
		job.Health = new(core.HealthGauge)
		if err := json.Unmarshal([]byte(health.String), job.Health); err != nil {
			return Job{}, fmt.Errorf("decode health: %w", err)
		}
	}
	if warnings.Valid {
		if err := json.Unmarshal([]byte(warnings.String), &job.Warnings); err != nil {
			return Job{}, fmt.Errorf("decode warnings: %w", err)
		}
	}
	if completed.Valid {
		t := completed.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func jsonColumn(v any) (sql.NullString, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
