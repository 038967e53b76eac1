package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database under logDir.
func Open(logDir string) (*Store, error) {
	dbPath := filepath.Join(logDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, started_at, input_dir, output_dir, dry_run)
         VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.InputDir,
		run.OutputDir,
		boolInt(run.DryRun),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the completion time and totals for a run and
// appends its job outcomes.
func (s *Store) FinishRun(ctx context.Context, run Run, jobs []JobRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, directories = ?, jobs_total = ?,
            jobs_succeeded = ?, jobs_failed = ?, jobs_skipped = ?
         WHERE id = ?`,
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Directories,
		run.JobsTotal,
		run.JobsSucceeded,
		run.JobsFailed,
		run.JobsSkipped,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	for _, job := range jobs {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO run_jobs (run_id, seq, kind, source, dest, status, detail)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			job.Seq,
			job.Kind,
			job.Source,
			job.Dest,
			job.Status,
			nullableString(job.Detail),
		)
		if err != nil {
			return fmt.Errorf("insert run job %d: %w", job.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish tx: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, started_at, finished_at, input_dir, output_dir, dry_run,
            directories, jobs_total, jobs_succeeded, jobs_failed, jobs_skipped
         FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			finishedAt sql.NullString
			dryRun     int
		)
		if err := rows.Scan(
			&run.ID, &startedAt, &finishedAt, &run.InputDir, &run.OutputDir, &dryRun,
			&run.Directories, &run.JobsTotal, &run.JobsSucceeded, &run.JobsFailed, &run.JobsSkipped,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.DryRun = dryRun != 0
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finishedAt.Valid && finishedAt.String != "" {
			if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt.String); err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunJobs returns the job outcomes recorded for a run in dispatch
// order.
func (s *Store) RunJobs(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT seq, kind, source, dest, status, detail
         FROM run_jobs WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		var (
			job    JobRecord
			detail sql.NullString
		)
		if err := rows.Scan(&job.Seq, &job.Kind, &job.Source, &job.Dest, &job.Status, &detail); err != nil {
			return nil, fmt.Errorf("scan run job: %w", err)
		}
		job.Detail = detail.String
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run jobs: %w", err)
	}
	return jobs, nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
