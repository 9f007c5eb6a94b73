// Package jobstore persists the logical job record: the job row, its
// per-item result slots, persisted evaluation scores, and immutable
// historical reports. SQLite-backed via the pure-Go modernc driver.
//
// Concurrency contract: the per-item slots are the only state mutated by
// concurrent fan-out branches, and every write is a targeted merge keyed by
// (job, phase, index): a slot transitions from absent to present exactly
// once and duplicate arrivals are no-ops. Progress is always derived from a
// count of populated slots, never carried as independent mutable state.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fairlens/fairlens/internal/domain"
)

// Store-specific errors.
var (
	// ErrJobNotFound indicates no job row for the given external job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrProjectNotFound indicates the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")
)

// Store wraps a SQLite database holding jobs, item results, evaluation
// scores, prompts and history reports.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the job database in dataDir and applies the
// schema. Pass ":memory:" for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "fairlens.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" under concurrent
	// activity retries; the busy timeout covers the rest.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS projects (
	project_id TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS jobs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id      TEXT NOT NULL UNIQUE,
	user_id     TEXT NOT NULL,
	project_id  TEXT NOT NULL,
	job_type    TEXT NOT NULL,
	status      TEXT NOT NULL,
	total_items INTEGER NOT NULL DEFAULT 0,
	config      TEXT,
	progress    TEXT NOT NULL DEFAULT '0/0',
	percent     INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS work_items (
	job_id   TEXT NOT NULL,
	idx      INTEGER NOT NULL,
	category TEXT NOT NULL,
	prompt   TEXT NOT NULL,
	response TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, idx)
);
CREATE TABLE IF NOT EXISTS item_results (
	job_id   TEXT NOT NULL,
	phase    TEXT NOT NULL,
	idx      INTEGER NOT NULL,
	success  INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	prompt   TEXT NOT NULL DEFAULT '',
	output   TEXT NOT NULL DEFAULT '',
	scores   TEXT,
	error    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, phase, idx)
);
CREATE TABLE IF NOT EXISTS prompts (
	position INTEGER PRIMARY KEY,
	category TEXT NOT NULL,
	prompt   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluation_scores (
	project_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	category   TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	scores     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (project_id, user_id, category, prompt)
);
CREATE TABLE IF NOT EXISTS history_reports (
	job_id     TEXT PRIMARY KEY,
	report     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	_, err := s.db.Exec(schema)
	return err
}

// CreateProject inserts or replaces a project ownership row.
func (s *Store) CreateProject(ctx context.Context, projectID, userID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, user_id, name) VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET user_id = excluded.user_id, name = excluded.name`,
		projectID, userID, name)
	return err
}

// ProjectOwner returns the owning user of a project, or ErrProjectNotFound.
func (s *Store) ProjectOwner(ctx context.Context, projectID string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM projects WHERE project_id = ?`, projectID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrProjectNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying project owner: %w", err)
	}
	return userID, nil
}

// CreateJob inserts a new job row in its initial status.
func (s *Store) CreateJob(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	cfg, err := marshalNullable(job.Config)
	if err != nil {
		return fmt.Errorf("encoding job config: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, user_id, project_id, job_type, status, total_items, config, progress, percent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.UserID, job.ProjectID, string(job.JobType), string(job.Status),
		job.TotalItems, cfg, job.Progress, job.Percent)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// GetJob loads a job by its external correlation key.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, user_id, project_id, job_type, status, total_items, config, progress, percent, created_at, updated_at
		 FROM jobs WHERE job_id = ?`, jobID)

	var job domain.Job
	var jobType, status string
	var cfg sql.NullString
	err := row.Scan(&job.ID, &job.JobID, &job.UserID, &job.ProjectID, &jobType, &status,
		&job.TotalItems, &cfg, &job.Progress, &job.Percent, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying job: %w", err)
	}

	job.JobType = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	if cfg.Valid && cfg.String != "" {
		var ec domain.EndpointConfig
		if err := unmarshalString(cfg.String, &ec); err != nil {
			return nil, fmt.Errorf("decoding job config: %w", err)
		}
		job.Config = &ec
	}
	return &job, nil
}

// SetTotalItems records the fan-out size. Set once, before dispatch begins.
func (s *Store) SetTotalItems(ctx context.Context, jobID string, total int) error {
	return s.execJob(ctx, jobID,
		`UPDATE jobs SET total_items = ?, updated_at = CURRENT_TIMESTAMP WHERE job_id = ?`,
		total, jobID)
}

// UpdateStatus advances the job's status through the state machine.
// Setting the current status again is an idempotent no-op; a transition the
// state machine forbids returns ErrInvalidTransition.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, next domain.JobStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning status transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE job_id = ?`, jobID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("reading job status: %w", err)
	}

	cur := domain.JobStatus(current)
	if cur == next {
		return tx.Commit() // Duplicate delivery; nothing to do.
	}
	if !cur.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur, next)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE job_id = ?`,
		string(next), jobID); err != nil {
		return fmt.Errorf("updating job status: %w", err)
	}
	return tx.Commit()
}

// SetProgress records derived progress. Percent never regresses: the stored
// value is the max of the current and incoming values, clamped to [0,100].
func (s *Store) SetProgress(ctx context.Context, jobID, progress string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return s.execJob(ctx, jobID,
		`UPDATE jobs SET progress = ?, percent = MAX(percent, ?), updated_at = CURRENT_TIMESTAMP WHERE job_id = ?`,
		progress, percent, jobID)
}

// execJob runs an UPDATE scoped to one job and maps zero affected rows to
// ErrJobNotFound.
func (s *Store) execJob(ctx context.Context, jobID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}
