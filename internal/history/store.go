// Package history keeps a SQLite ledger of conversion jobs.
//
// Every Convert call is recorded, so interchange artifacts retained after
// packaging failures can be listed and cleaned up by an operator.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/fileutil"
)

// DefaultLimit is the number of jobs List returns when limit <= 0.
const DefaultLimit = 20

// timeLayout keeps every stored timestamp the same width, so text order in
// SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrEmptyPath is returned by Open when no database path is given.
var ErrEmptyPath = errors.New("history database path is empty")

// Compile-time check that Store can be passed to doc2pub.WithRecorder.
var _ doc2pub.Recorder = (*Store)(nil)

// Store is the job ledger. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), fileutil.DirPerm); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			format TEXT,
			output TEXT,
			state TEXT NOT NULL,
			failed_stage TEXT,
			retained TEXT,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_retained ON jobs(retained) WHERE retained != ''`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordJob stores rec, replacing an earlier record with the same ID.
func (s *Store) RecordJob(ctx context.Context, rec doc2pub.JobRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs
			(id, input, format, output, state, failed_stage, retained, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Input, rec.Format, rec.Output, rec.State, rec.FailedStage,
		rec.Retained, rec.Error, formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("recording job %s: %w", rec.ID, err)
	}
	return nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]doc2pub.JobRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, format, output, state, failed_stage, retained, error, started_at, finished_at
		FROM jobs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return scanRecords(rows)
}

// Retained returns failed jobs whose retained interchange is still on disk,
// oldest first.
func (s *Store) Retained(ctx context.Context) ([]doc2pub.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, format, output, state, failed_stage, retained, error, started_at, finished_at
		FROM jobs WHERE retained != '' ORDER BY started_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing retained artifacts: %w", err)
	}
	all, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	kept := all[:0]
	for _, rec := range all {
		if fileutil.FileExists(rec.Retained) {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

// Forget clears the retained path of a job, typically after the artifact
// was removed.
func (s *Store) Forget(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE jobs SET retained = '' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]doc2pub.JobRecord, error) {
	defer func() { _ = rows.Close() }()

	var records []doc2pub.JobRecord
	for rows.Next() {
		var rec doc2pub.JobRecord
		var format, output, failedStage, retained, errText, finished sql.NullString
		var started string
		if err := rows.Scan(&rec.ID, &rec.Input, &format, &output, &rec.State,
			&failedStage, &retained, &errText, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		rec.Format = format.String
		rec.Output = output.String
		rec.FailedStage = failedStage.String
		rec.Retained = retained.String
		rec.Error = errText.String
		rec.StartedAt = parseTime(started)
		rec.FinishedAt = parseTime(finished.String)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
