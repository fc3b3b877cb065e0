package store

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // cgo-free sqlite driver

	"github.com/isdmx/evalbox/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS test_runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	implementation TEXT    NOT NULL,
	test_index     INTEGER NOT NULL,
	status         TEXT    NOT NULL,
	exit_code      INTEGER NOT NULL,
	duration_ms    INTEGER NOT NULL,
	message        TEXT    NOT NULL DEFAULT '',
	recorded_at    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_test_runs_impl ON test_runs(implementation);
`

// Entry is one recorded test execution
type Entry struct {
	Implementation string
	TestIndex      int
	Status         string
	ExitCode       int
	DurationMS     int64
	Message        string
	RecordedAt     time.Time
}

// Store records evaluation history in SQLite
type Store struct {
	logger *zap.Logger
	db     *sql.DB
}

// Open opens (creating if needed) the history database at the given path
func Open(logger *zap.Logger, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history db: %w", err)
	}

	return &Store{logger: logger, db: db}, nil
}

// RecordReport inserts one row per test result in the report
func (s *Store) RecordReport(report *runner.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO test_runs
		(implementation, test_index, status, exit_code, duration_ms, message, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	recordedAt := report.FinishedAt.UTC().Format(time.RFC3339)
	for _, res := range report.Results {
		if _, err := stmt.Exec(report.ImplementationID, res.Index, res.Status,
			res.ExitCode, res.DurationMS, res.Message, recordedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert test run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}

	s.logger.Debug("recorded run history",
		zap.String("implementation", report.ImplementationID),
		zap.Int("tests", len(report.Results)))
	return nil
}

// History returns all recorded executions for one implementation, newest first
func (s *Store) History(implID string) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT implementation, test_index, status, exit_code,
		duration_ms, message, recorded_at
		FROM test_runs WHERE implementation = ? ORDER BY id DESC`, implID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt string
		if err := rows.Scan(&e.Implementation, &e.TestIndex, &e.Status,
			&e.ExitCode, &e.DurationMS, &e.Message, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339, recordedAt); parseErr == nil {
			e.RecordedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
