// Package history persists run outcomes and non-fatal anomalies to a
// local sqlite database, so past routines can be inspected after the
// fact.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	detail      TEXT
);
CREATE TABLE IF NOT EXISTS anomalies (
	run_id TEXT NOT NULL,
	at     TIMESTAMP NOT NULL,
	kind   TEXT NOT NULL,
	detail TEXT,
	FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id);
`

// Run is one recorded scheduling run.
type Run struct {
	ID         string
	Mode       string // "offline" or "live"
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Detail     string
}

// Anomaly is a non-fatal irregularity recorded during a run.
type Anomaly struct {
	RunID  string
	At     time.Time
	Kind   string
	Detail string
}

// Store wraps the sqlite database. A nil *Store is valid and makes every
// method a no-op, so callers can wire history unconditionally.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(id, mode string, startedAt time.Time) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, mode, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, mode, startedAt)
	return err
}

// FinishRun records a run's terminal status.
func (s *Store) FinishRun(id, status, detail string, finishedAt time.Time) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, detail = ?, finished_at = ? WHERE id = ?`,
		status, detail, finishedAt, id)
	return err
}

// RecordAnomaly stores a non-fatal anomaly against a run.
func (s *Store) RecordAnomaly(runID, kind, detail string, at time.Time) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO anomalies (run_id, at, kind, detail) VALUES (?, ?, ?, ?)`,
		runID, at, kind, detail)
	return err
}

// RecentRuns returns the most recent n runs, newest first.
func (s *Store) RecentRuns(n int) ([]Run, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, mode, status, started_at, finished_at, COALESCE(detail, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Mode, &r.Status, &r.StartedAt, &finished, &r.Detail); err != nil {
			return nil, err
		}
		// A run still in flight reports its start as the last known
		// instant. The NULL handling stays in Go: a computed column
		// loses its decltype and the driver then scans it as a string.
		r.FinishedAt = r.StartedAt
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Anomalies returns all anomalies recorded for a run.
func (s *Store) Anomalies(runID string) ([]Anomaly, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT run_id, at, kind, COALESCE(detail, '') FROM anomalies WHERE run_id = ? ORDER BY at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Anomaly
	for rows.Next() {
		var a Anomaly
		if err := rows.Scan(&a.RunID, &a.At, &a.Kind, &a.Detail); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
