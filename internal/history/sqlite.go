// Package history keeps per-run reporting state in SQLite: one row per run
// and one row per send attempt. The CSV ledger stays the authoritative
// resume source; history exists for querying past runs.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
)

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  started_at DATETIME NOT NULL,
  finished_at DATETIME,
  total INTEGER NOT NULL DEFAULT 0,
  sent INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  stop_reason TEXT
);
CREATE TABLE IF NOT EXISTS attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  phone TEXT NOT NULL,
  status TEXT NOT NULL CHECK(status IN ('sent','failed')),
  note TEXT,
  at DATETIME NOT NULL,
  FOREIGN KEY(run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id, at);
`
	_, err := db.Exec(schema)
	return err
}

// Attempt is one recorded send attempt.
type Attempt struct {
	ID     int64                `json:"id"`
	RunID  string               `json:"run_id"`
	Phone  string               `json:"phone"`
	Status domain.AttemptStatus `json:"status"`
	Note   string               `json:"note,omitempty"`
	At     time.Time            `json:"at"`
}

type Store interface {
	StartRun(ctx context.Context, runID string, total int, startedAt time.Time) error
	RecordAttempt(ctx context.Context, runID, phone string, status domain.AttemptStatus, note string, at time.Time) error
	FinishRun(ctx context.Context, summary domain.RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	RecentAttempts(ctx context.Context, limit int) ([]Attempt, error)
}

type sqliteStore struct{ db *sql.DB }

func NewStore(db *sql.DB) Store { return &sqliteStore{db: db} }

func (s *sqliteStore) StartRun(ctx context.Context, runID string, total int, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, started_at, total) VALUES (?,?,?)`, runID, startedAt, total)
	return err
}

func (s *sqliteStore) RecordAttempt(ctx context.Context, runID, phone string, status domain.AttemptStatus, note string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO attempts (run_id, phone, status, note, at) VALUES (?,?,?,?,?)`,
		runID, phone, string(status), note, at)
	return err
}

func (s *sqliteStore) FinishRun(ctx context.Context, summary domain.RunSummary) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE runs SET finished_at=?, sent=?, failed=?, skipped=?, stop_reason=? WHERE id=?`,
		summary.FinishedAt, summary.Sent, summary.Failed, summary.Skipped, string(summary.StopReason), summary.ID)
	return err
}

func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, finished_at, total, sent, failed, skipped, stop_reason
FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var finished sql.NullTime
		var reason sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Total, &r.Sent, &r.Failed, &r.Skipped, &reason); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		if reason.Valid {
			r.StopReason = domain.StopReason(reason.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *sqliteStore) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, phone, status, note, at
FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var note sql.NullString
		if err := rows.Scan(&a.ID, &a.RunID, &a.Phone, &a.Status, &note, &a.At); err != nil {
			return nil, err
		}
		if note.Valid {
			a.Note = note.String
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
