// Package store persists run history: one summary row per completed run and
// a status log row tracking its lifecycle. The core pipeline never reads this
// data back; it exists for operators and for re-rendering old reports.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkraskou/bankbench/internal/schema"
)

const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	characteristics TEXT NOT NULL,
	products TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	action TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id);
CREATE INDEX IF NOT EXISTS idx_logs_user ON logs(user_id);
`

// Store wraps the sqlite run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary is what survives a run: who asked, what was selected, and the
// full record payload.
type RunSummary struct {
	UserID          int64
	CreatedAt       time.Time
	Characteristics string // comma-joined field names
	Products        string // comma-joined product names
	Payload         []schema.Record
}

// SaveRun stores a completed run's summary and returns its row id.
func (s *Store) SaveRun(ctx context.Context, run RunSummary) (int64, error) {
	payload, err := json.Marshal(run.Payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (user_id, created_at, characteristics, products, payload) VALUES (?, ?, ?, ?, ?)`,
		run.UserID, created.Format(time.RFC3339), run.Characteristics, run.Products, string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// LoadPayload reads back the record payload of a stored run.
func (s *Store) LoadPayload(ctx context.Context, runID int64) ([]schema.Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, runID).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", runID, err)
	}
	var out []schema.Record
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode run %d payload: %w", runID, err)
	}
	return out, nil
}

// BeginLog opens a lifecycle log row in status "new" and returns its id.
func (s *Store) BeginLog(ctx context.Context, userID int64, action string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (user_id, created_at, action, status) VALUES (?, ?, ?, 'new')`,
		userID, time.Now().UTC().Format(time.RFC3339), action)
	if err != nil {
		return 0, fmt.Errorf("insert log: %w", err)
	}
	return res.LastInsertId()
}

// UpdateLog advances a log row's status; message may be empty.
func (s *Store) UpdateLog(ctx context.Context, logID int64, status, message string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE logs SET status = ?, message = ? WHERE id = ?`, status, message, logID)
	if err != nil {
		return fmt.Errorf("update log %d: %w", logID, err)
	}
	return nil
}

// LogStatus reads a log row's current status, mainly for tests and tooling.
func (s *Store) LogStatus(ctx context.Context, logID int64) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM logs WHERE id = ?`, logID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("load log %d: %w", logID, err)
	}
	return status, nil
}
