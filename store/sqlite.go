// ABOUTME: SQLite-backed run history index: one row per orchestrator run with outcome counts.
// ABOUTME: A queryable record of past runs for the dashboard, not the source of truth for session state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snu-geoshm/geotwin/pipeline"
)

// RunRecord is one pipeline run as recorded in the history index.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Succeeded   int       `json:"succeeded"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Report      string    `json:"report"` // JSON-encoded pipeline.Report
}

// RunIndex is the SQLite-backed run history store.
type RunIndex struct {
	db *sql.DB
}

// OpenRunIndex opens or creates the run history database at path and
// ensures the schema exists.
func OpenRunIndex(path string) (*RunIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			report TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id, started_at);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &RunIndex{db: db}, nil
}

// Close closes the database connection.
func (idx *RunIndex) Close() error {
	return idx.db.Close()
}

// Insert records one completed run.
func (idx *RunIndex) Insert(runID, sessionID string, report *pipeline.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	succeeded, skipped, failed := report.Counts()

	_, err = idx.db.Exec(
		`INSERT INTO runs (run_id, session_id, started_at, completed_at, succeeded, skipped, failed, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		sessionID,
		report.StartedAt.Format(time.RFC3339Nano),
		report.CompletedAt.Format(time.RFC3339Nano),
		succeeded,
		skipped,
		failed,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListBySession returns up to limit runs for a session, most recent first.
func (idx *RunIndex) ListBySession(sessionID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := idx.db.Query(
		`SELECT run_id, session_id, started_at, completed_at, succeeded, skipped, failed, report
		 FROM runs WHERE session_id = ? ORDER BY started_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, completed string
		if err := rows.Scan(&rec.RunID, &rec.SessionID, &started, &completed, &rec.Succeeded, &rec.Skipped, &rec.Failed, &rec.Report); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns the run with the given ID.
func (idx *RunIndex) Get(runID string) (*RunRecord, error) {
	row := idx.db.QueryRow(
		`SELECT run_id, session_id, started_at, completed_at, succeeded, skipped, failed, report
		 FROM runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var started, completed string
	err := row.Scan(&rec.RunID, &rec.SessionID, &started, &completed, &rec.Succeeded, &rec.Skipped, &rec.Failed, &rec.Report)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
	return &rec, nil
}
