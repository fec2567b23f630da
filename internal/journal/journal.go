package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Attempt is one recorded deploy attempt. The journal is a local audit trail
// only; dispatch decisions never consult it.
type Attempt struct {
	ID        int64
	FlowRunID string
	Backend   string
	Outcome   string // "submitted" or "failed"
	Message   string
	CreatedAt time.Time
}

// Journal persists deploy attempts to a local SQLite database.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS deploy_attempts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	flow_run_id TEXT NOT NULL,
	backend     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deploy_attempts_created ON deploy_attempts(created_at);
`

// Open opens (or creates) the journal database at dbPath. Use ":memory:"
// for an in-memory journal in tests.
func Open(dbPath string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Journal{
		db:     db,
		logger: logger.With("component", "journal"),
	}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one deploy attempt.
func (j *Journal) Record(ctx context.Context, a Attempt) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deploy_attempts (flow_run_id, backend, outcome, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.FlowRunID, a.Backend, a.Outcome, a.Message, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Recent returns the latest deploy attempts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, flow_run_id, backend, outcome, message, created_at
		FROM deploy_attempts
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var createdAt string
		if err := rows.Scan(&a.ID, &a.FlowRunID, &a.Backend, &a.Outcome, &a.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
