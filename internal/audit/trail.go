// Package audit persists a trail of executed tool directives in SQLite.
// The trail answers "what did the agent do to this workspace and when"
// after the fact, independent of the in-memory conversation history.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeloop/internal/logging"

	_ "modernc.org/sqlite"
)

// Record is one executed directive.
type Record struct {
	SessionID string
	TurnID    string
	Kind      string
	Path      string
	Status    string // success or error
	Detail    string // result output or error message, truncated
	Duration  time.Duration
	CreatedAt time.Time
}

// maxDetailBytes bounds stored output so a huge command dump cannot bloat
// the trail.
const maxDetailBytes = 4096

// Trail is a SQLite-backed audit log.
type Trail struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open initializes the trail database at the given path, creating the
// schema when missing.
func Open(path string) (*Trail, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	t := &Trail{db: db, dbPath: path}
	if err := t.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Audit("audit trail opened: %s", path)
	return t, nil
}

func (t *Trail) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		path TEXT,
		status TEXT NOT NULL,
		detail TEXT,
		duration_ms INTEGER,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tool_exec_session ON tool_executions(session_id);
	CREATE INDEX IF NOT EXISTS idx_tool_exec_turn ON tool_executions(turn_id);
	`
	if _, err := t.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// Append writes a record. Failures are the caller's to swallow: auditing
// must never break tool execution.
func (t *Trail) Append(rec Record) error {
	detail := rec.Detail
	if len(detail) > maxDetailBytes {
		detail = detail[:maxDetailBytes]
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.db.Exec(
		`INSERT INTO tool_executions
			(session_id, turn_id, kind, path, status, detail, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.TurnID, rec.Kind, rec.Path,
		rec.Status, detail, rec.Duration.Milliseconds(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// BySession returns the most recent records for a session, newest first.
func (t *Trail) BySession(sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.db.Query(
		`SELECT session_id, turn_id, kind, path, status, detail, duration_ms, created_at
		 FROM tool_executions
		 WHERE session_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var durationMs int64
		if err := rows.Scan(
			&rec.SessionID, &rec.TurnID, &rec.Kind, &rec.Path,
			&rec.Status, &rec.Detail, &durationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (t *Trail) Close() error {
	return t.db.Close()
}
