// Package history provides an append-only SQLite audit log of plugin
// invocations.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one completed invocation.
type Record struct {
	ID         int64         `json:"id"`
	TraceID    string        `json:"traceId"`
	PluginType string        `json:"pluginType"`
	PluginName string        `json:"pluginName"`
	SessionID  string        `json:"session"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"startedAt"`
}

// Store is a SQLite-backed invocation log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at the given path and runs
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// one writer at a time; the sqlite driver multiplexes poorly otherwise
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id    TEXT NOT NULL,
	plugin_type TEXT NOT NULL,
	plugin_name TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	started_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run history migrations: %w", err)
	}
	return nil
}

// Append records one invocation.
func (s *Store) Append(ctx context.Context, rec Record) error {
	const insert = `
INSERT INTO invocations (trace_id, plugin_type, plugin_name, session_id, status, error, duration_ms, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, insert,
		rec.TraceID, rec.PluginType, rec.PluginName, rec.SessionID,
		rec.Status, rec.Error, rec.Duration.Milliseconds(), rec.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append invocation record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, trace_id, plugin_type, plugin_name, session_id, status, error, duration_ms, started_at
FROM invocations ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocation records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.TraceID, &rec.PluginType, &rec.PluginName,
			&rec.SessionID, &rec.Status, &rec.Error, &durationMS, &rec.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
