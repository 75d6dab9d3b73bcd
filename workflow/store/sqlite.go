package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists run history in a SQLite database file using the
// pure-Go modernc.org/sqlite driver (no cgo).
//
// The database is opened in WAL mode with a single connection, which suits a
// CLI or a single-process host. Use ":memory:" for a throwaway database.
type SQLiteStore struct {
	sqlStore
	path string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS workflow_runs (
			run_id TEXT NOT NULL PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			workflow_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			start_ns INTEGER NOT NULL,
			end_ns INTEGER NOT NULL DEFAULT 0,
			total_nodes INTEGER NOT NULL DEFAULT 0,
			successful_nodes INTEGER NOT NULL DEFAULT 0,
			failed_nodes INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_workflow ON workflow_runs(workflow_id, start_ns)`,
		`CREATE TABLE IF NOT EXISTS workflow_steps (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			node_type TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			success INTEGER NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			recorded_ns INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, step)
		)`,
	},
	upsertRun: `
		INSERT INTO workflow_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			workflow_id = excluded.workflow_id,
			workflow_name = excluded.workflow_name,
			status = excluded.status,
			start_ns = excluded.start_ns,
			end_ns = excluded.end_ns,
			total_nodes = excluded.total_nodes,
			successful_nodes = excluded.successful_nodes,
			failed_nodes = excluded.failed_nodes,
			error_message = excluded.error_message`,
	upsertStep: `
		INSERT INTO workflow_steps (run_id, step, node_id, node_type, title, status,
			success, message, error, output, duration_ns, recorded_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			node_id = excluded.node_id,
			node_type = excluded.node_type,
			title = excluded.title,
			status = excluded.status,
			success = excluded.success,
			message = excluded.message,
			error = excluded.error,
			output = excluded.output,
			duration_ns = excluded.duration_ns,
			recorded_ns = excluded.recorded_ns`,
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{sqlStore: sqlStore{db: db, dialect: sqliteDialect}, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }
