package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore persists run history in MySQL or MariaDB, for hosts where
// several processes share one history.
//
// DSN format (github.com/go-sql-driver/mysql):
//
//	user:password@tcp(localhost:3306)/workflows
type MySQLStore struct {
	sqlStore
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS workflow_runs (
			run_id VARCHAR(64) NOT NULL PRIMARY KEY,
			workflow_id VARCHAR(64) NOT NULL,
			workflow_name VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL,
			start_ns BIGINT NOT NULL,
			end_ns BIGINT NOT NULL DEFAULT 0,
			total_nodes INT NOT NULL DEFAULT 0,
			successful_nodes INT NOT NULL DEFAULT 0,
			failed_nodes INT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL,
			INDEX idx_runs_workflow (workflow_id, start_ns)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		`CREATE TABLE IF NOT EXISTS workflow_steps (
			run_id VARCHAR(64) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(64) NOT NULL,
			node_type VARCHAR(64) NOT NULL DEFAULT '',
			title VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL,
			success BOOLEAN NOT NULL,
			message TEXT NOT NULL,
			error TEXT NOT NULL,
			output JSON NOT NULL,
			duration_ns BIGINT NOT NULL DEFAULT 0,
			recorded_ns BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	},
	upsertRun: `
		INSERT INTO workflow_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			workflow_id = VALUES(workflow_id),
			workflow_name = VALUES(workflow_name),
			status = VALUES(status),
			start_ns = VALUES(start_ns),
			end_ns = VALUES(end_ns),
			total_nodes = VALUES(total_nodes),
			successful_nodes = VALUES(successful_nodes),
			failed_nodes = VALUES(failed_nodes),
			error_message = VALUES(error_message)`,
	upsertStep: `
		INSERT INTO workflow_steps (run_id, step, node_id, node_type, title, status,
			success, message, error, output, duration_ns, recorded_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			node_id = VALUES(node_id),
			node_type = VALUES(node_type),
			title = VALUES(title),
			status = VALUES(status),
			success = VALUES(success),
			message = VALUES(message),
			error = VALUES(error),
			output = VALUES(output),
			duration_ns = VALUES(duration_ns),
			recorded_ns = VALUES(recorded_ns)`,
}

// NewMySQLStore connects to dsn, verifies the connection and creates the
// schema if needed.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{sqlStore: sqlStore{db: db, dialect: mysqlDialect}}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
