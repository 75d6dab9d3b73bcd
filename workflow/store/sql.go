package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name       string
	schema     []string
	upsertRun  string
	upsertStep string
}

// sqlStore implements Store over database/sql. SQLiteStore and MySQLStore
// embed it and supply their dialect.
//
// Timestamps are stored as Unix nanoseconds so both backends share one
// encoding and no driver-specific time parsing is needed. Zero times are
// stored as 0.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	mu      sync.RWMutex
	closed  bool
}

func (s *sqlStore) createTables(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

func (s *sqlStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// SaveRun implements Store.
func (s *sqlStore) SaveRun(ctx context.Context, run RunRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.dialect.upsertRun,
		run.RunID, run.WorkflowID, run.WorkflowName, run.Status,
		toNanos(run.StartTime), toNanos(run.EndTime),
		run.TotalNodes, run.SuccessfulNodes, run.FailedNodes, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// SaveStep implements Store.
func (s *sqlStore) SaveStep(ctx context.Context, step StepRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if step.Output == nil {
		step.Output = map[string]interface{}{}
	}
	outputJSON, err := json.Marshal(step.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal step output: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.dialect.upsertStep,
		step.RunID, step.Step, step.NodeID, step.NodeType, step.Title, step.Status,
		step.Success, step.Message, step.Error, string(outputJSON),
		step.Duration.Nanoseconds(), toNanos(step.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

const runColumns = `run_id, workflow_id, workflow_name, status, start_ns, end_ns,
	total_nodes, successful_nodes, failed_nodes, error_message`

func scanRun(row interface{ Scan(...interface{}) error }) (RunRecord, error) {
	var (
		r              RunRecord
		startNs, endNs int64
	)
	err := row.Scan(&r.RunID, &r.WorkflowID, &r.WorkflowName, &r.Status, &startNs, &endNs,
		&r.TotalNodes, &r.SuccessfulNodes, &r.FailedNodes, &r.ErrorMessage)
	if err != nil {
		return RunRecord{}, err
	}
	r.StartTime = fromNanos(startNs)
	r.EndTime = fromNanos(endNs)
	return r, nil
}

// LoadRun implements Store.
func (s *sqlStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return RunRecord{}, err
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM workflow_runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run: %w", err)
	}
	return r, nil
}

// LoadSteps implements Store.
func (s *sqlStore) LoadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step, node_id, node_type, title, status, success, message, error,
			output, duration_ns, recorded_ns
		FROM workflow_steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	steps := make([]StepRecord, 0)
	for rows.Next() {
		var (
			st                     StepRecord
			outputJSON             string
			durationNs, recordedNs int64
		)
		if err := rows.Scan(&st.RunID, &st.Step, &st.NodeID, &st.NodeType, &st.Title, &st.Status,
			&st.Success, &st.Message, &st.Error, &outputJSON, &durationNs, &recordedNs); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(outputJSON), &st.Output); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step output: %w", err)
		}
		st.Duration = time.Duration(durationNs)
		st.RecordedAt = fromNanos(recordedNs)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps: %w", err)
	}
	return steps, nil
}

// ListRuns implements Store.
func (s *sqlStore) ListRuns(ctx context.Context, workflowID string, limit int) ([]RunRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query := "SELECT " + runColumns + " FROM workflow_runs"
	args := []interface{}{}
	if workflowID != "" {
		query += " WHERE workflow_id = ?"
		args = append(args, workflowID)
	}
	query += " ORDER BY start_ns DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Close implements Store. Closing twice is a no-op.
func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
