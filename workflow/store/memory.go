package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and one-shot CLI runs.
//
// Step outputs are round-tripped through JSON on save so that reads observe
// the same value types a database-backed store would return.
type MemStore struct {
	mu     sync.RWMutex
	runs   map[string]RunRecord
	steps  map[string]map[int]StepRecord
	closed bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:  make(map[string]RunRecord),
		steps: make(map[string]map[int]StepRecord),
	}
}

// SaveRun implements Store.
func (m *MemStore) SaveRun(ctx context.Context, run RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.runs[run.RunID] = run
	return nil
}

// SaveStep implements Store.
func (m *MemStore) SaveStep(ctx context.Context, step StepRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	output, err := normalizeOutput(step.Output)
	if err != nil {
		return err
	}
	step.Output = output

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.steps[step.RunID] == nil {
		m.steps[step.RunID] = make(map[int]StepRecord)
	}
	m.steps[step.RunID][step.Step] = step
	return nil
}

// LoadRun implements Store.
func (m *MemStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return RunRecord{}, ErrClosed
	}
	run, ok := m.runs[runID]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	return run, nil
}

// LoadSteps implements Store.
func (m *MemStore) LoadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]StepRecord, 0, len(m.steps[runID]))
	for _, s := range m.steps[runID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// ListRuns implements Store.
func (m *MemStore) ListRuns(ctx context.Context, workflowID string, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		if workflowID == "" || r.WorkflowID == workflowID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func normalizeOutput(output map[string]interface{}) (map[string]interface{}, error) {
	if output == nil {
		return map[string]interface{}{}, nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step output: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step output: %w", err)
	}
	return out, nil
}
