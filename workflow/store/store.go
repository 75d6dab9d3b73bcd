// Package store persists workflow run history.
//
// The engine writes a RunRecord when a run starts and again when it ends,
// and a StepRecord after every node it attempts. Hosts read the history back
// to list past runs or explain a failure after the fact.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("store is closed")

// Store persists run and step records.
//
// Implementations must be safe for concurrent use: independent runs may share
// one store. SaveRun and SaveStep are upserts, keyed by RunID and by
// (RunID, Step) respectively.
type Store interface {
	// SaveRun inserts or replaces the record for run.RunID.
	SaveRun(ctx context.Context, run RunRecord) error

	// SaveStep inserts or replaces the record for (step.RunID, step.Step).
	SaveStep(ctx context.Context, step StepRecord) error

	// LoadRun returns the record for runID, or ErrNotFound.
	LoadRun(ctx context.Context, runID string) (RunRecord, error)

	// LoadSteps returns the steps of runID ordered by step number.
	// An unknown run yields an empty slice.
	LoadSteps(ctx context.Context, runID string) ([]StepRecord, error)

	// ListRuns returns runs newest first. An empty workflowID lists runs of
	// every workflow; limit <= 0 means no limit.
	ListRuns(ctx context.Context, workflowID string, limit int) ([]RunRecord, error)

	// Close releases the store's resources.
	Close() error
}

// RunRecord is the persisted summary of one workflow run.
type RunRecord struct {
	RunID           string
	WorkflowID      string
	WorkflowName    string
	Status          string
	StartTime       time.Time
	EndTime         time.Time
	TotalNodes      int
	SuccessfulNodes int
	FailedNodes     int
	ErrorMessage    string
}

// StepRecord is the persisted outcome of one node attempt.
type StepRecord struct {
	RunID    string
	Step     int
	NodeID   string
	NodeType string
	Title    string
	Status   string
	Success  bool
	Message  string
	Error    string

	// Output is stored as JSON; values come back as JSON types
	// (float64 for numbers, []interface{} for lists).
	Output map[string]interface{}

	Duration   time.Duration
	RecordedAt time.Time
}
