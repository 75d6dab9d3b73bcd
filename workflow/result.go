package workflow

import "time"

// ExecutionResult is the outcome of executing (or refusing to execute) one node.
type ExecutionResult struct {
	// Success is true when the node completed its work.
	Success bool

	// Message is a human-readable summary of what happened.
	Message string

	// Output holds values the node produced. On success the engine copies
	// every key into the run's variables as "{nodeID}.{key}".
	Output map[string]any

	// Err is the cause of a failure, if one is known.
	Err error

	// Status is the node's terminal state for this run. Nodes leave it empty;
	// the engine fills it in when recording the result.
	Status NodeStatus

	// Duration is the wall time spent in Execute, stamped by the engine.
	Duration time.Duration
}

// Succeeded builds a successful result. A nil output is replaced by an empty map.
func Succeeded(message string, output map[string]any) ExecutionResult {
	if output == nil {
		output = make(map[string]any)
	}
	return ExecutionResult{Success: true, Message: message, Output: output}
}

// Failed builds a failed result carrying the optional cause err.
func Failed(message string, err error) ExecutionResult {
	return ExecutionResult{Success: false, Message: message, Output: make(map[string]any), Err: err}
}

// RunStatus is the state of a whole workflow run.
type RunStatus string

const (
	RunRunning   RunStatus = "Running"
	RunCompleted RunStatus = "Completed"
	RunFailed    RunStatus = "Failed"
	RunCancelled RunStatus = "Cancelled"
)

// ExecutionSummary is the per-run report returned by Engine.ExecuteWorkflow.
//
// It is the sole channel through which a host explains the outcome of a run:
// success, which node failed and why, or that the run was cancelled.
type ExecutionSummary struct {
	// RunID uniquely identifies this execution.
	RunID string

	// WorkflowID is the ID of the executed workflow.
	WorkflowID string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Status is Running until the engine finishes, then exactly one of
	// Completed, Failed or Cancelled.
	Status RunStatus

	TotalNodes      int
	SuccessfulNodes int
	FailedNodes     int

	// ErrorMessage explains a Failed run.
	ErrorMessage string

	// Err is the structured cause of a Failed run: an *EngineError for
	// graph-level failures, otherwise the failing node's error.
	Err error

	// Order is the computed execution order (node IDs). Empty when the graph
	// contains a cycle.
	Order []string

	// NodeResults holds one entry per node the engine attempted.
	NodeResults map[string]ExecutionResult

	// NodeStatuses is the run-scoped lifecycle table. Every node of the
	// workflow starts at Ready; attempted nodes end in a terminal state.
	NodeStatuses map[string]NodeStatus
}

// Result returns the recorded result for nodeID.
func (s *ExecutionSummary) Result(nodeID string) (ExecutionResult, bool) {
	r, ok := s.NodeResults[nodeID]
	return r, ok
}

// NodeStatus returns the run-scoped status of nodeID.
func (s *ExecutionSummary) NodeStatus(nodeID string) NodeStatus {
	if st, ok := s.NodeStatuses[nodeID]; ok {
		return st
	}
	return StatusReady
}

// Progress is a record delivered to the progress sink, suitable for driving
// a progress bar.
type Progress struct {
	RunID            string
	CurrentNodeID    string
	CurrentNodeTitle string
	CompletedNodes   int
	TotalNodes       int
	Message          string
}

// PercentComplete returns CompletedNodes / TotalNodes * 100, or 0 for an
// empty workflow.
func (p Progress) PercentComplete() float64 {
	if p.TotalNodes <= 0 {
		return 0
	}
	return float64(p.CompletedNodes) / float64(p.TotalNodes) * 100
}

// ProgressFunc receives progress records. It is called synchronously from
// the goroutine running the workflow and must not block for long.
type ProgressFunc func(Progress)
