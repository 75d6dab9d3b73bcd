package emit

// Event messages emitted by the workflow engine.
const (
	MsgRunStart    = "run_start"
	MsgRunEnd      = "run_end"
	MsgNodeStart   = "node_start"
	MsgNodeEnd     = "node_end"
	MsgNodeSkipped = "node_skipped"
	MsgLog         = "log"
	MsgStoreError  = "store_error"
)

// Event represents an observability event emitted during workflow execution.
//
// Common Meta keys:
//   - "status": node or run status ("Completed", "Failed", ...)
//   - "duration_ms": execution duration in milliseconds
//   - "error": error details
//   - "title", "node_type": node identity for node events
//   - "text": the line written to a node's log sink
type Event struct {
	// RunID identifies the workflow execution that emitted this event.
	RunID string

	// WorkflowID identifies the executed workflow.
	WorkflowID string

	// Step is the 1-indexed position of the node in the execution order.
	// Zero for run-level events.
	Step int

	// NodeID identifies which node emitted this event.
	// Empty string for run-level events.
	NodeID string

	// Msg is the event kind, one of the Msg* constants.
	Msg string

	// Meta contains additional structured data specific to this event.
	Meta map[string]interface{}
}
