package workflow

// Error codes carried by EngineError and NodeError.
const (
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeExecutionFailed    = "EXECUTION_FAILED"
	CodeNodePanic          = "NODE_PANIC"
	CodeNodeTimeout        = "NODE_TIMEOUT"
	CodeRunTimeout         = "RUN_TIMEOUT"
	CodeDuplicateNode      = "DUPLICATE_NODE"
	CodeNodeNotFound       = "NODE_NOT_FOUND"
	CodeUnknownNodeType    = "UNKNOWN_NODE_TYPE"
	CodeInvalidOption      = "INVALID_OPTION"
	CodeInvalidDocument    = "INVALID_DOCUMENT"
)

var (
	// ErrCircularDependency indicates the connections form at least one cycle,
	// so no execution order exists.
	ErrCircularDependency = &EngineError{Code: CodeCircularDependency, Message: "workflow contains circular dependencies"}

	// ErrDuplicateNode indicates a node ID is already present in the workflow.
	ErrDuplicateNode = &EngineError{Code: CodeDuplicateNode, Message: "duplicate node ID"}

	// ErrNodeNotFound indicates a node ID does not exist in the workflow.
	ErrNodeNotFound = &EngineError{Code: CodeNodeNotFound, Message: "node not found"}

	// ErrUnknownNodeType indicates a registry has no constructor for a discriminator.
	ErrUnknownNodeType = &EngineError{Code: CodeUnknownNodeType, Message: "unknown node type"}

	// ErrInvalidDocument indicates a persisted workflow document could not be decoded.
	ErrInvalidDocument = &EngineError{Code: CodeInvalidDocument, Message: "invalid workflow document"}
)

// EngineError represents an error from workflow construction, loading or
// graph-level checks.
//
// Two EngineErrors match under errors.Is when their codes are equal, so
// callers can test against the package sentinels:
//
//	if errors.Is(err, workflow.ErrDuplicateNode) { ... }
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Is reports whether target is an EngineError with the same code.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// NodeError represents an error that occurred while validating or executing
// a node. It carries the node's identity and the underlying cause.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code for programmatic handling.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
