package workflow

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/dshills/workflow-go/workflow/emit"
)

// ExecutionContext is the per-run state threaded through every node.
//
// It carries:
//   - Variables: outputs of nodes that already completed, keyed "{nodeID}.{key}"
//   - Global parameters copied from the workflow at run start
//   - A progress sink and a log sink
//
// The run's cancellation signal is the context.Context passed to Node.Execute
// alongside the ExecutionContext.
//
// Variables are append-only within a run. Nodes execute strictly one after
// another, so writes never race with node reads; the mutex only protects
// nodes that read the context from goroutines of their own.
type ExecutionContext struct {
	runID      string
	workflowID string

	mu        sync.RWMutex
	variables map[string]any
	globals   map[string]any

	progress ProgressFunc
	logger   *slog.Logger
	emitter  emit.Emitter

	// current node, maintained by the engine for log and progress attribution
	step      int
	nodeID    string
	nodeTitle string
	completed int
	total     int
}

// NewExecutionContext creates a context for one run. The engine builds one per
// ExecuteWorkflow call; tests and hosts running single nodes can use it too.
// Nil progress, logger and emitter are allowed.
func NewExecutionContext(runID string, wf *Workflow, progress ProgressFunc, logger *slog.Logger, emitter emit.Emitter) *ExecutionContext {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ec := &ExecutionContext{
		runID:     runID,
		variables: make(map[string]any),
		globals:   make(map[string]any),
		progress:  progress,
		logger:    logger,
		emitter:   emitter,
	}
	if wf != nil {
		ec.workflowID = wf.ID
		ec.total = len(wf.nodes)
		for k, v := range wf.GlobalParameters {
			ec.globals[k] = v.Interface()
		}
	}
	return ec
}

// RunID returns the identifier of the current run.
func (ec *ExecutionContext) RunID() string { return ec.runID }

// WorkflowID returns the identifier of the executing workflow.
func (ec *ExecutionContext) WorkflowID() string { return ec.workflowID }

// Variable returns the value a prior node emitted under "{nodeID}.{key}".
func (ec *ExecutionContext) Variable(name string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.variables[name]
	return v, ok
}

// Variables returns a snapshot of all variables.
func (ec *ExecutionContext) Variables() map[string]any {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make(map[string]any, len(ec.variables))
	for k, v := range ec.variables {
		out[k] = v
	}
	return out
}

// Global returns a global parameter.
func (ec *ExecutionContext) Global(name string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.globals[name]
	return v, ok
}

var referencePattern = regexp.MustCompile(`\$\{([^{}]+)\}`)

// Expand replaces ${name} references in s with variables or global
// parameters. Variables win over globals; unknown references expand to "".
// A lone "$" is left alone.
//
//	ec.Expand("Result: ${calc-1.result}")
func (ec *ExecutionContext) Expand(s string) string {
	return referencePattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := strings.TrimSpace(ref[2 : len(ref)-1])
		if v, ok := ec.Variable(name); ok {
			return fmt.Sprint(v)
		}
		if v, ok := ec.Global(name); ok {
			return fmt.Sprint(v)
		}
		return ""
	})
}

// Log writes a message to the run's log sink. The line is attributed to the
// node currently executing and forwarded to the engine's emitter as a "log"
// event.
func (ec *ExecutionContext) Log(msg string, args ...any) {
	ec.logger.Info(msg, append([]any{"run_id", ec.runID, "node_id", ec.nodeID}, args...)...)
	if ec.emitter != nil {
		meta := map[string]interface{}{"text": msg}
		for i := 0; i+1 < len(args); i += 2 {
			if key, ok := args[i].(string); ok {
				meta[key] = args[i+1]
			}
		}
		ec.emitter.Emit(emit.Event{
			RunID:      ec.runID,
			WorkflowID: ec.workflowID,
			Step:       ec.step,
			NodeID:     ec.nodeID,
			Msg:        emit.MsgLog,
			Meta:       meta,
		})
	}
}

// ReportProgress sends an intermediate progress record for the current node,
// for nodes that want to surface sub-steps of a long operation.
func (ec *ExecutionContext) ReportProgress(message string) {
	ec.report(message)
}

func (ec *ExecutionContext) report(message string) {
	if ec.progress == nil {
		return
	}
	ec.progress(Progress{
		RunID:            ec.runID,
		CurrentNodeID:    ec.nodeID,
		CurrentNodeTitle: ec.nodeTitle,
		CompletedNodes:   ec.completed,
		TotalNodes:       ec.total,
		Message:          message,
	})
}

// enter marks n as the node currently executing.
func (ec *ExecutionContext) enter(step int, n Node) {
	ec.step = step
	if n == nil {
		ec.nodeID, ec.nodeTitle = "", ""
		return
	}
	ec.nodeID, ec.nodeTitle = n.ID(), n.Title()
}

// publish merges a successful node's output into the variable bag.
func (ec *ExecutionContext) publish(nodeID string, output map[string]any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for k, v := range output {
		ec.variables[nodeID+"."+k] = v
	}
}
