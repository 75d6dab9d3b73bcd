// Package workflow provides a DAG workflow model and a sequential execution engine.
//
// A Workflow is a set of nodes (units of work with typed parameters) and
// directed connections between them. The Engine orders the nodes
// topologically, then executes them one at a time, threading a per-run
// ExecutionContext through every node and reporting progress and a final
// ExecutionSummary.
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultWorkflowName is the name given to workflows created without one.
const DefaultWorkflowName = "New Workflow"

// Workflow is the editable graph: nodes, connections and global parameters.
//
// A Workflow holds no execution state. All run-scoped data lives in the
// ExecutionContext and ExecutionSummary of each run, so the same Workflow can
// be executed repeatedly, or concurrently by independent callers, as long as
// nobody edits it while a run is in progress.
//
// Example:
//
//	wf := workflow.NewWorkflow("Morning routine")
//	wait := nodes.NewDelay()
//	greet := nodes.NewOutput()
//	greet.Params().Set("message", "hi")
//	_ = wf.AddNode(wait)
//	_ = wf.AddNode(greet)
//	_, _ = wf.Connect(wait.ID(), greet.ID())
type Workflow struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	ModifiedAt  time.Time

	// GlobalParameters are copied into every run's ExecutionContext.
	GlobalParameters Params

	nodes       []Node
	index       map[string]Node
	connections []*Connection
}

// NewWorkflow creates an empty workflow with a fresh ID.
func NewWorkflow(name string) *Workflow {
	if name == "" {
		name = DefaultWorkflowName
	}
	now := time.Now()
	return &Workflow{
		ID:               uuid.NewString(),
		Name:             name,
		CreatedAt:        now,
		ModifiedAt:       now,
		GlobalParameters: make(Params),
		index:            make(map[string]Node),
	}
}

// AddNode appends n to the workflow.
//
// Returns an error wrapping ErrDuplicateNode if a node with the same ID is
// already present.
func (w *Workflow) AddNode(n Node) error {
	if n == nil {
		return &EngineError{Code: CodeInvalidOption, Message: "node cannot be nil"}
	}
	if w.index == nil {
		w.index = make(map[string]Node)
	}
	if _, exists := w.index[n.ID()]; exists {
		return &EngineError{Code: CodeDuplicateNode, Message: "duplicate node ID: " + n.ID()}
	}
	w.nodes = append(w.nodes, n)
	w.index[n.ID()] = n
	return nil
}

// RemoveNode deletes the node with the given ID together with every
// connection attached to it.
func (w *Workflow) RemoveNode(id string) error {
	if _, ok := w.index[id]; !ok {
		return &EngineError{Code: CodeNodeNotFound, Message: "node not found: " + id}
	}
	delete(w.index, id)

	kept := w.nodes[:0]
	for _, n := range w.nodes {
		if n.ID() != id {
			kept = append(kept, n)
		}
	}
	w.nodes = kept

	conns := w.connections[:0]
	for _, c := range w.connections {
		if c.SourceNodeID != id && c.TargetNodeID != id {
			conns = append(conns, c)
		}
	}
	w.connections = conns
	return nil
}

// Node returns the node with the given ID.
func (w *Workflow) Node(id string) (Node, bool) {
	n, ok := w.index[id]
	return n, ok
}

// Nodes returns the workflow's nodes in insertion order.
// The slice is a copy; the nodes are shared.
func (w *Workflow) Nodes() []Node {
	out := make([]Node, len(w.nodes))
	copy(out, w.nodes)
	return out
}

// Connections returns the workflow's connections in insertion order.
func (w *Workflow) Connections() []Connection {
	out := make([]Connection, len(w.connections))
	for i, c := range w.connections {
		out[i] = *c
	}
	return out
}

// Connect adds a dependency edge from source to target using the default ports.
//
// Both nodes must already exist in the workflow. Documents loaded from disk
// may still contain dangling connections; see AddConnection.
func (w *Workflow) Connect(sourceID, targetID string) (*Connection, error) {
	if _, ok := w.index[sourceID]; !ok {
		return nil, &EngineError{Code: CodeNodeNotFound, Message: "source node not found: " + sourceID}
	}
	if _, ok := w.index[targetID]; !ok {
		return nil, &EngineError{Code: CodeNodeNotFound, Message: "target node not found: " + targetID}
	}
	c := Connection{
		ID:           uuid.NewString(),
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
		SourcePort:   DefaultSourcePort,
		TargetPort:   DefaultTargetPort,
	}
	w.AddConnection(c)
	return w.connections[len(w.connections)-1], nil
}

// AddConnection appends c verbatim, without checking its endpoints.
// Missing IDs and ports are filled with defaults.
func (w *Workflow) AddConnection(c Connection) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.SourcePort == "" {
		c.SourcePort = DefaultSourcePort
	}
	if c.TargetPort == "" {
		c.TargetPort = DefaultTargetPort
	}
	w.connections = append(w.connections, &c)
}

// Disconnect removes the connection with the given ID.
func (w *Workflow) Disconnect(connectionID string) bool {
	for i, c := range w.connections {
		if c.ID == connectionID {
			w.connections = append(w.connections[:i], w.connections[i+1:]...)
			return true
		}
	}
	return false
}

// Touch refreshes ModifiedAt.
func (w *Workflow) Touch() {
	w.ModifiedAt = time.Now()
}

// Validate checks the whole workflow without modifying it.
//
// Every node's own Validate is run; a single invalid node invalidates the
// workflow. Node messages are prefixed with the node title. In a workflow with
// more than one node, any node that is neither source nor target of a
// connection is reported as an orphan warning. Connections whose endpoints
// do not exist are reported as warnings too; they are ignored when ordering.
func (w *Workflow) Validate() ValidationResult {
	result := Valid()

	for _, n := range w.nodes {
		nv := n.Validate()
		if !nv.Valid {
			result.Valid = false
			for _, e := range nv.Errors {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", n.Title(), e))
			}
		}
		for _, warn := range nv.Warnings {
			result.AddWarning(fmt.Sprintf("%s: %s", n.Title(), warn))
		}
	}

	connected := make(map[string]bool)
	for _, c := range w.connections {
		connected[c.SourceNodeID] = true
		connected[c.TargetNodeID] = true
		if _, ok := w.index[c.SourceNodeID]; !ok {
			result.AddWarning(fmt.Sprintf("Connection '%s' references unknown source node '%s'", c.ID, c.SourceNodeID))
		}
		if _, ok := w.index[c.TargetNodeID]; !ok {
			result.AddWarning(fmt.Sprintf("Connection '%s' references unknown target node '%s'", c.ID, c.TargetNodeID))
		}
	}

	if len(w.nodes) > 1 {
		for _, n := range w.nodes {
			if !connected[n.ID()] {
				result.AddWarning(fmt.Sprintf("Node '%s' is not connected to the workflow", n.Title()))
			}
		}
	}

	return result
}
