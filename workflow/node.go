package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Node represents a unit of work in a workflow graph.
//
// Nodes are the fundamental building blocks of a Workflow. Each node:
//   - Has an immutable identity assigned at creation
//   - Carries a cosmetic title and editor position
//   - Holds a bag of dynamically-typed parameters
//   - Validates its own parameters without side effects
//   - Executes its behavior against a per-run ExecutionContext
//
// Nodes carry no execution state. The status of a node during a run lives in
// the run's ExecutionSummary, so the same node (and the same Workflow) can be
// executed by several independent runs at once.
//
// Concrete behaviors embed Base to get identity, title, position and
// parameters, and implement Execute and Validate.
type Node interface {
	// ID returns the node's unique, immutable identifier.
	ID() string

	// Type returns the discriminator used to reconstruct the node from a
	// persisted document (e.g. "Delay", "Output").
	Type() string

	// Title returns the human label shown in the editor.
	Title() string

	// Params returns the node's parameter bag. Editors may mutate it between
	// runs; the engine never mutates it.
	Params() Params

	// base exposes the embedded common state to the persistence layer.
	base() *Base

	// Execute runs the node's behavior.
	//
	// The context carries the run's cancellation signal; any operation that
	// can exceed trivial duration must observe it. A node whose wait was
	// interrupted by cancellation should return a failed result wrapping
	// ctx.Err() so the engine can classify it as Skipped.
	//
	// Failures are reported in the returned ExecutionResult, not by panicking.
	// The engine recovers panics and turns them into failed results anyway.
	Execute(ctx context.Context, ec *ExecutionContext) ExecutionResult

	// Validate inspects the node's parameters and reports errors (which block
	// execution) and warnings (informational). It must be pure: calling it
	// twice with unchanged parameters yields identical results.
	Validate() ValidationResult
}

// Position is the node's location on the editor canvas.
// It is persisted but never read by the engine.
type Position struct {
	X float64
	Y float64
}

// Base holds the state shared by every node variant.
//
// Embed Base in a concrete node and initialize it with NewBase:
//
//	type Beep struct{ workflow.Base }
//
//	func NewBeep() *Beep {
//	    n := &Beep{Base: workflow.NewBase("Beep", "Beep")}
//	    n.Params().Set("times", 1)
//	    return n
//	}
type Base struct {
	id       string
	nodeType string
	title    string
	pos      Position
	params   Params
}

// NewBase creates node state with a fresh identifier.
func NewBase(nodeType, title string) Base {
	return Base{
		id:       uuid.NewString(),
		nodeType: nodeType,
		title:    title,
		params:   make(Params),
	}
}

// ID implements Node.
func (b *Base) ID() string { return b.id }

// Type implements Node.
func (b *Base) Type() string { return b.nodeType }

// Title implements Node.
func (b *Base) Title() string { return b.title }

// SetTitle changes the display title.
func (b *Base) SetTitle(title string) { b.title = title }

// Params implements Node.
func (b *Base) Params() Params {
	if b.params == nil {
		b.params = make(Params)
	}
	return b.params
}

// Position returns the editor position.
func (b *Base) Position() Position { return b.pos }

// MoveTo sets the editor position.
func (b *Base) MoveTo(x, y float64) { b.pos = Position{X: x, Y: y} }

func (b *Base) base() *Base { return b }

// NodeStatus is the lifecycle state of a node within one run.
//
// Transitions: Ready → Executing → {Completed | Failed | Skipped}.
// Terminal states are only left when a new run starts from Ready.
type NodeStatus string

const (
	StatusReady     NodeStatus = "Ready"
	StatusExecuting NodeStatus = "Executing"
	StatusCompleted NodeStatus = "Completed"
	StatusFailed    NodeStatus = "Failed"
	// StatusSkipped marks a node whose execution was interrupted by
	// cancellation. Cancellation is not an error.
	StatusSkipped NodeStatus = "Skipped"
)

// Terminal reports whether s is one of the end states of a node execution.
func (s NodeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// ValidationResult is the outcome of validating a node or a whole workflow.
type ValidationResult struct {
	// Valid is false when at least one error was reported.
	Valid bool

	// Errors block execution.
	Errors []string

	// Warnings are informational only (e.g. an unconnected node).
	Warnings []string
}

// Valid returns a passing ValidationResult.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid returns a failing ValidationResult carrying errs.
func Invalid(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// AddError records a blocking error.
func (r *ValidationResult) AddError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

// AddWarning records an informational warning.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
