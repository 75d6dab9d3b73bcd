package nodes

import (
	"context"
	"fmt"

	"github.com/dshills/workflow-go/workflow"
)

// Loop records an iteration count. It does not re-run downstream nodes.
//
// Parameters: iterations (3), loopType ("count" or "condition").
type Loop struct {
	workflow.Base
	cfg *config
}

// NewLoop creates a Loop node.
func NewLoop(opts ...Option) *Loop { return newLoop(newConfig(opts...)) }

func newLoop(cfg *config) *Loop {
	n := &Loop{Base: workflow.NewBase(TypeLoop, "Loop"), cfg: cfg}
	n.Params().Set("iterations", 3)
	n.Params().Set("loopType", "count")
	return n
}

// Validate checks the iteration count and loop type.
func (n *Loop) Validate() workflow.ValidationResult {
	v := workflow.Valid()
	if it, ok := n.Params().Int("iterations"); !ok || it < 0 {
		v.AddError("Iterations must be a non-negative whole number")
	}
	switch n.Params().String("loopType", "count") {
	case "count", "condition":
	default:
		v.AddError("Loop type must be count or condition")
	}
	return v
}

// Execute reports the configured iteration count.
func (n *Loop) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	iterations, _ := n.Params().Int("iterations")
	loopType := n.Params().String("loopType", "count")
	ec.Log(fmt.Sprintf("Loop completed: %d iterations", iterations))

	return workflow.Succeeded(fmt.Sprintf("Loop executed %d times", iterations), n.cfg.stamp(map[string]any{
		"iterations": iterations,
		"loopType":   loopType,
	}))
}
