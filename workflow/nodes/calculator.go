package nodes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/workflow-go/workflow"
)

// Calculator evaluates an arithmetic expression.
//
// Parameters: expression ("2 + 2"). References such as ${calc.result} are
// expanded before evaluation.
type Calculator struct {
	workflow.Base
	cfg *config
}

// NewCalculator creates a Calculator node.
func NewCalculator(opts ...Option) *Calculator { return newCalculator(newConfig(opts...)) }

func newCalculator(cfg *config) *Calculator {
	n := &Calculator{Base: workflow.NewBase(TypeCalculator, "Calculate"), cfg: cfg}
	n.Params().Set("expression", "2 + 2")
	return n
}

// Validate requires a non-blank expression.
func (n *Calculator) Validate() workflow.ValidationResult {
	if strings.TrimSpace(n.Params().String("expression", "")) == "" {
		return workflow.Invalid("Mathematical expression is required")
	}
	return workflow.Valid()
}

// Execute evaluates the expanded expression.
func (n *Calculator) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	expression := ec.Expand(n.Params().String("expression", ""))
	ec.Log("Calculating: " + expression)

	result, err := evaluate(expression)
	if err != nil {
		return workflow.Failed("Calculation failed: "+err.Error(), err)
	}

	return workflow.Succeeded(
		fmt.Sprintf("Calculation completed: %s", strconv.FormatFloat(result, 'f', -1, 64)),
		n.cfg.stamp(map[string]any{
			"expression": expression,
			"result":     result,
		}),
	)
}
