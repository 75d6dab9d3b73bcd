package nodes

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/workflow-go/workflow"
)

// equalityTolerance is the slack used by == and != comparisons.
const equalityTolerance = 0.0001

var decisionOperators = []string{">", "<", ">=", "<=", "==", "!="}

// Decision compares two numeric operands.
//
// Parameters: leftValue ("5"), operator (">"), rightValue ("3") and a free
// text condition description. Operands may reference variables with ${...}.
// The result is informational: the engine does not branch on it.
type Decision struct {
	workflow.Base
	cfg *config
}

// NewDecision creates a Decision node.
func NewDecision(opts ...Option) *Decision { return newDecision(newConfig(opts...)) }

func newDecision(cfg *config) *Decision {
	n := &Decision{Base: workflow.NewBase(TypeDecision, "Decision"), cfg: cfg}
	p := n.Params()
	p.Set("condition", "value > 0")
	p.Set("leftValue", "5")
	p.Set("operator", ">")
	p.Set("rightValue", "3")
	return n
}

// Validate rejects unknown operators.
func (n *Decision) Validate() workflow.ValidationResult {
	op := n.Params().String("operator", ">")
	for _, known := range decisionOperators {
		if op == known {
			return workflow.Valid()
		}
	}
	return workflow.Invalid(fmt.Sprintf("Operator must be one of: %s", strings.Join(decisionOperators, " ")))
}

// Execute evaluates the comparison.
func (n *Decision) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	p := n.Params()
	left := ec.Expand(p.String("leftValue", "5"))
	right := ec.Expand(p.String("rightValue", "3"))
	op := p.String("operator", ">")

	result := compare(left, op, right)
	condition := fmt.Sprintf("%s %s %s", left, op, right)
	ec.Log(fmt.Sprintf("Decision result: %t (%s)", result, condition))

	return workflow.Succeeded(fmt.Sprintf("Decision evaluated: %t", result), n.cfg.stamp(map[string]any{
		"result":    result,
		"condition": condition,
	}))
}

// compare reports left op right. Non-numeric operands compare false.
func compare(left, op, right string) bool {
	l, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return false
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return false
	}
	switch op {
	case ">":
		return l > r
	case "<":
		return l < r
	case ">=":
		return l >= r
	case "<=":
		return l <= r
	case "==":
		return math.Abs(l-r) < equalityTolerance
	case "!=":
		return math.Abs(l-r) >= equalityTolerance
	default:
		return false
	}
}
