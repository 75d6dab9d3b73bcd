package nodes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dshills/workflow-go/workflow"
)

// Delay waits for a number of seconds, honoring cancellation.
//
// Parameters: seconds (number, default 1).
type Delay struct {
	workflow.Base
	cfg *config
}

// NewDelay creates a Delay node.
func NewDelay(opts ...Option) *Delay { return newDelay(newConfig(opts...)) }

func newDelay(cfg *config) *Delay {
	n := &Delay{Base: workflow.NewBase(TypeDelay, "Wait"), cfg: cfg}
	n.Params().Set("seconds", 1)
	return n
}

// maxDelaySeconds is the longest delay a time.Duration can hold.
const maxDelaySeconds = float64(math.MaxInt64 / int64(time.Second))

var errInvalidDelay = errors.New("Delay must be a positive number")

// delayDuration converts seconds to a Duration, rejecting NaN, infinities,
// negatives and values a Duration cannot represent.
func delayDuration(p workflow.Params) (float64, time.Duration, error) {
	s, ok := p.Float("seconds")
	if !ok || math.IsNaN(s) || s < 0 || s > maxDelaySeconds {
		return 0, 0, errInvalidDelay
	}
	return s, time.Duration(s * float64(time.Second)), nil
}

// Validate requires a finite, non-negative number of seconds.
func (n *Delay) Validate() workflow.ValidationResult {
	if _, _, err := delayDuration(n.Params()); err != nil {
		return workflow.Invalid(err.Error())
	}
	return workflow.Valid()
}

// Execute sleeps until the delay elapses or ctx is done.
func (n *Delay) Execute(ctx context.Context, ec *workflow.ExecutionContext) workflow.ExecutionResult {
	seconds, d, err := delayDuration(n.Params())
	if err != nil {
		return workflow.Failed(err.Error(), err)
	}
	text := strconv.FormatFloat(seconds, 'f', -1, 64)
	ec.Log(fmt.Sprintf("Waiting for %s seconds...", text))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return workflow.Failed("Delay was cancelled", ctx.Err())
	case <-timer.C:
	}

	return workflow.Succeeded(fmt.Sprintf("Waited for %s seconds", text), n.cfg.stamp(map[string]any{
		"seconds": seconds,
	}))
}
