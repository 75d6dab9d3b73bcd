package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// invoke validates n and, if valid, executes it under an optional per-node
// timeout. A panic in either call becomes a NODE_PANIC failure; an expired
// timeout becomes a NODE_TIMEOUT failure. invoke never panics.
//
// The timeout is cooperative: invoke waits for Execute to return and only
// then inspects the derived context.
func invoke(ctx context.Context, n Node, ec *ExecutionContext, timeout time.Duration) (result ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Sprintf("Node execution exception: %v", r), &NodeError{
				Message: fmt.Sprintf("panic: %v", r),
				Code:    CodeNodePanic,
				NodeID:  n.ID(),
			})
		}
	}()

	if v := n.Validate(); !v.Valid {
		errs := strings.Join(v.Errors, ", ")
		return Failed("Node validation failed: "+errs, &NodeError{
			Message: errs,
			Code:    CodeValidationFailed,
			NodeID:  n.ID(),
		})
	}

	nodeCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result = n.Execute(nodeCtx, ec)

	if !result.Success && ctx.Err() == nil && errors.Is(nodeCtx.Err(), context.DeadlineExceeded) {
		result.Message = fmt.Sprintf("Node timed out after %v", timeout)
		result.Err = &NodeError{
			Message: fmt.Sprintf("exceeded timeout of %v", timeout),
			Code:    CodeNodeTimeout,
			NodeID:  n.ID(),
			Cause:   result.Err,
		}
	}
	if result.Output == nil {
		result.Output = make(map[string]any)
	}
	return result
}
