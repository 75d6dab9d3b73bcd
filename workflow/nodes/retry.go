package nodes

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dshills/workflow-go/workflow"
	"github.com/dshills/workflow-go/workflow/model"
)

const (
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 10 * time.Second
	maxRetries       = 10
)

// retryPolicy retries a failing call with exponential backoff and jitter.
type retryPolicy struct {
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration

	// retryable reports whether err is worth another attempt. Nil retries
	// everything except context errors.
	retryable func(error) bool
}

// retryPolicyFor reads the "retries" parameter of a node.
func (c *config) retryPolicyFor(p workflow.Params, retryable func(error) bool) retryPolicy {
	retries, _ := p.Int("retries")
	if retries < 0 {
		retries = 0
	}
	return retryPolicy{
		attempts:  retries + 1,
		baseDelay: c.retryBase,
		maxDelay:  c.retryMax,
		retryable: retryable,
	}
}

// validateRetries checks the optional "retries" parameter.
func validateRetries(p workflow.Params, v *workflow.ValidationResult) {
	if _, ok := p.Lookup("retries"); !ok {
		return
	}
	if r, ok := p.Int("retries"); !ok || r < 0 || r > maxRetries {
		v.AddError("Retries must be a whole number between 0 and 10")
	}
}

// do calls op until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. The last error is returned.
func (rp retryPolicy) do(ctx context.Context, ec *workflow.ExecutionContext, op func() error) error {
	var err error
	for attempt := 0; attempt < rp.attempts; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt-1, rp.baseDelay, rp.maxDelay)
			ec.Log("Retrying after failure", "attempt", attempt+1, "delay_ms", delay.Milliseconds(), "error", err.Error())
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if rp.retryable != nil && !rp.retryable(err) {
			return err
		}
	}
	return err
}

// backoff returns base * 2^attempt capped at maxDelay, plus up to base of
// random jitter.
func backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := maxDelay
	if attempt < 30 {
		if d := base << attempt; d > 0 && (d < maxDelay || maxDelay <= 0) {
			delay = d
		}
	}
	return delay + rand.N(base) // #nosec G404 -- jitter for retry timing, not security
}

// retryableChat rejects errors a second call cannot fix.
func retryableChat(err error) bool {
	return !errors.Is(err, model.ErrMissingAPIKey) && !errors.Is(err, ErrNoChatModel)
}
