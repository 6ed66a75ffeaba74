// Package executor drives a validated ExecutionPlan to completion: waves
// run sequentially, nodes within a wave run concurrently via
// golang.org/x/sync/errgroup, and control-flow nodes are interpreted
// in-process directly from their AST; only source/transform/sink nodes are
// dispatched through the runtime registry.
// Grounded in the teacher's workflow executor's wave/task-group driving
// style (engine/domain/workflow/executor), generalized to FlowScript's
// 17 NodeAST variants.
package executor

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
)

// RetryConfig is the resolved retry policy for one node: the attempt
// count, the base delay for full-jitter backoff, and the per-attempt timeout.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Timeout     time.Duration
}

// DefaultRetryConfig matches the spec's runtime-level retry defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseBackoff: time.Second,
	Timeout:     30 * time.Second,
}

// resolveRetryConfig overlays a node's declared <on-error><retry max> onto
// the runtime defaults; a zero max keeps the default. The declared backoff
// strategy and when condition are not applied: every retry uses full-jitter
// exponential backoff from the default base.
func resolveRetryConfig(ec *ast.ErrorConfig) RetryConfig {
	cfg := DefaultRetryConfig
	if ec == nil || ec.Retry == nil {
		return cfg
	}
	if ec.Retry.Max > 0 {
		cfg.MaxAttempts = ec.Retry.Max
	}
	return cfg
}

const backoffCap = 32 * time.Second

// backoffDuration implements the spec's full-jitter law:
// random(0, min(32000ms, base*2^k)).
func backoffDuration(attempt int, base time.Duration) time.Duration {
	upper := float64(base) * float64(uint64(1)<<uint(attempt))
	if upper > float64(backoffCap) {
		upper = float64(backoffCap)
	}
	if upper <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * upper)
}

// fullJitterBackoff composes go-retry's exponential/capped/max-retries
// backoff chain (the same building blocks the teacher uses in
// engine/auth/org/service.go's provisionTemporalNamespaceWithRetry) and
// wraps the result so each step returns a uniformly random duration
// between 0 and the capped exponential value, rather than go-retry's
// own +/-jitter, to match the spec's full-jitter law.
func fullJitterBackoff(base time.Duration, maxRetries int) retry.Backoff {
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(backoffCap, b)
	b = retry.WithMaxRetries(uint64(maxRetries), b)
	return retry.BackoffFunc(func() (time.Duration, bool) {
		upper, stop := b.Next()
		if stop {
			return 0, true
		}
		return time.Duration(rand.Float64() * float64(upper)), false
	})
}

// executeWithRetry attempts fn, classifying failures via ferrors.IsRetryable
// and sleeping the full-jitter backoff between attempts, using go-retry's
// Do loop. Each attempt gets its own per-attempt timeout derived from ctx.
// After exhausting retries, fallback (if non-nil) is attempted once;
// otherwise the last error is returned.
func executeWithRetry(
	ctx context.Context,
	cfg RetryConfig,
	fn func(ctx context.Context) (any, error),
	fallback func(ctx context.Context) (any, error),
) (any, error, int) {
	var out any
	var lastErr error
	attempts := 0

	backoff := fullJitterBackoff(cfg.BaseBackoff, cfg.MaxAttempts-1)
	err := retry.Do(ctx, backoff, func(attemptCtx context.Context) error {
		attempts++
		callCtx := attemptCtx
		var cancel context.CancelFunc
		if cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(attemptCtx, cfg.Timeout)
		}
		o, err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			out = o
			return nil
		}
		lastErr = classifyTimeout(callCtx, err)
		if !ferrors.IsRetryable(lastErr) {
			return lastErr
		}
		return retry.RetryableError(lastErr)
	})
	if err == nil {
		return out, nil, attempts
	}
	if errors.Is(err, context.Canceled) {
		lastErr = &ferrors.AbortError{Reason: "cancelled during retry backoff"}
	}
	if fallback != nil {
		fout, ferr := fallback(ctx)
		if ferr == nil {
			return fout, nil, attempts
		}
		lastErr = ferr
	}
	return nil, lastErr, attempts
}

func classifyTimeout(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &ferrors.TimeoutError{Ms: 0}
	}
	if ctx.Err() == context.Canceled {
		return &ferrors.AbortError{Reason: "cancelled"}
	}
	return err
}
