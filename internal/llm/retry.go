package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// retryClass is the decision for one failed generation call.
type retryClass int

const (
	// retryNo ends the call: context errors, truncation, and anything
	// else a repeat attempt cannot change.
	retryNo retryClass = iota

	// retryTransient re-issues the call after a backoff wait: rate
	// limits, provider outages, network faults.
	retryTransient

	// retrySchemaMiss re-issues the call once. Every tutoring call
	// carries a response schema, and a fresh sample often lands inside
	// it; a second miss means the prompt and schema disagree, which a
	// third sample will not fix.
	retrySchemaMiss
)

func classifyRetry(err error) retryClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retryNo
	}

	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) {
		// A token budget problem, not a transient one.
		return retryNo
	}

	var schemaMiss *ErrInvalidResponse
	if errors.As(err, &schemaMiss) {
		return retrySchemaMiss
	}

	return retryTransient
}

// retryProvider re-issues failed generation calls with exponential
// backoff. It sits between the caller and the logging layer, so every
// attempt is individually recorded in the call log.
type retryProvider struct {
	next Provider
	cfg  RetryConfig
}

// WithRetry wraps a Provider with the backoff policy in cfg.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &retryProvider{next: p, cfg: cfg}
}

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	attempts := r.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	schemaRetried := false

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := r.waitBefore(ctx, attempt, lastErr); err != nil {
				return nil, err
			}
		}

		resp, err := r.next.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch classifyRetry(err) {
		case retryNo:
			return nil, err
		case retrySchemaMiss:
			if schemaRetried {
				return nil, err
			}
			schemaRetried = true
		}
	}

	return nil, lastErr
}

func (r *retryProvider) ModelID() string {
	return r.next.ModelID()
}

// waitBefore sleeps out the backoff for the given attempt, or returns
// early when the context ends. attempt counts from 1 here: the wait
// happens before a re-issue, never before the first call.
func (r *retryProvider) waitBefore(ctx context.Context, attempt int, lastErr error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.backoff(attempt-1, lastErr)):
		return nil
	}
}

func (r *retryProvider) backoff(step int, lastErr error) time.Duration {
	// A rate-limited provider names its own wait.
	var limited *ErrRateLimit
	if errors.As(lastErr, &limited) && limited.RetryAfter > 0 {
		return limited.RetryAfter
	}

	wait := float64(r.cfg.InitialWait) * math.Pow(r.cfg.Multiplier, float64(step))
	wait = math.Min(wait, float64(r.cfg.MaxWait))

	// ±20% jitter keeps concurrent sessions from re-issuing in lockstep.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(math.Max(wait, 0))
}
