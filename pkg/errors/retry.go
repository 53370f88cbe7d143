package errors

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxRetries is the default number of attempts.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the default backoff base.
	DefaultBaseDelay = time.Second
	// MaxJitter bounds the random jitter added to each backoff delay.
	MaxJitter = 1000 * time.Millisecond
)

// RetryPolicy configures Retry.
type RetryPolicy struct {
	// MaxRetries is the maximum number of attempts, including the first one.
	// Default: 3
	MaxRetries int

	// BaseDelay is multiplied by 2^attempt for retryable non rate limit failures.
	// Default: 1s
	BaseDelay time.Duration

	// MaxWait caps the cumulative time spent waiting between attempts. When the next
	// wait would exceed it the last error is returned instead. Zero means no cap.
	MaxWait time.Duration

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err *Error, delay time.Duration)

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.jitter == nil {
		p.jitter = func() time.Duration {
			// #nosec G404 -- jitter is non-cryptographic timing variance.
			return time.Duration(rand.Int64N(int64(MaxJitter)))
		}
	}
	return p
}

// Retry runs op until it succeeds, fails with a non-retryable kind, or the attempt
// budget is spent. A rate limiter reset or an ended ctx also stops it. Failures
// are classified before the decision is made, so the returned error is always an
// *Error, or the context error once ctx has ended.
//
// Rate limit failures wait exactly their RetryAfter. Other retryable failures wait
// BaseDelay*2^attempt plus up to one second of jitter.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	var (
		zero    T
		lastErr *Error
		waited  time.Duration
	)

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = Classify(err)
		if !lastErr.Retryable() || errors.Is(err, ErrLimiterReset) {
			return zero, lastErr
		}
		if attempt == policy.MaxRetries-1 {
			break
		}

		delay := policy.backoff(attempt, lastErr)
		if policy.MaxWait > 0 && waited+delay > policy.MaxWait {
			break
		}
		waited += delay

		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, lastErr, delay)
		}

		if err := policy.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

func (p RetryPolicy) backoff(attempt int, err *Error) time.Duration {
	if err.Kind == KindRateLimit {
		return max(err.RetryAfter, 0)
	}
	return p.BaseDelay*time.Duration(1<<attempt) + p.jitter()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
