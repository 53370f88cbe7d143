package internal

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

const (
	// DefaultRequestsPerMinute matches Reddit's documented OAuth quota.
	DefaultRequestsPerMinute = 60
	// MillisecondsPerMinute converts a per-minute quota into a per-millisecond refill rate.
	MillisecondsPerMinute = 60_000.0
)

// RateLimitConfig controls how requests are throttled before reaching Reddit.
type RateLimitConfig struct {
	// RequestsPerMinute is both the bucket capacity and the refill per minute.
	// Defaults to 60 if zero.
	RequestsPerMinute int

	// MeterProvider receives the limiter's instruments. Nil uses the global provider.
	MeterProvider metric.MeterProvider
}

// RateLimitStatus is a snapshot of the bucket.
type RateLimitStatus struct {
	// Tokens is the whole number of tokens available right now.
	Tokens int `json:"tokens"`
	// Capacity is the bucket size.
	Capacity int `json:"capacity"`
	// Queued is the number of callers waiting for a token.
	Queued int `json:"queued"`
}

// waiter is a queued acquisition. done is buffered so a grant or rejection never
// blocks the limiter.
type waiter struct {
	done     chan error
	queuedAt time.Time
}

// RateLimiter is a token bucket with a FIFO queue of waiting callers.
//
// Tokens refill continuously at refillRate tokens per millisecond up to capacity.
// When no token is available the caller is queued and a timer is armed for the
// moment the next whole token will exist. Callers are served strictly in arrival
// order: a new caller never overtakes a queued one, even if a token happens to be
// available when it arrives.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per millisecond
	lastRefill time.Time
	queue      []*waiter
	timer      *time.Timer

	now      func() time.Time
	logger   *slog.Logger
	logEvery rate.Sometimes
	metrics  *limiterMetrics
}

// NewRateLimiter creates a full bucket holding capacity tokens that refills at
// refillRate tokens per millisecond.
func NewRateLimiter(capacity int, refillRate float64, logger *slog.Logger) *RateLimiter {
	if capacity <= 0 {
		capacity = DefaultRequestsPerMinute
	}
	if refillRate <= 0 {
		refillRate = float64(capacity) / MillisecondsPerMinute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &RateLimiter{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
		logger:     logger,
		logEvery:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
		metrics:    newLimiterMetrics(nil),
	}
}

// NewRateLimiterFromConfig builds a limiter whose capacity and per-minute refill both
// equal the configured quota.
func NewRateLimiterFromConfig(cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	rl := NewRateLimiter(rpm, float64(rpm)/MillisecondsPerMinute, logger)
	if cfg.MeterProvider != nil {
		rl.metrics = newLimiterMetrics(cfg.MeterProvider)
	}
	return rl
}

// Acquire takes one token, waiting in FIFO order if none is available.
//
// Acquire only fails when the limiter is Reset while the caller is queued
// (pkgerrs.ErrLimiterReset) or when ctx ends first. A caller whose context ends
// is removed from the queue and consumes no token.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	rl.mu.Lock()
	rl.refillLocked()

	if len(rl.queue) == 0 && rl.tokens >= 1 {
		rl.tokens--
		rl.mu.Unlock()
		rl.metrics.acquired.Add(ctx, 1)
		return nil
	}

	w := &waiter{done: make(chan error, 1), queuedAt: rl.now()}
	rl.queue = append(rl.queue, w)
	depth := len(rl.queue)
	rl.scheduleLocked()
	rl.mu.Unlock()

	rl.metrics.queued.Add(ctx, 1)
	rl.logEvery.Do(func() {
		rl.logger.Debug("rate limit reached, request queued", "queue_depth", depth)
	})

	select {
	case err := <-w.done:
		return rl.finish(ctx, w, err)
	case <-ctx.Done():
	}

	rl.mu.Lock()
	if rl.removeLocked(w) {
		rl.mu.Unlock()
		rl.metrics.rejected.Add(ctx, 1)
		return ctx.Err()
	}
	rl.mu.Unlock()

	// Resolved between ctx.Done and taking the lock; the result is already buffered.
	return rl.finish(ctx, w, <-w.done)
}

func (rl *RateLimiter) finish(ctx context.Context, w *waiter, err error) error {
	if err != nil {
		rl.metrics.rejected.Add(ctx, 1)
		return err
	}
	rl.metrics.acquired.Add(ctx, 1)
	rl.metrics.waitMs.Record(ctx, float64(rl.now().Sub(w.queuedAt).Milliseconds()))
	return nil
}

// Status reports the refilled token count without consuming one.
func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	return RateLimitStatus{
		Tokens:   int(math.Floor(rl.tokens)),
		Capacity: int(rl.capacity),
		Queued:   len(rl.queue),
	}
}

// Reset refills the bucket and rejects every queued caller with
// pkgerrs.ErrLimiterReset.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = rl.capacity
	rl.lastRefill = rl.now()
	if rl.timer != nil {
		rl.timer.Stop()
		rl.timer = nil
	}

	if n := len(rl.queue); n > 0 {
		rl.logger.Info("rate limiter reset, rejecting queued requests", "rejected", n)
	}
	for _, w := range rl.queue {
		w.done <- pkgerrs.ErrLimiterReset
	}
	rl.queue = nil
}

func (rl *RateLimiter) refillLocked() {
	now := rl.now()
	elapsedMs := float64(now.Sub(rl.lastRefill)) / float64(time.Millisecond)
	rl.lastRefill = now
	if elapsedMs <= 0 {
		return
	}

	rl.tokens += elapsedMs * rl.refillRate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
}

// drainLocked grants tokens to queued callers in order and rearms the timer if
// anyone is still waiting.
func (rl *RateLimiter) drainLocked() {
	rl.refillLocked()

	for len(rl.queue) > 0 && rl.tokens >= 1 {
		rl.tokens--
		w := rl.queue[0]
		rl.queue[0] = nil
		rl.queue = rl.queue[1:]
		w.done <- nil
	}

	if len(rl.queue) > 0 {
		rl.scheduleLocked()
	}
}

// scheduleLocked arms a timer for when the next whole token will be available.
// At most one timer is pending at a time.
func (rl *RateLimiter) scheduleLocked() {
	if rl.timer != nil {
		return
	}

	waitMs := math.Ceil((1 - rl.tokens) / rl.refillRate)
	if waitMs < 0 {
		waitMs = 0
	}
	wait := time.Duration(waitMs) * time.Millisecond

	var t *time.Timer
	t = time.AfterFunc(wait, func() {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		// A Reset may have replaced or cleared the timer after this one fired.
		if rl.timer != t {
			return
		}
		rl.timer = nil
		rl.drainLocked()
	})
	rl.timer = t
}

func (rl *RateLimiter) removeLocked(target *waiter) bool {
	for i, w := range rl.queue {
		if w == target {
			rl.queue = append(rl.queue[:i], rl.queue[i+1:]...)
			if len(rl.queue) == 0 && rl.timer != nil {
				rl.timer.Stop()
				rl.timer = nil
			}
			return true
		}
	}
	return false
}
