package adversarial_tests

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	graw "github.com/jamesprial/reddit-mcp-server"
	"github.com/jamesprial/reddit-mcp-server/adversarial_tests/helpers"
	"github.com/jamesprial/reddit-mcp-server/internal/reddittest"
)

// TestLimiterAdmitsOnlyCapacity tests that a burst larger than the bucket is held back
func TestLimiterAdmitsOnlyCapacity(t *testing.T) {
	srv := reddittest.NewServer(t)
	srv.HandleJSON("GET /r/golang/about", subredditAbout)
	client := createTestClient(t, srv, func(cfg *graw.Config) { cfg.RequestsPerMinute = 5 })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errs := helpers.RunConcurrently(20, func(int) error {
		_, err := client.GetSubreddit(ctx, "golang")
		return err
	})

	succeeded, timedOut := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, context.DeadlineExceeded):
			timedOut++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 5 || timedOut != 15 {
		t.Errorf("Expected 5 admitted and 15 timed out, got %d and %d", succeeded, timedOut)
	}
	if got := srv.APICalls(); got != 5 {
		t.Errorf("Expected 5 API requests, got %d", got)
	}
	if q := client.Status().Limiter.Queued; q != 0 {
		t.Errorf("Expected empty queue after cancellation, got %d", q)
	}
}

// TestGoroutineLeakAfterCancellation tests that cancelled waiters leave nothing behind
func TestGoroutineLeakAfterCancellation(t *testing.T) {
	srv := reddittest.NewServer(t)
	srv.HandleJSON("GET /r/golang/about", subredditAbout)

	transport := &http.Transport{}
	client := createTestClient(t, srv, func(cfg *graw.Config) {
		cfg.RequestsPerMinute = 2
		cfg.HTTPClient = &http.Client{Transport: transport}
	})

	before := helpers.TakeGoroutineSnapshot()

	for round := 0; round < 5; round++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		helpers.RunConcurrently(25, func(int) error {
			_, err := client.GetSubreddit(ctx, "golang")
			return err
		})
		cancel()
	}
	transport.CloseIdleConnections()

	if err := helpers.WaitForGoroutineCleanup(before, 2*time.Second, 5); err != nil {
		t.Error(err)
	}
	if q := client.Status().Limiter.Queued; q != 0 {
		t.Errorf("Expected empty queue, got %d", q)
	}
}

// TestResetRateLimiterUnderLoad tests that a reset releases every waiter
func TestResetRateLimiterUnderLoad(t *testing.T) {
	srv := reddittest.NewServer(t)
	srv.HandleJSON("GET /r/golang/about", subredditAbout)
	client := createTestClient(t, srv, func(cfg *graw.Config) { cfg.RequestsPerMinute = 1 })

	if _, err := client.GetSubreddit(context.Background(), "golang"); err != nil {
		t.Fatal(err)
	}

	const waiters = 10
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for client.Status().Limiter.Queued < waiters && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		client.ResetRateLimiter()
	}()

	errs := helpers.RunConcurrently(waiters, func(int) error {
		_, err := client.GetSubreddit(context.Background(), "golang")
		return err
	})
	for i, err := range errs {
		if err == nil {
			t.Errorf("waiter %d was admitted instead of released", i)
		}
	}
	if got := srv.APICalls(); got != 1 {
		t.Errorf("Expected only the first API request, got %d", got)
	}
}
