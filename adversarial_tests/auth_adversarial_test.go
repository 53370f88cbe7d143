package adversarial_tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	graw "github.com/jamesprial/reddit-mcp-server"
	"github.com/jamesprial/reddit-mcp-server/adversarial_tests/helpers"
	"github.com/jamesprial/reddit-mcp-server/internal/reddittest"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

// TestConcurrentTokenRefreshRace tests that many first calls share one token grant
func TestConcurrentTokenRefreshRace(t *testing.T) {
	srv := reddittest.NewServer(t)
	srv.HandleJSON("GET /r/golang/about", subredditAbout)
	client := createTestClient(t, srv, nil)

	const numGoroutines = 50
	errs := helpers.RunConcurrently(numGoroutines, func(int) error {
		_, err := client.GetSubreddit(context.Background(), "golang")
		return err
	})

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}
	if got := srv.TokenCalls(); got != 1 {
		t.Errorf("Expected 1 token request, got %d", got)
	}
	if got := srv.APICalls(); got != numGoroutines {
		t.Errorf("Expected %d API requests, got %d", numGoroutines, got)
	}
}

// TestMalformedTokenResponses tests that unusable token responses never reach the API
func TestMalformedTokenResponses(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	wantKind := map[string]pkgerrs.Kind{
		"empty_access_token": pkgerrs.KindAuthentication,
		"missing_token":      pkgerrs.KindAuthentication,
		"oauth_error":        pkgerrs.KindAuthentication,
		"null_token":         pkgerrs.KindAuthentication,
		"token_as_number":    pkgerrs.KindUnknown,
		"truncated":          pkgerrs.KindUnknown,
		"not_json":           pkgerrs.KindUnknown,
	}

	for name, body := range generator.GenerateMalformedTokenResponses() {
		t.Run(name, func(t *testing.T) {
			srv := reddittest.NewServer(t)
			srv.SetTokenBody(body)
			srv.HandleJSON("GET /r/golang/about", subredditAbout)
			client := createTestClient(t, srv, nil)

			_, err := client.GetSubreddit(context.Background(), "golang")
			apiErr := requireAPIError(t, err)
			if apiErr.Kind != wantKind[name] {
				t.Errorf("Expected kind %v, got %v (%v)", wantKind[name], apiErr.Kind, err)
			}
			if srv.APICalls() != 0 {
				t.Error("API must not be called without a token")
			}
			if client.IsAuthenticated() {
				t.Error("Client must not report a token after a failed grant")
			}
		})
	}
}

// TestTokenEndpointErrors tests the classification of token endpoint failures
func TestTokenEndpointErrors(t *testing.T) {
	testCases := []struct {
		status int
		want   pkgerrs.Kind
	}{
		{http.StatusUnauthorized, pkgerrs.KindAuthentication},
		{http.StatusForbidden, pkgerrs.KindForbidden},
		{http.StatusTooManyRequests, pkgerrs.KindRateLimit},
		{http.StatusServiceUnavailable, pkgerrs.KindServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := reddittest.NewServer(t)
			srv.FailToken(tc.status)
			client := createTestClient(t, srv, func(cfg *graw.Config) { cfg.MaxRetryWait = time.Millisecond })

			_, err := client.GetSubreddit(context.Background(), "golang")
			if got := requireAPIError(t, err).Kind; got != tc.want {
				t.Errorf("Expected kind %v, got %v", tc.want, got)
			}
		})
	}
}

// TestTokenResponseSizeLimit tests that oversized token responses fail instead of being buffered
func TestTokenResponseSizeLimit(t *testing.T) {
	generator := helpers.NewJSONGenerator()

	testCases := []struct {
		name       string
		tokenSize  int
		shouldPass bool
	}{
		{"small_token", 100, true},
		{"normal_token", 1000, true},
		{"large_token", 32 << 10, true},
		{"very_large_token", 1 << 20, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := reddittest.NewServer(t)
			srv.SetTokenBody(generator.GenerateOversizedTokenResponse(tc.tokenSize))
			srv.HandleJSON("GET /r/golang/about", subredditAbout)
			client := createTestClient(t, srv, nil)

			_, err := client.GetSubreddit(context.Background(), "golang")
			if tc.shouldPass && err != nil {
				t.Fatalf("Expected success for %d byte token, got %v", tc.tokenSize, err)
			}
			if !tc.shouldPass {
				if got := requireAPIError(t, err).Kind; got != pkgerrs.KindUnknown {
					t.Errorf("Expected unknown kind, got %v", got)
				}
			}
		})
	}
}
