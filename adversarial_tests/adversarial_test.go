// Package adversarial_tests drives the client with hostile inputs, malformed
// payloads, failing transports and heavy concurrency.
package adversarial_tests

import (
	"errors"
	"testing"
	"time"

	graw "github.com/jamesprial/reddit-mcp-server"
	"github.com/jamesprial/reddit-mcp-server/internal/reddittest"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

const subredditAbout = `{"kind":"t5","data":{"id":"2rc7j","name":"t5_2rc7j","display_name":"golang"}}`

// createTestClient builds a client against srv that makes one attempt per call
// unless mutate says otherwise.
func createTestClient(t *testing.T, srv *reddittest.Server, mutate func(*graw.Config)) *graw.Client {
	t.Helper()
	cfg := &graw.Config{
		ClientID:          "test_client",
		ClientSecret:      "test_secret",
		UserAgent:         "test:adversarial:1.0 (by /u/tester)",
		Username:          "test_user",
		Password:          "test_pass",
		BaseURL:           srv.URL(),
		AuthURL:           srv.URL(),
		RequestsPerMinute: 6000,
		MaxRetries:        1,
		RetryBaseDelay:    time.Millisecond,
	}
	if mutate != nil {
		mutate(cfg)
	}
	client, err := graw.NewClient(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

// requireAPIError fails unless err is a classified client error.
func requireAPIError(t *testing.T, err error) *pkgerrs.Error {
	t.Helper()
	if err == nil {
		t.Fatal("Expected an error, got nil")
	}
	var apiErr *pkgerrs.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *errors.Error, got %T: %v", err, err)
	}
	return apiErr
}
