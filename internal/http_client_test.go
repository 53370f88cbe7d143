package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"

	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
	"github.com/jamesprial/reddit-mcp-server/pkg/types"
)

func testToken(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "bearer", Expiry: time.Now().Add(time.Hour)}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestNewClient_BaseURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient(nil, testToken("t"), "https://example.com/api", "agent")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if got := c.BaseURL.String(); got != "https://example.com/api/" {
		t.Errorf("expected base URL to gain trailing slash, got %q", got)
	}

	_, err = NewClient(nil, testToken("t"), "://bad", "agent")
	var cfgErr *pkgerrs.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestClient_NewRequest(t *testing.T) {
	t.Parallel()

	c, err := NewClient(nil, testToken("t"), "https://example.com", "my-agent")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	req, err := c.NewRequest(context.Background(), http.MethodGet, "/r/golang/hot", url.Values{"limit": {"5"}})
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}
	if got := req.URL.String(); got != "https://example.com/r/golang/hot?limit=5" {
		t.Errorf("unexpected request URL: %s", got)
	}
	if got := req.Header.Get("User-Agent"); got != "my-agent" {
		t.Errorf("expected User-Agent 'my-agent', got %q", got)
	}

	if _, err := c.NewRequest(context.Background(), http.MethodGet, "%zz", nil); err == nil {
		t.Fatal("expected error constructing request with invalid path")
	}
}

func TestClient_NewFormRequest(t *testing.T) {
	t.Parallel()

	c, err := NewClient(nil, testToken("t"), "https://example.com", "agent")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	req, err := c.NewFormRequest(context.Background(), "api/vote", url.Values{"id": {"t3_abc"}, "dir": {"1"}})
	if err != nil {
		t.Fatalf("NewFormRequest returned error: %v", err)
	}
	if req.Method != http.MethodPost {
		t.Errorf("Method = %s", req.Method)
	}
	if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", got)
	}

	body, _ := io.ReadAll(req.Body)
	if string(body) != "dir=1&id=t3_abc" {
		t.Errorf("body = %q", body)
	}
	again, err := req.GetBody()
	if err != nil {
		t.Fatalf("GetBody: %v", err)
	}
	replay, _ := io.ReadAll(again)
	if string(replay) != string(body) {
		t.Errorf("GetBody replay = %q", replay)
	}
}

func TestClient_DoSendsBearerAndDecodes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-value" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"kind":"t3","data":{"id":"abc123"}}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.Client(), testToken("token-value"), server.URL, "agent")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	req, err := c.NewRequest(context.Background(), http.MethodGet, "test", nil)
	if err != nil {
		t.Fatalf("NewRequest returned error: %v", err)
	}

	var thing types.Thing
	if _, err := c.Do(req, &thing); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if thing.Kind != "t3" {
		t.Errorf("expected kind 't3', got %q", thing.Kind)
	}
	if len(thing.Data) == 0 {
		t.Errorf("expected data to be populated")
	}
}

func TestClient_DoClassifiesStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		header    map[string]string
		body      string
		wantKind  pkgerrs.Kind
		wantRetry time.Duration
		wantCode  string
	}{
		{name: "unauthorized", status: 401, body: `{"message":"Unauthorized","error":401}`, wantKind: pkgerrs.KindAuthentication, wantCode: "401"},
		{name: "forbidden", status: 403, wantKind: pkgerrs.KindForbidden},
		{name: "not found", status: 404, wantKind: pkgerrs.KindNotFound},
		{name: "rate limited", status: 429, header: map[string]string{"Retry-After": "30"}, wantKind: pkgerrs.KindRateLimit, wantRetry: 30 * time.Second},
		{name: "rate limited default", status: 429, wantKind: pkgerrs.KindRateLimit, wantRetry: pkgerrs.DefaultRetryAfter},
		{name: "bad gateway", status: 502, wantKind: pkgerrs.KindServiceUnavailable},
		{name: "teapot", status: 418, wantKind: pkgerrs.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, _ := NewClient(server.Client(), testToken("t"), server.URL, "agent")
			req, _ := c.NewRequest(context.Background(), http.MethodGet, "x", nil)
			resp, err := c.Do(req, nil)

			var apiErr *pkgerrs.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *pkgerrs.Error", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", apiErr.Kind, tt.wantKind)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d", apiErr.StatusCode)
			}
			if apiErr.RetryAfter != tt.wantRetry {
				t.Errorf("RetryAfter = %v, want %v", apiErr.RetryAfter, tt.wantRetry)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if resp == nil {
				t.Error("expected the response alongside the error")
			}
		})
	}
}

func TestClient_DoDecodeFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	c, _ := NewClient(server.Client(), testToken("t"), server.URL, "agent")
	req, _ := c.NewRequest(context.Background(), http.MethodGet, "x", nil)

	var thing types.Thing
	_, err := c.Do(req, &thing)
	var apiErr *pkgerrs.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != pkgerrs.KindUnknown {
		t.Fatalf("err = %v, want unknown *pkgerrs.Error", err)
	}
	if apiErr.Details != "<html>maintenance</html>" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}

func TestClient_DoTransportErrorWrapped(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("boom")
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, expectedErr
	})}

	c, err := NewClient(httpClient, testToken("t"), "https://example.com/", "agent")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	req, _ := c.NewRequest(context.Background(), http.MethodGet, "resource", nil)

	_, err = c.Do(req, nil)
	var apiErr *pkgerrs.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *pkgerrs.Error, got %T", err)
	}
	if apiErr.Kind != pkgerrs.KindUnknown {
		t.Errorf("Kind = %v", apiErr.Kind)
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected wrapped error %v, got %v", expectedErr, err)
	}
}

func TestParseQuota(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header http.Header
		wantOK bool
		want   Quota
	}{
		{
			name: "all headers",
			header: http.Header{
				"X-Ratelimit-Used":      {"40"},
				"X-Ratelimit-Remaining": {"560.0"},
				"X-Ratelimit-Reset":     {"120"},
			},
			wantOK: true,
			want:   Quota{Used: 40, Remaining: 560, ResetsAt: now.Add(2 * time.Minute)},
		},
		{name: "missing", header: http.Header{}, wantOK: false},
		{
			name:   "used is optional",
			header: http.Header{"X-Ratelimit-Remaining": {"7"}, "X-Ratelimit-Reset": {"30"}},
			wantOK: true,
			want:   Quota{Used: 0, Remaining: 7, ResetsAt: now.Add(30 * time.Second)},
		},
		{
			name:   "malformed remaining",
			header: http.Header{"X-Ratelimit-Remaining": {"lots"}, "X-Ratelimit-Reset": {"10"}},
			wantOK: false,
		},
		{
			name:   "negative reset",
			header: http.Header{"X-Ratelimit-Remaining": {"1"}, "X-Ratelimit-Reset": {"-5"}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseQuota(tt.header, now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got.Used != tt.want.Used || got.Remaining != tt.want.Remaining || !got.ResetsAt.Equal(tt.want.ResetsAt)) {
				t.Errorf("Quota = %+v, want %+v", got, tt.want)
			}
		})
	}
}
