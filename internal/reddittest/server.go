// Package reddittest runs an in-process fake of Reddit's OAuth and API
// endpoints. Tests register handlers for the API routes they exercise; the
// token endpoint is always served.
package reddittest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

const (
	// TokenPath is the OAuth token endpoint path, relative to the auth URL.
	TokenPath = "/api/v1/access_token"

	AccessToken  = "api-token"
	RefreshToken = "refresh-1"
)

// Server is a fake Reddit. API requests are logged before they are routed so
// tests can assert on what the client actually sent.
type Server struct {
	srv        *httptest.Server
	mux        *http.ServeMux
	tokenCalls atomic.Int32

	mu          sync.Mutex
	tokenStatus int
	tokenBody   string
	quota       http.Header
	requests    []*http.Request
	forms       []string
}

// NewServer starts a fake that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{mux: http.NewServeMux(), tokenStatus: http.StatusOK}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == TokenPath {
		s.serveToken(w, r)
		return
	}

	_ = r.ParseForm()
	s.mu.Lock()
	s.requests = append(s.requests, r.Clone(context.Background()))
	s.forms = append(s.forms, r.PostForm.Encode())
	for k, v := range s.quota {
		w.Header()[k] = v
	}
	s.mu.Unlock()

	s.mux.ServeHTTP(w, r)
}

func (s *Server) serveToken(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	status, body := s.tokenStatus, s.tokenBody
	s.mu.Unlock()
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	if body == "" {
		body = fmt.Sprintf(`{"access_token":%q,"token_type":"bearer","expires_in":3600,"refresh_token":%q}`,
			AccessToken, RefreshToken)
	}
	WriteJSON(w, body)
}

// URL returns the server's base URL with a trailing slash, usable as both the
// API and the auth base URL.
func (s *Server) URL() string {
	return s.srv.URL + "/"
}

// Handle registers a handler for a ServeMux pattern such as "GET /r/{sub}/hot".
func (s *Server) Handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// HandleJSON registers a handler that always answers with body.
func (s *Server) HandleJSON(pattern, body string) {
	s.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) { WriteJSON(w, body) })
}

// HandleError registers a handler that always answers with status.
func (s *Server) HandleError(pattern string, status int) {
	s.Handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(status), status)
	})
}

// FailToken makes the token endpoint answer with status from now on.
func (s *Server) FailToken(status int) {
	s.mu.Lock()
	s.tokenStatus = status
	s.mu.Unlock()
}

// SetTokenBody makes the token endpoint answer 200 with body from now on.
func (s *Server) SetTokenBody(body string) {
	s.mu.Lock()
	s.tokenBody = body
	s.mu.Unlock()
}

// SetupRateLimit adds Reddit's X-Ratelimit headers to every API response.
func (s *Server) SetupRateLimit(remaining, used, resetSeconds int) {
	h := http.Header{}
	h.Set("X-Ratelimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-Ratelimit-Used", strconv.Itoa(used))
	h.Set("X-Ratelimit-Reset", strconv.Itoa(resetSeconds))
	s.mu.Lock()
	s.quota = h
	s.mu.Unlock()
}

// TokenCalls counts requests to the token endpoint.
func (s *Server) TokenCalls() int {
	return int(s.tokenCalls.Load())
}

// APICalls counts requests to everything but the token endpoint.
func (s *Server) APICalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// CallCount counts API requests whose path equals path.
func (s *Server) CallCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent API request and its encoded form body.
func (s *Server) LastRequest(t testing.TB) (*http.Request, string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("no API request recorded")
	}
	return s.requests[len(s.requests)-1], s.forms[len(s.forms)-1]
}

// WriteJSON writes body with a JSON content type.
func WriteJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}
