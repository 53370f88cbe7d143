package helpers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
)

// ChaosMode defines the type of chaos to inject
type ChaosMode int

const (
	// ChaosNone performs normal HTTP requests
	ChaosNone ChaosMode = iota

	// ChaosConnectionReset fails the request with ECONNRESET
	ChaosConnectionReset

	// ChaosPartialRead fails while the body is being read
	ChaosPartialRead

	// ChaosEmptyBody answers 200 with no body
	ChaosEmptyBody
)

// ChaosConfig configures the chaos transport behavior
type ChaosConfig struct {
	// Mode determines which type of chaos to inject
	Mode ChaosMode

	// Failures is how many API requests fail before the transport behaves.
	// Token requests are never disturbed.
	Failures int

	// TokenPath identifies token requests. Default: /api/v1/access_token
	TokenPath string
}

// ChaosTransport wraps an http.RoundTripper and injects failures into API requests
type ChaosTransport struct {
	next     http.RoundTripper
	config   ChaosConfig
	injected atomic.Int64
	requests atomic.Int64
}

// NewChaosClient creates an http.Client whose transport injects failures
func NewChaosClient(config ChaosConfig) (*http.Client, *ChaosTransport) {
	if config.TokenPath == "" {
		config.TokenPath = "/api/v1/access_token"
	}
	t := &ChaosTransport{next: http.DefaultTransport, config: config}
	return &http.Client{Transport: t}, t
}

// Injected reports how many failures were injected.
func (c *ChaosTransport) Injected() int {
	return int(c.injected.Load())
}

// Requests reports how many API requests passed through the transport.
func (c *ChaosTransport) Requests() int {
	return int(c.requests.Load())
}

// RoundTrip implements http.RoundTripper
func (c *ChaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path == c.config.TokenPath {
		return c.next.RoundTrip(req)
	}

	n := c.requests.Add(1)
	if c.config.Mode == ChaosNone || n > int64(c.config.Failures) {
		return c.next.RoundTrip(req)
	}
	c.injected.Add(1)

	switch c.config.Mode {
	case ChaosConnectionReset:
		return nil, &netError{err: syscall.ECONNRESET}
	case ChaosEmptyBody:
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		}, nil
	case ChaosPartialRead:
		resp, err := c.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp.Body = &partialReadCloser{body: resp.Body, remaining: 16}
		return resp, nil
	}
	return c.next.RoundTrip(req)
}

type netError struct {
	err error
}

func (e *netError) Error() string   { return "read tcp: " + e.err.Error() }
func (e *netError) Unwrap() error   { return e.err }
func (e *netError) Timeout() bool   { return false }
func (e *netError) Temporary() bool { return true }

// partialReadCloser returns remaining bytes and then fails
type partialReadCloser struct {
	body      io.ReadCloser
	remaining int
}

var errUnexpectedEOF = errors.New("connection closed mid body")

func (p *partialReadCloser) Read(buf []byte) (int, error) {
	if p.remaining <= 0 {
		return 0, errUnexpectedEOF
	}
	if len(buf) > p.remaining {
		buf = buf[:p.remaining]
	}
	n, err := p.body.Read(buf)
	p.remaining -= n
	return n, err
}

func (p *partialReadCloser) Close() error {
	return p.body.Close()
}
