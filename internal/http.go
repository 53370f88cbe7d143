package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

const (
	// ParseFloatBitSize is used when reading Reddit's quota headers.
	ParseFloatBitSize = 64
	// maxResponseBytes bounds how much of a response body is read into memory.
	maxResponseBytes = 10 << 20
)

// Client is an authenticated request context for the resource API. Every request it
// sends carries the bearer token it was built with and the configured user agent.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
}

// Quota is Reddit's view of the caller's quota, read from the X-Ratelimit-* headers.
type Quota struct {
	Used      float64   `json:"used"`
	Remaining float64   `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// NewClient returns a request context for baseURL authorized by token.
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, token *oauth2.Token, baseURL string, userAgent string) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	authed := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   httpClient.Transport,
		},
		CheckRedirect: httpClient.CheckRedirect,
		Jar:           httpClient.Jar,
		Timeout:       httpClient.Timeout,
	}

	return &Client{
		client:    authed,
		BaseURL:   parsedURL,
		UserAgent: userAgent,
	}, nil
}

// NewRequest creates an API request. A relative URL can be provided in path,
// in which case it is resolved relative to the BaseURL of the Client.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u, err := c.BaseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "invalid request path " + strconv.Quote(path), Err: err}
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "failed to create request", Err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)

	return req, nil
}

// NewFormRequest creates a POST request with a form encoded body.
func (c *Client) NewFormRequest(ctx context.Context, path string, form url.Values) (*http.Request, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	encoded := form.Encode()
	req.Body = io.NopCloser(strings.NewReader(encoded))
	req.ContentLength = int64(len(encoded))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(encoded)), nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req, nil
}

// Do sends an API request and JSON decodes the response into v. Non-2xx responses
// are returned as classified *pkgerrs.Error values; the response is returned
// alongside so callers can read headers.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	resp, body, err := c.send(req)
	if err != nil {
		return resp, err
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return resp, &pkgerrs.Error{
				Kind:       pkgerrs.KindUnknown,
				StatusCode: resp.StatusCode,
				Message:    "failed to decode response",
				Details:    preview(body),
				Err:        err,
			}
		}
	}

	return resp, nil
}

// DoRaw sends an API request and returns the raw body. It is used for endpoints
// whose top level shape varies.
func (c *Client) DoRaw(req *http.Request) (*http.Response, []byte, error) {
	return c.send(req)
}

func (c *Client) send(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, pkgerrs.Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, nil, &pkgerrs.Error{
			Kind:       pkgerrs.KindUnknown,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, body, pkgerrs.FromResponse(resp, body)
	}

	return resp, body, nil
}

// ParseQuota reads the X-Ratelimit-Remaining, -Reset and -Used headers. ok is false
// when Remaining or Reset is missing or malformed, or Reset is negative. Used is
// optional and reads as 0 when absent or malformed.
func ParseQuota(h http.Header, now time.Time) (q Quota, ok bool) {
	usedHeader := h.Get("X-Ratelimit-Used")
	remainingHeader := h.Get("X-Ratelimit-Remaining")
	resetHeader := h.Get("X-Ratelimit-Reset")
	if remainingHeader == "" || resetHeader == "" {
		return Quota{}, false
	}

	remaining, errRemaining := strconv.ParseFloat(remainingHeader, ParseFloatBitSize)
	resetSeconds, errReset := strconv.ParseFloat(resetHeader, ParseFloatBitSize)
	if errRemaining != nil || errReset != nil || resetSeconds < 0 {
		return Quota{}, false
	}

	used, _ := strconv.ParseFloat(usedHeader, ParseFloatBitSize)

	return Quota{
		Used:      used,
		Remaining: remaining,
		ResetsAt:  now.Add(time.Duration(resetSeconds * float64(time.Second))),
	}, true
}

func preview(body []byte) string {
	const limit = 500
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
