package graw

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jamesprial/reddit-mcp-server/internal"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

const (
	// DefaultBaseURL is the default Reddit API base URL
	DefaultBaseURL = "https://oauth.reddit.com/"
	// DefaultAuthURL is the default Reddit OAuth base URL
	DefaultAuthURL = "https://www.reddit.com/"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
)

// Config holds the configuration for the Reddit client.
//
// ClientID, ClientSecret and UserAgent are always required. Authentication uses the
// refresh token when one is set and falls back to Username and Password.
type Config struct {
	// ClientID and ClientSecret identify the Reddit app (HTTP basic auth on the
	// token endpoint).
	ClientID     string
	ClientSecret string

	// UserAgent identifies your application to Reddit.
	// Should follow format: "platform:app-name:version (by /u/username)"
	UserAgent string

	// Username and Password for the password grant.
	Username string
	Password string

	// RefreshToken for the refresh token grant, tried before the password grant.
	RefreshToken string

	// RequestsPerMinute is the local token bucket size and refill per minute.
	// Default: 60
	RequestsPerMinute int

	// MaxRetries is the number of attempts made for retryable failures.
	// Default: 3
	MaxRetries int

	// RetryBaseDelay is the exponential backoff base.
	// Default: 1s
	RetryBaseDelay time.Duration

	// MaxRetryWait caps the total time spent waiting between retries of one call.
	// Zero means no cap.
	MaxRetryWait time.Duration

	// BaseURL for the Reddit API.
	// Defaults to DefaultBaseURL if not specified.
	BaseURL string

	// AuthURL for Reddit OAuth authentication.
	// Defaults to DefaultAuthURL if not specified.
	AuthURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Nil discards.
	Logger *slog.Logger

	// TracerProvider for per-call spans. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// MeterProvider for rate limiter and auth instruments. Defaults to the global
	// provider.
	MeterProvider metric.MeterProvider
}

// Status is a snapshot of the client's local and server side quota.
type Status struct {
	Authenticated bool                     `json:"authenticated"`
	Limiter       internal.RateLimitStatus `json:"limiter"`
	// Quota is what Reddit reported on the most recent response, if any.
	Quota *internal.Quota `json:"quota,omitempty"`
}

// Client is the Reddit API client.
//
// Every API method passes through the same pipeline: the request waits for a
// token from the local rate limiter, obtains an authenticated request context
// (authenticating or refreshing as needed, with retries), sends the request and
// classifies any failure into a *pkgerrs.Error. Read calls are retried as a whole;
// write calls are sent once.
type Client struct {
	config    *Config
	auth      *internal.AuthManager
	limiter   *internal.RateLimiter
	parser    *internal.Parser
	validator *internal.Validator
	logger    *slog.Logger
	tracer    trace.Tracer
	retry     pkgerrs.RetryPolicy

	mu    sync.Mutex
	quota *internal.Quota
}

// NewClient creates a new Reddit client with the provided configuration.
// It validates the configuration but does not authenticate; the first API call does.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}
	cfg := *config
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	auth, err := internal.NewAuthManager(cfg.HTTPClient, internal.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		UserAgent:    cfg.UserAgent,
		Username:     cfg.Username,
		Password:     cfg.Password,
		RefreshToken: cfg.RefreshToken,
	}, cfg.AuthURL, cfg.BaseURL, logger, cfg.MeterProvider)
	if err != nil {
		return nil, err
	}

	limiter := internal.NewRateLimiterFromConfig(internal.RateLimitConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		MeterProvider:     cfg.MeterProvider,
	}, logger)

	c := &Client{
		config:    &cfg,
		auth:      auth,
		limiter:   limiter,
		parser:    internal.NewParser(),
		validator: internal.NewValidator(),
		logger:    logger,
		tracer:    cfg.TracerProvider.Tracer(internal.InstrumentationName),
	}
	c.retry = pkgerrs.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxWait:    cfg.MaxRetryWait,
		OnRetry: func(attempt int, err *pkgerrs.Error, delay time.Duration) {
			c.logger.Warn("retrying reddit request",
				"attempt", attempt, "kind", err.Kind.String(), "status", err.StatusCode, "delay", delay)
		},
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.TracerProvider == nil {
		c.TracerProvider = otel.GetTracerProvider()
	}
	if c.MeterProvider == nil {
		c.MeterProvider = otel.GetMeterProvider()
	}
	// Negative values are left for Validate to reject.
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = internal.DefaultRequestsPerMinute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = pkgerrs.DefaultMaxRetries
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = pkgerrs.DefaultBaseDelay
	}
}

// sendFunc issues one request with an authenticated context.
type sendFunc func(ctx context.Context, api *internal.Client) (*http.Response, error)

// call runs send through the admission, authentication and classification pipeline.
func (c *Client) call(ctx context.Context, op string, retryable bool, send sendFunc) error {
	ctx, span := c.tracer.Start(ctx, "reddit."+op, trace.WithAttributes(
		attribute.String("reddit.operation", op),
	))
	defer span.End()

	attempt := func(ctx context.Context) (struct{}, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return struct{}{}, err
		}
		api, err := pkgerrs.Retry(ctx, c.retry, c.auth.NewAuthenticatedClient)
		if err != nil {
			return struct{}{}, err
		}
		resp, err := send(ctx, api)
		if resp != nil {
			c.recordQuota(resp)
		}
		return struct{}{}, err
	}

	var err error
	if retryable {
		_, err = pkgerrs.Retry(ctx, c.retry, attempt)
	} else {
		_, err = attempt(ctx)
	}
	if err == nil {
		return nil
	}

	apiErr := pkgerrs.Classify(err)
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Kind.String())
	if apiErr.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", apiErr.StatusCode))
	}
	c.logger.Debug("reddit request failed", "operation", op, "kind", apiErr.Kind.String(), "error", apiErr)
	return apiErr
}

func (c *Client) recordQuota(resp *http.Response) {
	q, ok := internal.ParseQuota(resp.Header, time.Now())
	if !ok {
		return
	}
	c.mu.Lock()
	c.quota = &q
	c.mu.Unlock()
}

// Status reports the local limiter state and the last quota Reddit reported.
func (c *Client) Status() Status {
	s := Status{
		Authenticated: c.auth.IsAuthenticated(),
		Limiter:       c.limiter.Status(),
	}
	c.mu.Lock()
	if c.quota != nil {
		q := *c.quota
		s.Quota = &q
	}
	c.mu.Unlock()
	return s
}

// ResetRateLimiter refills the local bucket and rejects every queued request with
// pkgerrs.ErrLimiterReset.
func (c *Client) ResetRateLimiter() {
	c.limiter.Reset()
}

// IsAuthenticated reports whether an unexpired access token is cached.
func (c *Client) IsAuthenticated() bool {
	return c.auth.IsAuthenticated()
}

// RevokeToken revokes the cached access token. The client stays usable and
// re-authenticates on the next call.
func (c *Client) RevokeToken(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "reddit.revoke_token")
	defer span.End()

	if err := c.auth.RevokeToken(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke failed")
		return err
	}
	return nil
}

// RefreshToken returns the current refresh token so callers can persist it.
func (c *Client) RefreshToken() string {
	return c.auth.RefreshToken()
}

// SetRefreshToken restores a previously persisted refresh token.
func (c *Client) SetRefreshToken(token string) {
	c.auth.SetRefreshToken(token)
}
