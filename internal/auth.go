package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

const (
	defaultTokenEndpointPath  = "api/v1/access_token"
	defaultRevokeEndpointPath = "api/v1/revoke_token"

	// ExpirySafetyMargin is subtracted from a token's expiry when deciding whether
	// it can still be handed out.
	ExpirySafetyMargin = 60 * time.Second

	// grantTimeout bounds one shared authentication, refresh and password
	// fallback included.
	grantTimeout = 60 * time.Second

	// maxTokenResponseBytes bounds the token response body; real responses are
	// well under 1KB.
	maxTokenResponseBytes = 64 << 10

	grantPassword     = "password"
	grantRefreshToken = "refresh_token"
)

// Credentials are the OAuth2 client credentials plus the optional user grant material.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Username     string
	Password     string
	RefreshToken string
}

// AuthManager obtains, caches and renews access tokens from Reddit's token endpoint.
//
// The cached token is handed out until it is within ExpirySafetyMargin of expiry.
// After that AccessToken re-authenticates, preferring the refresh token grant and
// falling back to the password grant. Concurrent callers that find the token
// stale share a single in-flight authentication.
type AuthManager struct {
	client       *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	username     string
	password     string
	BaseURL      *url.URL
	APIBaseURL   *url.URL
	tokenURL     *url.URL
	revokeURL    *url.URL

	logger  *slog.Logger
	metrics *authMetrics
	now     func() time.Time

	mu           sync.Mutex
	token        *oauth2.Token
	refreshToken string
	inflight     singleflight.Group
}

// NewAuthManager creates an auth manager that talks to the authorization server at
// authBaseURL and produces request contexts for the resource API at apiBaseURL.
// Grant counts are recorded on mp, or on the global provider when mp is nil.
func NewAuthManager(httpClient *http.Client, creds Credentials, authBaseURL, apiBaseURL string, logger *slog.Logger, mp metric.MeterProvider) (*AuthManager, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	baseURL, err := parseBaseURL(authBaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "AuthURL", Message: err.Error()}
	}
	apiURL, err := parseBaseURL(apiBaseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	tokenURL, err := baseURL.Parse(defaultTokenEndpointPath)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "AuthURL", Message: fmt.Sprintf("failed to resolve token endpoint: %v", err)}
	}
	revokeURL, err := baseURL.Parse(defaultRevokeEndpointPath)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "AuthURL", Message: fmt.Sprintf("failed to resolve revoke endpoint: %v", err)}
	}

	return &AuthManager{
		client:       httpClient,
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		userAgent:    creds.UserAgent,
		username:     creds.Username,
		password:     creds.Password,
		BaseURL:      baseURL,
		APIBaseURL:   apiURL,
		tokenURL:     tokenURL,
		revokeURL:    revokeURL,
		logger:       logger,
		metrics:      newAuthMetrics(mp),
		now:          time.Now,
		refreshToken: creds.RefreshToken,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed, nil
}

// tokenResponse is the token endpoint's JSON body. Reddit answers some rejected
// grants with 200 and only the error field set.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
}

// AuthenticateWithPassword performs the password grant and caches the result.
func (a *AuthManager) AuthenticateWithPassword(ctx context.Context) (string, error) {
	tok, err := a.passwordGrant(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// AuthenticateWithRefreshToken performs the refresh token grant and caches the result.
func (a *AuthManager) AuthenticateWithRefreshToken(ctx context.Context) (string, error) {
	tok, err := a.refreshGrant(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (a *AuthManager) passwordGrant(ctx context.Context) (*oauth2.Token, error) {
	var missing []string
	if a.username == "" {
		missing = append(missing, "username")
	}
	if a.password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, &pkgerrs.Error{
			Kind:    pkgerrs.KindAuthentication,
			Message: fmt.Sprintf("password authentication requires %s", strings.Join(missing, " and ")),
		}
	}

	form := url.Values{}
	form.Set("grant_type", grantPassword)
	form.Set("username", a.username)
	form.Set("password", a.password)
	return a.requestToken(ctx, grantPassword, form)
}

func (a *AuthManager) refreshGrant(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	refresh := a.refreshToken
	a.mu.Unlock()

	if refresh == "" {
		return nil, &pkgerrs.Error{
			Kind:    pkgerrs.KindAuthentication,
			Message: "no refresh token available",
		}
	}

	form := url.Values{}
	form.Set("grant_type", grantRefreshToken)
	form.Set("refresh_token", refresh)
	return a.requestToken(ctx, grantRefreshToken, form)
}

// requestToken posts a grant to the token endpoint and stores the issued token.
func (a *AuthManager) requestToken(ctx context.Context, grantType string, form url.Values) (tok *oauth2.Token, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		a.metrics.grants.Add(ctx, 1, metric.WithAttributes(
			attribute.String("grant_type", grantType),
			attribute.String("outcome", outcome),
		))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "failed to create token request", Err: err}
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	a.logger.Debug("requesting access token", "grant_type", grantType)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, pkgerrs.Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, &pkgerrs.Error{
			Kind:       pkgerrs.KindUnknown,
			StatusCode: resp.StatusCode,
			Message:    "failed to read token response",
			Err:        err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrs.FromResponse(resp, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &pkgerrs.Error{
			Kind:       pkgerrs.KindUnknown,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode token response",
			Details:    string(body),
			Err:        err,
		}
	}
	if tr.Error != "" {
		return nil, &pkgerrs.Error{
			Kind:       pkgerrs.KindAuthentication,
			StatusCode: resp.StatusCode,
			Code:       tr.Error,
			Message:    "token endpoint rejected the " + grantType + " grant",
		}
	}
	if tr.AccessToken == "" {
		return nil, &pkgerrs.Error{
			Kind:       pkgerrs.KindAuthentication,
			StatusCode: resp.StatusCode,
			Message:    "access token was empty in response",
			Details:    string(body),
		}
	}

	tok = &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		Expiry:       a.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		ExpiresIn:    int64(tr.ExpiresIn),
	}

	a.mu.Lock()
	a.token = tok
	// Reddit does not always reissue the refresh token; keep the old one then.
	if tr.RefreshToken != "" {
		a.refreshToken = tr.RefreshToken
	}
	a.mu.Unlock()

	a.logger.Debug("access token issued", "grant_type", grantType, "expires_in", tr.ExpiresIn, "scope", tr.Scope)
	return tok, nil
}

// AccessToken returns a token that is valid for at least ExpirySafetyMargin,
// authenticating first when needed.
//
// A failed refresh token grant is logged and followed by a password grant; only
// the last attempted grant's error is returned.
func (a *AuthManager) AccessToken(ctx context.Context) (string, error) {
	tok, err := a.validToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (a *AuthManager) validToken(ctx context.Context) (*oauth2.Token, error) {
	if tok := a.cachedToken(); tok != nil {
		return tok, nil
	}

	// The grant outlives any single caller's context: callers sharing the flight
	// each stop waiting when their own ctx ends.
	ch := a.inflight.DoChan("token", func() (any, error) {
		// A flight that finished just before this one started may have stored a token.
		if tok := a.cachedToken(); tok != nil {
			return tok, nil
		}
		grantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grantTimeout)
		defer cancel()
		return a.reauthenticate(grantCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *AuthManager) reauthenticate(ctx context.Context) (*oauth2.Token, error) {
	if a.RefreshToken() != "" {
		tok, err := a.refreshGrant(ctx)
		if err == nil {
			return tok, nil
		}
		a.logger.Warn("refresh token grant failed, falling back to password grant", "error", err)
	}
	return a.passwordGrant(ctx)
}

// cachedToken returns the cached token if it is outside the safety margin.
func (a *AuthManager) cachedToken() *oauth2.Token {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil || a.token.AccessToken == "" {
		return nil
	}
	if !a.now().Before(a.token.Expiry.Add(-ExpirySafetyMargin)) {
		return nil
	}
	return a.token
}

// IsAuthenticated reports whether a token is cached and not yet past its raw expiry.
func (a *AuthManager) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != nil && a.now().Before(a.token.Expiry)
}

// RefreshToken returns the stored refresh token, for persisting across restarts.
func (a *AuthManager) RefreshToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshToken
}

// SetRefreshToken replaces the stored refresh token.
func (a *AuthManager) SetRefreshToken(token string) {
	a.mu.Lock()
	a.refreshToken = token
	a.mu.Unlock()
}

// RevokeToken revokes the cached access token. The local token is dropped before
// the revocation request is sent, so the manager is logged out even when the
// request fails; that failure is still returned.
func (a *AuthManager) RevokeToken(ctx context.Context) error {
	a.mu.Lock()
	tok := a.token
	a.token = nil
	a.mu.Unlock()

	if tok == nil || tok.AccessToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", tok.AccessToken)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return &pkgerrs.Error{Kind: pkgerrs.KindUnknown, Message: "failed to create revoke request", Err: err}
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return pkgerrs.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrs.FromResponse(resp, nil)
	}

	a.logger.Debug("access token revoked")
	return nil
}

// NewAuthenticatedClient returns a request context for the resource API bound to a
// currently valid access token.
func (a *AuthManager) NewAuthenticatedClient(ctx context.Context) (*Client, error) {
	tok, err := a.validToken(ctx)
	if err != nil {
		return nil, err
	}
	return NewClient(a.client, tok, a.APIBaseURL.String(), a.userAgent)
}
