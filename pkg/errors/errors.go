// Package errors defines the error taxonomy shared by the Reddit client, its auth
// manager and the tool layer.
//
// Transport failures are normalized into a single *Error whose Kind tells callers
// what happened without looking at HTTP internals. Callers dispatch on the Kind:
//
//	var apiErr *pkgerrs.Error
//	if errors.As(err, &apiErr) && apiErr.Kind == pkgerrs.KindRateLimit {
//		time.Sleep(apiErr.RetryAfter)
//	}
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is used for 429 responses that carry no usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// MaxRetryAfter is the longest representable Retry-After; larger values are clamped to it.
const MaxRetryAfter = time.Duration(math.MaxInt64/int64(time.Second)) * time.Second

// ErrLimiterReset is returned to requests that were waiting on the rate limiter
// when it was reset.
var ErrLimiterReset = errors.New("rate limiter reset")

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown covers any other status or a non-HTTP failure.
	KindUnknown Kind = iota
	// KindAuthentication is a 401 or a missing credential.
	KindAuthentication
	// KindForbidden is a 403.
	KindForbidden
	// KindNotFound is a 404.
	KindNotFound
	// KindRateLimit is a 429. RetryAfter tells how long to wait.
	KindRateLimit
	// KindServiceUnavailable is a 500, 502, 503 or 504.
	KindServiceUnavailable
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool {
	switch k {
	case KindAuthentication, KindForbidden, KindNotFound:
		return false
	default:
		return true
	}
}

// Error is a classified failure.
type Error struct {
	// Kind is the taxonomy tag.
	Kind Kind
	// Message is a human readable description.
	Message string
	// StatusCode is the HTTP status, zero when the failure did not come from a response.
	StatusCode int
	// Code is Reddit's machine readable error code, if it sent one.
	Code string
	// Details holds the raw response payload when it could not be reduced to a message.
	Details any
	// RetryAfter is set for KindRateLimit.
	RetryAfter time.Duration
	// Err is the underlying transport error, if any.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(" error")

	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d", e.StatusCode)
		if e.Code != "" {
			fmt.Fprintf(&sb, ", code %s", e.Code)
		}
		sb.WriteString(")")
	} else if e.Code != "" {
		fmt.Fprintf(&sb, " (code %s)", e.Code)
	}

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	if e.Err != nil && (e.Message == "" || !strings.Contains(e.Message, e.Err.Error())) {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the retry helper may try again after this error.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// Description is the structured form of an Error handed across the tool boundary.
type Description struct {
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	StatusCode        int    `json:"status_code,omitempty"`
	Code              string `json:"code,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// Describe returns the structured description of any error after classifying it.
func Describe(err error) Description {
	e := Classify(err)
	if e == nil {
		return Description{Kind: KindUnknown.String()}
	}
	msg := e.Message
	if msg == "" {
		msg = e.Error()
	}
	return Description{
		Kind:              e.Kind.String(),
		Message:           msg,
		StatusCode:        e.StatusCode,
		Code:              e.Code,
		RetryAfterSeconds: max(int(e.RetryAfter/time.Second), 0),
	}
}

// KindForStatus maps an HTTP status code to its Kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

// FromResponse classifies a non-successful response. body is the already read
// response body; when nil the body is read from resp.
func FromResponse(resp *http.Response, body []byte) *Error {
	if resp == nil {
		return &Error{Kind: KindUnknown, Message: "no response"}
	}
	if body == nil && resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	}

	e := &Error{
		Kind:       KindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		switch v := payload.Error.(type) {
		case string:
			e.Code = v
		case float64:
			e.Code = strconv.Itoa(int(v))
		}
		e.Message = payload.Message
		if e.Message == "" {
			e.Message = payload.Reason
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
		if len(body) > 0 {
			e.Details = string(body)
		}
	}

	if e.Kind == KindRateLimit {
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	return e
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultRetryAfter
	}
	if seconds, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
			return DefaultRetryAfter
		}
		if seconds >= MaxRetryAfter.Seconds() {
			return MaxRetryAfter
		}
		return time.Duration(seconds * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return DefaultRetryAfter
}

// Classify converts any error into an *Error. Already classified errors, including
// wrapped ones, are returned as is. Nil stays nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	}

	return &Error{Kind: KindUnknown, Message: msg, Err: err}
}

// KindOf returns the Kind of err after classification.
func KindOf(err error) Kind {
	if e := Classify(err); e != nil {
		return e.Kind
	}
	return KindUnknown
}

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Missing lists every required key that was absent.
	Missing []string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("config error: missing required configuration: %s", strings.Join(e.Missing, ", "))
	}
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// ValidationError reports a request argument that was rejected before anything was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
