package internal

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName identifies this module's meters and tracers.
const InstrumentationName = "github.com/jamesprial/reddit-mcp-server"

// meterFrom returns this module's meter from mp, or from the global provider when mp
// is nil.
func meterFrom(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(InstrumentationName)
}

// limiterMetrics records rate limiter admission.
type limiterMetrics struct {
	acquired metric.Int64Counter
	queued   metric.Int64Counter
	rejected metric.Int64Counter
	waitMs   metric.Float64Histogram
}

func newLimiterMetrics(mp metric.MeterProvider) *limiterMetrics {
	meter := meterFrom(mp)
	m := &limiterMetrics{}
	// Creation only fails on invalid names and still returns a usable instrument.
	m.acquired, _ = meter.Int64Counter("reddit.ratelimit.acquired",
		metric.WithDescription("Tokens granted by the rate limiter"),
		metric.WithUnit("{token}"))
	m.queued, _ = meter.Int64Counter("reddit.ratelimit.queued",
		metric.WithDescription("Acquisitions that had to wait for a refill"),
		metric.WithUnit("{request}"))
	m.rejected, _ = meter.Int64Counter("reddit.ratelimit.rejected",
		metric.WithDescription("Queued acquisitions rejected by reset or cancellation"),
		metric.WithUnit("{request}"))
	m.waitMs, _ = meter.Float64Histogram("reddit.ratelimit.wait_ms",
		metric.WithDescription("Time spent queued before a token was granted"),
		metric.WithUnit("ms"))
	return m
}

// authMetrics records grant attempts against the token endpoint.
type authMetrics struct {
	grants metric.Int64Counter
}

func newAuthMetrics(mp metric.MeterProvider) *authMetrics {
	meter := meterFrom(mp)
	grants, _ := meter.Int64Counter("reddit.auth.grants",
		metric.WithDescription("Token endpoint grant attempts by grant type and outcome"),
		metric.WithUnit("{grant}"))
	return &authMetrics{grants: grants}
}
