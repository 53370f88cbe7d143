package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newMeterReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// counterPoints collects the data points of an int64 counter by name.
func counterPoints(t *testing.T, reader *sdkmetric.ManualReader, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s data = %T, want metricdata.Sum[int64]", name, m.Data)
			}
			return sum.DataPoints
		}
	}
	return nil
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var total int64
	for _, dp := range counterPoints(t, reader, name) {
		total += dp.Value
	}
	return total
}

func TestRateLimiter_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader, mp := newMeterReader()
	rl := NewRateLimiterFromConfig(RateLimitConfig{RequestsPerMinute: 1, MeterProvider: mp}, nil)

	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rl.Acquire(ctx) }()
	waitForQueued(t, rl, 1)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("queued Acquire err = %v, want context.Canceled", err)
	}

	tests := []struct {
		name string
		want int64
	}{
		{name: "reddit.ratelimit.acquired", want: 1},
		{name: "reddit.ratelimit.queued", want: 1},
		{name: "reddit.ratelimit.rejected", want: 1},
	}
	for _, tt := range tests {
		if got := counterTotal(t, reader, tt.name); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestAuthManager_RecordsGrantMetrics(t *testing.T) {
	t.Parallel()

	mock := newMockAuthServer(t)
	mock.respond("refresh_token", http.StatusBadRequest, `{"error": "invalid_grant"}`)
	mock.respond("password", http.StatusOK, tokenBody("pw-token", 3600, ""))
	srv := httptest.NewServer(mock)
	defer srv.Close()

	reader, mp := newMeterReader()
	a, err := NewAuthManager(srv.Client(), Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		UserAgent:    "test-agent/1.0",
		Username:     "alice",
		Password:     "hunter2",
		RefreshToken: "stale",
	}, srv.URL, srv.URL+"/api", nil, mp)
	if err != nil {
		t.Fatalf("NewAuthManager: %v", err)
	}

	if _, err := a.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken: %v", err)
	}

	got := map[string]int64{}
	for _, dp := range counterPoints(t, reader, "reddit.auth.grants") {
		grant, _ := dp.Attributes.Value("grant_type")
		outcome, _ := dp.Attributes.Value("outcome")
		got[grant.AsString()+"/"+outcome.AsString()] += dp.Value
	}
	want := map[string]int64{"refresh_token/failure": 1, "password/success": 1}
	if len(got) != len(want) {
		t.Fatalf("grants = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("grants[%s] = %d, want %d", k, got[k], v)
		}
	}
}
