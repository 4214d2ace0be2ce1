package instrumentation

import (
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, ctx context.Context) *Provider {
	t.Helper()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

func TestMetrics_RecordExtraction(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordExtraction(ctx, "anthropic", "success")
	metrics.RecordExtraction(ctx, "gemini", "rate_limited")
	metrics.RecordProviderDuration(ctx, "anthropic", 200*time.Millisecond)
}

func TestMetrics_RecordSync(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordSync(ctx, "synced", "")
	metrics.RecordSync(ctx, "sync-failed", "insufficient-scope")
}

func TestMetrics_RecordRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider := newTestProvider(t, ctx)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordMessages(ctx, 12)
	metrics.RecordFallback(ctx)
	metrics.RecordRunDuration(ctx, 3*time.Second)
}

func TestMetrics_ZeroValueIsNoOp(t *testing.T) {
	ctx := context.Background()
	var m Metrics

	// Should not panic when instrumentation is disabled.
	m.RecordMessages(ctx, 1)
	m.RecordExtraction(ctx, "ollama", "timeout")
	m.RecordFallback(ctx)
	m.RecordSync(ctx, "synced", "")
	m.RecordRunDuration(ctx, time.Second)
	m.RecordProviderDuration(ctx, "ollama", time.Second)
}
