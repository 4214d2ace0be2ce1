package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrProvider = "provider"
	attrResult   = "result"
	attrMethod   = "method"
	attrReason   = "reason"
)

// Metrics provides methods for recording pipeline observability metrics.
// The zero value is a no-op recorder.
type Metrics struct {
	messagesTotal    metric.Int64Counter
	extractionTotal  metric.Int64Counter
	fallbackTotal    metric.Int64Counter
	syncTotal        metric.Int64Counter
	runDuration      metric.Float64Histogram
	providerDuration metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.messagesTotal, err = meter.Int64Counter(
		"pipeline_messages_total",
		metric.WithDescription("Total number of email messages processed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_messages_total counter: %w", err)
	}

	m.extractionTotal, err = meter.Int64Counter(
		"extraction_attempts_total",
		metric.WithDescription("Total number of provider extraction attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction_attempts_total counter: %w", err)
	}

	m.fallbackTotal, err = meter.Int64Counter(
		"extraction_fallback_total",
		metric.WithDescription("Total number of messages that fell back to the heuristic extractor"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction_fallback_total counter: %w", err)
	}

	m.syncTotal, err = meter.Int64Counter(
		"calendar_sync_total",
		metric.WithDescription("Total number of calendar sync outcomes"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_sync_total counter: %w", err)
	}

	m.runDuration, err = meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_run_duration_seconds histogram: %w", err)
	}

	m.providerDuration, err = meter.Float64Histogram(
		"provider_call_duration_seconds",
		metric.WithDescription("AI provider call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_call_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordMessages counts messages entering a run.
func (m *Metrics) RecordMessages(ctx context.Context, count int) {
	if m.messagesTotal == nil {
		return
	}
	m.messagesTotal.Add(ctx, int64(count))
}

// RecordExtraction counts one provider attempt with its result class
// ("success", "unavailable", "rate_limited", "malformed_response",
// "timeout").
func (m *Metrics) RecordExtraction(ctx context.Context, provider, result string) {
	if m.extractionTotal == nil {
		return
	}
	m.extractionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	))
}

// RecordFallback counts one message that fell through to the heuristic.
func (m *Metrics) RecordFallback(ctx context.Context) {
	if m.fallbackTotal == nil {
		return
	}
	m.fallbackTotal.Add(ctx, 1)
}

// RecordSync counts one reconciliation outcome ("synced", "sync-failed")
// with its reason when failed.
func (m *Metrics) RecordSync(ctx context.Context, result, reason string) {
	if m.syncTotal == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrResult, result)}
	if reason != "" {
		attrs = append(attrs, attribute.String(attrReason, reason))
	}
	m.syncTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRunDuration records the duration of one pipeline run.
func (m *Metrics) RecordRunDuration(ctx context.Context, d time.Duration) {
	if m.runDuration == nil {
		return
	}
	m.runDuration.Record(ctx, d.Seconds())
}

// RecordProviderDuration records the duration of one provider call.
func (m *Metrics) RecordProviderDuration(ctx context.Context, provider string, d time.Duration) {
	if m.providerDuration == nil {
		return
	}
	m.providerDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(attrProvider, provider),
	))
}
