package metrics

import (
	"context"
	"time"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder is what the generation pipeline reports to
type Recorder interface {
	RecordGeneration(ctx context.Context, duration time.Duration, outcome string, dropped int, fallback bool)
	RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int)
	RecordMidiEncoded(ctx context.Context, bytes, notes int)
	RecordBatch(ctx context.Context, operation string, succeeded, failed int)
}

// Metrics fans out to Sentry spans and CloudWatch
type Metrics struct {
	sentry     *SentryMetrics
	cloudwatch *Client
}

// New combines the backends; either may be nil
func New(sentryMetrics *SentryMetrics, cloudwatchClient *Client) *Metrics {
	return &Metrics{sentry: sentryMetrics, cloudwatch: cloudwatchClient}
}

func (m *Metrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if m.sentry != nil {
		m.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
	if m.cloudwatch != nil {
		m.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
	}
}

func (m *Metrics) RecordGeneration(ctx context.Context, duration time.Duration, outcome string, dropped int, fallback bool) {
	if m.sentry != nil {
		m.sentry.RecordGeneration(ctx, duration, outcome, dropped, fallback)
	}
	if m.cloudwatch != nil {
		m.cloudwatch.RecordGeneration(duration, outcome, dropped, fallback)
	}
}

func (m *Metrics) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	if m.sentry != nil {
		m.sentry.RecordTokenUsage(ctx, model, totalTokens, inputTokens, outputTokens)
	}
	if m.cloudwatch != nil {
		m.cloudwatch.RecordTokenUsage(model, totalTokens, inputTokens, outputTokens)
	}
}

func (m *Metrics) RecordMidiEncoded(ctx context.Context, bytes, notes int) {
	if m.sentry != nil {
		m.sentry.RecordPerformanceMetric(ctx, "midi.encode", 0, map[string]interface{}{
			"bytes": bytes,
			"notes": notes,
		})
	}
	if m.cloudwatch != nil {
		m.cloudwatch.RecordMidiEncoded(bytes, notes)
	}
}

func (m *Metrics) RecordBatch(ctx context.Context, operation string, succeeded, failed int) {
	if m.sentry != nil {
		m.sentry.RecordPerformanceMetric(ctx, "batch."+operation, 0, map[string]interface{}{
			"succeeded": succeeded,
			"failed":    failed,
		})
	}
	if m.cloudwatch != nil {
		m.cloudwatch.RecordBatch(operation, succeeded, failed)
	}
}

// Flush waits for background CloudWatch calls
func (m *Metrics) Flush() {
	if m.cloudwatch != nil {
		m.cloudwatch.Flush()
	}
}

// Noop discards everything
type Noop struct{}

func (Noop) RecordGeneration(context.Context, time.Duration, string, int, bool) {}
func (Noop) RecordTokenUsage(context.Context, string, int, int, int)            {}
func (Noop) RecordMidiEncoded(context.Context, int, int)                        {}
func (Noop) RecordBatch(context.Context, string, int, int)                      {}
