package ports

import (
	"context"
	"time"
)

// LLMClient defines the interface the refinement steps use to talk to a
// Large Language Model provider. Implementations handle provider
// details like authentication, request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request and returns the generated
	// text. The options map carries provider-specific settings such as
	// "temperature" (float64), "max_tokens" (int), and "system" (string).
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens approximates the token count of text, for cost
	// estimation and staying within model limits.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string
}

// MetricsCollector defines the interface the engine emits operational
// metrics through. Implementations integrate with observability
// platforms such as Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a distribution metric.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
