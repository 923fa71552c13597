package llm

import (
	"context"
	"encoding/json"
	"time"

	"notedigest/pkg/metrics"
	"notedigest/pkg/resilience"
)

// Resilient decorates a Client with a circuit breaker and call-duration
// metrics. Each decorated client is dedicated to one operation (classify,
// summarize, digest) so the breaker state and latency series stay separate.
type Resilient struct {
	inner     Client
	operation string
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics
}

// WithResilience wraps a Client for the named operation. metrics may be nil.
func WithResilience(inner Client, operation string, m *metrics.Metrics) *Resilient {
	return &Resilient{
		inner:     inner,
		operation: operation,
		breaker:   resilience.NewCircuitBreaker("llm-"+operation, resilience.CircuitBreakerConfig{}),
		metrics:   m,
	}
}

func (r *Resilient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var out json.RawMessage
	err := r.execute(func() error {
		var callErr error
		out, callErr = r.inner.GenerateJSON(ctx, prompt, input)
		return callErr
	})
	return out, err
}

func (r *Resilient) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out string
	err := r.execute(func() error {
		var callErr error
		out, callErr = r.inner.GenerateText(ctx, prompt)
		return callErr
	})
	return out, err
}

func (r *Resilient) execute(fn func() error) error {
	start := time.Now()
	err := r.breaker.Execute(fn)
	if r.metrics != nil {
		r.metrics.LLMCallDuration.WithLabelValues(r.operation).Observe(time.Since(start).Seconds())
	}
	return err
}
