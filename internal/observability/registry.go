package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Forecast metrics
	IncrementForecasts(algorithm, status string)
	RecordForecastLatency(algorithm string, duration time.Duration)
	IncrementFallbacks(from, to string)
	IncrementCacheLookups(outcome string)

	// Solver metrics
	IncrementSolves(method, status string)
	RecordSolveLatency(method string, duration time.Duration)

	// Validation metrics
	IncrementBacktests(model string)

	// Optimization metrics
	IncrementOptimizations(status string)

	// Rate limiting metrics
	IncrementRateLimitRequests(clientID string)
	IncrementRateLimitHits(clientID string)
}

// PrometheusRegistry implements MetricsRegistry using the existing global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Forecast metrics
func (r *PrometheusRegistry) IncrementForecasts(algorithm, status string) {
	ForecastCount.WithLabelValues(algorithm, status).Inc()
}

func (r *PrometheusRegistry) RecordForecastLatency(algorithm string, duration time.Duration) {
	ForecastLatency.WithLabelValues(algorithm).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementFallbacks(from, to string) {
	FallbackCount.WithLabelValues(from, to).Inc()
}

func (r *PrometheusRegistry) IncrementCacheLookups(outcome string) {
	CacheCount.WithLabelValues(outcome).Inc()
}

// Solver metrics
func (r *PrometheusRegistry) IncrementSolves(method, status string) {
	SolveCount.WithLabelValues(method, status).Inc()
}

func (r *PrometheusRegistry) RecordSolveLatency(method string, duration time.Duration) {
	SolveLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// Validation metrics
func (r *PrometheusRegistry) IncrementBacktests(model string) {
	BacktestCount.WithLabelValues(model).Inc()
}

// Optimization metrics
func (r *PrometheusRegistry) IncrementOptimizations(status string) {
	OptimizationCount.WithLabelValues(status).Inc()
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitRequests(clientID string) {
	RateLimitRequests.WithLabelValues(clientID).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(clientID string) {
	RateLimitHits.WithLabelValues(clientID).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Forecast metrics
func (r *NoOpRegistry) IncrementForecasts(algorithm, status string)                    {}
func (r *NoOpRegistry) RecordForecastLatency(algorithm string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementFallbacks(from, to string)                             {}
func (r *NoOpRegistry) IncrementCacheLookups(outcome string)                           {}

// Solver metrics
func (r *NoOpRegistry) IncrementSolves(method, status string)                    {}
func (r *NoOpRegistry) RecordSolveLatency(method string, duration time.Duration) {}

// Validation metrics
func (r *NoOpRegistry) IncrementBacktests(model string) {}

// Optimization metrics
func (r *NoOpRegistry) IncrementOptimizations(status string) {}

// Rate limiting metrics
func (r *NoOpRegistry) IncrementRateLimitRequests(clientID string) {}
func (r *NoOpRegistry) IncrementRateLimitHits(clientID string)     {}
