package observability

import "time"

// MockMetricsRegistry is a mock implementation of MetricsRegistry for testing
type MockMetricsRegistry struct{}

// HTTP Request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Forecast metrics
func (m *MockMetricsRegistry) IncrementForecasts(algorithm, status string)                    {}
func (m *MockMetricsRegistry) RecordForecastLatency(algorithm string, duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementFallbacks(from, to string)                             {}
func (m *MockMetricsRegistry) IncrementCacheLookups(outcome string)                           {}

// Solver metrics
func (m *MockMetricsRegistry) IncrementSolves(method, status string)                    {}
func (m *MockMetricsRegistry) RecordSolveLatency(method string, duration time.Duration) {}

// Validation metrics
func (m *MockMetricsRegistry) IncrementBacktests(model string) {}

// Optimization metrics
func (m *MockMetricsRegistry) IncrementOptimizations(status string) {}

// Rate limiting metrics
func (m *MockMetricsRegistry) IncrementRateLimitRequests(clientID string) {}
func (m *MockMetricsRegistry) IncrementRateLimitHits(clientID string)     {}
