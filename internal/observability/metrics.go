package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demandcast_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// forecasts produced, labelled by algorithm and outcome
	ForecastCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_forecasts_total",
			Help: "Total forecasts generated",
		},
		[]string{"algorithm", "status"},
	)

	// forecast generation latency per algorithm
	ForecastLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demandcast_forecast_duration_seconds",
			Help:    "Duration of forecast generation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)

	// algorithm fallbacks, labelled by requested and actual algorithm
	FallbackCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_fallbacks_total",
			Help: "Total forecast algorithm fallbacks",
		},
		[]string{"from", "to"},
	)

	// forecast cache hits and misses
	CacheCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_forecast_cache_total",
			Help: "Forecast cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// multi-location solves, labelled by method and plan status
	SolveCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_solves_total",
			Help: "Total multi-location solves",
		},
		[]string{"method", "status"},
	)

	// solve latency per method
	SolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "demandcast_solve_duration_seconds",
			Help:    "Duration of multi-location solves",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"method"},
	)

	// backtests run, labelled by model type
	BacktestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_backtests_total",
			Help: "Total backtests executed",
		},
		[]string{"model"},
	)

	// stock optimizations run, labelled by outcome
	OptimizationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_optimizations_total",
			Help: "Total stock level optimizations",
		},
		[]string{"status"},
	)

	// rate limit hits per client
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_ratelimit_hits_total",
			Help: "Total rate limit hits per client",
		},
		[]string{"client_id"},
	)

	// rate limit requests per client
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "demandcast_ratelimit_requests_total",
			Help: "Total rate limit requests per client",
		},
		[]string{"client_id"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		ForecastCount,
		ForecastLatency,
		FallbackCount,
		CacheCount,
		SolveCount,
		SolveLatency,
		BacktestCount,
		OptimizationCount,
		RateLimitHits,
		RateLimitRequests,
	)
}
