package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RedisAddr     string
	ClickHouseDSN string
	PostgresDSN   string
	ServiceName   string

	// Forecast configuration
	ForecastCacheTTL  time.Duration
	ForecastTimeout   time.Duration
	MaxHorizonDays    int
	DefaultMarketCode string

	// Solver configuration
	SolverTimeout         time.Duration
	StochasticIterations  int
	BalancedServiceWeight float64

	// Annual holding cost as a fraction of unit cost, used where a request
	// does not carry its own cost parameters.
	DefaultHoldingCostRate float64

	RateLimitEnabled    bool
	RateLimitCapacity   int
	RateLimitRefillRate int

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// ClickHouse connection pooling configuration
	CHMaxOpenConns    int
	CHMaxIdleConns    int
	CHConnMaxLifetime time.Duration
	CHConnMaxIdleTime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8686")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 10*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 30*time.Second)
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ServiceName = getenv("SERVICE_NAME", "demandcast")

	cfg.ForecastCacheTTL = envDuration("FORECAST_CACHE_TTL", 1*time.Hour)
	cfg.ForecastTimeout = envDuration("FORECAST_TIMEOUT", 15*time.Second)
	cfg.MaxHorizonDays = envInt("MAX_HORIZON_DAYS", 365)
	cfg.DefaultMarketCode = getenv("DEFAULT_MARKET_CODE", "US")

	cfg.SolverTimeout = envDuration("SOLVER_TIMEOUT", 30*time.Second)
	cfg.StochasticIterations = envInt("STOCHASTIC_ITERATIONS", 2000)
	// weight on the service term of the balanced objective; cost gets 1-w
	cfg.BalancedServiceWeight = envFloat("BALANCED_SERVICE_WEIGHT", 0.5)

	cfg.DefaultHoldingCostRate = envFloat("DEFAULT_HOLDING_COST_RATE", 0.25)

	cfg.RateLimitEnabled = envBool("RATE_LIMIT_ENABLED", true)
	cfg.RateLimitCapacity = envInt("RATE_LIMIT_CAPACITY", 100)
	cfg.RateLimitRefillRate = envInt("RATE_LIMIT_REFILL_RATE", 10)

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// ClickHouse connection pooling configuration
	// Reads are long analytical scans; keep the pool small
	cfg.CHMaxOpenConns = envInt("CH_MAX_OPEN_CONNS", 25)
	cfg.CHMaxIdleConns = envInt("CH_MAX_IDLE_CONNS", 5)
	cfg.CHConnMaxLifetime = envDuration("CH_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.CHConnMaxIdleTime = envDuration("CH_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
