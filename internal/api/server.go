package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/db"
	"github.com/demandcast/demandcast/internal/forecasting"
	"github.com/demandcast/demandcast/internal/history"
	"github.com/demandcast/demandcast/internal/middleware"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/observability"
	"github.com/demandcast/demandcast/internal/optimization"
	"github.com/demandcast/demandcast/internal/ratelimit"
	"github.com/demandcast/demandcast/internal/seasonal"
	"github.com/demandcast/demandcast/internal/solver"
	"github.com/demandcast/demandcast/internal/validation"
)

// historyWindowDays bounds how much sales history a single request pulls.
const historyWindowDays = 730

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger    *zap.Logger
	Store     *db.RedisStore
	DB        *db.DB
	PG        *db.Postgres
	History   history.SalesHistory
	Engine    *forecasting.Engine
	Detector  *seasonal.Detector
	Validator *validation.Validator
	Optimizer *optimization.Optimizer
	Solver    *solver.Solver
	Limiter   *ratelimit.ClientLimiter
	Metrics   observability.MetricsRegistry
	Config    config.Config
}

// NewServer constructs a Server and wires the engine stack from its leaves.
func NewServer(logger *zap.Logger, store *db.RedisStore, database *db.DB, pg *db.Postgres, hist history.SalesHistory, limiter *ratelimit.ClientLimiter, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	detector := seasonal.NewDetector(logger)
	engine := forecasting.NewEngine(detector, metrics, logger)
	return &Server{
		Logger:    logger,
		Store:     store,
		DB:        database,
		PG:        pg,
		History:   hist,
		Engine:    engine,
		Detector:  detector,
		Validator: validation.NewValidator(engine, metrics, logger),
		Optimizer: optimization.NewOptimizer(engine, metrics, logger),
		Solver:    solver.New(cfg.StochasticIterations, cfg.BalancedServiceWeight, metrics, logger),
		Limiter:   limiter,
		Metrics:   metrics,
		Config:    cfg,
	}
}

// Router assembles all routes behind the trace-logging middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(s.Logger))

	r.HandleFunc("/forecast", s.ForecastHandler).Methods("POST")
	r.HandleFunc("/seasonal/detect", s.SeasonalHandler).Methods("POST")
	r.HandleFunc("/validate/backtest", s.BacktestHandler).Methods("POST")
	r.HandleFunc("/validate/compare", s.CompareHandler).Methods("POST")
	r.HandleFunc("/optimize", s.OptimizeHandler).Methods("POST")
	r.HandleFunc("/optimize/abc", s.ABCHandler).Methods("GET")
	r.HandleFunc("/optimize/slow-movers", s.SlowMoversHandler).Methods("GET")
	r.HandleFunc("/optimize/multi-location", s.SolveHandler).Methods("POST")
	r.HandleFunc("/plans/{id}", s.GetPlanHandler).Methods("GET")
	r.HandleFunc("/healthz", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// loadSeries pulls up to two years of daily sales for a (product, channel)
// pair. An unknown pair comes back as an empty series, not an error; the
// engine reports it as insufficient data.
func (s *Server) loadSeries(r *http.Request, productID, channelID string) (models.TimeSeries, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -historyWindowDays)
	return s.History.GetSeries(r.Context(), productID, channelID, from, to)
}

// clientID identifies the caller for rate limiting: API key header first,
// remote host otherwise.
func clientID(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// withTimeout bounds blocking engine work with the configured deadline so an
// expired deadline triggers the fallback chain instead of an abort.
func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), d)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encode response", zap.Error(err))
	}
}

// writeError maps the engine error taxonomy onto HTTP statuses. Contract
// violations are the caller's fault; thin history is reported as
// unprocessable rather than a server fault.
func (s *Server) writeError(w http.ResponseWriter, endpoint, method string, start time.Time, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrModelFit):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
	s.Metrics.IncrementRequests(endpoint, method, strconv.Itoa(status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	http.Error(w, err.Error(), status)
}

func (s *Server) finish(endpoint, method string, start time.Time, status string) {
	s.Metrics.IncrementRequests(endpoint, method, status)
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
