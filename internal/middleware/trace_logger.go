package middleware

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type loggerKey struct{}

// WithTraceLogger stashes a request-scoped logger carrying the active trace
// and span IDs in the request context. Handlers retrieve it with
// LoggerFromRequest so every log line for a request correlates with its trace.
func WithTraceLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if traced := withTraceFields(r.Context(), logger); traced != nil {
				r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, traced))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggerFromContext returns the request-scoped logger, or the fallback
// annotated with trace IDs when the middleware did not run.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	if traced := withTraceFields(ctx, fallback); traced != nil {
		return traced
	}
	return fallback
}

// LoggerFromRequest is LoggerFromContext for an *http.Request.
func LoggerFromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	return LoggerFromContext(r.Context(), fallback)
}

func withTraceFields(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
