package observability

import (
	"math/rand"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the default production logger for the service.
func InitLogger() (*zap.Logger, error) {
	return InitLoggerWithService("demandcast")
}

// InitLoggerWithService builds a production zap.Logger named after the
// service and installs it as the global logger. Level comes from LOG_LEVEL,
// with ENV=development defaulting to debug.
func InitLoggerWithService(serviceName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(logLevelFromEnv())
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.MessageKey = "msg"

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	logger = logger.Named(serviceName).With(zap.String("service", serviceName))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func logLevelFromEnv() zapcore.Level {
	if explicit := os.Getenv("LOG_LEVEL"); explicit != "" {
		if level, err := zapcore.ParseLevel(strings.ToLower(explicit)); err == nil {
			return level
		}
	}
	switch strings.ToLower(os.Getenv("ENV")) {
	case "development", "dev":
		return zap.DebugLevel
	default:
		return zap.InfoLevel
	}
}

// ShouldSample reports whether an informational log line should be emitted
// given a sampling rate in [0, 1].
func ShouldSample(rate float64) bool {
	switch {
	case rate >= 1.0:
		return true
	case rate <= 0.0:
		return false
	default:
		return rand.Float64() < rate
	}
}

// GetSamplingRate picks the completion-log sampling rate for the current
// environment. Hot request paths log every completion in development and a
// fraction of them elsewhere.
func GetSamplingRate() float64 {
	switch strings.ToLower(os.Getenv("ENV")) {
	case "development", "dev":
		return 1.0
	case "staging", "test":
		return 0.5
	default:
		return 0.1
	}
}
