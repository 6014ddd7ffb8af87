package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
)

// NewServiceLogger builds the logrus logger shared by all services. Output
// goes to stdout, and additionally to a size-rotated file when one is
// configured.
func NewServiceLogger(logLevel string, cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(ParseLogrusLevel(logLevel))

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// StandardLogger is the app-level structured logger used outside the service
// layer (startup, shutdown, request logging). It fronts either a plain stdout
// handler or an OTLP-exporting one.
type StandardLogger struct {
	logger   *slog.Logger
	shutdown func(context.Context) error
}

// NewStandardLogger creates a stdout-only standardized logger
func NewStandardLogger(logLevel string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	return &StandardLogger{
		logger:   logger,
		shutdown: func(ctx context.Context) error { return nil },
	}
}

// NewStandardOTLPLogger creates a standardized logger that exports records
// over OTLP, falling back to stdout when the exporter cannot be built.
func NewStandardOTLPLogger(cfg OTLPConfig) *StandardLogger {
	otlpLogger, err := NewOTLPLogger(cfg)
	if err != nil {
		return NewStandardLogger(cfg.LogLevel)
	}
	return &StandardLogger{
		logger:   otlpLogger.Logger(),
		shutdown: otlpLogger.Shutdown,
	}
}

// Shutdown flushes any buffered log records
func (l *StandardLogger) Shutdown(ctx context.Context) error {
	return l.shutdown(ctx)
}

// Logger returns the underlying *slog.Logger
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger
}

// WithComponent creates a logger with component context
func (l *StandardLogger) WithComponent(component string) *slog.Logger {
	return l.logger.With("component", component)
}

// WithOperation creates a logger with operation context
func (l *StandardLogger) WithOperation(operation string) *slog.Logger {
	return l.logger.With("operation", operation)
}

// WithRequestID creates a logger with request ID context
func (l *StandardLogger) WithRequestID(requestID string) *slog.Logger {
	return l.logger.With("request_id", requestID)
}

// WithSource creates a logger with data-source context
func (l *StandardLogger) WithSource(sourceID string) *slog.Logger {
	return l.logger.With("source", sourceID)
}

// WithEntity creates a logger with subject-entity context
func (l *StandardLogger) WithEntity(entityID string) *slog.Logger {
	return l.logger.With("entity", entityID)
}

// WithModel creates a logger with model-name context
func (l *StandardLogger) WithModel(modelName string) *slog.Logger {
	return l.logger.With("model", modelName)
}

// WithError creates a logger with error context
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.With("error", err.Error())
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.Info("Service starting",
		"event", "startup",
		"service", serviceName,
		"version", version,
		"port", port,
	)
}

// LogShutdown logs application shutdown information
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.Info("Service shutting down",
		"event", "shutdown",
		"service", serviceName,
		"reason", reason,
	)
}

// LogSyncCycle logs one completed integration cycle in a standardized format
func (l *StandardLogger) LogSyncCycle(sources int, failures int, durationMS int64) {
	l.logger.Info("Integration cycle complete",
		"event", "sync_cycle",
		"sources", sources,
		"failures", failures,
		"duration_ms", durationMS,
	)
}

// LogAPIRequest logs API requests in a standardized format
func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, durationMS int64) {
	l.logger.Info("API request",
		"event", "api_request",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", durationMS,
	)
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
