package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"

	"github.com/itzcole03/A1forBolt-sub001/internal/config"
)

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"unknown", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.input))
		})
	}
}

func TestNewServiceLogger(t *testing.T) {
	logger := NewServiceLogger("debug", config.LoggingConfig{})

	require.NotNil(t, logger)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNewServiceLogger_FileRotation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "service.log")
	logger := NewServiceLogger("info", config.LoggingConfig{
		File:       file,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})

	logger.WithField("check", true).Info("rotation configured")

	// The rotator creates the file lazily on first write.
	assert.FileExists(t, file)
}

func TestNewStandardLogger(t *testing.T) {
	logger := NewStandardLogger("info")

	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
	assert.NoError(t, logger.Shutdown(context.Background()))
}

func TestStandardLogger_ContextHelpers(t *testing.T) {
	logger := NewStandardLogger("debug")

	assert.NotNil(t, logger.WithComponent("integration_hub"))
	assert.NotNil(t, logger.WithOperation("synchronize"))
	assert.NotNil(t, logger.WithRequestID("req-1"))
	assert.NotNil(t, logger.WithSource("statline"))
	assert.NotNil(t, logger.WithEntity("p1"))
	assert.NotNil(t, logger.WithModel("ensemble_v2"))
	assert.NotNil(t, logger.WithError(assert.AnError))

	// Event helpers must not panic.
	logger.LogStartup("core", "test", 8080)
	logger.LogSyncCycle(4, 1, 120)
	logger.LogAPIRequest("GET", "/api/v1/health", 200, 3)
	logger.LogShutdown("core", "test done")
}

func TestNewOTLPLogger_Disabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{Enabled: false, LogLevel: "info"})

	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
	assert.NoError(t, logger.Shutdown(context.Background()))
}

func TestNewStandardOTLPLogger_DisabledFallsBackToStdout(t *testing.T) {
	logger := NewStandardOTLPLogger(OTLPConfig{Enabled: false, LogLevel: "warn"})

	require.NotNil(t, logger)
	logger.Logger().Warn("reachable")
	assert.NoError(t, logger.Shutdown(context.Background()))
}

func TestConvertSlogLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, convertSlogLevelToSeverity(slog.LevelDebug))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.LevelInfo))
	assert.Equal(t, otellog.SeverityWarn, convertSlogLevelToSeverity(slog.LevelWarn))
	assert.Equal(t, otellog.SeverityError, convertSlogLevelToSeverity(slog.LevelError))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.Level(99)))
}
