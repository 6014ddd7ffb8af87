package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "a1_intelligence", cfg.Database.DBName)
	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.Equal(t, "statline", cfg.Sources.Projections.ID)
	assert.Equal(t, "pulsewire", cfg.Sources.Sentiment.ID)
	assert.Equal(t, "oddsboard", cfg.Sources.Odds.ID)
	assert.Equal(t, "trainingroom", cfg.Sources.Injuries.ID)
	assert.True(t, cfg.Sources.Projections.Enabled)

	assert.InDelta(t, 0.8, cfg.Prediction.SureOddsThreshold, 1e-9)
	assert.Equal(t, 5, cfg.Prediction.MaxFeatures)
	assert.InDelta(t, 0.30, cfg.Prediction.ModelWeights["ml"], 1e-9)
	assert.InDelta(t, 1.0, cfg.Prediction.RiskProfiles["moderate"].Multiplier, 1e-9)
	assert.InDelta(t, 0.75, cfg.Integration.ConfidenceRich, 1e-9)

	assert.Equal(t, 500, cfg.Monitor.HistoryLimit)
	assert.Equal(t, 200, cfg.Monitor.AlertBufferSize)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-123")
	t.Setenv("ODDS_API_KEY", "odds-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Telegram.BotToken)
	assert.Equal(t, "odds-key", cfg.Sources.Odds.APIKey)
}

func TestLoad_NormalizesEnvironment(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "PRODUCTION")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "bad sync interval",
			mutate: func(c *Config) { c.Integration.SyncInterval = "soon" },
		},
		{
			name:   "sure odds threshold above 1",
			mutate: func(c *Config) { c.Prediction.SureOddsThreshold = 1.5 },
		},
		{
			name:   "zero max features",
			mutate: func(c *Config) { c.Prediction.MaxFeatures = 0 },
		},
		{
			name:   "negative model weight",
			mutate: func(c *Config) { c.Prediction.ModelWeights = map[string]float64{"ml": -1} },
		},
		{
			name: "non-positive profile multiplier",
			mutate: func(c *Config) {
				c.Prediction.RiskProfiles = map[string]RiskProfileConfig{"timid": {Multiplier: 0}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Chdir(t.TempDir())

			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	integration := IntegrationConfig{SyncInterval: "90s"}
	assert.Equal(t, 90*time.Second, integration.SyncIntervalDuration())

	// Unparseable values fall back to safe defaults.
	integration.SyncInterval = "whenever"
	assert.Equal(t, 5*time.Minute, integration.SyncIntervalDuration())

	sources := SourcesConfig{FetchTimeout: "3s", CacheTTL: "30s"}
	assert.Equal(t, 3*time.Second, sources.FetchTimeoutDuration())
	assert.Equal(t, 30*time.Second, sources.CacheTTLDuration())

	sources = SourcesConfig{}
	assert.Equal(t, 15*time.Second, sources.FetchTimeoutDuration())
	assert.Equal(t, time.Minute, sources.CacheTTLDuration())
}
