package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	Integration IntegrationConfig `mapstructure:"integration"`
	Prediction  PredictionConfig  `mapstructure:"prediction"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Endpoint       string  `mapstructure:"endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	Insecure       bool    `mapstructure:"insecure"`
	ExportLogs     bool    `mapstructure:"export_logs"`
}

// SourceEndpointConfig describes one provider endpoint an adapter talks to
type SourceEndpointConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ID             string  `mapstructure:"id"`
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
}

type SourcesConfig struct {
	FetchTimeout string               `mapstructure:"fetch_timeout"`
	CacheTTL     string               `mapstructure:"cache_ttl"`
	Projections  SourceEndpointConfig `mapstructure:"projections"`
	Sentiment    SourceEndpointConfig `mapstructure:"sentiment"`
	Odds         SourceEndpointConfig `mapstructure:"odds"`
	Injuries     SourceEndpointConfig `mapstructure:"injuries"`
	MinMentions  int                  `mapstructure:"min_mentions"`
	OddsRegion   string               `mapstructure:"odds_region"`
}

type IntegrationConfig struct {
	SyncInterval       string  `mapstructure:"sync_interval"`
	ConfidenceRich     float64 `mapstructure:"confidence_rich"`
	ConfidenceTypical  float64 `mapstructure:"confidence_typical"`
	ConfidenceSparse   float64 `mapstructure:"confidence_sparse"`
	BreakerMaxFailures int     `mapstructure:"breaker_max_failures"`
	BreakerResetAfter  string  `mapstructure:"breaker_reset_after"`
}

// RiskProfileConfig is one configured stake tier, keyed by profile name
type RiskProfileConfig struct {
	Multiplier float64 `mapstructure:"multiplier" json:"multiplier"`
	MaxStake   float64 `mapstructure:"max_stake" json:"max_stake"`
}

type PredictionConfig struct {
	ModelWeights      map[string]float64           `mapstructure:"model_weights"`
	RiskProfiles      map[string]RiskProfileConfig `mapstructure:"risk_profiles"`
	SureOddsThreshold float64                      `mapstructure:"sure_odds_threshold"`
	MaxFeatures       int                          `mapstructure:"max_features"`
	FeatureImportance map[string]float64           `mapstructure:"feature_importance"`
}

type AnalysisConfig struct {
	HistoryLimit      int `mapstructure:"history_limit"`
	MinHistoryForForm int `mapstructure:"min_history_for_form"`
}

type MonitorConfig struct {
	HistoryLimit        int    `mapstructure:"history_limit"`
	AlertBufferSize     int    `mapstructure:"alert_buffer_size"`
	ResourceLogInterval string `mapstructure:"resource_log_interval"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind secrets that only ever arrive through the environment
	envBindings := map[string]string{
		"telegram.bot_token":          "TELEGRAM_BOT_TOKEN",
		"telegram.chat_id":            "TELEGRAM_CHAT_ID",
		"sources.projections.api_key": "PROJECTIONS_API_KEY",
		"sources.sentiment.api_key":   "SENTIMENT_API_KEY",
		"sources.odds.api_key":        "ODDS_API_KEY",
		"sources.injuries.api_key":    "INJURIES_API_KEY",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"integration.sync_interval", c.Integration.SyncInterval},
		{"integration.breaker_reset_after", c.Integration.BreakerResetAfter},
		{"sources.fetch_timeout", c.Sources.FetchTimeout},
		{"sources.cache_ttl", c.Sources.CacheTTL},
		{"monitor.resource_log_interval", c.Monitor.ResourceLogInterval},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
	}

	if c.Prediction.SureOddsThreshold < 0 || c.Prediction.SureOddsThreshold > 1 {
		return fmt.Errorf("prediction.sure_odds_threshold must be in [0, 1], got %v", c.Prediction.SureOddsThreshold)
	}
	if c.Prediction.MaxFeatures <= 0 {
		return fmt.Errorf("prediction.max_features must be positive, got %d", c.Prediction.MaxFeatures)
	}
	for name, weight := range c.Prediction.ModelWeights {
		if weight < 0 {
			return fmt.Errorf("prediction.model_weights.%s must not be negative, got %v", name, weight)
		}
	}
	for name, profile := range c.Prediction.RiskProfiles {
		if profile.Multiplier <= 0 {
			return fmt.Errorf("prediction.risk_profiles.%s.multiplier must be positive, got %v", name, profile.Multiplier)
		}
	}

	return nil
}

// SyncIntervalDuration returns the parsed sync interval
func (c *IntegrationConfig) SyncIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SyncInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// BreakerResetAfterDuration returns how long an open source breaker waits
// before admitting a probe
func (c *IntegrationConfig) BreakerResetAfterDuration() time.Duration {
	d, err := time.ParseDuration(c.BreakerResetAfter)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// FetchTimeoutDuration returns the parsed per-adapter fetch timeout
func (c *SourcesConfig) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// CacheTTLDuration returns the parsed adapter cache TTL
func (c *SourcesConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d < 0 {
		return time.Minute
	}
	return d
}

// ResourceLogIntervalDuration returns how often system resource usage is
// sampled and logged
func (c *MonitorConfig) ResourceLogIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.ResourceLogInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "a1_intelligence")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Logging (file output optional; stdout only when file is empty)
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.max_size_mb", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age_days", 14)
	viper.SetDefault("logging.compress", true)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "a1-intelligence-core")
	viper.SetDefault("telemetry.service_version", "dev")
	viper.SetDefault("telemetry.sample_ratio", 1.0)
	viper.SetDefault("telemetry.insecure", true)
	viper.SetDefault("telemetry.export_logs", false)

	// Sources
	viper.SetDefault("sources.fetch_timeout", "15s")
	viper.SetDefault("sources.cache_ttl", "1m")
	viper.SetDefault("sources.min_mentions", 25)
	viper.SetDefault("sources.odds_region", "us")
	viper.SetDefault("sources.projections.enabled", true)
	viper.SetDefault("sources.projections.id", "statline")
	viper.SetDefault("sources.projections.base_url", "http://localhost:4101")
	viper.SetDefault("sources.projections.requests_per_sec", 5)
	viper.SetDefault("sources.sentiment.enabled", true)
	viper.SetDefault("sources.sentiment.id", "pulsewire")
	viper.SetDefault("sources.sentiment.base_url", "http://localhost:4102")
	viper.SetDefault("sources.sentiment.requests_per_sec", 5)
	viper.SetDefault("sources.odds.enabled", true)
	viper.SetDefault("sources.odds.id", "oddsboard")
	viper.SetDefault("sources.odds.base_url", "http://localhost:4103")
	viper.SetDefault("sources.odds.requests_per_sec", 5)
	viper.SetDefault("sources.injuries.enabled", true)
	viper.SetDefault("sources.injuries.id", "trainingroom")
	viper.SetDefault("sources.injuries.base_url", "http://localhost:4104")
	viper.SetDefault("sources.injuries.requests_per_sec", 5)

	// Integration hub
	viper.SetDefault("integration.sync_interval", "5m")
	viper.SetDefault("integration.confidence_rich", 0.75)
	viper.SetDefault("integration.confidence_typical", 0.7)
	viper.SetDefault("integration.confidence_sparse", 0.5)
	viper.SetDefault("integration.breaker_max_failures", 5)
	viper.SetDefault("integration.breaker_reset_after", "60s")

	// Prediction engine
	viper.SetDefault("prediction.model_weights", map[string]float64{
		"statistical": 0.25,
		"ml":          0.30,
		"sentiment":   0.15,
		"market":      0.20,
		"analysis":    0.10,
	})
	viper.SetDefault("prediction.risk_profiles.conservative.multiplier", 0.8)
	viper.SetDefault("prediction.risk_profiles.conservative.max_stake", 100.0)
	viper.SetDefault("prediction.risk_profiles.moderate.multiplier", 1.0)
	viper.SetDefault("prediction.risk_profiles.moderate.max_stake", 250.0)
	viper.SetDefault("prediction.risk_profiles.aggressive.multiplier", 1.3)
	viper.SetDefault("prediction.risk_profiles.aggressive.max_stake", 500.0)
	viper.SetDefault("prediction.sure_odds_threshold", 0.8)
	viper.SetDefault("prediction.max_features", 5)

	// Analysis engine
	viper.SetDefault("analysis.history_limit", 50)
	viper.SetDefault("analysis.min_history_for_form", 5)

	// Performance monitor
	viper.SetDefault("monitor.history_limit", 500)
	viper.SetDefault("monitor.alert_buffer_size", 200)
	viper.SetDefault("monitor.resource_log_interval", "5m")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")
}
