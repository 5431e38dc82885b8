// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig
	GitHub  GitHubConfig
	Cache   CacheConfig
	Queue   QueueConfig
	Metrics MetricsConfig
	Logging LoggingConfig
	Scoring ScoringConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
}

// GitHubConfig holds the upstream API configuration.
type GitHubConfig struct {
	// Token is the optional bearer credential. Without it the upstream
	// grants only the anonymous quota.
	Token   string
	BaseURL string
}

// CacheConfig holds cache store configuration.
type CacheConfig struct {
	MaxEntries    int
	DefaultTTL    time.Duration
	SweepInterval time.Duration
}

// QueueConfig holds request queue configuration.
type QueueConfig struct {
	// Spacing is the pause between consecutive upstream calls.
	Spacing time.Duration
}

// MetricsConfig holds Prometheus exposure configuration.
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	// Format is "json" or "pretty".
	Format string
	Level  string
}

// ScoringConfig points at an optional scoring policy file.
type ScoringConfig struct {
	PolicyFile string
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // .env is optional

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GITHUB_API_URL", "https://api.github.com")
	viper.SetDefault("CACHE_MAX_ENTRIES", 500)
	viper.SetDefault("CACHE_DEFAULT_TTL", "10m")
	viper.SetDefault("CACHE_SWEEP_INTERVAL", "5m")
	viper.SetDefault("REQUEST_SPACING", "100ms")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
		},
		GitHub: GitHubConfig{
			Token:   viper.GetString("GITHUB_TOKEN"),
			BaseURL: viper.GetString("GITHUB_API_URL"),
		},
		Cache: CacheConfig{
			MaxEntries:    viper.GetInt("CACHE_MAX_ENTRIES"),
			DefaultTTL:    viper.GetDuration("CACHE_DEFAULT_TTL"),
			SweepInterval: viper.GetDuration("CACHE_SWEEP_INTERVAL"),
		},
		Queue: QueueConfig{
			Spacing: viper.GetDuration("REQUEST_SPACING"),
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		Logging: LoggingConfig{
			Format: viper.GetString("LOG_FORMAT"),
			Level:  viper.GetString("LOG_LEVEL"),
		},
		Scoring: ScoringConfig{
			PolicyFile: viper.GetString("SCORING_POLICY_FILE"),
		},
	}

	return cfg, nil
}
