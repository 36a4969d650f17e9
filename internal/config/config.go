// Package config provides application configuration management.
// It loads settings from an optional .env file and KOMIDA_* environment
// variables, applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// ServerMode requires LINE credentials.
	ServerMode ValidationMode = iota
	// CLIMode only needs storage settings.
	CLIMode
)

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string

	// Data Configuration
	DataDir     string // Directory holding the SQLite menu store
	DatabaseURL string // PostgreSQL URL; replaces SQLite when set

	// Metrics Authentication
	MetricsUsername string
	MetricsPassword string // empty = no auth

	// R2 Snapshot
	R2Endpoint             string
	R2AccessKeyID          string
	R2SecretKey            string
	R2Bucket               string
	R2SnapshotKey          string
	R2SnapshotPollInterval time.Duration

	// Observability
	BetterStackToken  string
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	Bot BotConfig
}

// BotConfig holds bot behaviour settings.
type BotConfig struct {
	Name    string // Display name; also the keyword that addresses the bot
	IconURL string // Sender icon, must be https for LINE

	// PublicChannelPrefixes mark chat IDs of shared channels
	// (LINE groups start with C, rooms with R).
	PublicChannelPrefixes []string

	WebhookTimeout      time.Duration
	MaxEventsPerWebhook int

	GlobalRateRPS  float64 // Outbound LINE API requests per second
	ChatRateBurst  float64 // Burst tokens per chat
	ChatRateRefill float64 // Tokens refilled per second per chat
}

// Load reads configuration for the server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration and validates it for mode.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, 30*time.Second),
		ServerName:      getEnv(EnvServerName, ""),

		DataDir:     getEnv(EnvDataDir, getDefaultDataDir()),
		DatabaseURL: getEnv(EnvDatabaseURL, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		R2Endpoint:             getEnv(EnvR2Endpoint, ""),
		R2AccessKeyID:          getEnv(EnvR2AccessKeyID, ""),
		R2SecretKey:            getEnv(EnvR2SecretKey, ""),
		R2Bucket:               getEnv(EnvR2Bucket, ""),
		R2SnapshotKey:          getEnv(EnvR2SnapshotKey, "snapshots/menu.db.zst"),
		R2SnapshotPollInterval: getDurationEnv(EnvR2SnapshotPollInterval, 2*time.Hour),

		BetterStackToken:  getEnv(EnvBetterStackToken, ""),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		Bot: BotConfig{
			Name:                  getEnv(EnvBotName, "komidabot"),
			IconURL:               getEnv(EnvBotIconURL, ""),
			PublicChannelPrefixes: getListEnv(EnvPublicPrefixes, []string{"C", "R"}),
			WebhookTimeout:        getDurationEnv(EnvWebhookTimeout, WebhookProcessing),
			MaxEventsPerWebhook:   getIntEnv(EnvMaxEventsPerHook, 100),
			GlobalRateRPS:         getFloatEnv(EnvGlobalRateRPS, 100.0),
			ChatRateBurst:         getFloatEnv(EnvChatRateBurst, 10.0),
			ChatRateRefill:        getFloatEnv(EnvChatRateRefill, 0.2), // 1 per 5s
		},
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks that required values are set and ranges make sense.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if mode == ServerMode {
		if c.LineChannelToken == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
		}
		if c.LineChannelSecret == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
		}
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		}
	}
	if c.DataDir == "" && c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.HasR2() && c.R2SnapshotPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvR2SnapshotPollInterval, c.R2SnapshotPollInterval))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks bot settings.
func (b *BotConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(b.Name) == "" {
		errs = append(errs, errors.New("bot name is required"))
	}
	if b.IconURL != "" && !strings.HasPrefix(b.IconURL, "https://") {
		errs = append(errs, fmt.Errorf("icon URL must use https, got %q", b.IconURL))
	}
	if b.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", b.WebhookTimeout))
	}
	if b.MaxEventsPerWebhook <= 0 {
		errs = append(errs, fmt.Errorf("max events per webhook must be positive, got %d", b.MaxEventsPerWebhook))
	}
	if b.GlobalRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("global rate must be positive, got %v", b.GlobalRateRPS))
	}
	if b.ChatRateBurst <= 0 || b.ChatRateRefill <= 0 {
		errs = append(errs, fmt.Errorf("chat rate burst and refill must be positive, got %v/%v", b.ChatRateBurst, b.ChatRateRefill))
	}
	return errors.Join(errs...)
}

// HasR2 reports whether snapshot storage is fully configured.
func (c *Config) HasR2() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// UsesPostgres reports whether lookups go to PostgreSQL instead of SQLite.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "menu.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
