// Package config provides configuration management for the signal engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Health   HealthConfig   `mapstructure:"health"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// EngineConfig controls the evaluation loop
type EngineConfig struct {
	PollIntervalSeconds     int    `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
	CatalogTTLSeconds       int    `mapstructure:"catalog_ttl_seconds" validate:"required,gt=0"`
	StaleGameTimeoutSeconds int    `mapstructure:"stale_game_timeout_seconds" validate:"required,gt=0"`
	SweepIntervalSeconds    int    `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
	DefaultExpiryClock      string `mapstructure:"default_expiry_clock" validate:"required,clock"`
	RestoreOnStartup        bool   `mapstructure:"restore_on_startup"`
	Workers                 int    `mapstructure:"workers" validate:"required,gt=0,lte=64"`
}

// NotifierConfig configures the outbound webhook alerter
type NotifierConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	WebhookURL         string   `mapstructure:"webhook_url" validate:"omitempty,url"`
	Username           string   `mapstructure:"username"`
	TimeoutSeconds     int      `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries         int      `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second" validate:"gte=0"`
	Burst              int      `mapstructure:"burst" validate:"gte=0"`
	NotifyOn           []string `mapstructure:"notify_on" validate:"dive,oneof=monitoring watching bet_taken won lost pushed expired closed"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig configures the probe server
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// PollInterval returns the live snapshot polling cadence
func (e EngineConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalSeconds) * time.Second
}

// CatalogTTL returns how long compiled strategies are cached
func (e EngineConfig) CatalogTTL() time.Duration {
	return time.Duration(e.CatalogTTLSeconds) * time.Second
}

// StaleGameTimeout returns how long a game may go without updates before it is dropped
func (e EngineConfig) StaleGameTimeout() time.Duration {
	return time.Duration(e.StaleGameTimeoutSeconds) * time.Second
}

// SweepInterval returns the stale-game sweep cadence
func (e EngineConfig) SweepInterval() time.Duration {
	return time.Duration(e.SweepIntervalSeconds) * time.Second
}

// Timeout returns the per-request webhook timeout
func (n NotifierConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}
