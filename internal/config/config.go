// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// WaitBudget is how long a track or refresh request waits on the fetch
	// queue before answering 202 Accepted and finishing in the background.
	// It must be shorter than WriteTimeout.
	WaitBudget time.Duration `yaml:"wait_budget"`
}

// DatabaseConfig selects and configures the snapshot store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, sqlite, memory
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// CatalogConfig defines how catalog pages are fetched.
type CatalogConfig struct {
	BaseURL        string        `yaml:"base_url"`
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
	Timeout        time.Duration `yaml:"timeout"`
}

// SchedulerConfig defines the rate-limited fetch queue.
type SchedulerConfig struct {
	MinInterval  time.Duration `yaml:"min_interval"`
	Workers      int           `yaml:"workers"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ScheduleConfig defines cron intervals.
type ScheduleConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	BatchDeadline   time.Duration `yaml:"batch_deadline"` // 0 disables
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn, error
	Format    string `yaml:"format"` // text, json
	AddSource bool   `yaml:"add_source"`
}

// TelemetryConfig defines OpenTelemetry export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint       string        `yaml:"endpoint"` // OTLP gRPC host:port
	ServiceName    string        `yaml:"service_name"`
	Insecure       bool          `yaml:"insecure"`
	SampleRatio    float64       `yaml:"sample_ratio"`
	ExportInterval time.Duration `yaml:"export_interval"`
}

// Enabled reports whether an OTLP endpoint is configured.
func (t *TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyCatalogDefaults(&cfg.Catalog)
	applySchedulerDefaults(&cfg.Scheduler)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 2 * time.Minute
	}
	if s.WaitBudget == 0 {
		s.WaitBudget = s.WriteTimeout * 3 / 4
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	if d.Driver == DriverSQLite && d.Path == "" {
		d.Path = "wishlist-tracker.db"
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.kobo.com/tw/zh/ebook/"
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = "zh-TW"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

func applySchedulerDefaults(s *SchedulerConfig) {
	if s.MinInterval == 0 {
		s.MinInterval = 5 * time.Second
	}
	if s.Workers == 0 {
		s.Workers = 4
	}
	if s.FetchTimeout == 0 {
		s.FetchTimeout = 45 * time.Second
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.RefreshInterval == 0 {
		s.RefreshInterval = 24 * time.Hour
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "wishlist-tracker"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
	if t.ExportInterval == 0 {
		t.ExportInterval = 30 * time.Second
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when driver is postgres"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when driver is postgres"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when driver is postgres"))
		}
	case DriverSQLite, DriverMemory:
	default:
		errs = append(
			errs,
			fmt.Errorf(
				"database.driver must be one of: postgres, sqlite, memory (got %q)",
				cfg.Database.Driver,
			),
		)
	}

	if cfg.Server.WaitBudget < 0 || cfg.Server.WaitBudget >= cfg.Server.WriteTimeout {
		errs = append(errs, fmt.Errorf("server.wait_budget must be between 0 and server.write_timeout"))
	}

	if cfg.Scheduler.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("scheduler.min_interval must not be negative"))
	}
	if cfg.Scheduler.Workers < 0 {
		errs = append(errs, fmt.Errorf("scheduler.workers must not be negative"))
	}
	if cfg.Schedule.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("schedule.refresh_interval must not be negative"))
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(
			errs,
			fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"),
		)
	}
	if cfg.Notifications.Webhook.Enabled && cfg.Notifications.Webhook.URL == "" {
		errs = append(
			errs,
			fmt.Errorf("notifications.webhook.url is required when webhook is enabled"),
		)
	}

	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be between 0 and 1 (got %v)", r))
	}

	return errors.Join(errs...)
}
