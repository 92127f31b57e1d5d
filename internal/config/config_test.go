package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal postgres config",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, DriverPostgres, cfg.Database.Driver)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.Name)
				assert.Equal(t, "testuser", cfg.Database.User)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
database:
  driver: memory
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WaitBudget)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, "https://www.kobo.com/tw/zh/ebook/", cfg.Catalog.BaseURL)
				assert.Equal(t, "zh-TW", cfg.Catalog.AcceptLanguage)
				assert.Empty(t, cfg.Catalog.UserAgent)
				assert.Equal(t, 30*time.Second, cfg.Catalog.Timeout)
				assert.Equal(t, 5*time.Second, cfg.Scheduler.MinInterval)
				assert.Equal(t, 4, cfg.Scheduler.Workers)
				assert.Zero(t, cfg.Scheduler.InitialDelay)
				assert.Equal(t, 45*time.Second, cfg.Scheduler.FetchTimeout)
				assert.Equal(t, 24*time.Hour, cfg.Schedule.RefreshInterval)
				assert.Zero(t, cfg.Schedule.BatchDeadline)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
				assert.Equal(t, "wishlist-tracker", cfg.Telemetry.ServiceName)
				assert.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 0)
				assert.False(t, cfg.Telemetry.Enabled())
			},
		},
		{
			name: "sqlite gets a default path",
			yaml: `
database:
  driver: sqlite
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "wishlist-tracker.db", cfg.Database.Path)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: "${TEST_DB_PASSWORD}"
notifications:
  discord:
    enabled: true
    webhook_url: "${TEST_DISCORD_URL}"
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
				"TEST_DISCORD_URL": "https://discord.com/api/webhooks/1/abc",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
				assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.Notifications.Discord.WebhookURL)
			},
		},
		{
			name: "missing required database.host",
			yaml: `
database:
  name: testdb
  user: testuser
`,
			wantErr: "database.host is required when driver is postgres",
		},
		{
			name: "missing required database.name",
			yaml: `
database:
  host: localhost
  user: testuser
`,
			wantErr: "database.name is required when driver is postgres",
		},
		{
			name: "missing required database.user",
			yaml: `
database:
  host: localhost
  name: testdb
`,
			wantErr: "database.user is required when driver is postgres",
		},
		{
			name: "invalid database driver",
			yaml: `
database:
  driver: mysql
`,
			wantErr: `database.driver must be one of: postgres, sqlite, memory (got "mysql")`,
		},
		{
			name: "discord enabled without url",
			yaml: `
database:
  driver: memory
notifications:
  discord:
    enabled: true
`,
			wantErr: "notifications.discord.webhook_url is required when discord is enabled",
		},
		{
			name: "webhook enabled without url",
			yaml: `
database:
  driver: memory
notifications:
  webhook:
    enabled: true
`,
			wantErr: "notifications.webhook.url is required when webhook is enabled",
		},
		{
			name: "negative scheduler values",
			yaml: `
database:
  driver: memory
scheduler:
  min_interval: -1s
  workers: -2
`,
			wantErr: "scheduler.min_interval must not be negative",
		},
		{
			name: "wait budget not below write timeout",
			yaml: `
server:
  write_timeout: 30s
  wait_budget: 30s
database:
  driver: memory
`,
			wantErr: "server.wait_budget must be between 0 and server.write_timeout",
		},
		{
			name: "sample ratio out of range",
			yaml: `
database:
  driver: memory
telemetry:
  sample_ratio: 1.5
`,
			wantErr: "telemetry.sample_ratio must be between 0 and 1",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
  wait_budget: 50s
database:
  driver: postgres
  host: db.example.com
  port: 5433
  name: wishlist_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
catalog:
  base_url: https://catalog.example.com/ebook/
  user_agent: wishlist-tracker/1.0
  accept_language: en-US
  timeout: 10s
scheduler:
  min_interval: 2s
  workers: 8
  initial_delay: 1s
  fetch_timeout: 20s
schedule:
  refresh_interval: 12h
  batch_deadline: 30m
notifications:
  discord:
    enabled: true
    webhook_url: https://discord.com/api/webhooks/123
  webhook:
    enabled: true
    url: https://relay.example.com/drops
    headers:
      Authorization: Bearer token
logging:
  level: debug
  format: json
telemetry:
  endpoint: otel-collector:4317
  service_name: wlt-prod
  insecure: true
  sample_ratio: 0.25
  export_interval: 15s
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 50*time.Second, cfg.Server.WaitBudget)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 20, cfg.Database.PoolSize)
				assert.Equal(t, "https://catalog.example.com/ebook/", cfg.Catalog.BaseURL)
				assert.Equal(t, "wishlist-tracker/1.0", cfg.Catalog.UserAgent)
				assert.Equal(t, "en-US", cfg.Catalog.AcceptLanguage)
				assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
				assert.Equal(t, 2*time.Second, cfg.Scheduler.MinInterval)
				assert.Equal(t, 8, cfg.Scheduler.Workers)
				assert.Equal(t, time.Second, cfg.Scheduler.InitialDelay)
				assert.Equal(t, 20*time.Second, cfg.Scheduler.FetchTimeout)
				assert.Equal(t, 12*time.Hour, cfg.Schedule.RefreshInterval)
				assert.Equal(t, 30*time.Minute, cfg.Schedule.BatchDeadline)
				assert.True(t, cfg.Notifications.Discord.Enabled)
				assert.Equal(t, "https://discord.com/api/webhooks/123", cfg.Notifications.Discord.WebhookURL)
				assert.Equal(t, "Bearer token", cfg.Notifications.Webhook.Headers["Authorization"])
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.True(t, cfg.Telemetry.Enabled())
				assert.Equal(t, "wlt-prod", cfg.Telemetry.ServiceName)
				assert.True(t, cfg.Telemetry.Insecure)
				assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
				assert.Equal(t, 15*time.Second, cfg.Telemetry.ExportInterval)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			// Set env vars for this test.
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Write YAML to a temp file.
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "testdb",
				User:     "testuser",
				Password: "testpass",
				SSLMode:  "disable",
				PoolSize: 10,
			},
			want: "host=localhost port=5432 dbname=testdb user=testuser password=testpass sslmode=disable pool_max_conns=10",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "wishlist",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
				PoolSize: 20,
			},
			want: "host=db.example.com port=5433 dbname=wishlist user=admin password=s3cret sslmode=require pool_max_conns=20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
