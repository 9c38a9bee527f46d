package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		App:          AppConfig{Name: "test", Environment: "development"},
		Server:       ServerConfig{Port: 8080},
		Database:     DatabaseConfig{Host: "localhost", DBName: "events"},
		JWT:          JWTConfig{Secret: "secret", AccessTokenTTL: time.Hour},
		Registration: RegistrationConfig{Backend: BackendPostgres, OperationTimeout: time.Second},
		Auth:         AuthConfig{BcryptCost: 10},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "event-registration", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 72*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, BackendPostgres, cfg.Registration.Backend)
	assert.Equal(t, 3*time.Second, cfg.Registration.OperationTimeout)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.LoginBurst)
	assert.Equal(t, 5*time.Second, cfg.Audit.FlushInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_NAME", "test-app")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REGISTRATION_BACKEND", " Redis ")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RATE_LIMIT_LOGIN_PER_MINUTE", "30")
	t.Setenv("RATE_LIMIT_USE_REDIS", "true")
	t.Setenv("AUDIT_FLUSH_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BackendRedis, cfg.Registration.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30, cfg.RateLimit.LoginPerMinute)
	assert.True(t, cfg.RateLimit.UseRedis)
	assert.Equal(t, 250*time.Millisecond, cfg.Audit.FlushInterval)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REGISTRATION_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown registration backend")
}

func TestLoad_ConfigFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("app:\n  name: from-cwd\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-cwd", cfg.App.Name)
}

func TestLoadWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registration.yaml")
	content := `
app:
  name: from-file
server:
  allowed_origins:
    - https://events.example.com
    - https://admin.example.com
registration:
  backend: memory
jwt:
  access_token_ttl: 24h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, []string{"https://events.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, BackendMemory, cfg.Registration.Backend)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenTTL)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.RateLimit.LoginPerMinute)
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"invalid port", func(c *Config) { c.Server.Port = -1 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing JWT secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"default JWT secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, true},
		{"zero token TTL", func(c *Config) { c.JWT.AccessTokenTTL = 0 }, true},
		{"unknown backend", func(c *Config) { c.Registration.Backend = "etcd" }, true},
		{"zero operation timeout", func(c *Config) { c.Registration.OperationTimeout = 0 }, true},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, true},
		{"memory backend without database", func(c *Config) {
			c.Registration.Backend = BackendMemory
			c.Database = DatabaseConfig{}
		}, false},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }, true},
		{"bootstrap admin without password", func(c *Config) { c.Auth.BootstrapAdminEmail = "root@example.com" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_Environment(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "production"}}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())

	cfg.App.Environment = "development"
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.IsDevelopment())
}
