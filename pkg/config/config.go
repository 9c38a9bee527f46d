package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Registration store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	OTel         OTelConfig         `mapstructure:"otel"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Auth         AuthConfig         `mapstructure:"auth"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Audit        AuditConfig        `mapstructure:"audit"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	ClientID          string   `mapstructure:"client_id"`
	RegistrationTopic string   `mapstructure:"registration_topic"`
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// RegistrationConfig holds registration coordinator settings
type RegistrationConfig struct {
	Backend          string        `mapstructure:"backend"` // memory, postgres, redis
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// AuthConfig holds credential settings
type AuthConfig struct {
	BcryptCost             int    `mapstructure:"bcrypt_cost"`
	BootstrapAdminEmail    string `mapstructure:"bootstrap_admin_email"`
	BootstrapAdminPassword string `mapstructure:"bootstrap_admin_password"`
}

// RateLimitConfig holds login rate limit settings
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	LoginPerMinute int  `mapstructure:"login_per_minute"`
	LoginBurst     int  `mapstructure:"login_burst"`
	UseRedis       bool `mapstructure:"use_redis"`
}

// AuditConfig holds audit log settings
type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// defaults mirrors the Config tree; every key listed here can be
// overridden by an environment variable such as SERVER_PORT or
// RATE_LIMIT_LOGIN_BURST.
var defaults = map[string]any{
	"app.name":        "event-registration",
	"app.environment": "development",
	"app.debug":       true,
	"app.version":     "1.0.0",
	"app.log_level":   "info",

	"server.host":             "0.0.0.0",
	"server.port":             8080,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "30s",
	"server.idle_timeout":     "120s",
	"server.shutdown_timeout": "15s",
	"server.allowed_origins":  "*",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "postgres",
	"database.dbname":             "event_registration",
	"database.sslmode":            "disable",
	"database.max_conns":          25,
	"database.min_conns":          5,
	"database.conn_max_lifetime":  "1h",
	"database.conn_max_idle_time": "30m",
	"database.connect_timeout":    "5s",
	"database.max_retries":        3,
	"database.retry_interval":     "1s",
	"database.auto_migrate":       true,

	"redis.host":           "localhost",
	"redis.port":           6379,
	"redis.password":       "",
	"redis.db":             0,
	"redis.pool_size":      100,
	"redis.min_idle_conns": 10,
	"redis.dial_timeout":   "5s",
	"redis.read_timeout":   "3s",
	"redis.write_timeout":  "3s",

	"kafka.enabled":            false,
	"kafka.brokers":            "localhost:9092",
	"kafka.client_id":          "event-registration",
	"kafka.registration_topic": "registration-events",

	"jwt.secret":           defaultJWTSecret,
	"jwt.access_token_ttl": "72h",
	"jwt.issuer":           "event-registration",

	"otel.enabled":        false,
	"otel.service_name":   "event-registration",
	"otel.collector_addr": "localhost:4317",
	"otel.sample_ratio":   1.0,

	"registration.backend":           BackendPostgres,
	"registration.operation_timeout": "3s",

	"auth.bcrypt_cost":              12,
	"auth.bootstrap_admin_email":    "",
	"auth.bootstrap_admin_password": "",

	"rate_limit.enabled":          true,
	"rate_limit.login_per_minute": 10,
	"rate_limit.login_burst":      5,
	"rate_limit.use_redis":        false,

	"audit.enabled":        true,
	"audit.buffer_size":    1000,
	"audit.flush_interval": "5s",
}

// Load reads config.yaml from the working directory or ./config when present,
// then applies environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

// LoadWithPath loads configuration from a specific file; the format follows its extension
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// normalize cleans up values that arrive as loosely formatted strings
func (c *Config) normalize() {
	c.Server.AllowedOrigins = trimList(c.Server.AllowedOrigins)
	c.Kafka.Brokers = trimList(c.Kafka.Brokers)
	c.Registration.Backend = strings.ToLower(strings.TrimSpace(c.Registration.Backend))
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT access token TTL must be positive")
	}

	switch c.Registration.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("unknown registration backend: %q", c.Registration.Backend)
	}

	if c.Registration.OperationTimeout <= 0 {
		return fmt.Errorf("registration operation timeout must be positive")
	}

	if c.Registration.Backend != BackendMemory {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	}

	// bcrypt accepts 4..31
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("invalid bcrypt cost: %d", c.Auth.BcryptCost)
	}

	if c.Auth.BootstrapAdminEmail != "" && c.Auth.BootstrapAdminPassword == "" {
		return fmt.Errorf("bootstrap admin password is required when bootstrap admin email is set")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
