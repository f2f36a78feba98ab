package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Redis      RedisConfig
	S3         S3Config
	Upload     UploadConfig
	Migrations MigrationsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"SERVER_CORS_ORIGINS" default:"*"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Database        string        `envconfig:"DB_NAME" default:"qrmenu"`
	MaxConnections  int           `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int           `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// APIKey guards the admin management endpoints.
	APIKey        string        `envconfig:"API_KEY"`
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	Issuer        string        `envconfig:"SESSION_ISSUER" default:"qrmenu"`
	LoginAttempts int64         `envconfig:"LOGIN_MAX_ATTEMPTS" default:"10"`
	LoginWindow   time.Duration `envconfig:"LOGIN_WINDOW" default:"15m"`
}

// RedisConfig holds Redis configuration. Without Redis the API runs with no
// idempotency replay and no login rate limit.
type RedisConfig struct {
	Enabled        bool          `envconfig:"REDIS_ENABLED" default:"false"`
	URL            string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	Namespace      string        `envconfig:"REDIS_NAMESPACE" default:"qm"`
	PoolSize       int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout    time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	IOTimeout      time.Duration `envconfig:"REDIS_IO_TIMEOUT" default:"3s"`
	IdempotencyTTL time.Duration `envconfig:"REDIS_IDEMPOTENCY_TTL" default:"24h"`
	CartTTL        time.Duration `envconfig:"REDIS_CART_TTL" default:"720h"`
}

// S3Config holds AWS S3 configuration for uploaded images and legacy imports.
type S3Config struct {
	Enabled       bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket        string `envconfig:"S3_BUCKET"`
	Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	ImportPrefix  string `envconfig:"S3_IMPORT_PREFIX" default:"imports/"`
	PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`
}

// UploadConfig holds image upload limits and the local fallback store.
type UploadConfig struct {
	MaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`
	Dir      string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	BaseURL  string `envconfig:"UPLOAD_BASE_URL" default:"/uploads"`
}

// MigrationsConfig controls schema migration at start-up.
type MigrationsConfig struct {
	AutoApply bool `envconfig:"MIGRATIONS_AUTO_APPLY" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ImportConfig is the subset of configuration the legacy importer needs.
type ImportConfig struct {
	Database   DatabaseConfig
	Logger     LoggerConfig
	S3         S3Config
	Migrations MigrationsConfig
}

// LoadImport loads the importer configuration from environment variables.
func LoadImport() (*ImportConfig, error) {
	var cfg ImportConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Database == "" {
		return nil, fmt.Errorf("configuration validation failed: database host, user and name are required")
	}
	if cfg.Database.MinConnections > cfg.Database.MaxConnections {
		return nil, fmt.Errorf("configuration validation failed: database min connections cannot exceed max connections")
	}
	if cfg.S3.Enabled && cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("configuration validation failed: S3 bucket is required when S3 is enabled")
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if len(c.Auth.SessionSecret) < 16 {
		return fmt.Errorf("session secret must be at least 16 characters")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when redis is enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
