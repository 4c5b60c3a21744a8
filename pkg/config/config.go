package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/sso"
	"github.com/bcforms/formgate/pkg/tokens"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Tokens        TokenConfig
	OIDC          sso.Config
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// RedisConfig holds the login-state store settings
type RedisConfig struct {
	URL      string
	StateTTL time.Duration
}

// TokenConfig holds token issuance settings
type TokenConfig struct {
	// KeyDir is where the RSA key pair is persisted (and generated on
	// first boot).
	KeyDir     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from FORMGATE_* environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("FORMGATE_HOST", "0.0.0.0"),
			Port:            getEnv("FORMGATE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("FORMGATE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("FORMGATE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("FORMGATE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("FORMGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("FORMGATE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("FORMGATE_DATABASE_URL", ""),
			MaxOpenConns: getEnvInt("FORMGATE_DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("FORMGATE_DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLife:  getEnvDuration("FORMGATE_DATABASE_CONN_MAX_LIFE", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("FORMGATE_REDIS_URL", "redis://localhost:6379/0"),
			StateTTL: getEnvDuration("FORMGATE_LOGIN_STATE_TTL", sso.DefaultStateTTL),
		},
		Tokens: TokenConfig{
			KeyDir:     getEnv("FORMGATE_KEY_DIR", "keys"),
			Issuer:     getEnv("FORMGATE_TOKEN_ISSUER", tokens.DefaultIssuer),
			Audience:   getEnv("FORMGATE_TOKEN_AUDIENCE", tokens.DefaultAudience),
			AccessTTL:  getEnvDuration("FORMGATE_ACCESS_TOKEN_TTL", tokens.DefaultAccessTTLSeconds*time.Second),
			RefreshTTL: getEnvDuration("FORMGATE_REFRESH_TOKEN_TTL", tokens.DefaultRefreshTTLSeconds*time.Second),
		},
		OIDC: sso.Config{
			IssuerURL:    getEnv("FORMGATE_OIDC_ISSUER_URL", ""),
			ClientID:     getEnv("FORMGATE_OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("FORMGATE_OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("FORMGATE_OIDC_REDIRECT_URL", ""),
			Scopes:       getEnvList("FORMGATE_OIDC_SCOPES", []string{"openid", "email", "profile"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLevel(getEnv("FORMGATE_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("FORMGATE_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Tokens.KeyDir == "" {
		return fmt.Errorf("token key directory is required")
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	if err := c.OIDC.Validate(); err != nil {
		return fmt.Errorf("OIDC: %w", err)
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
