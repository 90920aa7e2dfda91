package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smartcampus/facilities/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	OIDC    OIDCConfig
	Storage StorageConfig

	// Logging
	LogLevel observability.LogLevel

	// CORS origins for the browser frontend
	CORSOrigins []string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// AuthConfig holds token and credential settings
type AuthConfig struct {
	// SigningKey is the HS256 key material. If empty, a random key is
	// generated at startup and all tokens die with the process.
	SigningKey string

	// TokenTTL bounds the validity of minted session tokens.
	TokenTTL time.Duration

	// RedisURL enables the shared revocation list when set. Empty means
	// the revocation list is process-local.
	RedisURL string

	// SeedUsers controls whether default admin/user accounts are created
	// when the user table is empty.
	SeedUsers bool
}

// OIDCConfig holds the federated login provider settings. Federation is
// disabled when IssuerURL is empty.
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// FrontendRedirectURL receives the token-bearing redirect after a
	// successful federated login.
	FrontendRedirectURL string
}

// StorageConfig holds database settings
type StorageConfig struct {
	// DatabaseURL is the PostgreSQL connection string. Empty runs the
	// server on in-memory stores (development mode).
	DatabaseURL string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
}

// Enabled reports whether federated login is configured.
func (c OIDCConfig) Enabled() bool {
	return c.IssuerURL != ""
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("CAMPUS_HOST", "0.0.0.0"),
			Port:            getEnv("CAMPUS_PORT", "8080"),
			ReadTimeout:     getEnvDuration("CAMPUS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("CAMPUS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("CAMPUS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("CAMPUS_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("CAMPUS_HEALTH_PORT", "9090"),
		},
		Auth: AuthConfig{
			SigningKey: getEnv("CAMPUS_JWT_SECRET", ""),
			TokenTTL:   getEnvDuration("CAMPUS_TOKEN_TTL", 24*time.Hour),
			RedisURL:   getEnv("CAMPUS_REDIS_URL", ""),
			SeedUsers:  getEnvBool("CAMPUS_SEED_USERS", true),
		},
		OIDC: OIDCConfig{
			IssuerURL:           getEnv("CAMPUS_OIDC_ISSUER_URL", ""),
			ClientID:            getEnv("CAMPUS_OIDC_CLIENT_ID", ""),
			ClientSecret:        getEnv("CAMPUS_OIDC_CLIENT_SECRET", ""),
			RedirectURL:         getEnv("CAMPUS_OIDC_REDIRECT_URL", ""),
			Scopes:              getEnvList("CAMPUS_OIDC_SCOPES", []string{"openid", "profile", "email"}),
			FrontendRedirectURL: getEnv("CAMPUS_FRONTEND_REDIRECT_URL", "http://localhost:3000/oauth2/redirect"),
		},
		Storage: StorageConfig{
			DatabaseURL: getEnv("CAMPUS_DATABASE_URL", ""),
			MaxConns:    getEnvInt("CAMPUS_DATABASE_MAX_CONNS", 20),
			MinConns:    getEnvInt("CAMPUS_DATABASE_MIN_CONNS", 2),
			Timeout:     getEnvDuration("CAMPUS_DATABASE_TIMEOUT", 10*time.Second),
		},
		LogLevel:    parseLogLevel(getEnv("CAMPUS_LOG_LEVEL", "info")),
		CORSOrigins: getEnvList("CAMPUS_CORS_ORIGINS", []string{"http://localhost:3000"}),
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

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.OIDC.Enabled() {
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("OIDC client ID is required when an issuer is configured")
		}
		if c.OIDC.ClientSecret == "" {
			return fmt.Errorf("OIDC client secret is required when an issuer is configured")
		}
		if c.OIDC.RedirectURL == "" {
			return fmt.Errorf("OIDC redirect URL is required when an issuer is configured")
		}

		hasOpenID := false
		for _, scope := range c.OIDC.Scopes {
			if scope == "openid" {
				hasOpenID = true
				break
			}
		}
		if !hasOpenID {
			return fmt.Errorf("'openid' scope is required for OIDC")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
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
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
