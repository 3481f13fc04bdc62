package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, assembled once at startup and
// passed down by value to anything that needs a read-only view of it.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Ticket    TicketConfig
	Proxy     ProxyConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	App       AppConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SessionConfig governs the signed CASTGC cookie that binds a browser to a
// live TGT. The secret signs the cookie; it is never used to authenticate
// the TGT itself, which still requires a live row in the ticket store.
type SessionConfig struct {
	CookieSecret string
	CookieName   string
	TokenTTL     time.Duration
	Secure       bool // require HTTPS for the session cookie; false only in local dev
}

// TicketConfig configures the lifetime of each ticket kind. ST/PT are
// deliberately short; TGT tracks the SSO session. A PGT's lifetime counts
// from its own issuance and does not end when its TGT expires. Identifier
// shape is fixed by the wire format and is not configurable.
type TicketConfig struct {
	ServiceTicketTTL        time.Duration
	ProxyTicketTTL          time.Duration
	ProxyGrantingTicketTTL  time.Duration
	TicketGrantingTicketTTL time.Duration
}

// ProxyConfig governs the outbound pgtUrl callback handshake. Only
// CallbackTimeout reaches the callback client. AllowedSchemes and
// RequireHTTPSInProd are checked by Validate and go no further: the
// callback always requires an https pgtUrl, whatever AllowedSchemes says.
type ProxyConfig struct {
	CallbackTimeout  time.Duration
	AllowedSchemes   []string
	RequireHTTPSInProd bool
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64 // stricter limit for /login and /logout
	AuthBurst         int
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables, falling back to a
// local .env file in development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Session: SessionConfig{
			CookieSecret: os.Getenv("SESSION_COOKIE_SECRET"),
			CookieName:   getEnvOrDefault("SESSION_COOKIE_NAME", "CASTGC"),
			TokenTTL:     getDurationOrDefault("SESSION_TOKEN_TTL", 2*time.Hour),
			Secure:       getBoolOrDefault("SESSION_COOKIE_SECURE", true),
		},
		Ticket: TicketConfig{
			ServiceTicketTTL:        getDurationOrDefault("TICKET_ST_TTL", 10*time.Second),
			ProxyTicketTTL:          getDurationOrDefault("TICKET_PT_TTL", 10*time.Second),
			ProxyGrantingTicketTTL:  getDurationOrDefault("TICKET_PGT_TTL", 2*time.Hour),
			TicketGrantingTicketTTL: getDurationOrDefault("TICKET_TGT_TTL", 2*time.Hour),
		},
		Proxy: ProxyConfig{
			CallbackTimeout:    getDurationOrDefault("PROXY_CALLBACK_TIMEOUT", 5*time.Second),
			AllowedSchemes:     getStringSliceOrDefault("PROXY_ALLOWED_SCHEMES", []string{"https"}),
			RequireHTTPSInProd: getBoolOrDefault("PROXY_REQUIRE_HTTPS_IN_PROD", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			AuthRPS:           getFloatOrDefault("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         getIntOrDefault("RATE_LIMIT_AUTH_BURST", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "cas-server"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces required fields and production-only constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.Session.CookieSecret == "" {
		errs = append(errs, "SESSION_COOKIE_SECRET is required")
	}

	if c.App.Environment == "production" {
		if len(c.Session.CookieSecret) < 32 {
			errs = append(errs, "SESSION_COOKIE_SECRET must be at least 32 characters in production")
		}
		if !c.Session.Secure {
			errs = append(errs, "SESSION_COOKIE_SECURE must be true in production")
		}
		if c.Proxy.RequireHTTPSInProd {
			for _, scheme := range c.Proxy.AllowedSchemes {
				if scheme != "https" {
					errs = append(errs, "PROXY_ALLOWED_SCHEMES must be https-only in production")
					break
				}
			}
		}
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config, safe for
// logging at startup.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, Session: [REDACTED], RateLimit: %v, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

// redactURL redacts the credential portion of a database DSN.
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
