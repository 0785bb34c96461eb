package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// postgres, sqlite or memory
	StoreDriver          string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL          string `env:"DATABASE_URL"`
	SQLitePath           string `env:"SQLITE_PATH" envDefault:"connect4.db"`
	DBMaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	DBConnMaxLifetimeMin int    `env:"DB_CONN_MAX_LIFETIME_MINUTES" envDefault:"5"`

	RedisURL      string        `env:"REDIS_URL"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// shared with the identity provider that mints player tokens
	JWTSecret string `env:"JWT_SECRET"`

	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	GameNamespace     string        `env:"GAME_NAMESPACE" envDefault:"connect4"`
	GameRetentionDays int           `env:"GAME_RETENTION_DAYS" envDefault:"30"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

// PlaceholderJWTSecret is the dev default of cmd/devtoken. The server
// refuses to start with it.
const PlaceholderJWTSecret = "your-secret-key-change-this-in-production"

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the environment alone.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StoreDriver {
	case "postgres", "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	switch cfg.JWTSecret {
	case "":
		return nil, fmt.Errorf("JWT_SECRET is required")
	case PlaceholderJWTSecret:
		return nil, fmt.Errorf("JWT_SECRET is still the placeholder value")
	}
	if cfg.GameRetentionDays < 0 {
		return nil, fmt.Errorf("GAME_RETENTION_DAYS must not be negative")
	}

	cfg.DatabaseURL = withSimpleProtocol(cfg.DatabaseURL)
	cfg.AllowedOrigins = buildAllowedOrigins(cfg.FrontendURL, cfg.AllowedOrigins)
	return &cfg, nil
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.GameRetentionDays) * 24 * time.Hour
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMin) * time.Minute
}

// Append simple_protocol for PgBouncer compatibility (pgx driver)
func withSimpleProtocol(dbURL string) string {
	if dbURL == "" {
		return dbURL
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return dbURL
	}
	q := u.Query()
	if q.Get("default_query_exec_mode") == "" {
		q.Set("default_query_exec_mode", "simple_protocol")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Frontend URL + localhost + extra values, without blanks or repeats.
func buildAllowedOrigins(frontendURL string, extras []string) []string {
	origins := []string{frontendURL, "http://localhost:5173"}
	origins = append(origins, extras...)

	seen := make(map[string]bool, len(origins))
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
