package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	LogLevel    string   `mapstructure:"LOG_LEVEL"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`
	AuthProviderURL     string        `mapstructure:"AUTH_PROVIDER_URL"`
	AuthProviderAPIKey  string        `mapstructure:"AUTH_PROVIDER_API_KEY"`
	AuthProviderTimeout time.Duration `mapstructure:"AUTH_PROVIDER_TIMEOUT"`

	RedisURL           string        `mapstructure:"REDIS_URL"`
	SyncBaseURL        string        `mapstructure:"SYNC_BASE_URL"`
	SyncEmail          string        `mapstructure:"SYNC_EMAIL"`
	SyncPassword       string        `mapstructure:"SYNC_PASSWORD"`
	SyncTimeout        time.Duration `mapstructure:"SYNC_TIMEOUT"`
	SyncEnqueueTimeout time.Duration `mapstructure:"SYNC_ENQUEUE_TIMEOUT"`
	SyncMaxAttempts    int           `mapstructure:"SYNC_MAX_ATTEMPTS"`
	SyncWorkerEnabled  bool          `mapstructure:"SYNC_WORKER_ENABLED"`

	StatusFanoutLimit int `mapstructure:"STATUS_FANOUT_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL",
	"AUTH_PROVIDER_URL", "AUTH_PROVIDER_API_KEY", "AUTH_PROVIDER_TIMEOUT",
	"REDIS_URL", "SYNC_BASE_URL", "SYNC_EMAIL", "SYNC_PASSWORD", "SYNC_TIMEOUT",
	"SYNC_ENQUEUE_TIMEOUT", "SYNC_MAX_ATTEMPTS", "SYNC_WORKER_ENABLED",
	"STATUS_FANOUT_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_PROVIDER_URL", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("AUTH_PROVIDER_TIMEOUT", "10s")
	v.SetDefault("SYNC_TIMEOUT", "15s")
	v.SetDefault("SYNC_ENQUEUE_TIMEOUT", "2s")
	v.SetDefault("SYNC_MAX_ATTEMPTS", 5)
	v.SetDefault("SYNC_WORKER_ENABLED", false)
	v.SetDefault("STATUS_FANOUT_LIMIT", 8)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SyncEnabled reports whether local saves are mirrored to the remote backend.
func (c *Config) SyncEnabled() bool {
	return c.RedisURL != ""
}

// Validate checks that the configuration is safe to run. Outside development a
// token verifier (signing key or JWKS) is mandatory, and the sync worker needs
// both a Redis outbox and a remote backend to drain it into.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.StatusFanoutLimit < 1 {
		return fmt.Errorf("STATUS_FANOUT_LIMIT must be at least 1, got %d", c.StatusFanoutLimit)
	}
	if c.SyncWorkerEnabled {
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SYNC_WORKER_ENABLED is true")
		}
		if c.SyncBaseURL == "" {
			return fmt.Errorf("SYNC_BASE_URL is required when SYNC_WORKER_ENABLED is true")
		}
	}
	if c.SyncMaxAttempts < 1 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be at least 1, got %d", c.SyncMaxAttempts)
	}
	return nil
}
