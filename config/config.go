package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret      string `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTAlgorithm   string `env:"JWT_ALGORITHM"    envDefault:"HS256" validate:"oneof=HS256 HS384 HS512"`
	JWTExpiryHours int    `env:"JWT_EXPIRY_HOURS" envDefault:"24"    validate:"min=1,max=720"`

	MagicLinkExpiryMinutes int `env:"MAGIC_LINK_EXPIRY_MINUTES" envDefault:"15" validate:"min=1,max=1440"`
	MagicLinkRetentionDays int `env:"MAGIC_LINK_RETENTION_DAYS" envDefault:"0"  validate:"min=0,max=3650"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	DefaultOrigin string `env:"DEFAULT_ORIGIN" envDefault:"http://localhost:4321" validate:"url"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AccessTokenTTL is the validity window of issued JWTs.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

// MagicLinkTTL is the validity window of magic-link tokens.
func (c *Config) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkExpiryMinutes) * time.Minute
}

// MagicLinkRetention is how long spent or expired links are kept before
// the janitor may delete them. Zero means keep forever.
func (c *Config) MagicLinkRetention() time.Duration {
	return time.Duration(c.MagicLinkRetentionDays) * 24 * time.Hour
}
