// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend kinds accepted in BACKEND_KIND.
const (
	BackendHTTP = "http"
	BackendAMQP = "amqp"
	BackendNone = "none"
)

type Config struct {
	Server struct {
		Port            int           `env:"PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	} `envPrefix:"SERVER_"`
	Database struct {
		Path string `env:"PATH" envDefault:"shifts.db"`
	} `envPrefix:"DATABASE_"`
	Backend struct {
		Kind          string        `env:"KIND" envDefault:"none"`
		URL           string        `env:"URL"`
		Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
		ClientVersion string        `env:"CLIENT_VERSION" envDefault:"shift-calendar/1.0"`
	} `envPrefix:"BACKEND_"`
	RabbitMQ struct {
		DSN            string        `env:"DSN"`
		Queue          string        `env:"QUEUE" envDefault:"weekly_submissions"`
		PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
	} `envPrefix:"RABBITMQ_"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"60s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendNone:
	case BackendHTTP:
		if c.Backend.URL == "" {
			return errors.New("BACKEND_URL is required when BACKEND_KIND=http")
		}
	case BackendAMQP:
		if c.RabbitMQ.DSN == "" {
			return errors.New("RABBITMQ_DSN is required when BACKEND_KIND=amqp")
		}
	default:
		return fmt.Errorf("unknown BACKEND_KIND %q (want http, amqp or none)", c.Backend.Kind)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("REFRESH_INTERVAL must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
