// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration.
type Config struct {
	Port                 string        `env:"PORT"                   envDefault:"8080"`
	DatabaseURL          string        `env:"DATABASE_URL"`
	RedisURL             string        `env:"REDIS_URL"`
	CacheTTL             time.Duration `env:"CACHE_TTL"              envDefault:"30s"`
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT"   envDefault:"30m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	RNGSeed              uint64        `env:"RNG_SEED"               envDefault:"0"`
	LogLevel             slog.Level    `env:"LOG_LEVEL"              envDefault:"info"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT"       envDefault:"5s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionSweepInterval <= 0 {
		return Config{}, fmt.Errorf("parse env: SESSION_SWEEP_INTERVAL must be positive, got %s", cfg.SessionSweepInterval)
	}
	return cfg, nil
}
