// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the service. Values come from the
// environment, with local-development defaults.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"eventreg"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// CacheTTL bounds display-read staleness. The capacity gate never reads
	// the cache, so this only affects listings.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	// SweepInterval controls how often elapsed events are marked COMPLETED
	// and waitlists are reconciled.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DSN builds a libpq-compatible connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
