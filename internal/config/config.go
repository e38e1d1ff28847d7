// Package config loads server configuration from the environment.
//
// Everything is an env var (twelve-factor style). A .env file in the
// working directory is loaded first if present — convenient in development,
// absent in production where the process manager injects the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	Port   int    `env:"PORT" envDefault:"3001"`
	DBPath string `env:"DB_PATH" envDefault:"data/projectxs.db"`

	// JWTSecret signs session tokens. Required — there is no safe default
	// for a signing key.
	JWTSecret string `env:"JWT_SECRET"`

	// SeedTestUsers fills an empty database with the well-known test
	// accounts so a fresh launcher has someone to friend. Leave off in
	// production.
	SeedTestUsers bool `env:"SEED_TEST_USERS" envDefault:"false"`

	// OAuth app credentials. A provider with an empty client ID is simply
	// not offered — its routes respond 404.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
	AppleClientID      string `env:"APPLE_CLIENT_ID"`
	AppleClientSecret  string `env:"APPLE_CLIENT_SECRET"`
	AppleCallbackURL   string `env:"APPLE_CALLBACK_URL"`

	// Email delivery: "resend" uses the Resend API, anything else logs
	// codes to the console.
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"console"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"ProjectXS <noreply@projectxs.com>"`
}

// Load reads .env (if any) and the process environment into a Config.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Port)
	}
	if cfg.AppleCallbackURL == "" {
		cfg.AppleCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/apple/callback", cfg.Port)
	}

	return cfg, nil
}
