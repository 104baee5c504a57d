package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - backend.go: hosted auth backend
//   - storage.go: device storage
//   - database.go: Postgres and Redis connections
//   - guard.go: routing guard groups and policy
//   - observability.go: logging and tracing
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, debug level).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Backend BackendConfig `envPrefix:"BACKEND_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Guard GuardConfig `envPrefix:"GUARD_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Backend.Sanitize()
	c.Storage.Sanitize()
	c.Postgres.Sanitize()
	c.Guard.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// Validate reports configuration that cannot work at all.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.Mode == StorageModeRedis && strings.TrimSpace(c.Redis.URI) == "" &&
		!c.Redis.UseSentinel && !c.Redis.UseCluster {
		errs = append(errs, errors.New("STORAGE_MODE=redis requires REDIS_URI"))
	}
	return errors.Join(errs...)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
