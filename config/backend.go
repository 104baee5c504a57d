package config

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// BackendConfig configures the hosted auth backend client.
type BackendConfig struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL     string `env:"URL"`
	AnonKey string `env:"ANON_KEY"`

	// JWTSecret verifies HS256 access tokens. Otherwise JWKSURL, when set,
	// verifies them against the published key set. With neither, token
	// claims are read without a signature check.
	JWKSURL   string `env:"JWKS_URL"`
	JWTSecret string `env:"JWT_SECRET"`
	// Issuer is the expected iss claim; empty skips the check.
	Issuer string `env:"ISSUER"`

	Timeout       time.Duration `env:"TIMEOUT"        envDefault:"15s"`
	RefreshMargin time.Duration `env:"REFRESH_MARGIN" envDefault:"60s"`
	JWTLeeway     time.Duration `env:"JWT_LEEWAY"     envDefault:"30s"`
}

// Sanitize trims values and restores defaults for non-positive durations.
func (c *BackendConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.AnonKey = strings.TrimSpace(c.AnonKey)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.Issuer = strings.TrimSpace(c.Issuer)
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RefreshMargin <= 0 {
		c.RefreshMargin = time.Minute
	}
	if c.JWTLeeway < 0 {
		c.JWTLeeway = 0
	}
}

// Validate checks that the backend can be reached.
func (c *BackendConfig) Validate() error {
	if c.URL == "" {
		return errors.New("BACKEND_URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("BACKEND_URL must be an absolute URL")
	}
	if c.AnonKey == "" {
		return errors.New("BACKEND_ANON_KEY is required")
	}
	return nil
}
