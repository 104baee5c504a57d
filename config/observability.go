package config

import (
	"log/slog"
	"strings"
)

const defaultServiceName = "purumi"

// ObservabilityConfig groups logging and tracing configuration.
type ObservabilityConfig struct {
	Logging LoggingConfig `envPrefix:"LOG_"`
	Tracing TracingConfig `envPrefix:"OTEL_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Logging.Sanitize()
	c.Tracing.Sanitize()
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"` // json or text
}

// Sanitize normalises values.
func (c *LoggingConfig) Sanitize() {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format != "text" {
		c.Format = "json"
	}
}

// SlogLevel returns the configured level, info when unrecognised.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled bool `env:"TRACING_ENABLED" envDefault:"false"`
	// Endpoint is host:port of an OTLP/HTTP collector.
	Endpoint    string  `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	Insecure    bool    `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"SERVICE_NAME"           envDefault:"purumi"`
	SampleRatio float64 `env:"TRACES_SAMPLER_ARG"     envDefault:"1"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *TracingConfig) Sanitize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	for _, scheme := range []string{"http://", "https://"} {
		c.Endpoint = strings.TrimPrefix(c.Endpoint, scheme)
	}
	if c.Endpoint == "" {
		c.Enabled = false
	}
	if c.ServiceName = strings.TrimSpace(c.ServiceName); c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1
	}
}
