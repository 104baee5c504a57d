package config

import (
	"log/slog"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

func parse(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	cfg := parse(t, map[string]string{})

	assert.False(t, cfg.IsDev)
	assert.Equal(t, StorageModeMemory, cfg.Storage.Mode)
	assert.Equal(t, "default", cfg.Storage.DeviceID)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, time.Minute, cfg.Backend.RefreshMargin)
	assert.False(t, cfg.Postgres.Enabled)
	assert.Equal(t, "purumi", cfg.Postgres.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.URI)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.False(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "purumi", cfg.Observability.Tracing.ServiceName)

	g := cfg.Guard.Guard()
	assert.Equal(t, domainauth.DefaultRouteTable, g.Routes())
	assert.Equal(t, domainauth.DefaultGuardPolicy, g.Policy())
}

func TestAppConfig_FromEnv(t *testing.T) {
	cfg := parse(t, map[string]string{
		"DEV":                                 "true",
		"BACKEND_URL":                         " https://xyz.supabase.co/ ",
		"BACKEND_ANON_KEY":                    "anon",
		"BACKEND_TIMEOUT":                     "3s",
		"STORAGE_MODE":                        "Redis",
		"STORAGE_DEVICE_ID":                   "phone-1",
		"REDIS_URI":                           "redis://cache:6379/2",
		"DB_ENABLED":                          "true",
		"DB_PORT":                             "6543",
		"GUARD_GUESTS_BLOCKED_FROM_PROTECTED": "false",
		"GUARD_PROTECTED_GROUPS":              "reservation, mypage ,",
		"LOG_LEVEL":                           "DEBUG",
		"LOG_FORMAT":                          "text",
		"OTEL_TRACING_ENABLED":                "true",
		"OTEL_EXPORTER_OTLP_ENDPOINT":         "http://collector:4318",
	})

	assert.True(t, cfg.IsDev)
	assert.Equal(t, "https://xyz.supabase.co", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, StorageModeRedis, cfg.Storage.Mode)
	assert.Equal(t, "phone-1", cfg.Storage.DeviceID)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, []string{"reservation", "mypage"}, cfg.Guard.ProtectedGroups)
	assert.False(t, cfg.Guard.Guard().Policy().GuestsBlockedFromProtected)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.Logging.SlogLevel())
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Observability.Tracing.Endpoint)
	require.NoError(t, cfg.Validate())
}

func TestStorageMode_UnmarshalText(t *testing.T) {
	var m StorageMode
	require.NoError(t, m.UnmarshalText([]byte("MEMORY")))
	assert.Equal(t, StorageModeMemory, m)

	err := m.UnmarshalText([]byte("sqlite"))
	assert.EqualError(t, err, `invalid StorageMode: "sqlite" (valid options: memory, redis)`)

	var cfg AppConfig
	err = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{"STORAGE_MODE": "disk"}})
	assert.Error(t, err)
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "missing backend url",
			vars:    map[string]string{"BACKEND_ANON_KEY": "k"},
			wantErr: "BACKEND_URL is required",
		},
		{
			name:    "relative backend url",
			vars:    map[string]string{"BACKEND_URL": "xyz.supabase.co", "BACKEND_ANON_KEY": "k"},
			wantErr: "BACKEND_URL must be an absolute URL",
		},
		{
			name:    "missing anon key",
			vars:    map[string]string{"BACKEND_URL": "https://xyz.supabase.co"},
			wantErr: "BACKEND_ANON_KEY is required",
		},
		{
			name: "redis storage without uri",
			vars: map[string]string{
				"BACKEND_URL": "https://xyz.supabase.co", "BACKEND_ANON_KEY": "k",
				"STORAGE_MODE": "redis", "REDIS_URI": " ",
			},
			wantErr: "STORAGE_MODE=redis requires REDIS_URI",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parse(t, tt.vars)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTracingConfig_Sanitize(t *testing.T) {
	c := TracingConfig{Enabled: true, Endpoint: "  ", SampleRatio: 3}
	c.Sanitize()
	assert.False(t, c.Enabled)
	assert.Equal(t, 1.0, c.SampleRatio)
	assert.Equal(t, "purumi", c.ServiceName)
}

func TestDetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := parse(t, map[string]string{})
	assert.True(t, cfg.IsDev)
}
