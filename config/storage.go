package config

import (
	"fmt"
	"strings"
	"time"
)

// StorageMode selects the device store implementation.
type StorageMode string

const (
	// StorageModeMemory keeps device state in process memory.
	StorageModeMemory StorageMode = "memory"
	// StorageModeRedis keeps device state in Redis so it survives restarts.
	StorageModeRedis StorageMode = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageMode.
func (m *StorageMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*m = StorageMode(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageMode: %q (valid options: memory, redis)", v)
	}
}

// StorageConfig configures device storage.
type StorageConfig struct {
	Mode StorageMode `env:"MODE" envDefault:"memory"`
	// DeviceID namespaces Redis keys so several devices can share a server.
	DeviceID string `env:"DEVICE_ID" envDefault:"default"`
	// Prefix overrides the Redis key prefix.
	Prefix string `env:"PREFIX"`
	// DraftTTL expires saved reservation drafts; zero keeps them.
	DraftTTL time.Duration `env:"DRAFT_TTL" envDefault:"0s"`
}

// Sanitize applies defaults.
func (c *StorageConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = StorageModeMemory
	}
	if c.DeviceID = strings.TrimSpace(c.DeviceID); c.DeviceID == "" {
		c.DeviceID = "default"
	}
	c.Prefix = strings.TrimSpace(c.Prefix)
	if c.DraftTTL < 0 {
		c.DraftTTL = 0
	}
}
