package models

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// SafeConfig provides thread-safe access to configuration.
// It uses RWMutex to allow concurrent reads while serializing writes.
//
// The exporter keeps its configuration in a SafeConfig so that a SIGHUP or a
// file change can swap credentials without a restart. Invalid configurations
// are rejected without affecting the running one.
//
// Usage:
//
//	safeCfg := NewSafeConfig(cfg)
//	current := safeCfg.Get()
//	tenantChanged, err := safeCfg.ReloadConfig("/path/to/config.yaml")
type SafeConfig struct {
	mu sync.RWMutex
	C  *Config
}

// NewSafeConfig creates a new SafeConfig with the provided initial config.
// The config is stored by reference; the caller should not modify it after
// passing it to NewSafeConfig.
func NewSafeConfig(cfg *Config) *SafeConfig {
	return &SafeConfig{
		C: cfg,
	}
}

// Get returns the current configuration (read-locked).
// The returned pointer is safe to use until the next reload.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.C
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ReloadConfig loads and validates a new configuration from the file.
// Validation happens before the write lock is taken, and the lock is held
// only for the pointer swap.
//
// Returns:
//   - tenantChanged: true if the Polaris tenant or credentials changed, i.e.
//     a new session is required and cached results must be dropped
//   - err: error if the file cannot be read or validation fails
func (sc *SafeConfig) ReloadConfig(configPath string) (tenantChanged bool, err error) {
	newCfg, err := LoadConfig(configPath)
	if err != nil {
		return false, fmt.Errorf("config reload rejected: %w", err)
	}

	sc.mu.Lock()
	old := sc.C
	sc.C = newCfg
	sc.mu.Unlock()

	tenantChanged = old == nil || !old.SameTenant(newCfg)

	log.Info("Configuration reloaded successfully")
	if tenantChanged {
		log.Infof("Polaris tenant or credentials changed (domain: %s), a new session is required", newCfg.Polaris.Domain)
	}

	return tenantChanged, nil
}
