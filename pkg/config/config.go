package config

import (
	"fmt"
	"os"
)

// Config represents the full configuration for a pgforge client
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns a config with sensible defaults applied
func DefaultConfig() *Config {
	return &Config{
		Database: DefaultDatabaseConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFile reads and strictly decodes a YAML config file, then applies
// defaults for any zero-valued pool settings.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := DecodeStrict(f, cfg); err != nil {
		return nil, err
	}
	cfg.Database.applyDefaults()
	return cfg, nil
}
