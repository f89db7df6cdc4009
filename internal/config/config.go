// Package config reads and writes the operator-local configuration at
// ~/.robotaste/config.json: defaults applied when a protocol leaves hardware
// settings blank, plus executor tuning.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied when the config file is absent or a field is zero.
const (
	DefaultBaudRate            = 115200
	DefaultPollIntervalSeconds = 1.0
)

// Config represents the flat robotaste configuration.
type Config struct {
	Version string `json:"version"`

	// Fallback serial settings for protocols that do not pin their own.
	SerialPort string `json:"serial_port,omitempty"`
	BaudRate   int    `json:"baud_rate,omitempty"`

	// ExecutorPollSeconds is the executor's empty-queue sleep interval.
	ExecutorPollSeconds float64 `json:"executor_poll_seconds,omitempty"`

	// MockHardware makes the direct device commands default to the mock
	// client, for development machines with no rig attached. Session and
	// executor connections follow the protocol's hardware settings.
	MockHardware bool `json:"mock_hardware,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:             "1",
		BaudRate:            DefaultBaudRate,
		ExecutorPollSeconds: DefaultPollIntervalSeconds,
	}
}

// Dir returns the robotaste configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".robotaste"), nil
}

// Load reads config.json from the robotaste directory. A missing file is not
// an error; defaults are returned instead.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads config.json from the specified directory.
func LoadFrom(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ExecutorPollSeconds <= 0 {
		cfg.ExecutorPollSeconds = DefaultPollIntervalSeconds
	}
	return cfg, nil
}

// Save writes config.json to the specified directory.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
