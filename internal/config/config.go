// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"freight-rating/internal/logging"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "RATING_CONFIG"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Server contains HTTP server configuration
	Server ServerConfig `json:"server"`

	// RateCard points at the rules/zones/modifiers snapshot
	RateCard RateCardConfig `json:"rate_card"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Metrics contains Prometheus configuration
	Metrics MetricsConfig `json:"metrics"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr                   string `json:"addr"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds"`
}

// RateCardConfig locates the rate card
type RateCardConfig struct {
	// Path is an HCL rate card file; empty uses the embedded default
	Path string `json:"path"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (cli, json, markdown)
	DefaultFormat string `json:"default_format"`

	// Currency labels prices in rendered output; no conversion is done
	Currency string `json:"currency"`
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Addr:                   ":8080",
			ReadTimeoutSeconds:     10,
			WriteTimeoutSeconds:    10,
			ShutdownTimeoutSeconds: 15,
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
			Currency:      "EUR",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "rating",
		},
		Logging: logging.DefaultConfig(),
	}
}

// DefaultPath returns $HOME/.freight-rating.json
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".freight-rating.json")
}

// ResolvePath picks the explicit path, then $RATING_CONFIG, then DefaultPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath()
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
