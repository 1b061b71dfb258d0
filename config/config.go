// Package config provides configuration management for goras.
// It handles loading, saving, and validating application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/goras/common"
)

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`
	// LogFile enables logging to a rotated file. Empty disables it; "default"
	// uses the application data directory.
	LogFile string `yaml:"log_file"`
	// Backend selects the native implementation: "auto", "rasapi" or
	// "networkmanager".
	Backend string `yaml:"backend"`
	// PollInterval is how often watch and the exporter history recorder
	// re-read connections.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Output is the default CLI output format: "table" or "json".
	Output string `yaml:"output"`
	// HistoryPath is the SQLite database for statistics samples. Empty uses
	// the application data directory.
	HistoryPath string `yaml:"history_path"`
	// ExporterListen is the listen address of the Prometheus exporter.
	ExporterListen string `yaml:"exporter_listen"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		Backend:        common.BackendAuto,
		PollInterval:   common.PollInterval,
		Output:         common.OutputTable,
		ExporterListen: common.DefaultExporterListen,
	}
}

// Load loads the configuration from the default config file.
// If the file doesn't exist, defaults are returned without creating it.
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfigLoad, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	config := DefaultConfig()
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("%w: error parsing %s: %w", common.ErrConfigLoad, path, err)
	}

	config.validate()
	return config, nil
}

// validate replaces invalid values by their defaults.
func (c *Config) validate() {
	def := DefaultConfig()

	if _, err := common.ParseLogLevel(c.LogLevel); err != nil {
		c.LogLevel = def.LogLevel
	}
	if !common.StringInSlice(c.Backend, []string{common.BackendAuto, common.BackendRasAPI, common.BackendNetworkManager}) {
		c.Backend = def.Backend
	}
	if !common.StringInSlice(c.Output, []string{common.OutputTable, common.OutputJSON}) {
		c.Output = def.Output
	}
	if c.PollInterval < 100*time.Millisecond {
		c.PollInterval = def.PollInterval
	}
	if common.IsBlank(c.ExporterListen) {
		c.ExporterListen = def.ExporterListen
	}
}

// Save saves the configuration to the default config file.
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: error creating config directory: %w", common.ErrConfigSave, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: error serializing configuration: %w", common.ErrConfigSave, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %w", common.ErrConfigSave, err)
	}
	return nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.ConfigFileName), nil
}

// ResolveHistoryPath returns HistoryPath, or the default database location
// in the data directory.
func (c *Config) ResolveHistoryPath() (string, error) {
	if c.HistoryPath != "" {
		return c.HistoryPath, nil
	}
	dir, err := common.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.HistoryFileName), nil
}

// LogConfig returns the logger settings derived from the configuration.
func (c *Config) LogConfig() common.LogConfig {
	level, _ := common.ParseLogLevel(c.LogLevel)
	lc := common.LogConfig{Level: level}
	switch c.LogFile {
	case "":
	case "default":
		lc.EnableFile = true
	default:
		lc.EnableFile = true
		lc.FilePath = c.LogFile
	}
	return lc
}
