// Package config loads and validates the ark configuration file.
//
// Configuration precedence is CLI flags > ARK_* environment variables >
// config file > built-in defaults. Flag overrides are applied by the CLI
// layer after Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values applied before the config file and environment are read.
const (
	DefaultBatchSize   = 5
	DefaultLabelColumn = "pixel_som_cluster"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// configFileName is the file name looked up under the ark config directory.
const configFileName = "config.yaml"

// Config is the root configuration document.
type Config struct {
	Pixel   PixelConfig   `yaml:"pixel"`
	Logging LoggingConfig `yaml:"logging"`
}

// PixelConfig configures the pixel cluster mapping run.
type PixelConfig struct {
	// BatchSize is the number of FOVs processed per worker-pool cycle.
	BatchSize int `yaml:"batch_size"`

	// Workers caps the worker pool per batch. Zero means
	// "available parallelism minus one".
	Workers int `yaml:"workers"`

	// LabelColumn is the name of the cluster column appended to each
	// FOV table.
	LabelColumn string `yaml:"label_column"`
}

// LoggingConfig configures the zerolog backend.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Pixel: PixelConfig{
			BatchSize:   DefaultBatchSize,
			Workers:     0,
			LabelColumn: DefaultLabelColumn,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultPath returns the canonical config file location,
// $HOME/.ark/config.yaml, or an empty string when the home directory
// cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ark", configFileName)
}

// Load reads the config file at path, overlays ARK_* environment variables,
// and validates the result. An empty path falls back to DefaultPath; a
// missing file at the default location is not an error, but a missing file
// at an explicitly given path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, unmarshalErr)
			}
		case os.IsNotExist(err) && !explicit:
			// Default location absent: run on defaults.
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays ARK_* environment variables onto cfg.
func (c *Config) applyEnv() {
	if v := os.Getenv("ARK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARK_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ARK_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("ARK_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pixel.BatchSize = n
		}
	}
	if v := os.Getenv("ARK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pixel.Workers = n
		}
	}
}

// Validate checks cfg for semantic errors.
func (c *Config) Validate() error {
	if c.Pixel.BatchSize < 1 {
		return fmt.Errorf("pixel.batch_size must be >= 1, got %d", c.Pixel.BatchSize)
	}
	if c.Pixel.Workers < 0 {
		return fmt.Errorf("pixel.workers must be >= 0, got %d", c.Pixel.Workers)
	}
	if c.Pixel.LabelColumn == "" {
		return errors.New("pixel.label_column cannot be empty")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// Write marshals cfg to path, creating parent directories as needed.
// Used by `ark config init`.
func (c *Config) Write(path string) error {
	if path == "" {
		return errors.New("config path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
