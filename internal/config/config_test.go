package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBatchSize, cfg.Pixel.BatchSize)
	assert.Equal(t, DefaultLabelColumn, cfg.Pixel.LabelColumn)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("ExplicitFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"pixel:\n  batch_size: 10\n  label_column: cluster\nlogging:\n  level: debug\n"), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Pixel.BatchSize)
		assert.Equal(t, "cluster", cfg.Pixel.LabelColumn)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// Untouched sections keep defaults.
		assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	})

	t.Run("ExplicitFileMissing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pixel: ["), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pixel:\n  batch_size: 10\n"), 0600))
		t.Setenv("ARK_BATCH_SIZE", "3")
		t.Setenv("ARK_LOG_LEVEL", "warn")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Pixel.BatchSize)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("InvalidAfterOverride", func(t *testing.T) {
		t.Setenv("ARK_BATCH_SIZE", "0")
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"Defaults", func(*Config) {}, true},
		{"JSONLogging", func(c *Config) { c.Logging.Format = "json" }, true},
		{"ZeroBatchSize", func(c *Config) { c.Pixel.BatchSize = 0 }, false},
		{"NegativeWorkers", func(c *Config) { c.Pixel.Workers = -1 }, false},
		{"EmptyLabelColumn", func(c *Config) { c.Pixel.LabelColumn = "" }, false},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfig_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Default().Write(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
