package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("LevelParsed", func(t *testing.T) {
		logger, closer, err := New(Config{Level: "warn", Format: FormatConsole})
		require.NoError(t, err)
		defer func() { _ = closer() }()
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	})

	t.Run("BadLevelFallsBackToInfo", func(t *testing.T) {
		logger, closer, err := New(Config{Level: "shout", Format: FormatConsole})
		require.NoError(t, err)
		defer func() { _ = closer() }()
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ark.log")
		logger, closer, err := New(Config{Level: "info", Format: FormatJSON, File: path})
		require.NoError(t, err)

		logger.Info().Msg("hello")
		require.NoError(t, closer())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello")
	})

	t.Run("UnwritableFile", func(t *testing.T) {
		_, _, err := New(Config{Level: "info", File: filepath.Join(t.TempDir(), "no", "such", "dir.log")})
		assert.Error(t, err)
	})
}

func TestContextRoundTrip(t *testing.T) {
	logger, closer, err := New(Config{Level: "debug", Format: FormatConsole})
	require.NoError(t, err)
	defer func() { _ = closer() }()

	child := ComponentLogger(logger, "mapper")
	ctx := WithContext(context.Background(), child)

	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, child.GetLevel(), got.GetLevel())
}

func TestFromContext_Missing(t *testing.T) {
	// No logger attached: a disabled logger, not nil.
	got := FromContext(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, zerolog.Disabled, got.GetLevel())
}
