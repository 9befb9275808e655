package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFOVs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"fov2.feather",
		"fov0.feather",
		"fov1.feather",
		"fov1.feather.01ABC.staging", // leftover from an interrupted run
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.feather"), 0750))

	fovs, err := DiscoverFOVs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"fov0", "fov1", "fov2"}, fovs)
}

func TestDiscoverFOVs_MissingDir(t *testing.T) {
	_, err := DiscoverFOVs(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestParseFOVList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"Simple", "fov0,fov1,fov2", []string{"fov0", "fov1", "fov2"}},
		{"Whitespace", " fov0 , fov1 ", []string{"fov0", "fov1"}},
		{"EmptyEntries", "fov0,,fov1,", []string{"fov0", "fov1"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFOVList(tt.in))
		})
	}
}
