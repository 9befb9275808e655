package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgu13/ark-analysis/internal/table"
)

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeFixture lays out FOV tables plus SOM artifacts and returns the dir.
func writeFixture(t *testing.T, fovs ...string) string {
	t.Helper()
	dir := t.TempDir()

	codes, err := table.New([]table.Column{
		{Name: "A", Data: []float64{0, 10}},
		{Name: "B", Data: []float64{0, 10}},
	})
	require.NoError(t, err)
	require.NoError(t, codes.WriteFile(filepath.Join(dir, "weights.feather")))

	norm, err := table.New([]table.Column{
		{Name: "A", Data: []float64{2}},
		{Name: "B", Data: []float64{4}},
	})
	require.NoError(t, err)
	require.NoError(t, norm.WriteFile(filepath.Join(dir, "norm_vals.feather")))

	for _, fov := range fovs {
		tbl, err := table.New([]table.Column{
			{Name: "row", Data: []int64{0, 1}},
			{Name: "A", Data: []float64{4, 18}},
			{Name: "B", Data: []float64{8, 38}},
		})
		require.NoError(t, err)
		require.NoError(t, tbl.WriteFile(filepath.Join(dir, fov+".feather")))
	}
	return dir
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd("1.2.3")
	require.NotNil(t, root)
	assert.Equal(t, "ark", root.Use)
	assert.Equal(t, "1.2.3", root.Version)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "pixels")
	assert.Contains(t, names, "config")

	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestPixelsMapCmd(t *testing.T) {
	t.Run("RequiredFlags", func(t *testing.T) {
		_, err := execute(t, "pixels", "map")
		assert.Error(t, err)
	})

	t.Run("ExplicitFOVs", func(t *testing.T) {
		dir := writeFixture(t, "fov0", "fov1")
		out, err := execute(t, "pixels", "map",
			"--fovs", "fov0,fov1",
			"--data", dir,
			"--norm", filepath.Join(dir, "norm_vals.feather"),
			"--codes", filepath.Join(dir, "weights.feather"),
			"--batch-size", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Pixel cluster mapping summary")
		assert.Contains(t, out, "2 FOVs")

		tbl, err := table.Read(filepath.Join(dir, "fov0.feather"))
		require.NoError(t, err)
		assert.True(t, tbl.HasColumn("pixel_som_cluster"))
	})

	t.Run("DiscoversFOVs", func(t *testing.T) {
		dir := writeFixture(t, "fov0", "fov1", "fov2")
		// weights/norm tables live in the data dir too; point discovery at
		// a directory holding only FOV tables.
		dataDir := filepath.Join(dir, "pixel_mats")
		require.NoError(t, os.Mkdir(dataDir, 0750))
		for _, fov := range []string{"fov0", "fov1", "fov2"} {
			require.NoError(t, os.Rename(
				filepath.Join(dir, fov+".feather"),
				filepath.Join(dataDir, fov+".feather")))
		}

		out, err := execute(t, "pixels", "map",
			"--data", dataDir,
			"--norm", filepath.Join(dir, "norm_vals.feather"),
			"--codes", filepath.Join(dir, "weights.feather"))
		require.NoError(t, err)
		assert.Contains(t, out, "3 FOVs")
	})

	t.Run("CustomLabelColumn", func(t *testing.T) {
		dir := writeFixture(t, "fov0")
		_, err := execute(t, "pixels", "map",
			"--fovs", "fov0",
			"--data", dir,
			"--norm", filepath.Join(dir, "norm_vals.feather"),
			"--codes", filepath.Join(dir, "weights.feather"),
			"--label-column", "cluster")
		require.NoError(t, err)

		tbl, err := table.Read(filepath.Join(dir, "fov0.feather"))
		require.NoError(t, err)
		assert.True(t, tbl.HasColumn("cluster"))
		assert.False(t, tbl.HasColumn("pixel_som_cluster"))
	})
}

func TestPixelsValidateCmd(t *testing.T) {
	dir := writeFixture(t, "fov0", "fov1")

	t.Run("Valid", func(t *testing.T) {
		out, err := execute(t, "pixels", "validate",
			"--fovs", "fov0,fov1",
			"--data", dir,
			"--norm", filepath.Join(dir, "norm_vals.feather"),
			"--codes", filepath.Join(dir, "weights.feather"))
		require.NoError(t, err)
		assert.Contains(t, out, "2 FOVs ready")

		// A dry run never writes the label column.
		tbl, err := table.Read(filepath.Join(dir, "fov0.feather"))
		require.NoError(t, err)
		assert.False(t, tbl.HasColumn("pixel_som_cluster"))
	})

	t.Run("MissingFOV", func(t *testing.T) {
		_, err := execute(t, "pixels", "validate",
			"--fovs", "ghost",
			"--data", dir,
			"--norm", filepath.Join(dir, "norm_vals.feather"),
			"--codes", filepath.Join(dir, "weights.feather"))
		assert.Error(t, err)
	})
}

func TestPixelsSummaryCmd(t *testing.T) {
	dir := writeFixture(t, "fov0")

	t.Run("BeforeMapping", func(t *testing.T) {
		_, err := execute(t, "pixels", "summary", "--fovs", "fov0", "--data", dir)
		assert.Error(t, err)
	})

	t.Run("AfterMapping", func(t *testing.T) {
		_, err := execute(t, "pixels", "map",
			"--fovs", "fov0",
			"--data", dir,
			"--norm", filepath.Join(dir, "norm_vals.feather"),
			"--codes", filepath.Join(dir, "weights.feather"))
		require.NoError(t, err)

		out, err := execute(t, "pixels", "summary", "--fovs", "fov0", "--data", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "CLUSTER")
		assert.Contains(t, out, "1 FOVs")
	})
}

func TestConfigCmds(t *testing.T) {
	t.Run("InitAndValidate", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")

		out, err := execute(t, "config", "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, path)

		out, err = execute(t, "config", "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration is valid")
	})

	t.Run("InitRefusesOverwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		_, err := execute(t, "config", "init", "--config", path)
		require.NoError(t, err)

		_, err = execute(t, "config", "init", "--config", path)
		require.Error(t, err)

		_, err = execute(t, "config", "init", "--config", path, "--force")
		assert.NoError(t, err)
	})

	t.Run("ValidateRejectsBadConfig", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pixel:\n  batch_size: 0\n"), 0600))
		_, err := execute(t, "config", "validate", "--config", path)
		assert.Error(t, err)
	})
}
