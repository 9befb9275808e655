package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgu13/ark-analysis/internal/config"
	"github.com/jgu13/ark-analysis/internal/mapper"
	"github.com/jgu13/ark-analysis/internal/report"
)

// pixelFlags holds the input flags shared by the pixels subcommands.
type pixelFlags struct {
	fovs        string
	dataDir     string
	normPath    string
	codesPath   string
	batchSize   int
	workers     int
	labelColumn string
}

// addInputFlags registers the flags locating the run inputs.
func (f *pixelFlags) addInputFlags(cmd *cobra.Command, needArtifacts bool) {
	cmd.Flags().StringVar(&f.fovs, "fovs", "",
		"comma-separated FOV identifiers (default: every table in --data)")
	cmd.Flags().StringVar(&f.dataDir, "data", "", "directory of per-FOV pixel matrix files")
	_ = cmd.MarkFlagRequired("data")
	if needArtifacts {
		cmd.Flags().StringVar(&f.normPath, "norm", "", "normalization values table")
		cmd.Flags().StringVar(&f.codesPath, "codes", "", "SOM code matrix table")
		_ = cmd.MarkFlagRequired("norm")
		_ = cmd.MarkFlagRequired("codes")
	}
}

// addTuningFlags registers batching and labeling flags whose defaults come
// from the config file.
func (f *pixelFlags) addTuningFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0,
		fmt.Sprintf("FOVs per batch (default %d, or pixel.batch_size from config)", config.DefaultBatchSize))
	cmd.Flags().IntVar(&f.workers, "workers", 0,
		"worker pool size per batch (default: available parallelism - 1)")
	f.addLabelFlag(cmd)
}

func (f *pixelFlags) addLabelFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.labelColumn, "label-column", "",
		fmt.Sprintf("cluster column name (default %q)", config.DefaultLabelColumn))
}

// resolveFOVs parses --fovs, falling back to directory discovery.
func (f *pixelFlags) resolveFOVs() ([]string, error) {
	if f.fovs != "" {
		return mapper.ParseFOVList(f.fovs), nil
	}
	fovs, err := mapper.DiscoverFOVs(f.dataDir)
	if err != nil {
		return nil, err
	}
	if len(fovs) == 0 {
		return nil, fmt.Errorf("no FOV tables found in %s", f.dataDir)
	}
	return fovs, nil
}

// mapperConfig merges flags over the loaded config into an explicit run
// config.
func (f *pixelFlags) mapperConfig(cmd *cobra.Command) (mapper.Config, error) {
	cfg := configFromCmd(cmd)

	fovs, err := f.resolveFOVs()
	if err != nil {
		return mapper.Config{}, err
	}

	mc := mapper.Config{
		FOVs:        fovs,
		DataDir:     f.dataDir,
		CodesPath:   f.codesPath,
		NormPath:    f.normPath,
		BatchSize:   cfg.Pixel.BatchSize,
		Workers:     cfg.Pixel.Workers,
		LabelColumn: cfg.Pixel.LabelColumn,
	}
	if f.batchSize > 0 {
		mc.BatchSize = f.batchSize
	}
	if f.workers > 0 {
		mc.Workers = f.workers
	}
	if f.labelColumn != "" {
		mc.LabelColumn = f.labelColumn
	}
	return mc, nil
}

// newPixelsCmd creates the pixels command group.
func newPixelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixels",
		Short: "Pixel-level SOM cluster commands",
	}
	cmd.AddCommand(newPixelsMapCmd(), newPixelsValidateCmd(), newPixelsSummaryCmd())
	return cmd
}

// newPixelsMapCmd creates the pixels map command: the batch cluster mapper.
func newPixelsMapCmd() *cobra.Command {
	var flags pixelFlags

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Assign every pixel to its nearest SOM cluster",
		Long: `Maps each FOV's pixel matrix onto the trained SOM: marker columns are
divided by their precomputed normalization values, every pixel row is
assigned the index of its nearest SOM code, and the table is rewritten in
place with a cluster label column.

FOVs are processed in fixed-size batches; within a batch FOVs run
concurrently on a worker pool that is released between batches. Tables are
rewritten through staging files, so an aborted run never leaves a torn
table. Re-running map over already-mapped tables divides the marker
columns a second time — restore inputs before repeating a run.`,
		Example: `  ark pixels map --fovs fov0,fov1 --data ./pixel_mats --norm norm_vals.feather --codes weights.feather
  ark pixels map --data ./pixel_mats --norm norm_vals.feather --codes weights.feather --batch-size 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc, err := flags.mapperConfig(cmd)
			if err != nil {
				return err
			}

			m, err := mapper.Setup(mc)
			if err != nil {
				return err
			}

			sum, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}

			return report.RenderSummary(cmd.OutOrStdout(), sum, isTerminal(os.Stdout))
		},
	}

	flags.addInputFlags(cmd, true)
	flags.addTuningFlags(cmd)
	return cmd
}

// newPixelsValidateCmd creates the pixels validate command: a dry run over
// the same inputs that writes nothing.
func newPixelsValidateCmd() *cobra.Command {
	var flags pixelFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate mapping inputs without writing anything",
		Long: `Loads the SOM code matrix and normalization values, reconciles their
marker sets, and checks every FOV table for the required marker columns.
No file is modified.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc, err := flags.mapperConfig(cmd)
			if err != nil {
				return err
			}

			m, err := mapper.Setup(mc)
			if err != nil {
				return err
			}
			if err := m.Validate(cmd.Context()); err != nil {
				return err
			}

			cmd.Printf("✅ %d FOVs ready: %d markers, %d SOM codes\n",
				len(mc.FOVs), m.Codes().NumMarkers(), m.Codes().NumCodes())
			return nil
		},
	}

	flags.addInputFlags(cmd, true)
	flags.addLabelFlag(cmd)
	return cmd
}

// newPixelsSummaryCmd creates the pixels summary command.
func newPixelsSummaryCmd() *cobra.Command {
	var flags pixelFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Report per-cluster pixel counts of mapped FOVs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFromCmd(cmd)
			labelColumn := cfg.Pixel.LabelColumn
			if flags.labelColumn != "" {
				labelColumn = flags.labelColumn
			}

			fovs, err := flags.resolveFOVs()
			if err != nil {
				return err
			}

			sum, err := mapper.Summarize(cmd.Context(), flags.dataDir, fovs, labelColumn)
			if err != nil {
				return err
			}

			return report.RenderSummary(cmd.OutOrStdout(), sum, isTerminal(os.Stdout))
		},
	}

	flags.addInputFlags(cmd, false)
	flags.addLabelFlag(cmd)
	return cmd
}
