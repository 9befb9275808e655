package mapper

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jgu13/ark-analysis/internal/table"
)

// Summarize aggregates cluster counts from already-mapped FOV tables. It
// reads the label column written by a previous Run and never writes
// anything. The number of clusters is taken from the largest label seen.
func Summarize(ctx context.Context, dataDir string, fovs []string, labelColumn string) (*Summary, error) {
	sum := &Summary{}
	for _, fov := range fovs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dataDir, fov+TableExt)
		tbl, err := table.Read(path)
		if err != nil {
			return nil, err
		}
		labels, err := tbl.Int32s(labelColumn)
		if err != nil {
			return nil, fmt.Errorf("fov %s has no cluster labels (run `ark pixels map` first): %w", fov, err)
		}
		for _, l := range labels {
			if l < 0 {
				return nil, fmt.Errorf("fov %s: negative cluster label %d", fov, l)
			}
			for int(l) >= len(sum.ClusterCounts) {
				sum.ClusterCounts = append(sum.ClusterCounts, 0)
			}
			sum.ClusterCounts[l]++
		}
		sum.FOVs = append(sum.FOVs, fov)
		sum.Rows += int64(len(labels))
	}
	return sum, nil
}
