// Package mapper implements the batch pixel cluster mapper: for every
// field of view it loads the pixel matrix, normalizes the marker columns,
// assigns each pixel to its nearest SOM code, and rewrites the matrix in
// place with the cluster label column.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jgu13/ark-analysis/internal/batch"
	"github.com/jgu13/ark-analysis/internal/logging"
	"github.com/jgu13/ark-analysis/internal/som"
	"github.com/jgu13/ark-analysis/internal/table"
)

// TableExt is the file extension of per-FOV pixel matrix files.
const TableExt = ".feather"

// Config carries everything a run needs. All state is explicit here; tasks
// never read ambient globals.
type Config struct {
	// FOVs are the unit identifiers; DataDir holds one <fov>.feather each.
	FOVs    []string
	DataDir string

	// CodesPath and NormPath locate the SOM code matrix and the
	// normalization vector tables.
	CodesPath string
	NormPath  string

	// BatchSize is the number of FOVs per worker-pool cycle. Workers caps
	// the pool; zero means available parallelism minus one.
	BatchSize int
	Workers   int

	// LabelColumn is the cluster column written to each table.
	LabelColumn string
}

// Mapper is a fully resolved run: codes loaded, normalization reconciled.
type Mapper struct {
	cfg      Config
	codes    *som.CodeSet
	divisors []float64
	runID    string
}

// Summary aggregates results across all FOVs of a run.
type Summary struct {
	RunID         string
	FOVs          []string
	Rows          int64
	ClusterCounts []int64
	Elapsed       time.Duration
}

// Setup loads the SOM artifacts and reconciles the normalization vector to
// the code matrix's marker order. Any failure here is fatal before the
// first batch starts.
func Setup(cfg Config) (*Mapper, error) {
	if len(cfg.FOVs) == 0 {
		return nil, errors.New("no FOVs to process")
	}
	if cfg.LabelColumn == "" {
		return nil, errors.New("label column cannot be empty")
	}

	codes, err := som.LoadCodes(cfg.CodesPath)
	if err != nil {
		return nil, fmt.Errorf("loading code matrix: %w", err)
	}
	norm, err := som.LoadNorm(cfg.NormPath)
	if err != nil {
		return nil, fmt.Errorf("loading normalization vector: %w", err)
	}
	divisors, err := norm.Reconcile(codes)
	if err != nil {
		return nil, err
	}

	return &Mapper{
		cfg:      cfg,
		codes:    codes,
		divisors: divisors,
		runID:    ulid.Make().String(),
	}, nil
}

// RunID returns the ULID identifying this run. It tags log lines and
// staging file names.
func (m *Mapper) RunID() string { return m.runID }

// Codes returns the loaded code set.
func (m *Mapper) Codes() *som.CodeSet { return m.codes }

// Run processes every FOV in fixed-size batches. FOVs within a batch run
// concurrently on a pool that is torn down between batches; the first task
// error aborts the run. FOV files are rewritten in place via staging files,
// so a failed FOV never leaves a torn table — but files rewritten before
// the failure stay rewritten, and there is no resume.
func (m *Mapper) Run(ctx context.Context) (*Summary, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	sum := &Summary{
		RunID:         m.runID,
		ClusterCounts: make([]int64, m.codes.NumCodes()),
	}
	var mu sync.Mutex

	proc, err := batch.New[string](m.cfg.BatchSize, m.cfg.Workers)
	if err != nil {
		return nil, err
	}
	proc = proc.WithProgress(func(p batch.Progress) {
		log.Info().
			Str("run_id", m.runID).
			Int("fovs_done", p.DoneItems).
			Int("fovs_total", p.TotalItems).
			Int("batches_done", p.DoneBatches).
			Int("batches_total", p.TotalBatches).
			Msgf("batch complete (%.0f%%)", p.PercentComplete())
	})

	log.Info().
		Str("run_id", m.runID).
		Int("fovs", len(m.cfg.FOVs)).
		Int("codes", m.codes.NumCodes()).
		Int("markers", m.codes.NumMarkers()).
		Int("batch_size", m.cfg.BatchSize).
		Int("workers", proc.Workers()).
		Msg("pixel cluster mapping started")

	task := func(ctx context.Context, fov string) error {
		labels, err := m.mapFOV(ctx, fov)
		if err != nil {
			return fmt.Errorf("fov %s: %w", fov, err)
		}
		mu.Lock()
		sum.FOVs = append(sum.FOVs, fov)
		sum.Rows += int64(len(labels))
		for _, l := range labels {
			sum.ClusterCounts[l]++
		}
		mu.Unlock()
		return nil
	}

	if err := proc.Run(ctx, m.cfg.FOVs, task); err != nil {
		return nil, err
	}

	sum.Elapsed = time.Since(start)
	log.Info().
		Str("run_id", m.runID).
		Int64("pixels", sum.Rows).
		Dur("elapsed", sum.Elapsed).
		Msg("pixel cluster mapping finished")
	return sum, nil
}

// mapFOV performs the read-normalize-assign-rewrite cycle for one FOV and
// returns the assigned labels. Exactly one worker touches a given FOV file.
func (m *Mapper) mapFOV(ctx context.Context, fov string) ([]int32, error) {
	log := logging.FromContext(ctx)
	path := m.tablePath(fov)

	tbl, err := table.Read(path)
	if err != nil {
		return nil, err
	}

	cols, err := m.normalize(tbl)
	if err != nil {
		return nil, err
	}

	labels, err := m.codes.Assign(ctx, cols)
	if err != nil {
		return nil, err
	}

	if err := tbl.SetInt32s(m.cfg.LabelColumn, labels); err != nil {
		return nil, err
	}
	if err := tbl.WriteAtomic(path, m.runID); err != nil {
		return nil, err
	}

	log.Debug().
		Str("run_id", m.runID).
		Str("fov", fov).
		Int("pixels", len(labels)).
		Msg("fov mapped")
	return labels, nil
}

// normalize divides each marker column by its divisor in place and returns
// the normalized columns in code-matrix marker order.
func (m *Mapper) normalize(tbl *table.Table) ([][]float64, error) {
	markers := m.codes.Markers()
	cols := make([][]float64, len(markers))
	for j, marker := range markers {
		vals, err := tbl.Float64s(marker)
		if err != nil {
			return nil, err
		}
		normalized := make([]float64, len(vals))
		for i, v := range vals {
			normalized[i] = v / m.divisors[j]
		}
		if err := tbl.SetFloat64s(marker, normalized); err != nil {
			return nil, err
		}
		cols[j] = normalized
	}
	return cols, nil
}

// Validate checks every FOV table for the required marker columns without
// writing anything. Used by the dry-run command.
func (m *Mapper) Validate(ctx context.Context) error {
	markers := m.codes.Markers()
	for _, fov := range m.cfg.FOVs {
		if err := ctx.Err(); err != nil {
			return err
		}
		tbl, err := table.Read(m.tablePath(fov))
		if err != nil {
			return err
		}
		for _, marker := range markers {
			if _, err := tbl.Float64s(marker); err != nil {
				return fmt.Errorf("fov %s: %w", fov, err)
			}
		}
	}
	return nil
}

func (m *Mapper) tablePath(fov string) string {
	return filepath.Join(m.cfg.DataDir, fov+TableExt)
}
