package som

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Assign maps each row of the normalized marker data to the index of its
// nearest code by squared euclidean distance. Ties go to the
// lowest-numbered code. Labels are zero-based.
//
// cols is column-major: cols[j][i] is marker j (in code-matrix order) of
// row i. Rows are scanned in chunks across the available CPUs; chunks only
// write disjoint slices of the result, so no synchronization is needed
// beyond the group wait.
func (c *CodeSet) Assign(ctx context.Context, cols [][]float64) ([]int32, error) {
	if len(cols) != len(c.markers) {
		return nil, fmt.Errorf("assign: got %d marker columns, want %d", len(cols), len(c.markers))
	}
	if len(cols) == 0 {
		return nil, errors.New("assign: no marker columns")
	}

	n := len(cols[0])
	for j := range cols {
		if len(cols[j]) != n {
			return nil, fmt.Errorf("assign: marker column %q has %d rows, want %d",
				c.markers[j], len(cols[j]), n)
		}
	}

	labels := make([]int32, n)
	if n == 0 {
		return labels, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	rowsPerWorker := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, n)
		if start >= end {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.assignRows(cols, labels, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return labels, nil
}

// assignRows labels rows [start, end).
func (c *CodeSet) assignRows(cols [][]float64, labels []int32, start, end int) {
	for i := start; i < end; i++ {
		best := 0
		bestDist := c.rowDist(cols, i, 0)
		for k := 1; k < len(c.codes); k++ {
			if d := c.rowDist(cols, i, k); d < bestDist {
				bestDist = d
				best = k
			}
		}
		labels[i] = int32(best)
	}
}

// rowDist returns the squared euclidean distance between row i and code k.
func (c *CodeSet) rowDist(cols [][]float64, i, k int) float64 {
	var d float64
	code := c.codes[k]
	for j := range code {
		dx := cols[j][i] - code[j]
		d += dx * dx
	}
	return d
}
