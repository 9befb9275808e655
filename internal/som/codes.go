// Package som holds the trained self-organizing map artifacts used by the
// pixel cluster mapper: the reference code matrix, the per-marker
// normalization vector, and the nearest-code assignment routine.
//
// Training happens upstream (outside this repo); everything here treats the
// codes as a fixed, immutable matrix.
package som

import (
	"errors"
	"fmt"

	"github.com/jgu13/ark-analysis/internal/table"
)

// Common errors surfaced during SOM artifact loading and reconciliation.
var (
	ErrNoCodes        = errors.New("code matrix has no rows")
	ErrNoMarkers      = errors.New("code matrix has no marker columns")
	ErrMarkerMismatch = errors.New("marker mismatch between code matrix and normalization vector")
	ErrBadNormValue   = errors.New("normalization value must be positive")
)

// CodeSet is the trained SOM code matrix: one row per code, one float64
// column per marker. Immutable after load.
type CodeSet struct {
	markers []string
	// codes is row-major: codes[k][j] is marker j of code k.
	codes [][]float64
}

// LoadCodes reads a code matrix table. Every column must be float64 and is
// taken as a marker, in table column order.
func LoadCodes(path string) (*CodeSet, error) {
	tbl, err := table.Read(path)
	if err != nil {
		return nil, err
	}
	return CodesFromTable(tbl)
}

// CodesFromTable builds a CodeSet from an in-memory table.
func CodesFromTable(tbl *table.Table) (*CodeSet, error) {
	names := tbl.Names()
	if len(names) == 0 {
		return nil, ErrNoMarkers
	}
	if tbl.NumRows() == 0 {
		return nil, ErrNoCodes
	}

	numCodes := tbl.NumRows()
	codes := make([][]float64, numCodes)
	for k := range codes {
		codes[k] = make([]float64, len(names))
	}
	for j, name := range names {
		vals, err := tbl.Float64s(name)
		if err != nil {
			return nil, fmt.Errorf("code matrix: %w", err)
		}
		for k := range vals {
			codes[k][j] = vals[k]
		}
	}

	return &CodeSet{markers: append([]string(nil), names...), codes: codes}, nil
}

// Markers returns the marker names in code-matrix column order.
func (c *CodeSet) Markers() []string {
	return append([]string(nil), c.markers...)
}

// NumCodes returns the number of reference codes.
func (c *CodeSet) NumCodes() int { return len(c.codes) }

// NumMarkers returns the number of marker columns.
func (c *CodeSet) NumMarkers() int { return len(c.markers) }
