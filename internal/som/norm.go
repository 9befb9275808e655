package som

import (
	"fmt"

	"github.com/jgu13/ark-analysis/internal/table"
)

// NormVector maps marker name to its fixed positive divisor, precomputed
// upstream during SOM training.
type NormVector map[string]float64

// LoadNorm reads a normalization table: one float64 column per marker,
// exactly one row of divisors.
func LoadNorm(path string) (NormVector, error) {
	tbl, err := table.Read(path)
	if err != nil {
		return nil, err
	}
	return NormFromTable(tbl)
}

// NormFromTable builds a NormVector from an in-memory one-row table.
func NormFromTable(tbl *table.Table) (NormVector, error) {
	if tbl.NumRows() != 1 {
		return nil, fmt.Errorf("normalization table must have exactly 1 row, got %d", tbl.NumRows())
	}
	v := make(NormVector, tbl.NumCols())
	for _, name := range tbl.Names() {
		vals, err := tbl.Float64s(name)
		if err != nil {
			return nil, fmt.Errorf("normalization table: %w", err)
		}
		v[name] = vals[0]
	}
	return v, nil
}

// Reconcile orders the vector's divisors to match the code set's marker
// order. The marker sets must match exactly by name, and every divisor must
// be positive; either failure is fatal before any batch starts.
func (v NormVector) Reconcile(codes *CodeSet) ([]float64, error) {
	markers := codes.markers
	if len(v) != len(markers) {
		return nil, fmt.Errorf("%w: %d normalization values for %d markers",
			ErrMarkerMismatch, len(v), len(markers))
	}

	divisors := make([]float64, len(markers))
	for j, name := range markers {
		val, ok := v[name]
		if !ok {
			return nil, fmt.Errorf("%w: no normalization value for marker %q",
				ErrMarkerMismatch, name)
		}
		if val <= 0 {
			return nil, fmt.Errorf("%w: marker %q has value %v", ErrBadNormValue, name, val)
		}
		divisors[j] = val
	}
	return divisors, nil
}
