// Package table wraps Arrow IPC (Feather v2) files in a small in-memory
// column-oriented table.
//
// The pixel pipeline stores one table per field of view, a one-row
// normalization table, and the SOM code matrix in this format. The wrapper
// fully materializes columns as Go slices so callers can transform data
// without tracking Arrow buffer lifetimes; supported column types are
// float64, int64, int32, and string.
package table

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Common table errors.
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrColumnType     = errors.New("unexpected column type")
	ErrLengthMismatch = errors.New("column length mismatch")
)

// Column is a single named column. Data is one of []float64, []int64,
// []int32, or []string.
type Column struct {
	Name string
	Data any
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch d := c.Data.(type) {
	case []float64:
		return len(d)
	case []int64:
		return len(d)
	case []int32:
		return len(d)
	case []string:
		return len(d)
	default:
		return 0
	}
}

// Table is an ordered set of equal-length columns.
type Table struct {
	cols []Column
}

// New builds a table from cols, validating that all columns share one
// length and that names are unique.
func New(cols []Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	rows := -1
	for i := range cols {
		if _, dup := seen[cols[i].Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", cols[i].Name)
		}
		seen[cols[i].Name] = struct{}{}
		if rows == -1 {
			rows = cols[i].Len()
		} else if cols[i].Len() != rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
				ErrLengthMismatch, cols[i].Name, cols[i].Len(), rows)
		}
	}
	return &Table{cols: cols}, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i := range t.cols {
		names[i] = t.cols[i].Name
	}
	return names
}

// HasColumn reports whether name exists in the table.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.lookup(name)
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.lookup(name)
	if !ok {
		return nil, false
	}
	return &t.cols[i], true
}

func (t *Table) lookup(name string) (int, bool) {
	for i := range t.cols {
		if t.cols[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Float64s returns the named column's values as float64.
func (t *Table) Float64s(name string) ([]float64, error) {
	i, ok := t.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	vals, ok := t.cols[i].Data.([]float64)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not float64", ErrColumnType, name)
	}
	return vals, nil
}

// Int32s returns the named column's values as int32.
func (t *Table) Int32s(name string) ([]int32, error) {
	i, ok := t.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	vals, ok := t.cols[i].Data.([]int32)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not int32", ErrColumnType, name)
	}
	return vals, nil
}

// SetFloat64s replaces the values of an existing float64 column.
func (t *Table) SetFloat64s(name string, vals []float64) error {
	i, ok := t.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if _, isF64 := t.cols[i].Data.([]float64); !isF64 {
		return fmt.Errorf("%w: %q is not float64", ErrColumnType, name)
	}
	if len(vals) != t.NumRows() {
		return fmt.Errorf("%w: %d values for %d rows", ErrLengthMismatch, len(vals), t.NumRows())
	}
	t.cols[i].Data = vals
	return nil
}

// SetInt32s replaces the named int32 column, or appends it as the last
// column when absent. Replacement keeps the column set stable across
// repeated mapping runs.
func (t *Table) SetInt32s(name string, vals []int32) error {
	if len(t.cols) > 0 && len(vals) != t.NumRows() {
		return fmt.Errorf("%w: %d values for %d rows", ErrLengthMismatch, len(vals), t.NumRows())
	}
	if i, ok := t.lookup(name); ok {
		if _, isI32 := t.cols[i].Data.([]int32); !isI32 {
			return fmt.Errorf("%w: %q is not int32", ErrColumnType, name)
		}
		t.cols[i].Data = vals
		return nil
	}
	t.cols = append(t.cols, Column{Name: name, Data: vals})
	return nil
}

// Read loads an Arrow IPC file into memory.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table %s: %w", path, err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", path, err)
	}
	defer r.Close()

	schema := r.Schema()
	cols := make([]Column, len(schema.Fields()))
	for i, field := range schema.Fields() {
		cols[i].Name = field.Name
		switch field.Type.ID() {
		case arrow.FLOAT64:
			cols[i].Data = []float64{}
		case arrow.INT64:
			cols[i].Data = []int64{}
		case arrow.INT32:
			cols[i].Data = []int32{}
		case arrow.STRING:
			cols[i].Data = []string{}
		default:
			return nil, fmt.Errorf("%w: column %q has type %s",
				ErrColumnType, field.Name, field.Type)
		}
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record batch from %s: %w", path, err)
		}
		for i := range cols {
			if appendErr := appendArray(&cols[i], rec.Column(i)); appendErr != nil {
				return nil, fmt.Errorf("table %s: %w", path, appendErr)
			}
		}
	}

	return New(cols)
}

// appendArray copies one record batch's column into the accumulating Go
// slice. Arrow buffers are owned by the reader, so values are copied out.
func appendArray(col *Column, arr arrow.Array) error {
	switch a := arr.(type) {
	case *array.Float64:
		col.Data = append(col.Data.([]float64), a.Float64Values()...)
	case *array.Int64:
		col.Data = append(col.Data.([]int64), a.Int64Values()...)
	case *array.Int32:
		col.Data = append(col.Data.([]int32), a.Int32Values()...)
	case *array.String:
		vals := col.Data.([]string)
		for i := 0; i < a.Len(); i++ {
			vals = append(vals, a.Value(i))
		}
		col.Data = vals
	default:
		return fmt.Errorf("%w: column %q has array type %T", ErrColumnType, col.Name, arr)
	}
	return nil
}

// Write serializes the table as a single Arrow IPC record batch.
func (t *Table) Write(w io.Writer) error {
	mem := memory.DefaultAllocator

	fields := make([]arrow.Field, len(t.cols))
	for i := range t.cols {
		var dt arrow.DataType
		switch t.cols[i].Data.(type) {
		case []float64:
			dt = arrow.PrimitiveTypes.Float64
		case []int64:
			dt = arrow.PrimitiveTypes.Int64
		case []int32:
			dt = arrow.PrimitiveTypes.Int32
		case []string:
			dt = arrow.BinaryTypes.String
		default:
			return fmt.Errorf("%w: column %q has Go type %T",
				ErrColumnType, t.cols[i].Name, t.cols[i].Data)
		}
		fields[i] = arrow.Field{Name: t.cols[i].Name, Type: dt}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i := range t.cols {
		switch d := t.cols[i].Data.(type) {
		case []float64:
			b.Field(i).(*array.Float64Builder).AppendValues(d, nil)
		case []int64:
			b.Field(i).(*array.Int64Builder).AppendValues(d, nil)
		case []int32:
			b.Field(i).(*array.Int32Builder).AppendValues(d, nil)
		case []string:
			b.Field(i).(*array.StringBuilder).AppendValues(d, nil)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating table writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("writing record batch: %w", err)
	}
	return fw.Close()
}

// WriteFile writes the table to path directly. Prefer WriteAtomic for
// rewriting files in place.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", path, err)
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteAtomic writes the table to a staging file next to path and renames
// it over the original only after a successful write and fsync. A failure
// at any point leaves the original file untouched.
func (t *Table) WriteAtomic(path, tag string) error {
	staging := filepath.Join(filepath.Dir(path),
		fmt.Sprintf("%s.%s.staging", filepath.Base(path), tag))

	f, err := os.Create(staging)
	if err != nil {
		return fmt.Errorf("creating staging file %s: %w", staging, err)
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(staging)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(staging)
		return fmt.Errorf("syncing staging file %s: %w", staging, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("closing staging file %s: %w", staging, err)
	}
	if err := os.Rename(staging, path); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
