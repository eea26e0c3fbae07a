package table

import (
	"fmt"

	"studyqc/domain/core"
)

// Dataset is the canonical tabular object the rule engine operates on: an
// ordered header of unique column names plus rows of cells aligned to the
// header by position. Header and rows always move together; every mutating
// method keeps len(row) == len(Columns) for all rows or fails.
type Dataset struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// NewDataset builds a dataset and validates its shape
func NewDataset(columns []string, rows [][]Value) (*Dataset, error) {
	ds := &Dataset{Columns: columns, Rows: rows}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate ensures the dataset is internally consistent
func (ds *Dataset) Validate() error {
	seen := make(map[string]bool, len(ds.Columns))
	for _, name := range ds.Columns {
		if seen[name] {
			return fmt.Errorf("%w: %q", core.ErrDuplicateColumn, name)
		}
		seen[name] = true
	}
	for i, row := range ds.Rows {
		if len(row) != len(ds.Columns) {
			return core.NewStructuralMismatchError(i, len(row), len(ds.Columns))
		}
	}
	return nil
}

// RowCount returns the number of rows
func (ds *Dataset) RowCount() int {
	return len(ds.Rows)
}

// ColumnCount returns the number of columns
func (ds *Dataset) ColumnCount() int {
	return len(ds.Columns)
}

// ColumnIndex returns the position of a column by name
func (ds *Dataset) ColumnIndex(name string) (int, bool) {
	for i, col := range ds.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether a column exists
func (ds *Dataset) HasColumn(name string) bool {
	_, ok := ds.ColumnIndex(name)
	return ok
}

// Value returns the cell at (row, col)
func (ds *Dataset) Value(row, col int) Value {
	return ds.Rows[row][col]
}

// SetValue overwrites the cell at (row, col)
func (ds *Dataset) SetValue(row, col int, v Value) {
	ds.Rows[row][col] = v
}

// ColumnValues returns a copy of one column's cells in row order
func (ds *Dataset) ColumnValues(name string) ([]Value, bool) {
	idx, ok := ds.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	values := make([]Value, len(ds.Rows))
	for i, row := range ds.Rows {
		values[i] = row[idx]
	}
	return values, true
}

// AddColumn appends a new column filled with the given value to the header
// and to every row, returning the new column's index.
func (ds *Dataset) AddColumn(name string, fill Value) (int, error) {
	if ds.HasColumn(name) {
		return -1, fmt.Errorf("%w: %q", core.ErrDuplicateColumn, name)
	}
	ds.Columns = append(ds.Columns, name)
	for i := range ds.Rows {
		ds.Rows[i] = append(ds.Rows[i], fill)
	}
	return len(ds.Columns) - 1, nil
}

// DropColumns removes the named columns from the header and every row,
// preserving the relative order of the remaining columns. Unknown names are
// ignored.
func (ds *Dataset) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	keep := make([]int, 0, len(ds.Columns))
	for i, col := range ds.Columns {
		if !drop[col] {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(ds.Columns) {
		return
	}
	ds.applyColumnOrder(keep)
}

// ReorderColumns rearranges the header and every row to the given order. The
// order must be a permutation of the current column indices.
func (ds *Dataset) ReorderColumns(order []int) error {
	if len(order) != len(ds.Columns) {
		return fmt.Errorf("column order has %d entries, dataset has %d columns",
			len(order), len(ds.Columns))
	}
	seen := make([]bool, len(ds.Columns))
	for _, idx := range order {
		if idx < 0 || idx >= len(ds.Columns) || seen[idx] {
			return fmt.Errorf("column order is not a permutation: index %d", idx)
		}
		seen[idx] = true
	}
	ds.applyColumnOrder(order)
	return nil
}

// applyColumnOrder rebuilds header and rows to contain the columns at the
// given source indices, in the given sequence. Header and rows change
// together so the shape invariant holds throughout.
func (ds *Dataset) applyColumnOrder(order []int) {
	columns := make([]string, len(order))
	for i, src := range order {
		columns[i] = ds.Columns[src]
	}
	for r, row := range ds.Rows {
		next := make([]Value, len(order))
		for i, src := range order {
			next[i] = row[src]
		}
		ds.Rows[r] = next
	}
	ds.Columns = columns
}

// RenameColumn changes a column's name in place
func (ds *Dataset) RenameColumn(from, to string) error {
	if from == to {
		return nil
	}
	if ds.HasColumn(to) {
		return fmt.Errorf("%w: %q", core.ErrDuplicateColumn, to)
	}
	idx, ok := ds.ColumnIndex(from)
	if !ok {
		return core.NewColumnMissingError(from)
	}
	ds.Columns[idx] = to
	return nil
}

// FilterRows returns a new dataset containing only the rows the keep
// function accepts. The header is shared structure; rows are the same row
// slices, not copies.
func (ds *Dataset) FilterRows(keep func(row []Value) bool) *Dataset {
	filtered := &Dataset{Columns: ds.Columns}
	for _, row := range ds.Rows {
		if keep(row) {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered
}

// Clone returns a deep copy of the dataset
func (ds *Dataset) Clone() *Dataset {
	columns := make([]string, len(ds.Columns))
	copy(columns, ds.Columns)
	rows := make([][]Value, len(ds.Rows))
	for i, row := range ds.Rows {
		rows[i] = make([]Value, len(row))
		copy(rows[i], row)
	}
	return &Dataset{Columns: columns, Rows: rows}
}

// RowBindings returns one row as a column-name-to-value map, for expression
// evaluation against the full row.
func (ds *Dataset) RowBindings(row int) map[string]Value {
	bindings := make(map[string]Value, len(ds.Columns))
	for i, col := range ds.Columns {
		bindings[col] = ds.Rows[row][i]
	}
	return bindings
}

// CellStrings renders every cell through its canonical text form, for
// fingerprinting and plain-text export.
func (ds *Dataset) CellStrings() [][]string {
	out := make([][]string, len(ds.Rows))
	for i, row := range ds.Rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = cell.String()
		}
	}
	return out
}

// Fingerprint hashes the header and all cells, in order
func (ds *Dataset) Fingerprint() core.DatasetHash {
	return core.ComputeDatasetHash(ds.Columns, ds.CellStrings())
}
