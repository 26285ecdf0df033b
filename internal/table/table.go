// Package table provides a small column-ordered table of float64 samples,
// shared by priors, datasets and inference results.
package table

import (
	"github.com/pkg/errors"
)

var ErrColumnNotFound = errors.New("column not found")

// Table is a dense matrix of rows with named, ordered columns.
type Table struct {
	Columns []string
	Rows    [][]float64
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}

	return -1
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row []float64) error {
	if len(row) != len(t.Columns) {
		return errors.Errorf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)

	return nil
}

// AppendMap adds a row given as a column name -> value mapping. Every column
// of the table must be present.
func (t *Table) AppendMap(values map[string]float64) error {
	row := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		v, ok := values[c]
		if !ok {
			return errors.Wrap(ErrColumnNotFound, c)
		}
		row[i] = v
	}
	t.Rows = append(t.Rows, row)

	return nil
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil, errors.Wrap(ErrColumnNotFound, name)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}

	return out, nil
}

// Row returns the i-th row as a column name -> value mapping.
func (t *Table) Row(i int) map[string]float64 {
	out := make(map[string]float64, len(t.Columns))
	for j, c := range t.Columns {
		out[c] = t.Rows[i][j]
	}

	return out
}

// Slice returns a new table sharing the rows in [from, to).
func (t *Table) Slice(from, to int) *Table {
	return &Table{Columns: t.Columns, Rows: t.Rows[from:to]}
}

// WithColumn returns a new table with an extra column appended. values must
// have one entry per row.
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, errors.Errorf("column %s has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	out := &Table{
		Columns: append(append([]string{}, t.Columns...), name),
		Rows:    make([][]float64, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append(append([]float64{}, row...), values[i])
	}

	return out, nil
}

// Concat stacks tables with identical columns.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New("no tables to concat")
	}
	out := &Table{Columns: tables[0].Columns}
	for _, tbl := range tables {
		if len(tbl.Columns) != len(out.Columns) {
			return nil, errors.New("tables have different columns")
		}
		for i, c := range tbl.Columns {
			if c != out.Columns[i] {
				return nil, errors.New("tables have different columns")
			}
		}
		out.Rows = append(out.Rows, tbl.Rows...)
	}

	return out, nil
}
