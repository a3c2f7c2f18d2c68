package genotype

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a subjects-by-columns table of real values with named rows and
// columns. Dosage matrices hold values in {0,1,2}; label matrices hold {0,1}.
type Matrix struct {
	subjects []string
	columns  []string
	index    map[string]int
	data     *mat.Dense // nil when either dimension is zero
}

// NewMatrix creates a zero-filled matrix.
func NewMatrix(subjects, columns []string) *Matrix {
	m := &Matrix{
		subjects: append([]string(nil), subjects...),
		columns:  append([]string(nil), columns...),
		index:    make(map[string]int, len(columns)),
	}
	for j, c := range m.columns {
		m.index[c] = j
	}
	if len(subjects) > 0 && len(columns) > 0 {
		m.data = mat.NewDense(len(subjects), len(columns), nil)
	}
	return m
}

// NewMatrixFrom creates a matrix from row-major values.
func NewMatrixFrom(subjects, columns []string, values []float64) (*Matrix, error) {
	if len(values) != len(subjects)*len(columns) {
		return nil, fmt.Errorf("matrix shape %dx%d does not match %d values",
			len(subjects), len(columns), len(values))
	}
	m := NewMatrix(subjects, columns)
	if m.data != nil {
		copy(m.data.RawMatrix().Data, values)
	}
	return m, nil
}

// Dims returns the number of subjects and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return len(m.subjects), len(m.columns)
}

// Subjects returns the row names.
func (m *Matrix) Subjects() []string { return m.subjects }

// Columns returns the column names.
func (m *Matrix) Columns() []string { return m.columns }

// ColumnIndex returns the index of a named column.
func (m *Matrix) ColumnIndex(name string) (int, bool) {
	j, ok := m.index[name]
	return j, ok
}

// HasColumn reports whether the matrix has a column with the given name.
func (m *Matrix) HasColumn(name string) bool {
	_, ok := m.index[name]
	return ok
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data.At(i, j) }

// Set sets the value at row i, column j.
func (m *Matrix) Set(i, j int, v float64) { m.data.Set(i, j, v) }

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	if m.data == nil {
		return make([]float64, len(m.subjects))
	}
	return mat.Col(nil, j, m.data)
}

// Column returns a copy of the named column.
func (m *Matrix) Column(name string) ([]float64, bool) {
	j, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.Col(j), true
}

// SetCol overwrites column j.
func (m *Matrix) SetCol(j int, values []float64) {
	if m.data == nil {
		return
	}
	m.data.SetCol(j, values)
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	if m.data == nil {
		return make([]float64, len(m.columns))
	}
	return mat.Row(nil, i, m.data)
}

// SetRow overwrites row i.
func (m *Matrix) SetRow(i int, values []float64) {
	if m.data == nil {
		return
	}
	m.data.SetRow(i, values)
}

// Values returns a row-major copy of all values.
func (m *Matrix) Values() []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, m.Row(i)...)
	}
	return out
}

// Dense returns the backing matrix, or nil for an empty matrix.
func (m *Matrix) Dense() *mat.Dense { return m.data }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.subjects, m.columns)
	if m.data != nil {
		c.data.Copy(m.data)
	}
	return c
}

// Select returns a new matrix restricted to the named columns, in the given order.
func (m *Matrix) Select(columns []string) (*Matrix, error) {
	out := NewMatrix(m.subjects, columns)
	for k, name := range columns {
		j, ok := m.index[name]
		if !ok {
			return nil, fmt.Errorf("select: column %q not found", name)
		}
		out.SetCol(k, m.Col(j))
	}
	return out, nil
}

// SelectRows returns a new matrix restricted to the given row indices.
func (m *Matrix) SelectRows(rows []int) *Matrix {
	subjects := make([]string, len(rows))
	for k, i := range rows {
		subjects[k] = m.subjects[i]
	}
	out := NewMatrix(subjects, m.columns)
	for k, i := range rows {
		out.SetRow(k, m.Row(i))
	}
	return out
}
