package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/inodb/snpko/internal/knockoff"
)

// ColLabel names the label column of coefficient and frequency tables.
const ColLabel = "label"

// ReadCoefficients reads one trial's coefficient table: a label column
// followed by 2M coefficient columns interleaving each locus with its
// knockoff, one row per label.
func ReadCoefficients(path string, trial int) (*knockoff.CoefficientTable, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idx, err := r.Require(ColLabel)
	if err != nil {
		return nil, err
	}
	labelCol := idx[0]

	var cols []int
	for i := range r.Header() {
		if i != labelCol {
			cols = append(cols, i)
		}
	}
	if len(cols)%2 != 0 {
		return nil, fmt.Errorf("%s: %w: got %d coefficient columns", path, knockoff.ErrOddFeatureCount, len(cols))
	}

	t := &knockoff.CoefficientTable{Trial: trial, Columns: names(r.Header(), cols)}
	for {
		fields, err := r.Next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		row := make([]float64, len(cols))
		for k, i := range cols {
			row[k], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, r.errorf("column %s: invalid coefficient %q", r.Header()[i], fields[i])
			}
			if math.IsNaN(row[k]) || math.IsInf(row[k], 0) {
				return nil, r.wrapf(knockoff.ErrNonFiniteCoefficient, "column %s: %q", r.Header()[i], fields[i])
			}
		}
		t.Labels = append(t.Labels, fields[labelCol])
		t.Values = append(t.Values, row)
	}
	return t, nil
}

// WriteCoefficients writes a coefficient table in the layout ReadCoefficients reads.
func WriteCoefficients(path string, t *knockoff.CoefficientTable) error {
	w, err := Create(path, append([]string{ColLabel}, t.Columns...))
	if err != nil {
		return err
	}
	for k, label := range t.Labels {
		if err := w.Write(appendValues([]string{label}, t.Values[k])); err != nil {
			w.Close()
			return fmt.Errorf("write coefficients for %s: %w", label, err)
		}
	}
	return w.Close()
}
