package knockoff

import (
	"fmt"

	"github.com/inodb/snpko/internal/genotype"
)

// KnockoffSuffix is appended to a locus name to name its knockoff column.
const KnockoffSuffix = "_knockoff"

// Interleave builds the 2M-column feature matrix with observed locus i at
// column 2i and its knockoff at 2i+1.
func Interleave(observed, knockoffs *genotype.Matrix) (*genotype.Matrix, error) {
	or, oc := observed.Dims()
	kr, kc := knockoffs.Dims()
	if or != kr || oc != kc {
		return nil, fmt.Errorf("knockoff matrix is %dx%d, observed is %dx%d", kr, kc, or, oc)
	}

	columns := make([]string, 0, 2*oc)
	for _, name := range observed.Columns() {
		columns = append(columns, name, name+KnockoffSuffix)
	}

	out := genotype.NewMatrix(observed.Subjects(), columns)
	for j := 0; j < oc; j++ {
		out.SetCol(2*j, observed.Col(j))
		out.SetCol(2*j+1, knockoffs.Col(j))
	}
	return out, nil
}

// PairNames returns the locus names of an interleaved column list.
func PairNames(columns []string) ([]string, error) {
	if len(columns)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d columns", ErrOddFeatureCount, len(columns))
	}
	names := make([]string, len(columns)/2)
	for i := range names {
		names[i] = columns[2*i]
	}
	return names, nil
}
