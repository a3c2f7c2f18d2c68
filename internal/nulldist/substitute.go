package nulldist

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/inodb/snpko/internal/genotype"
)

// ErrReferenceTooSmall is returned when the reference pool has fewer subjects
// than the experimental cohort it must replace.
var ErrReferenceTooSmall = errors.New("reference pool smaller than experimental cohort")

// Substitute builds one null cohort: the dosages of len(experimental) reference
// subjects, drawn without replacement, replace the experimental dosages row
// for row while the labels stay with the original subjects. The returned
// background is the reference without the drawn subjects.
func Substitute(experimental *genotype.Cohort, reference *genotype.Matrix, rng *rand.Rand) (*genotype.Cohort, *genotype.Matrix, error) {
	n, _ := experimental.Dosages.Dims()
	m, _ := reference.Dims()
	if m < n {
		return nil, nil, fmt.Errorf("%w: %d reference subjects for %d experimental subjects", ErrReferenceTooSmall, m, n)
	}

	columns := experimental.Dosages.Columns()
	source, err := reference.Select(columns)
	if err != nil {
		return nil, nil, fmt.Errorf("substitute dosages: %w", err)
	}

	perm := rng.Perm(m)
	drawn, rest := perm[:n], perm[n:]

	dosages := genotype.NewMatrix(experimental.Dosages.Subjects(), columns)
	for i, j := range drawn {
		dosages.SetRow(i, source.Row(j))
	}

	var labels *genotype.Matrix
	if experimental.Labels != nil {
		labels = experimental.Labels.Clone()
	}

	rest = append([]int(nil), rest...)
	sort.Ints(rest)
	return &genotype.Cohort{Dosages: dosages, Labels: labels}, reference.SelectRows(rest), nil
}
