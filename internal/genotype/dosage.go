package genotype

import (
	"errors"
	"fmt"
	"strings"
)

// Missing is the dosage sentinel for an absent genotype call.
const Missing = -1

// DefaultOnMissing imputes missing calls as double non-wild-type.
const DefaultOnMissing = 2

// ErrMissingGenotype is returned when a missing call is found and imputation is disabled.
var ErrMissingGenotype = errors.New("missing genotype")

// Dosage returns the number of non-wild-type alleles (0, 1 or 2) in a diploid
// genotype such as "G|T", "G/T" or "GT". Empty and NA calls return Missing.
func Dosage(genotype string, s SNP) (int, error) {
	g := strings.ToUpper(strings.TrimSpace(genotype))
	switch g {
	case "", ".", "NA", "NAN", "N/A":
		return Missing, nil
	}

	var a, b byte
	switch {
	case len(g) == 2:
		a, b = g[0], g[1]
	case len(g) == 3 && (g[1] == '|' || g[1] == '/'):
		a, b = g[0], g[2]
	default:
		return 0, fmt.Errorf("%s: malformed genotype %q", s.ID, genotype)
	}

	n := 0
	if !s.IsWildType(a) {
		n++
	}
	if !s.IsWildType(b) {
		n++
	}
	return n, nil
}

// DosageColumn converts a column of genotype calls for one SNP. Missing calls
// are replaced by onMissing; pass Missing to make them fatal.
func DosageColumn(calls []string, s SNP, onMissing int) ([]float64, error) {
	out := make([]float64, len(calls))
	for i, call := range calls {
		d, err := Dosage(call, s)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if d == Missing {
			if onMissing == Missing {
				return nil, fmt.Errorf("%s row %d: %w", s.ID, i, ErrMissingGenotype)
			}
			d = onMissing
		}
		out[i] = float64(d)
	}
	return out, nil
}
