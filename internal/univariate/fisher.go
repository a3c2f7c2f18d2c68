// Package univariate computes uncorrected per-(SNP, label) association
// statistics as a baseline for the knockoff selections.
package univariate

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Table is a 2x2 contingency table indexed [carrier][label]:
//
//	           label=0  label=1
//	non-carrier   A        B
//	carrier       C        D
type Table struct {
	A, B, C, D int
}

// OddsRatio returns (A·D)/(B·C), or +Inf when B·C is zero.
func (t Table) OddsRatio() float64 {
	if t.B == 0 || t.C == 0 {
		return math.Inf(1)
	}
	return float64(t.A) * float64(t.D) / (float64(t.B) * float64(t.C))
}

// relTolerance absorbs rounding when comparing table probabilities.
const relTolerance = 1 + 1e-7

// FisherExact returns the odds ratio and two-sided Fisher exact p-value: the
// total hypergeometric probability of every table with the same margins that
// is no more likely than the observed one. A table with an empty row or
// column has an undefined odds ratio and p = 1.
func FisherExact(t Table) (oddsRatio, p float64) {
	r1, r2 := t.A+t.B, t.C+t.D
	c1, c2 := t.A+t.C, t.B+t.D
	if r1 == 0 || r2 == 0 || c1 == 0 || c2 == 0 {
		return math.NaN(), 1
	}

	n := r1 + r2
	logDenom := combin.LogGeneralizedBinomial(float64(n), float64(c1))
	prob := func(x int) float64 {
		return math.Exp(combin.LogGeneralizedBinomial(float64(r1), float64(x)) +
			combin.LogGeneralizedBinomial(float64(r2), float64(c1-x)) - logDenom)
	}

	observed := prob(t.A) * relTolerance
	for x := max(0, c1-r2); x <= min(r1, c1); x++ {
		if px := prob(x); px <= observed {
			p += px
		}
	}
	return t.OddsRatio(), min(p, 1)
}
