// Package knockoff implements the knockoff filter: paired importance
// statistics, data-dependent FDR thresholds, per-locus selection and the
// aggregation of selections across independent knockoff trials.
package knockoff

import (
	"errors"
	"fmt"
	"math"
)

// ErrOddFeatureCount is returned when a coefficient vector cannot be split
// into (true, knockoff) pairs.
var ErrOddFeatureCount = errors.New("feature count must be even")

// ErrNonFiniteCoefficient is returned when a coefficient is NaN or infinite.
var ErrNonFiniteCoefficient = errors.New("coefficient must be finite")

// FDRType names the false-discovery criterion used to pick a threshold.
type FDRType string

const (
	// MFDR is the modified FDR (no +1 in the numerator).
	MFDR FDRType = "mFDR"
	// CFDR is the conservative (classical) knockoff+ FDR.
	CFDR FDRType = "cFDR"
)

// FDRTypes lists the criteria in reporting order.
var FDRTypes = []FDRType{MFDR, CFDR}

// Statistics returns W_i = |coef[2i]| - |coef[2i+1]| for every locus.
func Statistics(coefs []float64) ([]float64, error) {
	if len(coefs)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d coefficients", ErrOddFeatureCount, len(coefs))
	}
	for j, c := range coefs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: column %d is %v", ErrNonFiniteCoefficient, j, c)
		}
	}
	w := make([]float64, len(coefs)/2)
	for i := range w {
		w[i] = math.Abs(coefs[2*i]) - math.Abs(coefs[2*i+1])
	}
	return w, nil
}

// Thresholds holds the per-criterion thresholds of one (trial, label).
// +Inf means nothing is selected.
type Thresholds struct {
	MFDR float64
	CFDR float64
}

// For returns the threshold for the given criterion.
func (t Thresholds) For(f FDRType) float64 {
	if f == CFDR {
		return t.CFDR
	}
	return t.MFDR
}

// ComputeThresholds runs the knockoff threshold search at target FDR q.
func ComputeThresholds(w []float64, q float64) (Thresholds, error) {
	if !(q > 0 && q <= 1) {
		return Thresholds{}, fmt.Errorf("target FDR %v outside (0,1]", q)
	}
	return Thresholds{
		MFDR: threshold(w, q, 0),
		CFDR: threshold(w, q, 1),
	}, nil
}

// threshold returns the smallest positive W_t with
// (offset + #{W <= -t}) / max(1, #{W >= t}) < q, or +Inf.
// The ratio is not monotone in t, so every candidate is evaluated.
func threshold(w []float64, q, offset float64) float64 {
	tau := math.Inf(1)
	for _, t := range w {
		if !(t > 0) || t >= tau {
			continue
		}
		var neg, pos float64
		for _, v := range w {
			if v <= -t {
				neg++
			}
			if v >= t {
				pos++
			}
		}
		if (offset+neg)/math.Max(1, pos) < q {
			tau = t
		}
	}
	return tau
}

// Select returns the loci with W_i >= tau.
func Select(w []float64, tau float64) []int {
	var sel []int
	if math.IsInf(tau, 1) {
		return sel
	}
	for i, v := range w {
		if v >= tau {
			sel = append(sel, i)
		}
	}
	return sel
}

// Decision is the outcome of the knockoff filter for one (label, trial).
type Decision struct {
	Label      string
	Trial      int
	W          []float64
	Thresholds Thresholds
	Selected   map[FDRType][]int
}

// Filter computes statistics, thresholds and selections from 2M coefficients
// with locus i at 2i and its knockoff at 2i+1.
func Filter(coefs []float64, q float64) (*Decision, error) {
	w, err := Statistics(coefs)
	if err != nil {
		return nil, err
	}
	th, err := ComputeThresholds(w, q)
	if err != nil {
		return nil, err
	}
	return &Decision{
		W:          w,
		Thresholds: th,
		Selected: map[FDRType][]int{
			MFDR: Select(w, th.MFDR),
			CFDR: Select(w, th.CFDR),
		},
	}, nil
}
