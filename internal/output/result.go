package output

import (
	"errors"
	"math"
	"sort"

	"github.com/inodb/snpko/internal/knockoff"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/univariate"
)

// Result joins an observed selection frequency with its empirical p-value
// and the uncorrected statistics of the same (SNP, label). Unavailable
// statistics are NaN.
type Result struct {
	knockoff.Frequency
	PValue               float64
	UncorrectedP         float64
	UncorrectedOddsRatio float64
	FDR                  float64
	Significant          bool // Observed exceeds the obs_freq threshold
}

// BuildResults assembles one Result per frequency. null and uncorrected may
// be nil. A frequency whose (label, fdr_type) has no null samples keeps a NaN
// p-value.
func BuildResults(freqs []knockoff.Frequency, fdr, obsFreq float64, null *nulldist.Distribution, uncorrected map[[2]string]univariate.Result) ([]Result, error) {
	out := make([]Result, 0, len(freqs))
	for _, f := range freqs {
		r := Result{
			Frequency:            f,
			PValue:               math.NaN(),
			UncorrectedP:         math.NaN(),
			UncorrectedOddsRatio: math.NaN(),
			FDR:                  fdr,
			Significant:          f.Observed > obsFreq,
		}
		if null != nil {
			p, err := null.PValue(nulldist.Key{Label: f.Label, FDRType: f.FDRType}, f.Observed)
			switch {
			case errors.Is(err, nulldist.ErrNoNullSamples):
			case err != nil:
				return nil, err
			default:
				r.PValue = p
			}
		}
		if u, ok := uncorrected[[2]string{f.SNP, f.Label}]; ok {
			r.UncorrectedP = u.PValue
			r.UncorrectedOddsRatio = u.OddsRatio
		}
		out = append(out, r)
	}
	return out, nil
}

// Significant returns the results flagged significant.
func Significant(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Significant {
			out = append(out, r)
		}
	}
	return out
}

// MaxPerGroup returns the most frequently selected SNP of every
// (fdr_type, label), most frequent first.
func MaxPerGroup(results []Result) []Result {
	type group struct {
		f     knockoff.FDRType
		label string
	}
	best := make(map[group]int)
	var order []group
	for i, r := range results {
		g := group{r.FDRType, r.Label}
		j, ok := best[g]
		if !ok {
			order = append(order, g)
		}
		if !ok || r.Observed > results[j].Observed {
			best[g] = i
		}
	}

	out := make([]Result, 0, len(order))
	for _, g := range order {
		out = append(out, results[best[g]])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Observed > out[j].Observed })
	return out
}

// Expected is the summed selection frequency of a SNP over all labels, an
// estimate of how often it appears in any label's selections.
type Expected struct {
	SNP      string
	FDRType  knockoff.FDRType
	Expected float64
}

// ExpectedAppearance sums frequencies per (SNP, fdr_type), largest first.
func ExpectedAppearance(freqs []knockoff.Frequency) []Expected {
	type key struct {
		snp string
		f   knockoff.FDRType
	}
	sums := make(map[key]int)
	var out []Expected
	for _, f := range freqs {
		k := key{f.SNP, f.FDRType}
		i, ok := sums[k]
		if !ok {
			i = len(out)
			sums[k] = i
			out = append(out, Expected{SNP: f.SNP, FDRType: f.FDRType})
		}
		out[i].Expected += f.Observed
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Expected > out[j].Expected })
	return out
}
