// Package nulldist builds the permutation null distribution of selection
// frequencies and turns observed frequencies into empirical p-values.
package nulldist

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/inodb/snpko/internal/knockoff"
)

// ErrNoNullSamples is returned when no permutation trial produced usable output.
var ErrNoNullSamples = errors.New("no null-distribution samples")

// Key identifies one null distribution.
type Key struct {
	Label   string
	FDRType knockoff.FDRType
}

func (k Key) String() string { return k.Label + "/" + string(k.FDRType) }

// Sample is the largest selection frequency of one permutation trial.
type Sample struct {
	Key
	Trial       int
	MaxObserved float64
}

// Summary describes the per-trial maxima of one null distribution.
type Summary struct {
	Key
	Trials int
	Mean   float64
	Median float64
	StdDev float64
	Max    float64
}

// Distribution accumulates, per (label, criterion), the maximum selection
// frequency of every permutation trial and a pool of all per-SNP frequencies
// (zero for SNPs a trial never selected).
type Distribution struct {
	labels  []string
	snps    []string
	index   map[string]int
	trials  []int
	samples []Sample
	maxima  map[Key][]float64
	pools   map[Key][]float64
	sorted  bool
}

// NewDistribution creates an empty distribution over the given labels and
// candidate SNPs.
func NewDistribution(labels, snps []string) *Distribution {
	d := &Distribution{
		labels: append([]string(nil), labels...),
		snps:   append([]string(nil), snps...),
		index:  make(map[string]int, len(snps)),
		maxima: make(map[Key][]float64),
		pools:  make(map[Key][]float64),
	}
	for i, s := range d.snps {
		d.index[s] = i
	}
	return d
}

// Add records the selection frequencies of one permutation trial.
func (d *Distribution) Add(trial int, freqs []knockoff.Frequency) {
	values := make(map[Key][]float64, len(d.labels)*len(knockoff.FDRTypes))
	maxObs := make(map[Key]float64, len(values))
	for _, l := range d.labels {
		for _, f := range knockoff.FDRTypes {
			values[Key{l, f}] = make([]float64, len(d.snps))
		}
	}

	for _, fr := range freqs {
		k := Key{fr.Label, fr.FDRType}
		v, ok := values[k]
		if !ok {
			continue
		}
		if fr.Observed > maxObs[k] {
			maxObs[k] = fr.Observed
		}
		if i, ok := d.index[fr.SNP]; ok {
			v[i] = fr.Observed
		}
	}

	for _, k := range d.Keys() {
		d.samples = append(d.samples, Sample{Key: k, Trial: trial, MaxObserved: maxObs[k]})
		d.maxima[k] = append(d.maxima[k], maxObs[k])
		d.pools[k] = append(d.pools[k], values[k]...)
	}
	d.trials = append(d.trials, trial)
	d.sorted = false
}

// Keys returns every (label, criterion) pair in label order.
func (d *Distribution) Keys() []Key {
	keys := make([]Key, 0, len(d.labels)*len(knockoff.FDRTypes))
	for _, l := range d.labels {
		for _, f := range knockoff.FDRTypes {
			keys = append(keys, Key{l, f})
		}
	}
	return keys
}

// Trials returns the number of usable permutation trials.
func (d *Distribution) Trials() int { return len(d.trials) }

// TrialIDs returns the usable trial numbers in the order they were added.
func (d *Distribution) TrialIDs() []int { return d.trials }

// Candidates returns the number of distinct candidate SNPs.
func (d *Distribution) Candidates() int { return len(d.snps) }

// Samples returns one sample per trial and key, in the order added.
func (d *Distribution) Samples() []Sample { return d.samples }

// Maxima returns the sorted per-trial maxima for a key.
func (d *Distribution) Maxima(k Key) []float64 {
	d.ensureSorted()
	return append([]float64(nil), d.maxima[k]...)
}

func (d *Distribution) ensureSorted() {
	if d.sorted {
		return
	}
	for _, v := range d.maxima {
		sort.Float64s(v)
	}
	for _, v := range d.pools {
		sort.Float64s(v)
	}
	d.sorted = true
}

// CutoffRank returns the 0-based rank ⌈(1−α)(P+1)⌉−1 of the significance
// cutoff among P ascending samples, clamped to [0, P−1].
func CutoffRank(p int, alpha float64) int {
	r := int(math.Ceil((1-alpha)*float64(p+1))) - 1
	return max(0, min(r, p-1))
}

// Cutoff returns the selection frequency a label must exceed to be
// significant at level alpha.
func (d *Distribution) Cutoff(k Key, alpha float64) (float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, fmt.Errorf("significance level must be in (0,1), got %v", alpha)
	}
	d.ensureSorted()
	samples := d.maxima[k]
	if len(samples) == 0 {
		return 0, fmt.Errorf("%s: %w", k, ErrNoNullSamples)
	}
	return samples[CutoffRank(len(samples), alpha)], nil
}

// PValue returns the empirical p-value of an observed selection frequency:
// with y the fraction of pooled null frequencies strictly below observed and
// k the number of candidate SNPs, p = 1 − y^k.
func (d *Distribution) PValue(k Key, observed float64) (float64, error) {
	d.ensureSorted()
	pool := d.pools[k]
	if len(pool) == 0 {
		return 0, fmt.Errorf("%s: %w", k, ErrNoNullSamples)
	}

	below := sort.SearchFloat64s(pool, observed)
	if below == len(pool) {
		return 0, nil
	}
	y := float64(below) / float64(len(pool))
	return 1 - math.Pow(y, float64(len(d.snps))), nil
}

// Summary returns descriptive statistics of the per-trial maxima for a key.
func (d *Distribution) Summary(k Key) (Summary, error) {
	data := stats.Float64Data(d.Maxima(k))
	if len(data) == 0 {
		return Summary{}, fmt.Errorf("%s: %w", k, ErrNoNullSamples)
	}

	s := Summary{Key: k, Trials: len(data)}
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return Summary{}, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, err
	}
	return s, nil
}
