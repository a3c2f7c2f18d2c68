package knockoff

import (
	"fmt"
	"sort"
)

// Frequency is the fraction of trials in which a SNP was selected for a
// label under one FDR criterion.
type Frequency struct {
	Label    string
	FDRType  FDRType
	SNP      string
	Observed float64
}

// Aggregator counts selections across trials per (label, criterion, locus).
type Aggregator struct {
	loci   []string
	labels []string
	trials map[string]int
	counts map[string]map[FDRType][]int
}

// NewAggregator creates an aggregator for the given locus names; locus i of
// every Decision refers to loci[i].
func NewAggregator(loci []string) *Aggregator {
	return &Aggregator{
		loci:   append([]string(nil), loci...),
		trials: make(map[string]int),
		counts: make(map[string]map[FDRType][]int),
	}
}

// Loci returns the locus names.
func (a *Aggregator) Loci() []string { return a.loci }

// Labels returns the labels seen, in first-seen order.
func (a *Aggregator) Labels() []string { return a.labels }

// Trials returns the number of trials recorded for a label.
func (a *Aggregator) Trials(label string) int { return a.trials[label] }

// Add records one trial's decision.
func (a *Aggregator) Add(d *Decision) error {
	if len(d.W) != len(a.loci) {
		return fmt.Errorf("decision for %s trial %d has %d loci, want %d",
			d.Label, d.Trial, len(d.W), len(a.loci))
	}

	byType, ok := a.counts[d.Label]
	if !ok {
		byType = make(map[FDRType][]int, len(FDRTypes))
		for _, f := range FDRTypes {
			byType[f] = make([]int, len(a.loci))
		}
		a.counts[d.Label] = byType
		a.labels = append(a.labels, d.Label)
	}
	a.trials[d.Label]++

	for f, sel := range d.Selected {
		for _, i := range sel {
			byType[f][i]++
		}
	}
	return nil
}

// Count returns how many trials selected a locus.
func (a *Aggregator) Count(label string, f FDRType, locus int) int {
	byType, ok := a.counts[label]
	if !ok {
		return 0
	}
	return byType[f][locus]
}

// Frequencies returns the observed frequency of every SNP selected at least
// once, grouped by label (first-seen order) and criterion, most frequent first.
func (a *Aggregator) Frequencies() []Frequency {
	var out []Frequency
	for _, label := range a.labels {
		n := float64(a.trials[label])
		for _, f := range FDRTypes {
			start := len(out)
			for i, c := range a.counts[label][f] {
				if c == 0 {
					continue
				}
				out = append(out, Frequency{
					Label:    label,
					FDRType:  f,
					SNP:      a.loci[i],
					Observed: float64(c) / n,
				})
			}
			group := out[start:]
			sort.SliceStable(group, func(i, j int) bool {
				if group[i].Observed != group[j].Observed {
					return group[i].Observed > group[j].Observed
				}
				return group[i].SNP < group[j].SNP
			})
		}
	}
	return out
}

// CoefficientTable holds one trial's fitted coefficients: one row per label,
// columns interleaving each locus with its knockoff.
type CoefficientTable struct {
	Trial   int
	Columns []string
	Labels  []string
	Values  [][]float64
}

// AddTable filters every label row of a coefficient table at target FDR q.
func (a *Aggregator) AddTable(t *CoefficientTable, q float64) error {
	for k, label := range t.Labels {
		d, err := Filter(t.Values[k], q)
		if err != nil {
			return fmt.Errorf("trial %d label %s: %w", t.Trial, label, err)
		}
		d.Label = label
		d.Trial = t.Trial
		if err := a.Add(d); err != nil {
			return err
		}
	}
	return nil
}
