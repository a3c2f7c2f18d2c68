package univariate

import (
	"fmt"
	"sort"

	"github.com/inodb/snpko/internal/genotype"
)

// Ratio is an empirical carrier ratio such as 7/12.
type Ratio struct {
	Carriers, Total int
}

func (r Ratio) String() string { return fmt.Sprintf("%d/%d", r.Carriers, r.Total) }

// Result holds the uncorrected statistics of one (SNP, label) pair.
type Result struct {
	SNP        string
	Label      string
	Table      Table
	PValue     float64
	OddsRatio  float64
	Bonferroni float64 // PValue times the number of tests, capped at 1
	// WithLabel is the carrier fraction among subjects with the label;
	// WithoutLabel among those without.
	WithLabel    Ratio
	WithoutLabel Ratio
}

// Analyze runs a Fisher exact test for every (SNP, label) pair. Dosages are
// collapsed to carrier (1 or 2) versus non-carrier (0). Results are ordered
// by label, then by SNP column order.
func Analyze(c *genotype.Cohort) ([]Result, error) {
	if c.Labels == nil {
		return nil, fmt.Errorf("cohort has no labels")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("analyze cohort: %w", err)
	}

	snps := c.Dosages.Columns()
	labels := c.LabelNames()
	tests := float64(len(snps) * len(labels))

	var out []Result
	for _, label := range labels {
		y, _ := c.Label(label)
		for j, snp := range snps {
			t := contingency(c.Dosages.Col(j), y)
			or, p := FisherExact(t)
			out = append(out, Result{
				SNP:          snp,
				Label:        label,
				Table:        t,
				PValue:       p,
				OddsRatio:    or,
				Bonferroni:   min(p*tests, 1),
				WithLabel:    Ratio{Carriers: t.D, Total: t.B + t.D},
				WithoutLabel: Ratio{Carriers: t.C, Total: t.A + t.C},
			})
		}
	}
	return out, nil
}

func contingency(dosage, label []float64) Table {
	var t Table
	for i, d := range dosage {
		carrier := d > 0
		switch {
		case !carrier && label[i] == 0:
			t.A++
		case !carrier:
			t.B++
		case label[i] == 0:
			t.C++
		default:
			t.D++
		}
	}
	return t
}

// Exploratory returns the results with an uncorrected p-value below alpha,
// most significant first.
func Exploratory(results []Result, alpha float64) []Result {
	var out []Result
	for _, r := range results {
		if r.PValue < alpha {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PValue < out[j].PValue })
	return out
}

// Index maps (SNP, label) to its result.
func Index(results []Result) map[[2]string]Result {
	m := make(map[[2]string]Result, len(results))
	for _, r := range results {
		m[[2]string{r.SNP, r.Label}] = r
	}
	return m
}
