// Package loci collapses runs of correlated adjacent SNPs into loci, keeping
// one randomly chosen representative per run.
package loci

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/snpko/internal/genotype"
)

// ErrNaNCorrelation is returned when adjacent SNPs have an undefined
// correlation. Constant columns are dropped before pruning, so this
// indicates inconsistent inputs.
var ErrNaNCorrelation = errors.New("undefined correlation between adjacent SNPs")

// DefaultThreshold is the correlation at or above which adjacent SNPs share a locus.
const DefaultThreshold = 0.5

// CorrelationSource selects the cohort used to estimate adjacent-SNP correlation.
type CorrelationSource string

const (
	Experimental CorrelationSource = "experimental"
	Reference    CorrelationSource = "reference"
)

// ParseCorrelationSource parses a correlation source name.
func ParseCorrelationSource(s string) (CorrelationSource, error) {
	switch src := CorrelationSource(strings.ToLower(strings.TrimSpace(s))); src {
	case Experimental, Reference:
		return src, nil
	case "":
		return Experimental, nil
	}
	return "", fmt.Errorf("unknown correlation source %q (want %s or %s)", s, Experimental, Reference)
}

// Drop reasons.
const (
	ReasonNotInReference    = "absent from reference panel"
	ReasonNotInExperimental = "absent from experimental cohort"
	ReasonConstant          = "constant dosage in experimental cohort"
)

// Dropped records a SNP removed before pruning.
type Dropped struct {
	SNP    string
	Reason string
}

// Locus is a run of correlated adjacent SNPs and its representative.
type Locus struct {
	Representative string
	Members        []string
}

// Result holds the pruned loci and the inputs reduced to their representatives.
type Result struct {
	Loci    []Locus
	Dropped []Dropped
	// SNPs are the facts of the representatives, in locus order.
	SNPs         []genotype.SNP
	Experimental *genotype.Cohort
	Reference    *genotype.Matrix
}

// Representatives returns the representative SNP ids in locus order.
func (r *Result) Representatives() []string {
	out := make([]string, len(r.Loci))
	for i, l := range r.Loci {
		out[i] = l.Representative
	}
	return out
}

// Config controls pruning.
type Config struct {
	Threshold float64
	Seed      int64
	Source    CorrelationSource
}

// Pruner groups correlated adjacent SNPs into loci.
type Pruner struct {
	cfg    Config
	logger *zap.Logger
}

// NewPruner creates a pruner. A zero Threshold uses DefaultThreshold and an
// empty Source uses Experimental.
func NewPruner(cfg Config) *Pruner {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Source == "" {
		cfg.Source = Experimental
	}
	return &Pruner{cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger for diagnostics.
func (p *Pruner) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Prune drops unusable SNPs, walks each chromosome in positional order and
// closes a run whenever the correlation of two neighbours falls below the
// threshold. The representative of each run is drawn from a generator seeded
// with cfg.Seed, so equal inputs always yield equal loci.
func (p *Pruner) Prune(snps []genotype.SNP, experimental *genotype.Cohort, reference *genotype.Matrix) (*Result, error) {
	if p.cfg.Source != Experimental && p.cfg.Source != Reference {
		return nil, fmt.Errorf("unknown correlation source %q", p.cfg.Source)
	}

	kept, dropped := p.filter(snps, experimental.Dosages, reference)
	for _, d := range dropped {
		p.logger.Info("dropping SNP", zap.String("snp", d.SNP), zap.String("reason", d.Reason))
	}

	corrSource := experimental.Dosages
	if p.cfg.Source == Reference {
		corrSource = reference
	}

	rng := rand.New(rand.NewSource(p.cfg.Seed))
	byID := make(map[string]genotype.SNP, len(kept))
	res := &Result{Dropped: dropped}
	merged, mergedSNPs := 0, 0

	for _, chrom := range genotype.GroupByChromosome(kept) {
		if len(chrom.SNPs) == 1 {
			s := chrom.SNPs[0]
			p.logger.Debug("single SNP on chromosome", zap.Int("chromosome", chrom.Number), zap.String("snp", s.ID))
			res.Loci = append(res.Loci, Locus{Representative: s.ID, Members: []string{s.ID}})
			byID[s.ID] = s
			continue
		}

		var run []genotype.SNP
		for i, s := range chrom.SNPs {
			run = append(run, s)

			r := 0.0
			if i+1 < len(chrom.SNPs) {
				var err error
				r, err = correlation(corrSource, s.ID, chrom.SNPs[i+1].ID)
				if err != nil {
					return nil, fmt.Errorf("chromosome %d: %w", chrom.Number, err)
				}
				if r >= p.cfg.Threshold {
					continue
				}
			}

			rep := run[0]
			if len(run) > 1 {
				rep = run[rng.Intn(len(run))]
				merged++
				mergedSNPs += len(run)
			}
			members := make([]string, len(run))
			for k, m := range run {
				members[k] = m.ID
			}
			res.Loci = append(res.Loci, Locus{Representative: rep.ID, Members: members})
			byID[rep.ID] = rep
			run = nil
		}
	}

	p.logger.Info("pruned SNPs into loci",
		zap.Int("snps", len(kept)),
		zap.Int("loci", len(res.Loci)),
		zap.Int("merged_loci", merged),
		zap.Int("merged_snps", mergedSNPs),
		zap.Int("dropped", len(dropped)))

	reps := res.Representatives()
	for _, id := range reps {
		res.SNPs = append(res.SNPs, byID[id])
	}

	d, err := experimental.Dosages.Select(reps)
	if err != nil {
		return nil, fmt.Errorf("reduce experimental dosages: %w", err)
	}
	res.Experimental = &genotype.Cohort{Dosages: d, Labels: experimental.Labels}
	if reference != nil {
		if res.Reference, err = reference.Select(reps); err != nil {
			return nil, fmt.Errorf("reduce reference dosages: %w", err)
		}
	}
	return res, nil
}

// filter removes SNPs missing from either cohort or constant in the
// experimental cohort, preserving input order for the rest.
func (p *Pruner) filter(snps []genotype.SNP, experimental, reference *genotype.Matrix) ([]genotype.SNP, []Dropped) {
	var kept []genotype.SNP
	var dropped []Dropped
	for _, s := range snps {
		if reference == nil || !reference.HasColumn(s.ID) {
			dropped = append(dropped, Dropped{SNP: s.ID, Reason: ReasonNotInReference})
			continue
		}
		col, ok := experimental.Column(s.ID)
		if !ok {
			dropped = append(dropped, Dropped{SNP: s.ID, Reason: ReasonNotInExperimental})
			continue
		}
		if constant(col) {
			dropped = append(dropped, Dropped{SNP: s.ID, Reason: ReasonConstant})
			continue
		}
		kept = append(kept, s)
	}
	return kept, dropped
}

func constant(x []float64) bool {
	for _, v := range x {
		if v != x[0] {
			return false
		}
	}
	return true
}

func correlation(m *genotype.Matrix, a, b string) (float64, error) {
	x, ok := m.Column(a)
	if !ok {
		return 0, fmt.Errorf("correlate %s: column not found", a)
	}
	y, ok := m.Column(b)
	if !ok {
		return 0, fmt.Errorf("correlate %s: column not found", b)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0, fmt.Errorf("%s/%s: %w", a, b, ErrNaNCorrelation)
	}
	return r, nil
}
