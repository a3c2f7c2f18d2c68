package nulldist

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/snpko/internal/table"
)

// FrequencyFile is the name of a trial's selection-frequency table.
const FrequencyFile = "frequencies.csv"

// TrialDir returns the output directory of permutation trial p.
func TrialDir(dir string, p int) string {
	return filepath.Join(dir, fmt.Sprintf("results_%03d", p))
}

// TrialFrequencyPath returns the selection-frequency table of trial p.
func TrialFrequencyPath(dir string, p int) string {
	return filepath.Join(TrialDir(dir, p), FrequencyFile)
}

// Collector reads per-trial selection-frequency tables into a Distribution.
type Collector struct {
	dir    string
	logger *zap.Logger
}

// NewCollector creates a collector for trial outputs under dir.
func NewCollector(dir string) *Collector {
	return &Collector{dir: dir, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped trials and cutoffs.
func (c *Collector) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Collect reads trials 0..trials-1. A trial without an output table is
// logged and skipped; a malformed table is an error.
func (c *Collector) Collect(trials int, labels, snps []string) (*Distribution, error) {
	d := NewDistribution(labels, snps)
	for p := 0; p < trials; p++ {
		path := TrialFrequencyPath(c.dir, p)
		freqs, err := table.ReadFrequencies(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("skipping permutation trial without output",
				zap.Int("trial", p), zap.String("path", path))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("collect trial %d: %w", p, err)
		}
		d.Add(p, freqs)
	}

	if d.Trials() == 0 {
		c.logger.Error("no usable permutation trials; p-values cannot be computed",
			zap.String("dir", c.dir), zap.Int("expected", trials))
		return nil, fmt.Errorf("%s: %w (expected %d trials)", c.dir, ErrNoNullSamples, trials)
	}
	c.logger.Info("collected null distribution",
		zap.Int("trials", d.Trials()),
		zap.Int("skipped", trials-d.Trials()),
		zap.Int("candidates", len(snps)))
	return d, nil
}

// LogCutoffs logs the significance cutoff of every key at level alpha.
func (c *Collector) LogCutoffs(d *Distribution, alpha float64) {
	for _, k := range d.Keys() {
		v, err := d.Cutoff(k, alpha)
		if err != nil {
			c.logger.Warn("no cutoff", zap.Stringer("key", k), zap.Error(err))
			continue
		}
		c.logger.Info("null-distribution cutoff",
			zap.String("label", k.Label),
			zap.String("fdr_type", string(k.FDRType)),
			zap.Float64("alpha", alpha),
			zap.Float64("cutoff", v))
	}
}
