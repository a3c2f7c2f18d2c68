package duckdb

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/snpko/internal/knockoff"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/output"
)

// WriteFrequencies batch-inserts selection frequencies for a run.
func (s *Store) WriteFrequencies(runID string, freqs []knockoff.Frequency) error {
	if len(freqs) == 0 {
		return nil
	}
	return s.appendRows("selection_frequencies", func(a *goduckdb.Appender) error {
		for _, f := range freqs {
			if err := a.AppendRow(runID, f.Label, string(f.FDRType), f.SNP, f.Observed); err != nil {
				return fmt.Errorf("append frequency: %w", err)
			}
		}
		return nil
	})
}

// WriteNullSamples batch-inserts null-distribution samples for a run.
func (s *Store) WriteNullSamples(runID string, samples []nulldist.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.appendRows("null_samples", func(a *goduckdb.Appender) error {
		for _, smp := range samples {
			if err := a.AppendRow(runID, smp.Label, string(smp.FDRType), int32(smp.Trial), smp.MaxObserved); err != nil {
				return fmt.Errorf("append null sample: %w", err)
			}
		}
		return nil
	})
}

// WriteResults batch-inserts p-value results for a run.
func (s *Store) WriteResults(runID string, results []output.Result) error {
	if len(results) == 0 {
		return nil
	}
	return s.appendRows("p_values", func(a *goduckdb.Appender) error {
		for _, r := range results {
			if err := a.AppendRow(runID, r.Label, string(r.FDRType), r.SNP,
				r.Observed, r.PValue, r.UncorrectedP, r.Significant); err != nil {
				return fmt.Errorf("append result: %w", err)
			}
		}
		return nil
	})
}

// FrequenciesByLabel returns a run's selection frequencies for one label,
// most frequent first.
func (s *Store) FrequenciesByLabel(runID, label string) ([]knockoff.Frequency, error) {
	rows, err := s.db.Query(`SELECT label, fdr_type, snp, observed_frequency
		FROM selection_frequencies
		WHERE run_id=? AND label=?
		ORDER BY fdr_type DESC, observed_frequency DESC, snp`, runID, label)
	if err != nil {
		return nil, fmt.Errorf("query frequencies: %w", err)
	}
	defer rows.Close()

	var freqs []knockoff.Frequency
	for rows.Next() {
		var f knockoff.Frequency
		var fdrType string
		if err := rows.Scan(&f.Label, &fdrType, &f.SNP, &f.Observed); err != nil {
			return nil, fmt.Errorf("scan frequency: %w", err)
		}
		f.FDRType = knockoff.FDRType(fdrType)
		freqs = append(freqs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frequencies: %w", err)
	}
	return freqs, nil
}

// SNPHistory is one stored result for a SNP.
type SNPHistory struct {
	RunID       string
	Label       string
	FDRType     knockoff.FDRType
	Observed    float64
	PValue      float64
	Significant bool
}

// ResultsBySNP returns every stored p-value result for a SNP across runs.
func (s *Store) ResultsBySNP(snp string) ([]SNPHistory, error) {
	rows, err := s.db.Query(`SELECT run_id, label, fdr_type, observed_frequency, p_value, significant
		FROM p_values
		WHERE snp=?
		ORDER BY run_id, label, fdr_type`, snp)
	if err != nil {
		return nil, fmt.Errorf("query by snp: %w", err)
	}
	defer rows.Close()

	var out []SNPHistory
	for rows.Next() {
		var h SNPHistory
		var fdrType string
		if err := rows.Scan(&h.RunID, &h.Label, &fdrType, &h.Observed, &h.PValue, &h.Significant); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		h.FDRType = knockoff.FDRType(fdrType)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// NullMaxima returns a run's per-trial maxima for one (label, fdr_type),
// ascending.
func (s *Store) NullMaxima(runID string, k nulldist.Key) ([]float64, error) {
	rows, err := s.db.Query(`SELECT max_observed_frequency
		FROM null_samples
		WHERE run_id=? AND label=? AND fdr_type=?
		ORDER BY max_observed_frequency`, runID, k.Label, string(k.FDRType))
	if err != nil {
		return nil, fmt.Errorf("query null samples: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan null sample: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate null samples: %w", err)
	}
	return out, nil
}
