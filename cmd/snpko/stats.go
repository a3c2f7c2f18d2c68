package main

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/snpko/internal/duckdb"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/output"
	"github.com/inodb/snpko/internal/table"
	"github.com/inodb/snpko/internal/univariate"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		freqPath string
		withNull bool
		showAll  bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Compute univariate statistics and final result tables",
		Long: `Compute Fisher exact tests of every pruned SNP against every label and,
when selection frequencies exist, join them with the uncorrected statistics
and the empirical p-values of the null distribution.

Outputs in <workdir>/results:
  uncorrected.tsv          Fisher test of every (SNP, label)
  exploratory.tsv          (SNP, label) pairs with uncorrected p below p_thresh
  all_results.tsv          every selected SNP with p-values
  sig_results.tsv          SNPs selected in more than obs_freq of trials
  sig_max.tsv              most frequently selected SNP per label
  expected_appearance.tsv  selection frequency summed over labels`,
		Example: `  snpko stats
  snpko stats --null=false --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			if freqPath == "" {
				freqPath = filepath.Join(resultsDir(s), nulldist.FrequencyFile)
			}
			return runStats(a, s, freqPath, withNull, showAll, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&freqPath, "frequencies", "", "Observed frequency table (default: <workdir>/results/frequencies.csv)")
	cmd.Flags().BoolVar(&withNull, "null", true, "Compute empirical p-values from permutation trials")
	cmd.Flags().BoolVar(&showAll, "all", false, "Print all selected SNPs, not only significant ones")

	return cmd
}

func runStats(a *app, s settings, freqPath string, withNull, showAll bool, stdout io.Writer) error {
	logger := a.logger
	dir := resultsDir(s)

	cohort, err := table.ReadCohort(filepath.Join(s.WorkDir, prunedExperimentFile), s.DataPrefix)
	if err != nil {
		return err
	}
	uncorrected, err := univariate.Analyze(cohort)
	if err != nil {
		return err
	}
	if err := writeUncorrected(filepath.Join(dir, "uncorrected.tsv"), uncorrected); err != nil {
		return err
	}
	exploratory := univariate.Exploratory(uncorrected, s.PThresh)
	if err := writeUncorrected(filepath.Join(dir, "exploratory.tsv"), exploratory); err != nil {
		return err
	}
	logger.Info("univariate statistics",
		zap.Int("tests", len(uncorrected)),
		zap.Int("exploratory", len(exploratory)),
		zap.Float64("alpha", s.PThresh))

	if !exists(freqPath) {
		logger.Warn("no selection frequencies; skipping knockoff results", zap.String("path", freqPath))
		return nil
	}
	freqs, err := table.ReadFrequencies(freqPath)
	if err != nil {
		return err
	}

	var null *nulldist.Distribution
	if withNull && s.PSamples > 0 {
		null, err = collectNull(s, logger)
		if errors.Is(err, nulldist.ErrNoNullSamples) {
			logger.Error("reporting results without p-values", zap.Error(err))
			null = nil
		} else if err != nil {
			return err
		}
	}

	results, err := output.BuildResults(freqs, s.FDR, s.ObsFreq, null, univariate.Index(uncorrected))
	if err != nil {
		return err
	}
	if null != nil {
		for _, r := range results {
			if math.IsNaN(r.PValue) {
				logger.Warn("no null samples for selection; p-value unavailable",
					zap.String("label", r.Label),
					zap.String("fdr_type", string(r.FDRType)),
					zap.String("snp", r.SNP))
			}
		}
	}
	for name, rs := range map[string][]output.Result{
		"all_results.tsv": results,
		"sig_results.tsv": output.Significant(results),
		"sig_max.tsv":     output.MaxPerGroup(results),
	} {
		if err := writeResults(filepath.Join(dir, name), rs); err != nil {
			return err
		}
	}
	err = writeOutput(filepath.Join(dir, "expected_appearance.tsv"), func(w io.Writer) error {
		ew := output.NewExpectedWriter(w)
		if err := ew.WriteHeader(); err != nil {
			return err
		}
		for _, e := range output.ExpectedAppearance(freqs) {
			if err := ew.Write(e, s.FDR); err != nil {
				return err
			}
		}
		return ew.Flush()
	})
	if err != nil {
		return err
	}

	rw := output.NewReportWriter(stdout, showAll)
	if err := rw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := rw.Write(r); err != nil {
			return err
		}
	}
	if err := rw.Flush(); err != nil {
		return err
	}
	rw.WriteSummary(os.Stderr, s.ObsFreq)

	store, err := openStore(s)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	run := duckdb.NewRun("stats", s.Seed, s.FDR, s.KnockoffTrials)
	if err := store.WriteRun(run); err != nil {
		return err
	}
	if err := store.WriteFrequencies(run.ID, freqs); err != nil {
		return err
	}
	if err := store.WriteResults(run.ID, results); err != nil {
		return err
	}
	logger.Debug("stored results", zap.String("run", run.ID), zap.String("db", s.DB))
	return nil
}

func writeUncorrected(path string, results []univariate.Result) error {
	return writeOutput(path, func(w io.Writer) error {
		uw := output.NewUncorrectedWriter(w)
		if err := uw.WriteHeader(); err != nil {
			return err
		}
		for _, r := range results {
			if err := uw.Write(r); err != nil {
				return err
			}
		}
		return uw.Flush()
	})
}

func writeResults(path string, results []output.Result) error {
	return writeOutput(path, func(w io.Writer) error {
		rw := output.NewResultWriter(w)
		if err := rw.WriteHeader(); err != nil {
			return err
		}
		for _, r := range results {
			if err := rw.Write(r); err != nil {
				return err
			}
		}
		return rw.Flush()
	})
}
