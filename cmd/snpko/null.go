package main

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/snpko/internal/duckdb"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/output"
)

func newNullCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "null",
		Short: "Build the null distribution from permutation trials",
		Long: `Collect results_NNN/frequencies.csv of every permutation trial, take the
per-trial maximum selection frequency for each label and FDR type, and write
the samples and their summary. Trials without output are skipped with a
warning.`,
		Example: `  snpko null --p-samples 100 --p-thresh 0.05`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNull(a, loadSettings())
		},
	}
	return cmd
}

func runNull(a *app, s settings) error {
	logger := a.logger

	d, err := collectNull(s, logger)
	if err != nil {
		return err
	}

	dir := resultsDir(s)
	err = writeOutput(filepath.Join(dir, "null_hypothesis.tsv"), func(w io.Writer) error {
		nw := output.NewNullWriter(w)
		if err := nw.WriteHeader(); err != nil {
			return err
		}
		for _, sample := range d.Samples() {
			if err := nw.Write(sample); err != nil {
				return err
			}
		}
		return nw.Flush()
	})
	if err != nil {
		return err
	}

	err = writeOutput(filepath.Join(dir, "null_summary.tsv"), func(w io.Writer) error {
		sw := output.NewSummaryWriter(w)
		if err := sw.WriteHeader(); err != nil {
			return err
		}
		for _, k := range d.Keys() {
			sum, err := d.Summary(k)
			if err != nil {
				return err
			}
			cutoff, err := d.Cutoff(k, s.PThresh)
			if err != nil {
				return err
			}
			if err := sw.Write(sum, s.PThresh, cutoff); err != nil {
				return err
			}
		}
		return sw.Flush()
	})
	if err != nil {
		return err
	}

	store, err := openStore(s)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	run := duckdb.NewRun("null", s.Seed, s.FDR, s.PSamples)
	if err := store.WriteRun(run); err != nil {
		return err
	}
	if err := store.WriteNullSamples(run.ID, d.Samples()); err != nil {
		return err
	}
	logger.Debug("stored null samples", zap.String("run", run.ID), zap.String("db", s.DB))
	return nil
}

// collectNull reads the permutation trial outputs for the archived labels
// and candidate SNPs and logs the cutoff of each pool.
func collectNull(s settings, logger *zap.Logger) (*nulldist.Distribution, error) {
	archive, err := loadArchive(s, logger)
	if err != nil {
		return nil, err
	}

	c := nulldist.NewCollector(s.WorkDir)
	c.SetLogger(logger)
	d, err := c.Collect(s.PSamples, archive.Experimental.LabelNames(), archive.Experimental.Dosages.Columns())
	if err != nil {
		return nil, err
	}
	c.LogCutoffs(d, s.PThresh)
	return d, nil
}
