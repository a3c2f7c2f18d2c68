package main

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/snpko/internal/duckdb"
	"github.com/inodb/snpko/internal/knockoff"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/table"
)

func newFilterCmd(a *app) *cobra.Command {
	var (
		coefDir string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Apply the knockoff filter to fitted coefficients",
		Long: `Read one coefficient table per knockoff trial (coefficients_000.csv, ...),
compute the mFDR and cFDR thresholds for every label row and write the
selection frequency of each SNP.

Run it on a permutation trial directory (results_NNN) to produce that
trial's null-distribution frequencies.`,
		Example: `  snpko filter --coef-dir work/results
  snpko filter --coef-dir work/results_007`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			if coefDir == "" {
				coefDir = resultsDir(s)
			}
			if outPath == "" {
				outPath = filepath.Join(coefDir, nulldist.FrequencyFile)
			}
			return runFilter(a, s, coefDir, outPath)
		},
	}

	cmd.Flags().StringVar(&coefDir, "coef-dir", "", "Directory of coefficient tables (default: <workdir>/results)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Frequency table (default: <coef-dir>/frequencies.csv)")

	return cmd
}

func runFilter(a *app, s settings, coefDir, outPath string) error {
	logger := a.logger
	if s.KnockoffTrials <= 0 {
		return fmt.Errorf("knockoff_trials must be positive, got %d", s.KnockoffTrials)
	}

	tables := make([]*knockoff.CoefficientTable, s.KnockoffTrials)
	g := new(errgroup.Group)
	g.SetLimit(max(s.Workers, 1))
	for t := range tables {
		g.Go(func() error {
			ct, err := table.ReadCoefficients(coefficientPath(coefDir, t), t)
			if err != nil {
				return err
			}
			tables[t] = ct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	loci, err := knockoff.PairNames(tables[0].Columns)
	if err != nil {
		return fmt.Errorf("trial 0: %w", err)
	}
	agg := knockoff.NewAggregator(loci)
	for _, ct := range tables {
		if !slices.Equal(ct.Columns, tables[0].Columns) {
			return fmt.Errorf("trial %d: feature columns differ from trial 0", ct.Trial)
		}
		if err := agg.AddTable(ct, s.FDR); err != nil {
			return err
		}
	}

	freqs := agg.Frequencies()
	if err := table.WriteFrequencies(outPath, freqs); err != nil {
		return err
	}
	for _, label := range agg.Labels() {
		logger.Info("filtered label",
			zap.String("label", label),
			zap.Int("trials", agg.Trials(label)))
	}
	logger.Info("wrote selection frequencies",
		zap.String("path", outPath),
		zap.Int("loci", len(loci)),
		zap.Int("selected", len(freqs)))

	store, err := openStore(s)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	run := duckdb.NewRun("filter", s.Seed, s.FDR, s.KnockoffTrials)
	if err := store.WriteRun(run); err != nil {
		return err
	}
	if err := store.WriteFrequencies(run.ID, freqs); err != nil {
		return err
	}
	logger.Debug("stored frequencies", zap.String("run", run.ID), zap.String("db", s.DB))
	return nil
}
