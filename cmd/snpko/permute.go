package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/table"
)

func newPermuteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permute",
		Short: "Write permutation-trial inputs for the null distribution",
		Long: `For every permutation trial p, replace the experimental dosages with
randomly chosen reference subjects while keeping the labels, and write the
trial's inputs to results_NNN/. The remaining reference subjects form the
trial's background panel. Trials whose inputs already exist are left alone.`,
		Example: `  snpko permute --p-samples 100`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPermute(cmd.Context(), a, loadSettings())
		},
	}
	return cmd
}

func runPermute(ctx context.Context, a *app, s settings) error {
	logger := a.logger

	archive, err := loadArchive(s, logger)
	if err != nil {
		return err
	}
	n, _ := archive.Experimental.Dosages.Dims()
	if m, _ := archive.Reference.Dims(); m < n {
		return fmt.Errorf("%w: %d reference subjects for %d experimental subjects", nulldist.ErrReferenceTooSmall, m, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))
	for p := 0; p < s.PSamples; p++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeTrialInputs(archive, s.Seed, s.WorkDir, p, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("permutation inputs ready",
		zap.Int("trials", s.PSamples),
		zap.String("workdir", s.WorkDir))
	return nil
}

// writeTrialInputs writes the foreground cohort and background panel of
// trial p. The reference table is written last and marks the trial complete.
func writeTrialInputs(archive *nulldist.Archive, seed int64, dir string, p int, logger *zap.Logger) error {
	trialDir := nulldist.TrialDir(dir, p)
	refPath := filepath.Join(trialDir, prunedReferenceFile)
	if exists(refPath) {
		logger.Debug("reusing permutation inputs", zap.Int("trial", p))
		return nil
	}

	fg, bg, err := nulldist.Prepare(archive, seed, p)
	if err != nil {
		return err
	}
	if err := table.WriteCohort(filepath.Join(trialDir, prunedExperimentFile), fg); err != nil {
		return err
	}

	tmp := filepath.Join(trialDir, "."+prunedReferenceFile+".tmp")
	if err := table.WriteMatrix(tmp, bg); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, refPath); err != nil {
		return fmt.Errorf("commit trial %d inputs: %w", p, err)
	}
	logger.Debug("wrote permutation inputs", zap.Int("trial", p), zap.String("dir", trialDir))
	return nil
}
