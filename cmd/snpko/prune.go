package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/snpko/internal/genotype"
	"github.com/inodb/snpko/internal/loci"
	"github.com/inodb/snpko/internal/table"
)

func newPruneCmd(a *app) *cobra.Command {
	var (
		factsPath     string
		inputPath     string
		referencePath string
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Collapse correlated adjacent SNPs into loci",
		Long: `Read SNP facts, the experimental genotype table and the reference panel,
convert genotype calls to dosages and keep one representative SNP per run of
correlated adjacent SNPs. Writes pruned tables to the working directory.`,
		Example: `  snpko prune --facts SNP_facts.csv --input experiment.csv --reference ENSEMBL.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(a, loadSettings(), factsPath, inputPath, referencePath)
		},
	}

	cmd.Flags().StringVar(&factsPath, "facts", "", "SNP facts table (SNP, chromosome, position, wild_type, interesting)")
	cmd.Flags().StringVar(&inputPath, "input", "", "Experimental genotype table with label columns")
	cmd.Flags().StringVar(&referencePath, "reference", "", "Reference population genotype table")
	_ = cmd.MarkFlagRequired("facts")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("reference")

	return cmd
}

func runPrune(a *app, s settings, factsPath, inputPath, referencePath string) error {
	logger := a.logger

	snps, err := table.ReadSNPFacts(factsPath)
	if err != nil {
		return err
	}

	onMissing := genotype.DefaultOnMissing
	if s.NeverNA {
		onMissing = genotype.Missing
	}
	exp, err := table.ReadGenotypes(inputPath, snps, table.GenotypeOptions{LabelPrefix: s.DataPrefix, OnMissing: onMissing})
	if err != nil {
		return err
	}
	if len(exp.LabelNames()) == 0 {
		logger.Warn("experimental cohort has no label columns", zap.String("prefix", s.DataPrefix))
	}
	ref, err := table.ReadGenotypes(referencePath, snps, table.GenotypeOptions{OnMissing: onMissing})
	if err != nil {
		return err
	}

	source, err := loci.ParseCorrelationSource(s.CorrelationSource)
	if err != nil {
		return err
	}
	pruner := loci.NewPruner(loci.Config{
		Threshold: s.LocusThreshold,
		Seed:      s.Seed,
		Source:    source,
	})
	pruner.SetLogger(logger)

	res, err := pruner.Prune(snps, exp, ref.Dosages)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	if err := table.WriteCohort(filepath.Join(s.WorkDir, prunedExperimentFile), res.Experimental); err != nil {
		return err
	}
	if err := table.WriteMatrix(filepath.Join(s.WorkDir, prunedReferenceFile), res.Reference); err != nil {
		return err
	}
	if err := table.WriteSNPFacts(filepath.Join(s.WorkDir, prunedFactsFile), res.SNPs); err != nil {
		return err
	}
	if err := writeLoci(filepath.Join(s.WorkDir, lociFile), res.Loci); err != nil {
		return err
	}
	if err := writeDropped(filepath.Join(s.WorkDir, droppedFile), res.Dropped); err != nil {
		return err
	}

	logger.Info("wrote pruned inputs",
		zap.String("workdir", s.WorkDir),
		zap.Int("loci", len(res.Loci)),
		zap.Int("dropped", len(res.Dropped)))
	return nil
}

// writeLoci records each locus with its representative and ';'-joined members.
func writeLoci(path string, ls []loci.Locus) error {
	w, err := table.Create(path, []string{"representative", "size", "members"})
	if err != nil {
		return err
	}
	for _, l := range ls {
		if err := w.Write([]string{l.Representative, fmt.Sprint(len(l.Members)), strings.Join(l.Members, ";")}); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// writeDropped records every SNP removed before pruning and why.
func writeDropped(path string, dropped []loci.Dropped) error {
	w, err := table.Create(path, []string{table.ColSNP, "reason"})
	if err != nil {
		return err
	}
	for _, d := range dropped {
		if err := w.Write([]string{d.SNP, d.Reason}); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
