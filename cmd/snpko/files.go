package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/inodb/snpko/internal/duckdb"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/table"
)

// Files exchanged between pipeline stages.
const (
	prunedExperimentFile = "pruned_experiment.csv"
	prunedReferenceFile  = "pruned_reference.csv"
	prunedFactsFile      = "pruned_SNP_facts.csv"
	lociFile             = "loci.csv"
	droppedFile          = "dropped_SNPs.csv"
	archiveDirName       = "original"
	coefficientPattern   = "coefficients_%03d.csv"
)

func coefficientPath(dir string, trial int) string {
	return filepath.Join(dir, fmt.Sprintf(coefficientPattern, trial))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// createOutput creates path and its parent directories.
func createOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// writeOutput creates path and hands it to write, closing it afterwards.
func writeOutput(path string, write func(w io.Writer) error) error {
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// loadArchive returns the archived pruned inputs, rebuilding the archive
// when the pruned tables changed since it was written.
func loadArchive(s settings, logger *zap.Logger) (*nulldist.Archive, error) {
	expPath := filepath.Join(s.WorkDir, prunedExperimentFile)
	refPath := filepath.Join(s.WorkDir, prunedReferenceFile)

	var sources []nulldist.Fingerprint
	for _, p := range []string{expPath, refPath} {
		fp, err := nulldist.StatFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found; run 'snpko prune' first", p)
		}
		if err != nil {
			return nil, err
		}
		sources = append(sources, fp)
	}

	store := nulldist.NewArchiveStore(filepath.Join(s.WorkDir, archiveDirName))
	if store.Valid(sources...) {
		a, err := store.Load()
		if err == nil {
			logger.Debug("loaded archive", zap.String("dir", filepath.Join(s.WorkDir, archiveDirName)))
			return a, nil
		}
		logger.Warn("archive unreadable, rebuilding", zap.Error(err))
	}

	exp, err := table.ReadCohort(expPath, s.DataPrefix)
	if err != nil {
		return nil, err
	}
	ref, err := table.ReadMatrix(refPath)
	if err != nil {
		return nil, err
	}
	a := &nulldist.Archive{Experimental: exp, Reference: ref}
	if err := store.Write(a, sources...); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	logger.Info("archived pruned inputs",
		zap.Int("subjects", len(exp.Dosages.Subjects())),
		zap.Int("reference", len(ref.Subjects())),
		zap.Int("loci", len(exp.Dosages.Columns())))
	return a, nil
}

// openStore opens the results database, or returns nil when disabled.
func openStore(s settings) (*duckdb.Store, error) {
	if s.DB == "" {
		return nil, nil
	}
	store, err := duckdb.Open(s.DB)
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	return store, nil
}
