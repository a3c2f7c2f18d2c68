package nulldist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/snpko/internal/genotype"
	"github.com/inodb/snpko/internal/knockoff"
	"github.com/inodb/snpko/internal/table"
)

// Pipeline reruns knockoff generation and filtering on a substituted cohort.
// *knockoff.Engine satisfies it.
type Pipeline interface {
	Evaluate(ctx context.Context, foreground *genotype.Cohort, background *genotype.Matrix, seed int64) ([]knockoff.Frequency, error)
}

// Config controls a permutation batch.
type Config struct {
	Trials  int    // permutation trials P
	Workers int    // 0 means runtime.NumCPU()
	Seed    int64  // base seed; trial p uses knockoff.BatchSeed(Seed, p)
	Dir     string // trial outputs are written to TrialDir(Dir, p)
}

// Runner executes permutation trials against an archived cohort.
type Runner struct {
	pipeline Pipeline
	cfg      Config
	logger   *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(p Pipeline, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Runner{pipeline: p, cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger for trial progress.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Prepare returns the substituted foreground and the reduced background of
// permutation trial p. The draw depends only on the base seed and p and is
// seeded with knockoff.DrawSeed, apart from the trial's pipeline seeds.
func Prepare(a *Archive, seed int64, p int) (*genotype.Cohort, *genotype.Matrix, error) {
	rng := rand.New(rand.NewSource(knockoff.DrawSeed(seed, p)))
	fg, bg, err := Substitute(a.Experimental, a.Reference, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("trial %d: %w", p, err)
	}
	return fg, bg, nil
}

// Run executes every trial without a complete output, in parallel. The first
// failing trial cancels the rest; outputs of finished trials are kept and
// reused by the next Run.
func (r *Runner) Run(ctx context.Context, a *Archive) error {
	if r.pipeline == nil {
		return errors.New("permutation runner has no pipeline")
	}
	if r.cfg.Trials <= 0 {
		return fmt.Errorf("permutation trial count must be positive, got %d", r.cfg.Trials)
	}
	n, _ := a.Experimental.Dosages.Dims()
	if m, _ := a.Reference.Dims(); m < n {
		return fmt.Errorf("%w: %d reference subjects for %d experimental subjects", ErrReferenceTooSmall, m, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for p := 0; p < r.cfg.Trials; p++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.runTrial(gctx, a, p)
		})
	}
	return g.Wait()
}

func (r *Runner) runTrial(ctx context.Context, a *Archive, p int) error {
	path := TrialFrequencyPath(r.cfg.Dir, p)
	if _, err := os.Stat(path); err == nil {
		r.logger.Info("reusing permutation trial output", zap.Int("trial", p), zap.String("path", path))
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat trial %d output: %w", p, err)
	}

	fg, bg, err := Prepare(a, r.cfg.Seed, p)
	if err != nil {
		return err
	}

	r.logger.Info("running permutation trial", zap.Int("trial", p), zap.Int("trials", r.cfg.Trials))
	freqs, err := r.pipeline.Evaluate(ctx, fg, bg, knockoff.BatchSeed(r.cfg.Seed, p))
	if err != nil {
		return fmt.Errorf("permutation trial %d: %w", p, err)
	}

	tmp := filepath.Join(TrialDir(r.cfg.Dir, p), "."+FrequencyFile+".tmp")
	if err := table.WriteFrequencies(tmp, freqs); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write trial %d output: %w", p, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit trial %d output: %w", p, err)
	}
	return nil
}

// Collect reads the batch's trial outputs into a Distribution.
func (r *Runner) Collect(labels, snps []string) (*Distribution, error) {
	c := NewCollector(r.cfg.Dir)
	c.SetLogger(r.logger)
	return c.Collect(r.cfg.Trials, labels, snps)
}
