package knockoff

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/inodb/snpko/internal/genotype"
)

// Sampler draws a synthetic copy of the observed dosages that matches their
// low-order statistics but is conditionally independent of any label.
type Sampler interface {
	Sample(ctx context.Context, observed, background *genotype.Matrix, seed int64) (*genotype.Matrix, error)
}

// Estimator returns one importance coefficient per feature column.
type Estimator interface {
	Fit(ctx context.Context, features *mat.Dense, response []float64, seed int64) ([]float64, error)
}

// Config controls a batch of knockoff trials.
type Config struct {
	FDR     float64 // target FDR q in (0,1]
	Trials  int     // independent knockoff draws
	Workers int     // 0 means runtime.NumCPU()
}

// Engine runs knockoff trials over injected Sampler and Estimator implementations.
type Engine struct {
	sampler   Sampler
	estimator Estimator
	cfg       Config
	logger    *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(s Sampler, est Estimator, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{
		sampler:   s,
		estimator: est,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and diagnostic messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Run draws cfg.Trials knockoff copies of the foreground dosages, fits every
// (label, trial) unit and aggregates the selections. Unit (l, t) is seeded
// with baseSeed + l*Trials + t; the knockoff draw of trial t uses
// SamplerSeed(baseSeed, labels*Trials, t).
// The first failing unit cancels the batch.
func (e *Engine) Run(ctx context.Context, foreground *genotype.Cohort, background *genotype.Matrix, baseSeed int64) (*Aggregator, error) {
	labels := foreground.LabelNames()
	if len(labels) == 0 {
		return nil, errors.New("cohort has no labels")
	}
	if e.cfg.Trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", e.cfg.Trials)
	}
	if _, err := ComputeThresholds(nil, e.cfg.FDR); err != nil {
		return nil, err
	}
	units := len(labels) * e.cfg.Trials
	if _, err := UnitSeed(baseSeed, UnitIndex(len(labels)-1, e.cfg.Trials-1, e.cfg.Trials)); err != nil {
		return nil, fmt.Errorf("%d labels x %d trials: %w", len(labels), e.cfg.Trials, err)
	}
	if _, err := SamplerSeed(baseSeed, units, e.cfg.Trials-1); err != nil {
		return nil, fmt.Errorf("%d labels x %d trials: %w", len(labels), e.cfg.Trials, err)
	}

	responses := make([][]float64, len(labels))
	for l, name := range labels {
		responses[l], _ = foreground.Label(name)
	}

	features, err := e.sampleTrials(ctx, foreground.Dosages, background, baseSeed, units)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make(chan WorkItem, 2*e.cfg.Workers)
	go func() {
		defer close(items)
		seq := 0
		for t := 0; t < e.cfg.Trials; t++ {
			for l, name := range labels {
				seed := baseSeed + int64(UnitIndex(l, t, e.cfg.Trials))
				item := WorkItem{
					Seq:      seq,
					Label:    name,
					Trial:    t,
					Seed:     seed,
					Features: features[t],
					Response: responses[l],
				}
				select {
				case items <- item:
				case <-ctx.Done():
					return
				}
				seq++
			}
		}
	}()

	agg := NewAggregator(foreground.Dosages.Columns())
	results := e.ParallelFilter(ctx, items, e.cfg.Workers)
	err = OrderedCollect(results, func(r WorkResult) error {
		if r.Err != nil {
			cancel()
			return r.Err
		}
		e.logger.Debug("knockoff unit filtered",
			zap.String("label", r.Decision.Label),
			zap.Int("trial", r.Decision.Trial),
			zap.Float64("tau_mfdr", r.Decision.Thresholds.MFDR),
			zap.Float64("tau_cfdr", r.Decision.Thresholds.CFDR))
		if err := agg.Add(r.Decision); err != nil {
			cancel()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// Evaluate runs a batch and returns the observed selection frequencies.
func (e *Engine) Evaluate(ctx context.Context, foreground *genotype.Cohort, background *genotype.Matrix, baseSeed int64) ([]Frequency, error) {
	agg, err := e.Run(ctx, foreground, background, baseSeed)
	if err != nil {
		return nil, err
	}
	return agg.Frequencies(), nil
}

// sampleTrials draws one knockoff matrix per trial and interleaves it with
// the observed dosages. Trial t is drawn with SamplerSeed(baseSeed, units, t).
func (e *Engine) sampleTrials(ctx context.Context, observed, background *genotype.Matrix, baseSeed int64, units int) ([]*genotype.Matrix, error) {
	out := make([]*genotype.Matrix, e.cfg.Trials)
	step := max(1, e.cfg.Trials/20)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for t := 0; t < e.cfg.Trials; t++ {
		g.Go(func() error {
			if t%step == 0 {
				e.logger.Info("knockoff sampling",
					zap.Int("trial", t),
					zap.Int("trials", e.cfg.Trials))
			}
			seed, err := SamplerSeed(baseSeed, units, t)
			if err != nil {
				return err
			}
			ko, err := e.sampler.Sample(gctx, observed, background, seed)
			if err != nil {
				return fmt.Errorf("sample knockoffs for trial %d: %w", t, err)
			}
			features, err := Interleave(observed, ko)
			if err != nil {
				return fmt.Errorf("trial %d: %w", t, err)
			}
			out[t] = features
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// filterUnit fits one unit and applies the knockoff filter to its coefficients.
func (e *Engine) filterUnit(ctx context.Context, item WorkItem) (*Decision, error) {
	_, cols := item.Features.Dims()
	coefs, err := e.estimator.Fit(ctx, item.Features.Dense(), item.Response, item.Seed)
	if err != nil {
		return nil, fmt.Errorf("fit %s trial %d: %w", item.Label, item.Trial, err)
	}
	if len(coefs) != cols {
		return nil, fmt.Errorf("fit %s trial %d: got %d coefficients for %d features",
			item.Label, item.Trial, len(coefs), cols)
	}

	d, err := Filter(coefs, e.cfg.FDR)
	if err != nil {
		return nil, fmt.Errorf("filter %s trial %d: %w", item.Label, item.Trial, err)
	}
	d.Label = item.Label
	d.Trial = item.Trial
	return d, nil
}
