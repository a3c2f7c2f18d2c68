package knockoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/inodb/snpko/internal/genotype"
)

// zeroSampler returns all-zero knockoffs.
type zeroSampler struct{}

func (zeroSampler) Sample(_ context.Context, observed, _ *genotype.Matrix, _ int64) (*genotype.Matrix, error) {
	return genotype.NewMatrix(observed.Subjects(), observed.Columns()), nil
}

// seedSampler records the seeds of its knockoff draws.
type seedSampler struct {
	mu    sync.Mutex
	seeds []int64
}

func (s *seedSampler) Sample(_ context.Context, observed, _ *genotype.Matrix, seed int64) (*genotype.Matrix, error) {
	s.mu.Lock()
	s.seeds = append(s.seeds, seed)
	s.mu.Unlock()
	return genotype.NewMatrix(observed.Subjects(), observed.Columns()), nil
}

// signalEstimator gives the first locus a large coefficient and every other
// column seeded noise, recording the seeds it was called with.
type signalEstimator struct {
	mu    sync.Mutex
	seeds []int64
	fail  bool
	short bool
}

func (e *signalEstimator) Fit(_ context.Context, features *mat.Dense, _ []float64, seed int64) ([]float64, error) {
	e.mu.Lock()
	e.seeds = append(e.seeds, seed)
	e.mu.Unlock()

	if e.fail {
		return nil, errors.New("solver diverged")
	}
	_, cols := features.Dims()
	if e.short {
		cols--
	}
	rng := rand.New(rand.NewSource(seed))
	coefs := make([]float64, cols)
	for j := range coefs {
		coefs[j] = rng.Float64()
	}
	coefs[0] = 5
	coefs[1] = 0
	return coefs, nil
}

func testCohort(t *testing.T, labels ...string) *genotype.Cohort {
	t.Helper()
	subjects := []string{"s1", "s2", "s3", "s4"}
	d, err := genotype.NewMatrixFrom(subjects, []string{"rs1", "rs2", "rs3", "rs4"}, []float64{
		0, 1, 2, 0,
		1, 1, 0, 2,
		2, 0, 1, 1,
		0, 2, 1, 0,
	})
	require.NoError(t, err)
	l := genotype.NewMatrix(subjects, labels)
	for j := range labels {
		l.SetCol(j, []float64{0, 1, 1, 0})
	}
	return &genotype.Cohort{Dosages: d, Labels: l}
}

func TestEngine_Run(t *testing.T) {
	est := &signalEstimator{}
	e := NewEngine(zeroSampler{}, est, Config{FDR: 0.2, Trials: 10, Workers: 4})

	agg, err := e.Run(context.Background(), testCohort(t, "Imaging_a", "Imaging_b"), nil, 100)
	require.NoError(t, err)

	assert.Equal(t, 10, agg.Trials("Imaging_a"))
	assert.Equal(t, 10, agg.Trials("Imaging_b"))
	assert.Equal(t, 10, agg.Count("Imaging_a", MFDR, 0))
	// Four loci can never satisfy the conservative ratio at q=0.2.
	for i := range 4 {
		assert.Equal(t, 0, agg.Count("Imaging_a", CFDR, i))
	}

	assert.Len(t, est.seeds, 20)
	seen := make(map[int64]bool)
	for _, s := range est.seeds {
		assert.False(t, seen[s], "seed %d reused", s)
		seen[s] = true
		assert.GreaterOrEqual(t, s, int64(100))
		assert.Less(t, s, int64(120))
	}
}

func TestEngine_SamplerSeedsDisjointFromFitSeeds(t *testing.T) {
	smp := &seedSampler{}
	est := &signalEstimator{}
	e := NewEngine(smp, est, Config{FDR: 0.2, Trials: 10, Workers: 4})

	_, err := e.Run(context.Background(), testCohort(t, "Imaging_a", "Imaging_b"), nil, 100)
	require.NoError(t, err)

	require.Len(t, smp.seeds, 10)
	fit := make(map[int64]bool)
	for _, s := range est.seeds {
		fit[s] = true
	}
	for _, s := range smp.seeds {
		assert.False(t, fit[s], "sampler seed %d also seeds a fit", s)
		assert.GreaterOrEqual(t, s, int64(120))
		assert.Less(t, s, int64(130))
	}
}

func TestEngine_SamplerSeedBound(t *testing.T) {
	// Fit seeds fit the block, but the sampler seeds after them do not.
	e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.1, Trials: MaxUnitIndex / 2})
	_, err := e.Run(context.Background(), testCohort(t, "a"), nil, 0)
	assert.ErrorIs(t, err, ErrUnitIndexRange)
}

func TestEngine_DeterministicAcrossWorkers(t *testing.T) {
	run := func(workers int) []Frequency {
		e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.5, Trials: 25, Workers: workers})
		freqs, err := e.Evaluate(context.Background(), testCohort(t, "Imaging_a", "Imaging_b"), nil, 7)
		require.NoError(t, err)
		return freqs
	}
	assert.Equal(t, run(1), run(8))
}

func TestEngine_UnitIndexBound(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.1, Trials: MaxUnitIndex/2 + 1})
	_, err := e.Run(context.Background(), testCohort(t, "a", "b"), nil, 0)
	assert.ErrorIs(t, err, ErrUnitIndexRange)
}

func TestEngine_EstimatorFailureAborts(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{fail: true}, Config{FDR: 0.1, Trials: 5, Workers: 2})
	_, err := e.Run(context.Background(), testCohort(t, "a"), nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solver diverged")
}

func TestEngine_CoefficientCountMismatch(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{short: true}, Config{FDR: 0.1, Trials: 2})
	_, err := e.Run(context.Background(), testCohort(t, "a"), nil, 0)
	assert.Error(t, err)
}

func TestEngine_NoLabels(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.1, Trials: 2})
	_, err := e.Run(context.Background(), testCohort(t), nil, 0)
	assert.Error(t, err)
}

func makeItems(t *testing.T, n int) <-chan WorkItem {
	c := testCohort(t, "a")
	features, err := Interleave(c.Dosages, c.Dosages)
	require.NoError(t, err)

	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{Seq: i, Label: "a", Trial: i, Seed: int64(i), Features: features}
	}
	close(ch)
	return ch
}

func TestParallelFilter_OrderPreservation(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.1, Trials: 1})

	results := e.ParallelFilter(context.Background(), makeItems(t, 200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		assert.Equal(t, r.Seq, r.Decision.Trial)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelFilter_EmptyInput(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.1, Trials: 1})

	ch := make(chan WorkItem)
	close(ch)

	count := 0
	err := OrderedCollect(e.ParallelFilter(context.Background(), ch, 4), func(WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	e := NewEngine(zeroSampler{}, &signalEstimator{}, Config{FDR: 0.1, Trials: 1})

	count := 0
	err := OrderedCollect(e.ParallelFilter(context.Background(), makeItems(t, 100), 4), func(WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}
