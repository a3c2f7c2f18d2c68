package nulldist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/snpko/internal/knockoff"
)

var keyA = Key{Label: "Imaging_a", FDRType: knockoff.MFDR}

// fourTrials builds a distribution whose pooled mFDR frequencies for
// Imaging_a are 0.1..0.8 and whose per-trial maxima are 0.5..0.8.
func fourTrials() *Distribution {
	d := NewDistribution([]string{"Imaging_a"}, []string{"rs1", "rs2"})
	for p := 0; p < 4; p++ {
		d.Add(p, []knockoff.Frequency{
			{Label: "Imaging_a", FDRType: knockoff.MFDR, SNP: "rs1", Observed: 0.1 * float64(p+1)},
			{Label: "Imaging_a", FDRType: knockoff.MFDR, SNP: "rs2", Observed: 0.1 * float64(p+5)},
		})
	}
	return d
}

func TestDistribution_PValue(t *testing.T) {
	d := fourTrials()

	p, err := d.PValue(keyA, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p, "above every null sample")

	// Half the pool lies below 0.45: p = 1 - 0.5^2, not 0.5.
	p, err = d.PValue(keyA, 0.45)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12)

	p, err = d.PValue(keyA, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	// Ties are not counted as below.
	p, err = d.PValue(keyA, 0.8)
	require.NoError(t, err)
	assert.InDelta(t, 1-0.875*0.875, p, 1e-12)
}

func TestDistribution_PValueMultiplicity(t *testing.T) {
	d := NewDistribution([]string{"a"}, []string{"rs1", "rs2", "rs3", "rs4", "rs5"})
	for p := 0; p < 10; p++ {
		d.Add(p, []knockoff.Frequency{
			{Label: "a", FDRType: knockoff.CFDR, SNP: "rs1", Observed: 0.5},
		})
	}
	// 40 zeros and 10 values of 0.5; 0.3 sits above 80% of the pool.
	p, err := d.PValue(Key{"a", knockoff.CFDR}, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, 1-0.32768, p, 1e-12)
}

func TestDistribution_Cutoff(t *testing.T) {
	d := fourTrials()
	assert.Equal(t, []float64{0.5, 0.6, 0.7, 0.8}, roundAll(d.Maxima(keyA)))

	v, err := d.Cutoff(keyA, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-12)

	v, err = d.Cutoff(keyA, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, v, 1e-12)

	_, err = d.Cutoff(keyA, 0)
	assert.Error(t, err)

	// A label with no selections in any trial has all-zero maxima.
	v, err = d.Cutoff(Key{"Imaging_a", knockoff.CFDR}, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestCutoffRank(t *testing.T) {
	tests := []struct {
		p     int
		alpha float64
		want  int
	}{
		{100, 0.05, 95},
		{100, 0.5, 50},
		{4, 0.05, 3},
		{1, 0.05, 0},
		{10, 0.99, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CutoffRank(tt.p, tt.alpha), "P=%d alpha=%v", tt.p, tt.alpha)
	}
}

func TestDistribution_Summary(t *testing.T) {
	s, err := fourTrials().Summary(keyA)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Trials)
	assert.InDelta(t, 0.65, s.Mean, 1e-9)
	assert.InDelta(t, 0.65, s.Median, 1e-9)
	assert.InDelta(t, 0.8, s.Max, 1e-9)
	assert.Greater(t, s.StdDev, 0.0)
}

func TestDistribution_Samples(t *testing.T) {
	d := fourTrials()
	assert.Equal(t, 4, d.Trials())
	assert.Equal(t, 2, d.Candidates())
	// One sample per trial for each of the two criteria.
	require.Len(t, d.Samples(), 8)
	assert.Equal(t, keyA, d.Samples()[0].Key)
	assert.InDelta(t, 0.5, d.Samples()[0].MaxObserved, 1e-12)
}

func TestDistribution_Empty(t *testing.T) {
	d := NewDistribution([]string{"a"}, []string{"rs1"})
	_, err := d.PValue(Key{"a", knockoff.MFDR}, 0.5)
	assert.ErrorIs(t, err, ErrNoNullSamples)
	_, err = d.Cutoff(Key{"a", knockoff.MFDR}, 0.05)
	assert.ErrorIs(t, err, ErrNoNullSamples)
	_, err = d.Summary(Key{"a", knockoff.MFDR})
	assert.ErrorIs(t, err, ErrNoNullSamples)
}

func roundAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(int(x*1000+0.5)) / 1000
	}
	return out
}
