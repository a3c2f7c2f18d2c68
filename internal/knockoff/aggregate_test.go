package knockoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/snpko/internal/genotype"
)

func TestAggregator_Frequencies(t *testing.T) {
	agg := NewAggregator([]string{"rs1", "rs2", "rs3"})

	decisions := []*Decision{
		{Label: "Imaging_a", Trial: 0, W: make([]float64, 3),
			Selected: map[FDRType][]int{MFDR: {0, 2}, CFDR: {0}}},
		{Label: "Imaging_a", Trial: 1, W: make([]float64, 3),
			Selected: map[FDRType][]int{MFDR: {0}}},
		{Label: "Imaging_a", Trial: 2, W: make([]float64, 3),
			Selected: map[FDRType][]int{}},
		{Label: "Imaging_a", Trial: 3, W: make([]float64, 3),
			Selected: map[FDRType][]int{MFDR: {0, 2}}},
		{Label: "Imaging_b", Trial: 0, W: make([]float64, 3),
			Selected: map[FDRType][]int{MFDR: {1}}},
	}
	for _, d := range decisions {
		require.NoError(t, agg.Add(d))
	}

	assert.Equal(t, 4, agg.Trials("Imaging_a"))
	assert.Equal(t, 1, agg.Trials("Imaging_b"))
	assert.Equal(t, []string{"Imaging_a", "Imaging_b"}, agg.Labels())
	assert.Equal(t, 3, agg.Count("Imaging_a", MFDR, 0))

	want := []Frequency{
		{Label: "Imaging_a", FDRType: MFDR, SNP: "rs1", Observed: 0.75},
		{Label: "Imaging_a", FDRType: MFDR, SNP: "rs3", Observed: 0.5},
		{Label: "Imaging_a", FDRType: CFDR, SNP: "rs1", Observed: 0.25},
		{Label: "Imaging_b", FDRType: MFDR, SNP: "rs2", Observed: 1},
	}
	assert.Equal(t, want, agg.Frequencies())
}

func TestAggregator_ShapeMismatch(t *testing.T) {
	agg := NewAggregator([]string{"rs1"})
	err := agg.Add(&Decision{Label: "x", W: []float64{1, 2}})
	assert.Error(t, err)
}

func TestAggregator_AddTable(t *testing.T) {
	agg := NewAggregator([]string{"rs1", "rs2"})
	table := &CoefficientTable{
		Trial:   0,
		Columns: []string{"rs1", "rs1_knockoff", "rs2", "rs2_knockoff"},
		Labels:  []string{"Imaging_a"},
		Values:  [][]float64{{4, 0, 0.1, 0.2}},
	}
	require.NoError(t, agg.AddTable(table, 0.2))

	freqs := agg.Frequencies()
	require.Len(t, freqs, 1)
	assert.Equal(t, "rs1", freqs[0].SNP)
	assert.Equal(t, MFDR, freqs[0].FDRType)

	table.Values = [][]float64{{1, 2, 3}}
	assert.ErrorIs(t, agg.AddTable(table, 0.2), ErrOddFeatureCount)
}

func TestInterleave(t *testing.T) {
	obs, _ := genotype.NewMatrixFrom([]string{"s1", "s2"}, []string{"rs1", "rs2"}, []float64{0, 1, 2, 1})
	ko, _ := genotype.NewMatrixFrom([]string{"s1", "s2"}, []string{"rs1", "rs2"}, []float64{1, 1, 0, 2})

	m, err := Interleave(obs, ko)
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1", "rs1_knockoff", "rs2", "rs2_knockoff"}, m.Columns())
	assert.Equal(t, []float64{0, 1, 1, 1}, m.Row(0))
	assert.Equal(t, []float64{2, 0, 1, 2}, m.Row(1))

	names, err := PairNames(m.Columns())
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1", "rs2"}, names)

	_, err = PairNames([]string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrOddFeatureCount)

	short, _ := genotype.NewMatrixFrom([]string{"s1"}, []string{"rs1"}, []float64{0})
	_, err = Interleave(obs, short)
	assert.Error(t, err)
}
