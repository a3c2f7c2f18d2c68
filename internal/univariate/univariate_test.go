package univariate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/snpko/internal/genotype"
)

func TestFisherExact(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		odds  float64
		p     float64
	}{
		{"strong association", Table{8, 2, 1, 5}, 20, 0.03496503496503496},
		{"weak association", Table{3, 1, 1, 3}, 9, 0.4857142857142857},
		{"perfect separation", Table{10, 0, 0, 10}, math.Inf(1), 1.082508822446903e-05},
		{"no association", Table{2, 2, 2, 2}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			odds, p := FisherExact(tt.table)
			assert.Equal(t, tt.odds, odds)
			assert.InDelta(t, tt.p, p, 1e-9)
		})
	}
}

func TestFisherExact_EmptyMargin(t *testing.T) {
	odds, p := FisherExact(Table{0, 0, 3, 4})
	assert.True(t, math.IsNaN(odds))
	assert.Equal(t, 1.0, p)
}

func TestAnalyze(t *testing.T) {
	subjects := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}
	d, err := genotype.NewMatrixFrom(subjects, []string{"rs1", "rs2"}, []float64{
		0, 0,
		0, 1,
		0, 0,
		0, 1,
		2, 0,
		1, 1,
		2, 0,
		1, 1,
	})
	require.NoError(t, err)
	l, err := genotype.NewMatrixFrom(subjects, []string{"Imaging_a"}, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	require.NoError(t, err)

	results, err := Analyze(&genotype.Cohort{Dosages: d, Labels: l})
	require.NoError(t, err)
	require.Len(t, results, 2)

	rs1 := results[0]
	assert.Equal(t, "rs1", rs1.SNP)
	assert.Equal(t, Table{A: 4, B: 0, C: 0, D: 4}, rs1.Table)
	assert.Equal(t, "4/4", rs1.WithLabel.String())
	assert.Equal(t, "0/4", rs1.WithoutLabel.String())
	assert.InDelta(t, 2.0/70, rs1.PValue, 1e-12)
	assert.InDelta(t, 4.0/70, rs1.Bonferroni, 1e-12)

	rs2 := results[1]
	assert.Equal(t, Table{A: 2, B: 2, C: 2, D: 2}, rs2.Table)
	assert.Equal(t, 1.0, rs2.Bonferroni)

	exp := Exploratory(results, 0.05)
	require.Len(t, exp, 1)
	assert.Equal(t, "rs1", exp[0].SNP)

	idx := Index(results)
	assert.Equal(t, rs2, idx[[2]string{"rs2", "Imaging_a"}])
}

func TestAnalyze_NoLabels(t *testing.T) {
	d := genotype.NewMatrix([]string{"s1"}, []string{"rs1"})
	_, err := Analyze(&genotype.Cohort{Dosages: d})
	assert.Error(t, err)
}
