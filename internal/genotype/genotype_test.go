package genotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDosage(t *testing.T) {
	snp := SNP{ID: "rs1", WildType: "G"}

	tests := []struct {
		call string
		want int
	}{
		{"G|G", 0},
		{"G|A", 1},
		{"A|G", 1},
		{"G|X", 1},
		{"A|A", 2},
		{"A|T", 2},
		{"GT", 1},
		{"g/t", 1},
		{"", Missing},
		{"NA", Missing},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			got, err := Dosage(tt.call, snp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDosage_Malformed(t *testing.T) {
	_, err := Dosage("G-T-A", SNP{ID: "rs1", WildType: "G"})
	assert.Error(t, err)
}

func TestDosageColumn_Missing(t *testing.T) {
	snp := SNP{ID: "rs1", WildType: "C"}

	col, err := DosageColumn([]string{"C|C", "", "C|T"}, snp, DefaultOnMissing)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 1}, col)

	_, err = DosageColumn([]string{"C|C", "NA"}, snp, Missing)
	assert.ErrorIs(t, err, ErrMissingGenotype)
}

func TestParseChrom(t *testing.T) {
	n, err := ParseChrom("chr7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = ParseChrom("X")
	require.NoError(t, err)
	assert.Equal(t, 23, n)

	_, err = ParseChrom("24")
	assert.Error(t, err)
	_, err = ParseChrom("MT")
	assert.Error(t, err)
}

func TestGroupByChromosome(t *testing.T) {
	snps := []SNP{
		{ID: "c", Chrom: 2, Pos: 50},
		{ID: "b", Chrom: 1, Pos: 200},
		{ID: "a", Chrom: 1, Pos: 100},
	}
	chroms := GroupByChromosome(snps)
	require.Len(t, chroms, 2)
	assert.Equal(t, 1, chroms[0].Number)
	assert.Equal(t, []string{"a", "b"}, IDs(chroms[0].SNPs))
	assert.Equal(t, []string{"c"}, IDs(chroms[1].SNPs))
}

func TestMatrix_SelectAndRows(t *testing.T) {
	m, err := NewMatrixFrom([]string{"s1", "s2", "s3"}, []string{"rs1", "rs2"},
		[]float64{0, 1, 2, 1, 1, 0})
	require.NoError(t, err)

	col, ok := m.Column("rs2")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 0}, col)

	sel, err := m.Select([]string{"rs2"})
	require.NoError(t, err)
	r, c := sel.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)

	_, err = m.Select([]string{"rs9"})
	assert.Error(t, err)

	sub := m.SelectRows([]int{2, 0})
	assert.Equal(t, []string{"s3", "s1"}, sub.Subjects())
	assert.Equal(t, []float64{1, 0}, sub.Row(0))

	clone := m.Clone()
	clone.Set(0, 0, 2)
	assert.Equal(t, 0.0, m.At(0, 0))
}

func TestMatrix_ShapeMismatch(t *testing.T) {
	_, err := NewMatrixFrom([]string{"s1"}, []string{"a", "b"}, []float64{1})
	assert.Error(t, err)
}

func TestCohort_Validate(t *testing.T) {
	d, _ := NewMatrixFrom([]string{"s1", "s2"}, []string{"rs1"}, []float64{0, 2})
	l, _ := NewMatrixFrom([]string{"s1", "s2"}, []string{"Imaging_x"}, []float64{0, 1})
	c := &Cohort{Dosages: d, Labels: l}
	require.NoError(t, c.Validate())

	l.Set(1, 0, 3)
	assert.Error(t, c.Validate())
}
