package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inodb/snpko/internal/knockoff"
	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/table"
)

const (
	testFacts = `SNP,chromosome,chromosome_position,wild_type
rs1,1,100,G
rs2,2,200,A
`
	testExperiment = `id,rs1,rs2,Imaging_a
s0,G|G,A|A,1
s1,G|T,A|A,0
s2,T|T,A|C,1
s3,G|G,C|C,0
s4,G|T,A|A,1
s5,T|T,A|C,0
s6,G|G,C|C,1
s7,G|T,A|A,0
`
	testReference = `id,rs1,rs2
r0,G|G,A|A
r1,G|T,A|C
r2,T|T,C|C
r3,G|G,A|A
r4,G|T,A|C
r5,T|T,C|C
r6,G|G,A|A
r7,G|T,A|C
r8,T|T,C|C
r9,G|G,A|A
`
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeCoefficients writes trials tables with the same label row.
func writeCoefficients(t *testing.T, dir string, trials int, row []float64) {
	t.Helper()
	for trial := 0; trial < trials; trial++ {
		ct := &knockoff.CoefficientTable{
			Trial:   trial,
			Columns: []string{"rs1", "rs1_knockoff", "rs2", "rs2_knockoff"},
			Labels:  []string{"Imaging_a"},
			Values:  [][]float64{row},
		}
		require.NoError(t, table.WriteCoefficients(coefficientPath(dir, trial), ct))
	}
}

func testSettings(dir string) settings {
	return settings{
		WorkDir:           dir,
		FDR:               0.5,
		LocusThreshold:    0.5,
		CorrelationSource: "experimental",
		Seed:              123,
		KnockoffTrials:    4,
		PSamples:          2,
		PThresh:           0.05,
		ObsFreq:           0.5,
		Workers:           2,
		DataPrefix:        "Imaging",
	}
}

func TestPipeline(t *testing.T) {
	dir := t.TempDir()
	a := &app{logger: zaptest.NewLogger(t)}
	s := testSettings(dir)

	facts := writeTestFile(t, dir, "facts.csv", testFacts)
	input := writeTestFile(t, dir, "experiment.csv", testExperiment)
	ref := writeTestFile(t, dir, "reference.csv", testReference)

	require.NoError(t, runPrune(a, s, facts, input, ref))
	pruned, err := table.ReadSNPFacts(filepath.Join(dir, prunedFactsFile))
	require.NoError(t, err)
	assert.Len(t, pruned, 2)
	assert.FileExists(t, filepath.Join(dir, lociFile))

	// rs1 beats its knockoff in every trial; rs2 loses to its knockoff.
	results := resultsDir(s)
	writeCoefficients(t, results, s.KnockoffTrials, []float64{5, 0, 0, 1})
	freqPath := filepath.Join(results, nulldist.FrequencyFile)
	require.NoError(t, runFilter(a, s, results, freqPath))

	freqs, err := table.ReadFrequencies(freqPath)
	require.NoError(t, err)
	require.Len(t, freqs, 1)
	assert.Equal(t, knockoff.Frequency{Label: "Imaging_a", FDRType: knockoff.MFDR, SNP: "rs1", Observed: 1}, freqs[0])

	require.NoError(t, runPermute(t.Context(), a, s))
	for p := 0; p < s.PSamples; p++ {
		trialDir := nulldist.TrialDir(dir, p)
		assert.FileExists(t, filepath.Join(trialDir, prunedExperimentFile))
		assert.FileExists(t, filepath.Join(trialDir, prunedReferenceFile))

		writeCoefficients(t, trialDir, s.KnockoffTrials, []float64{1, 0, 0, 0})
		require.NoError(t, runFilter(a, s, trialDir, nulldist.TrialFrequencyPath(dir, p)))
	}
	assert.FileExists(t, filepath.Join(dir, archiveDirName, "original.gob"))

	require.NoError(t, runNull(a, s))
	assert.FileExists(t, filepath.Join(results, "null_hypothesis.tsv"))
	assert.FileExists(t, filepath.Join(results, "null_summary.tsv"))

	var stdout bytes.Buffer
	require.NoError(t, runStats(a, s, freqPath, true, false, &stdout))
	assert.Contains(t, stdout.String(), "rs1")
	for _, name := range []string{
		"uncorrected.tsv", "exploratory.tsv", "all_results.tsv",
		"sig_results.tsv", "sig_max.tsv", "expected_appearance.tsv",
	} {
		assert.FileExists(t, filepath.Join(results, name))
	}
}

func TestPermute_ReusesTrialInputs(t *testing.T) {
	dir := t.TempDir()
	a := &app{logger: zaptest.NewLogger(t)}
	s := testSettings(dir)
	s.PSamples = 1

	facts := writeTestFile(t, dir, "facts.csv", testFacts)
	input := writeTestFile(t, dir, "experiment.csv", testExperiment)
	ref := writeTestFile(t, dir, "reference.csv", testReference)
	require.NoError(t, runPrune(a, s, facts, input, ref))
	require.NoError(t, runPermute(t.Context(), a, s))

	path := filepath.Join(nulldist.TrialDir(dir, 0), prunedExperimentFile)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, runPermute(t.Context(), a, s))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPrune_WritesDroppedSNPs(t *testing.T) {
	dir := t.TempDir()
	a := &app{logger: zaptest.NewLogger(t)}
	s := testSettings(dir)

	facts := writeTestFile(t, dir, "facts.csv", testFacts+"rs3,3,300,C\n")
	input := writeTestFile(t, dir, "experiment.csv", testExperiment)
	ref := writeTestFile(t, dir, "reference.csv", testReference)
	require.NoError(t, runPrune(a, s, facts, input, ref))

	r, err := table.Open(filepath.Join(dir, droppedFile))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{table.ColSNP, "reason"}, r.Header())
	row, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "rs3", row[0])
	assert.NotEmpty(t, row[1])
	row, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestPermute_WritesPreparedTrial(t *testing.T) {
	dir := t.TempDir()
	a := &app{logger: zaptest.NewLogger(t)}
	s := testSettings(dir)
	s.PSamples = 1

	facts := writeTestFile(t, dir, "facts.csv", testFacts)
	input := writeTestFile(t, dir, "experiment.csv", testExperiment)
	ref := writeTestFile(t, dir, "reference.csv", testReference)
	require.NoError(t, runPrune(a, s, facts, input, ref))
	require.NoError(t, runPermute(t.Context(), a, s))

	archive, err := loadArchive(s, a.logger)
	require.NoError(t, err)
	fg, bg, err := nulldist.Prepare(archive, s.Seed, 0)
	require.NoError(t, err)

	gotFG, err := table.ReadCohort(filepath.Join(nulldist.TrialDir(dir, 0), prunedExperimentFile), s.DataPrefix)
	require.NoError(t, err)
	gotBG, err := table.ReadMatrix(filepath.Join(nulldist.TrialDir(dir, 0), prunedReferenceFile))
	require.NoError(t, err)
	assert.Equal(t, fg.Dosages.Values(), gotFG.Dosages.Values())
	assert.Equal(t, fg.Labels.Values(), gotFG.Labels.Values())
	assert.Equal(t, bg.Subjects(), gotBG.Subjects())
}

func TestPermute_RequiresPrunedInputs(t *testing.T) {
	a := &app{logger: zaptest.NewLogger(t)}
	err := runPermute(t.Context(), a, testSettings(t.TempDir()))
	assert.ErrorContains(t, err, "snpko prune")
}

func TestStats_WithoutNullSamples(t *testing.T) {
	dir := t.TempDir()
	a := &app{logger: zaptest.NewLogger(t)}
	s := testSettings(dir)

	facts := writeTestFile(t, dir, "facts.csv", testFacts)
	input := writeTestFile(t, dir, "experiment.csv", testExperiment)
	ref := writeTestFile(t, dir, "reference.csv", testReference)
	require.NoError(t, runPrune(a, s, facts, input, ref))

	results := resultsDir(s)
	writeCoefficients(t, results, s.KnockoffTrials, []float64{5, 0, 0, 1})
	freqPath := filepath.Join(results, nulldist.FrequencyFile)
	require.NoError(t, runFilter(a, s, results, freqPath))

	var stdout bytes.Buffer
	require.NoError(t, runStats(a, s, freqPath, true, true, &stdout))
	assert.Contains(t, stdout.String(), "NA")
}

func TestFilter_MissingTrial(t *testing.T) {
	dir := t.TempDir()
	a := &app{logger: zaptest.NewLogger(t)}
	s := testSettings(dir)
	writeCoefficients(t, dir, s.KnockoffTrials-1, []float64{5, 0, 0, 1})

	err := runFilter(a, s, dir, filepath.Join(dir, "out.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseConfigValue(t *testing.T) {
	assert.Equal(t, true, parseConfigValue("yes"))
	assert.Equal(t, false, parseConfigValue("off"))
	assert.Equal(t, int64(100), parseConfigValue("100"))
	assert.Equal(t, 0.2, parseConfigValue("0.2"))
	assert.Equal(t, "reference", parseConfigValue("reference"))
	assert.True(t, knownKey("fdr"))
	assert.False(t, knownKey("annotations"))
}
