// Package output writes the tab-delimited result tables consumed by the
// reporting layer and the aligned console summary.
package output

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/snpko/internal/nulldist"
	"github.com/inodb/snpko/internal/univariate"
)

// TabWriter writes rows under a fixed header in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer, columns ...string) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w), columns: columns}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string { return tw.columns }

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	return tw.WriteRow(tw.columns)
}

// WriteRow writes one row of preformatted values.
func (tw *TabWriter) WriteRow(values []string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// formatFloat renders NaN as "NA".
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// ResultWriter writes the per-(label, fdr_type, SNP) result table.
type ResultWriter struct {
	*TabWriter
}

// NewResultWriter creates a result table writer.
func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{NewTabWriter(w,
		"label", "fdr_type", "SNP", "observed_frequency", "p_value",
		"uncorrected_p_value", "uncorrected_odds_ratio", "fdr", "significant")}
}

// Write writes a single result.
func (rw *ResultWriter) Write(r Result) error {
	sig := "N"
	if r.Significant {
		sig = "Y"
	}
	return rw.WriteRow([]string{
		r.Label,
		string(r.FDRType),
		r.SNP,
		formatFloat(r.Observed),
		formatFloat(r.PValue),
		formatFloat(r.UncorrectedP),
		formatFloat(r.UncorrectedOddsRatio),
		formatFloat(r.FDR),
		sig,
	})
}

// NullWriter writes the null-distribution table: one row per permutation
// trial and (label, fdr_type).
type NullWriter struct {
	*TabWriter
}

// NewNullWriter creates a null-distribution table writer.
func NewNullWriter(w io.Writer) *NullWriter {
	return &NullWriter{NewTabWriter(w, "label", "fdr_type", "trial", "max_observed_frequency")}
}

// Write writes a single null sample.
func (nw *NullWriter) Write(s nulldist.Sample) error {
	return nw.WriteRow([]string{s.Label, string(s.FDRType), strconv.Itoa(s.Trial), formatFloat(s.MaxObserved)})
}

// SummaryWriter writes per-(label, fdr_type) null-distribution summaries
// with the significance cutoff.
type SummaryWriter struct {
	*TabWriter
}

// NewSummaryWriter creates a null summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{NewTabWriter(w,
		"label", "fdr_type", "trials", "mean", "median", "std_dev", "max", "alpha", "cutoff")}
}

// Write writes one summary row.
func (sw *SummaryWriter) Write(s nulldist.Summary, alpha, cutoff float64) error {
	return sw.WriteRow([]string{
		s.Label,
		string(s.FDRType),
		strconv.Itoa(s.Trials),
		formatFloat(s.Mean),
		formatFloat(s.Median),
		formatFloat(s.StdDev),
		formatFloat(s.Max),
		formatFloat(alpha),
		formatFloat(cutoff),
	})
}

// UncorrectedWriter writes the univariate statistics table.
type UncorrectedWriter struct {
	*TabWriter
}

// NewUncorrectedWriter creates an uncorrected statistics writer.
func NewUncorrectedWriter(w io.Writer) *UncorrectedWriter {
	return &UncorrectedWriter{NewTabWriter(w,
		"SNP", "label", "uncorrected_p_value", "uncorrected_odds_ratio",
		"bonferroni_corrected_p_value", "empirical_ratio_with_label", "empirical_ratio_without_label")}
}

// Write writes one (SNP, label) row.
func (uw *UncorrectedWriter) Write(r univariate.Result) error {
	return uw.WriteRow([]string{
		r.SNP,
		r.Label,
		formatFloat(r.PValue),
		formatFloat(r.OddsRatio),
		formatFloat(r.Bonferroni),
		r.WithLabel.String(),
		r.WithoutLabel.String(),
	})
}

// ExpectedWriter writes the expected-appearance table.
type ExpectedWriter struct {
	*TabWriter
}

// NewExpectedWriter creates an expected-appearance writer.
func NewExpectedWriter(w io.Writer) *ExpectedWriter {
	return &ExpectedWriter{NewTabWriter(w, "SNP", "fdr_type", "expected_obs_freq", "fdr")}
}

// Write writes one row.
func (ew *ExpectedWriter) Write(e Expected, fdr float64) error {
	return ew.WriteRow([]string{e.SNP, string(e.FDRType), formatFloat(e.Expected), formatFloat(fdr)})
}
