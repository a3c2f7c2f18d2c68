package output

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// ReportWriter prints an aligned console table of results.
type ReportWriter struct {
	w           *tabwriter.Writer
	total       int
	significant int
	showAll     bool // if false, only show significant results
}

// NewReportWriter creates a console report writer.
func NewReportWriter(w io.Writer, showAll bool) *ReportWriter {
	return &ReportWriter{
		w:       tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		showAll: showAll,
	}
}

// WriteHeader writes the report header.
func (rw *ReportWriter) WriteHeader() error {
	_, err := fmt.Fprintln(rw.w, "Label\tFDR\tSNP\tObserved\tP_value\tSignificant")
	return err
}

// Write writes a result, skipping non-significant ones unless showAll is set.
func (rw *ReportWriter) Write(r Result) error {
	rw.total++
	sig := "N"
	if r.Significant {
		rw.significant++
		sig = "Y"
	}
	if !rw.showAll && !r.Significant {
		return nil
	}
	_, err := fmt.Fprintf(rw.w, "%s\t%s\t%s\t%.1f%%\t%s\t%s\n",
		r.Label, r.FDRType, r.SNP, 100*r.Observed, formatFloat(r.PValue), sig)
	return err
}

// Flush flushes the writer.
func (rw *ReportWriter) Flush() error {
	return rw.w.Flush()
}

// Summary returns result counts.
func (rw *ReportWriter) Summary() (total, significant int) {
	return rw.total, rw.significant
}

// WriteSummary writes a summary of the reported results.
func (rw *ReportWriter) WriteSummary(w io.Writer, obsFreq float64) {
	rate := float64(0)
	if rw.total > 0 {
		rate = float64(rw.significant) / float64(rw.total) * 100
	}
	fmt.Fprintf(w, "\nSelection Summary:\n")
	fmt.Fprintf(w, "  Selected SNPs:     %d\n", rw.total)
	fmt.Fprintf(w, "  Above %.0f%%:        %d (%.1f%%)\n", 100*obsFreq, rw.significant, rate)
}
