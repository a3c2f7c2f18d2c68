package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/snpko/internal/genotype"
)

// ColSubject names the optional subject identifier column.
const ColSubject = "id"

// GenotypeOptions controls how raw genotype tables are converted to dosages.
type GenotypeOptions struct {
	// LabelPrefix selects label columns; empty means the table has no labels.
	LabelPrefix string
	// OnMissing is the dosage imputed for missing calls; genotype.Missing makes them fatal.
	OnMissing int
}

// ReadGenotypes reads a table of diploid genotype calls ("G|T") and converts
// every column naming a known SNP into a dosage column. Columns that are
// neither known SNPs, labels, nor the subject id are ignored.
func ReadGenotypes(path string, snps []genotype.SNP, opts GenotypeOptions) (*genotype.Cohort, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	known := make(map[string]genotype.SNP, len(snps))
	for _, s := range snps {
		known[s.ID] = s
	}

	subjectCol, hasSubject := r.Index(ColSubject)
	var snpCols, labelCols []int
	for i, h := range r.Header() {
		switch {
		case hasSubject && i == subjectCol:
		case opts.LabelPrefix != "" && strings.HasPrefix(h, opts.LabelPrefix):
			labelCols = append(labelCols, i)
		default:
			if _, ok := known[h]; ok {
				snpCols = append(snpCols, i)
			}
		}
	}

	var subjects []string
	calls := make([][]string, len(snpCols))
	labels := make([][]float64, len(labelCols))
	for {
		fields, err := r.Next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		subject := fmt.Sprintf("subject_%d", len(subjects))
		if hasSubject {
			subject = fields[subjectCol]
		}
		subjects = append(subjects, subject)

		for k, i := range snpCols {
			calls[k] = append(calls[k], fields[i])
		}
		for k, i := range labelCols {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, r.errorf("label %s: invalid value %q", r.Header()[i], fields[i])
			}
			labels[k] = append(labels[k], v)
		}
	}

	snpNames := make([]string, len(snpCols))
	for k, i := range snpCols {
		snpNames[k] = r.Header()[i]
	}
	dosages := genotype.NewMatrix(subjects, snpNames)
	for k, name := range snpNames {
		col, err := genotype.DosageColumn(calls[k], known[name], opts.OnMissing)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		dosages.SetCol(k, col)
	}

	c := &genotype.Cohort{Dosages: dosages}
	if opts.LabelPrefix != "" {
		labelNames := make([]string, len(labelCols))
		for k, i := range labelCols {
			labelNames[k] = r.Header()[i]
		}
		c.Labels = genotype.NewMatrix(subjects, labelNames)
		for k := range labelNames {
			c.Labels.SetCol(k, labels[k])
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
