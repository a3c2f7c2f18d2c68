package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/snpko/internal/genotype"
)

// ReadCohort reads a numeric table (dosages, knockoff trials). Columns that
// start with labelPrefix become labels; an empty prefix yields no labels.
func ReadCohort(path, labelPrefix string) (*genotype.Cohort, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	subjectCol, hasSubject := r.Index(ColSubject)
	var valueCols, labelCols []int
	for i, h := range r.Header() {
		switch {
		case hasSubject && i == subjectCol:
		case labelPrefix != "" && strings.HasPrefix(h, labelPrefix):
			labelCols = append(labelCols, i)
		default:
			valueCols = append(valueCols, i)
		}
	}

	var subjects []string
	var values, labels []float64
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

		for _, i := range valueCols {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, r.errorf("column %s: invalid value %q", r.Header()[i], fields[i])
			}
			values = append(values, v)
		}
		for _, i := range labelCols {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, r.errorf("label %s: invalid value %q", r.Header()[i], fields[i])
			}
			labels = append(labels, v)
		}
	}

	dosages, err := genotype.NewMatrixFrom(subjects, names(r.Header(), valueCols), values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c := &genotype.Cohort{Dosages: dosages}
	if labelPrefix != "" {
		c.Labels, err = genotype.NewMatrixFrom(subjects, names(r.Header(), labelCols), labels)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return c, nil
}

// ReadMatrix reads a numeric table with no label columns.
func ReadMatrix(path string) (*genotype.Matrix, error) {
	c, err := ReadCohort(path, "")
	if err != nil {
		return nil, err
	}
	return c.Dosages, nil
}

// WriteCohort writes subject ids, dosage columns and (if present) label columns.
func WriteCohort(path string, c *genotype.Cohort) error {
	header := append([]string{ColSubject}, c.Dosages.Columns()...)
	if c.Labels != nil {
		header = append(header, c.Labels.Columns()...)
	}

	w, err := Create(path, header)
	if err != nil {
		return err
	}

	rows, _ := c.Dosages.Dims()
	for i := 0; i < rows; i++ {
		fields := []string{c.Dosages.Subjects()[i]}
		fields = appendValues(fields, c.Dosages.Row(i))
		if c.Labels != nil {
			fields = appendValues(fields, c.Labels.Row(i))
		}
		if err := w.Write(fields); err != nil {
			w.Close()
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return w.Close()
}

// WriteMatrix writes a numeric table with no label columns.
func WriteMatrix(path string, m *genotype.Matrix) error {
	return WriteCohort(path, &genotype.Cohort{Dosages: m})
}

func appendValues(fields []string, values []float64) []string {
	for _, v := range values {
		fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return fields
}

func names(header []string, cols []int) []string {
	out := make([]string, len(cols))
	for k, i := range cols {
		out[k] = header[i]
	}
	return out
}
