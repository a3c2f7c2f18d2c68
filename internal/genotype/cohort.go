package genotype

import (
	"fmt"
)

// Cohort pairs a dosage matrix with binary labels for the same subjects.
// Labels stay with their subjects when dosages are substituted.
type Cohort struct {
	Dosages *Matrix
	Labels  *Matrix
}

// Validate checks that dosages and labels describe the same subjects, that
// dosages are in {0,1,2} and labels in {0,1}.
func (c *Cohort) Validate() error {
	dr, dc := c.Dosages.Dims()
	if c.Labels != nil {
		lr, lc := c.Labels.Dims()
		if lr != dr {
			return fmt.Errorf("cohort has %d dosage rows but %d label rows", dr, lr)
		}
		for i := 0; i < lr; i++ {
			for j := 0; j < lc; j++ {
				if v := c.Labels.At(i, j); v != 0 && v != 1 {
					return fmt.Errorf("label %s has non-binary value %v at row %d",
						c.Labels.Columns()[j], v, i)
				}
			}
		}
	}
	for i := 0; i < dr; i++ {
		for j := 0; j < dc; j++ {
			if v := c.Dosages.At(i, j); v != 0 && v != 1 && v != 2 {
				return fmt.Errorf("dosage %s has value %v at row %d",
					c.Dosages.Columns()[j], v, i)
			}
		}
	}
	return nil
}

// LabelNames returns the label column names.
func (c *Cohort) LabelNames() []string {
	if c.Labels == nil {
		return nil
	}
	return c.Labels.Columns()
}

// Label returns the values of one label column.
func (c *Cohort) Label(name string) ([]float64, bool) {
	if c.Labels == nil {
		return nil, false
	}
	return c.Labels.Column(name)
}
