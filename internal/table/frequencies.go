package table

import (
	"fmt"
	"strconv"

	"github.com/inodb/snpko/internal/knockoff"
)

// Selection-frequency table columns.
const (
	ColFDRType           = "fdr_type"
	ColObservedFrequency = "observed_frequency"
)

// ReadFrequencies reads a selection-frequency table.
func ReadFrequencies(path string) ([]knockoff.Frequency, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idx, err := r.Require(ColLabel, ColFDRType, ColSNP, ColObservedFrequency)
	if err != nil {
		return nil, err
	}

	var out []knockoff.Frequency
	for {
		fields, err := r.Next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return out, nil
		}

		f := knockoff.FDRType(fields[idx[1]])
		if f != knockoff.MFDR && f != knockoff.CFDR {
			return nil, r.errorf("unknown fdr_type %q", fields[idx[1]])
		}
		v, err := strconv.ParseFloat(fields[idx[3]], 64)
		if err != nil || v < 0 || v > 1 {
			return nil, r.errorf("invalid observed_frequency %q", fields[idx[3]])
		}
		out = append(out, knockoff.Frequency{
			Label:    fields[idx[0]],
			FDRType:  f,
			SNP:      fields[idx[2]],
			Observed: v,
		})
	}
}

// WriteFrequencies writes a selection-frequency table in the layout
// ReadFrequencies reads.
func WriteFrequencies(path string, freqs []knockoff.Frequency) error {
	w, err := Create(path, []string{ColLabel, ColFDRType, ColSNP, ColObservedFrequency})
	if err != nil {
		return err
	}
	for _, f := range freqs {
		row := []string{f.Label, string(f.FDRType), f.SNP, strconv.FormatFloat(f.Observed, 'g', -1, 64)}
		if err := w.Write(row); err != nil {
			w.Close()
			return fmt.Errorf("write frequency %s/%s/%s: %w", f.Label, f.FDRType, f.SNP, err)
		}
	}
	return w.Close()
}
