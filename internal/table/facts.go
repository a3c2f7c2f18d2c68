package table

import (
	"fmt"
	"strconv"

	"github.com/inodb/snpko/internal/genotype"
)

// SNP fact table columns.
const (
	ColSNP                = "SNP"
	ColChromosome         = "chromosome"
	ColChromosomePosition = "chromosome_position"
	ColWildType           = "wild_type"
)

// ReadSNPFacts reads a positional SNP-fact table
// (SNP, chromosome, chromosome_position, wild_type).
func ReadSNPFacts(path string) ([]genotype.SNP, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idx, err := r.Require(ColSNP, ColChromosome, ColChromosomePosition, ColWildType)
	if err != nil {
		return nil, err
	}

	var snps []genotype.SNP
	seen := make(map[string]bool)
	for {
		fields, err := r.Next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}

		id := fields[idx[0]]
		if seen[id] {
			return nil, r.errorf("duplicate SNP %s", id)
		}
		seen[id] = true

		chrom, err := genotype.ParseChrom(fields[idx[1]])
		if err != nil {
			return nil, r.errorf("%s: %v", id, err)
		}
		pos, err := strconv.ParseInt(fields[idx[2]], 10, 64)
		if err != nil {
			return nil, r.errorf("%s: invalid position %q", id, fields[idx[2]])
		}
		if fields[idx[3]] == "" {
			return nil, r.errorf("%s: empty wild type", id)
		}

		snps = append(snps, genotype.SNP{
			ID:       id,
			Chrom:    chrom,
			Pos:      pos,
			WildType: fields[idx[3]],
		})
	}
	return snps, nil
}

// WriteSNPFacts writes SNP facts in the layout read by ReadSNPFacts.
func WriteSNPFacts(path string, snps []genotype.SNP) error {
	w, err := Create(path, []string{ColSNP, ColWildType, ColChromosome, ColChromosomePosition})
	if err != nil {
		return err
	}
	for _, s := range snps {
		if err := w.Write([]string{s.ID, s.WildType, strconv.Itoa(s.Chrom), strconv.FormatInt(s.Pos, 10)}); err != nil {
			w.Close()
			return fmt.Errorf("write snp %s: %w", s.ID, err)
		}
	}
	return w.Close()
}
