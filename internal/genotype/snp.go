// Package genotype provides SNP facts, the dosage transform and named dosage
// matrices for experimental and reference cohorts.
package genotype

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxChromosome is the highest chromosome number accepted (23 = X).
const MaxChromosome = 23

// SNP represents a single-nucleotide variant site.
type SNP struct {
	ID       string // e.g. "rs12345"
	Chrom    int    // 1-23
	Pos      int64  // 1-based position on the chromosome
	WildType string // wild-type allele(s), e.g. "G"
}

// IsWildType reports whether an allele matches one of the SNP's wild-type alleles.
func (s SNP) IsWildType(allele byte) bool {
	return strings.IndexByte(s.WildType, allele) >= 0
}

// String returns "rs12345 (chr1:1000)".
func (s SNP) String() string {
	return fmt.Sprintf("%s (chr%d:%d)", s.ID, s.Chrom, s.Pos)
}

// ParseChrom parses a chromosome name ("7", "chr7", "X") into its number.
func ParseChrom(name string) (int, error) {
	name = strings.TrimSpace(name)
	if len(name) > 3 && strings.EqualFold(name[:3], "chr") {
		name = name[3:]
	}
	if strings.EqualFold(name, "X") {
		return MaxChromosome, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, fmt.Errorf("invalid chromosome %q", name)
	}
	if n < 1 || n > MaxChromosome {
		return 0, fmt.Errorf("chromosome %d out of range 1-%d", n, MaxChromosome)
	}
	return n, nil
}

// Chromosome holds the SNPs of one chromosome ordered by position.
type Chromosome struct {
	Number int
	SNPs   []SNP
}

// GroupByChromosome groups SNPs by chromosome. Chromosomes are returned in
// ascending order and SNPs within each chromosome sorted by position.
func GroupByChromosome(snps []SNP) []Chromosome {
	byChrom := make(map[int][]SNP)
	for _, s := range snps {
		byChrom[s.Chrom] = append(byChrom[s.Chrom], s)
	}

	numbers := make([]int, 0, len(byChrom))
	for n := range byChrom {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	chroms := make([]Chromosome, 0, len(numbers))
	for _, n := range numbers {
		list := byChrom[n]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Pos < list[j].Pos })
		chroms = append(chroms, Chromosome{Number: n, SNPs: list})
	}
	return chroms
}

// IDs returns the SNP ids in order.
func IDs(snps []SNP) []string {
	ids := make([]string, len(snps))
	for i, s := range snps {
		ids[i] = s.ID
	}
	return ids
}
