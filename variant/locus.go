// Package variant resolves dbSNP rsIDs to genomic loci on the hs37d5
// reference build through public REST APIs (MyVariant.info and the
// Ensembl GRCh37 archive).  hs37d5 is the 1000 Genomes Project
// reference: GRCh37 primary assembly plus decoy sequences, so for
// the standard chromosomes its coordinates are exactly GRCh37/hg19.
//
// Chromosome names are stored bare (1, not chr1), matching the
// naming convention of the prepared annotation tracks.
package variant

import (
	"fmt"
	"strings"
)

// Build is the reference build every Locus refers to.
const Build = "hs37d5"

// Locus is the resolved position of one rsID.
type Locus struct {
	// RSID is the normalized rsID, always with the "rs" prefix.
	RSID string
	// Chrom is the bare chromosome name (1..22, X, Y, MT).
	Chrom string
	// Pos is the 1-based position of the variant.
	Pos int64
	// Ref is the reference allele, possibly empty.
	Ref string
	// Alts are the alternate alleles, possibly empty.
	Alts []string
	// Build is always the package-level Build constant.
	Build string
}

func (l Locus) alleles() string {
	ref, alt := l.Ref, strings.Join(l.Alts, ",")
	if ref == "" {
		ref = "N/A"
	}
	if alt == "" {
		alt = "N/A"
	}
	return ref + "/" + alt
}

// String renders the locus in the bare hs37d5 style, e.g.
// "1:12345 (A/G)".
func (l Locus) String() string {
	return fmt.Sprintf("%s:%d (%s)", l.Chrom, l.Pos, l.alleles())
}

// UCSCString renders the locus in the prefixed UCSC style, e.g.
// "chr1:12345 (A/G)".
func (l Locus) UCSCString() string {
	return fmt.Sprintf("chr%s:%d (%s)", l.Chrom, l.Pos, l.alleles())
}

// NormalizeRSID returns rsid with the "rs" prefix added when it is
// missing, so bare numeric IDs are accepted.
func NormalizeRSID(rsid string) string {
	if !strings.HasPrefix(rsid, "rs") {
		return "rs" + rsid
	}
	return rsid
}
