// Package ucsc describes the column layouts of UCSC genome-database
// table dumps (https://hgdownload.soe.ucsc.edu/goldenPath/).  The
// dumps are headerless tab-separated text; each table type has a
// fixed column order, documented in the corresponding .sql file on
// the download server.  A Layout names the columns a downstream
// annotation track needs (chromosome, start, end) and the subset of
// columns to keep, so that a single converter can turn any of these
// tables into browser-ready BED.
//
// Column numbers are 1-based, matching the UCSC schema documentation
// and the conventions of cut(1) and tabix(1).
package ucsc

import (
	"fmt"
	"strings"
)

// Layout describes one UCSC table type.  MinFields is the smallest
// number of columns a valid row may have; rows may carry more (some
// mirrors append columns) and the extras are ignored unless Keep
// names them.  Keep lists the 1-based source columns to project into
// the output, in output order; a nil Keep keeps every column.
type Layout struct {
	Name      string
	MinFields int
	ChromCol  int
	StartCol  int
	EndCol    int
	Keep      []int
}

// SNP returns the layout of the dbSNP tables (snp150, snp151, ...).
// The full table has 26 columns; the first seven are
//   bin, chrom, chromStart, chromEnd, name, strand, refNCBI
// and projecting columns 2-7 yields a six-column BED with the rsID in
// the name field, which is the track format genome browsers expect.
func SNP() Layout {
	return Layout{
		Name:      "snp",
		MinFields: 7,
		ChromCol:  2,
		StartCol:  3,
		EndCol:    4,
		Keep:      []int{2, 3, 4, 5, 6, 7},
	}
}

// Cytoband returns the layout of the cytoBand table:
//   chrom, chromStart, chromEnd, name, gieStain
func Cytoband() Layout {
	return Layout{
		Name:      "cytoband",
		MinFields: 5,
		ChromCol:  1,
		StartCol:  2,
		EndCol:    3,
	}
}

// RefGene returns the layout of the refGene table.  The transcript
// span is txStart/txEnd; the gene symbol lives in column 13 (name2).
func RefGene() Layout {
	return Layout{
		Name:      "refgene",
		MinFields: 16,
		ChromCol:  3,
		StartCol:  5,
		EndCol:    6,
	}
}

// BED returns the layout of a plain BED file, for inputs that have
// already been projected but still carry UCSC chromosome names.
func BED() Layout {
	return Layout{
		Name:      "bed",
		MinFields: 3,
		ChromCol:  1,
		StartCol:  2,
		EndCol:    3,
	}
}

// FromName maps a layout name, as accepted on command lines, to its
// Layout.
func FromName(name string) (Layout, error) {
	switch strings.ToLower(name) {
	case "snp":
		return SNP(), nil
	case "cytoband":
		return Cytoband(), nil
	case "refgene":
		return RefGene(), nil
	case "bed":
		return BED(), nil
	}
	return Layout{}, fmt.Errorf("ucsc.FromName: unknown table layout %q (want snp, cytoband, refgene, or bed)", name)
}

// Validate checks that the layout is internally consistent: the
// coordinate columns must exist in every valid row and, when Keep is
// set, must survive the projection.
func (l Layout) Validate() error {
	if l.MinFields < 1 {
		return fmt.Errorf("ucsc.Validate: layout %s: MinFields must be positive", l.Name)
	}
	for _, col := range []int{l.ChromCol, l.StartCol, l.EndCol} {
		if col < 1 || col > l.MinFields {
			return fmt.Errorf("ucsc.Validate: layout %s: coordinate column %d outside [1, %d]",
				l.Name, col, l.MinFields)
		}
	}
	for _, col := range l.Keep {
		if col < 1 || col > l.MinFields {
			return fmt.Errorf("ucsc.Validate: layout %s: kept column %d outside [1, %d]",
				l.Name, col, l.MinFields)
		}
	}
	if l.Keep != nil {
		for _, col := range []int{l.ChromCol, l.StartCol, l.EndCol} {
			if l.keepIndex(col) == -1 {
				return fmt.Errorf("ucsc.Validate: layout %s: coordinate column %d dropped by projection",
					l.Name, col)
			}
		}
	}
	return nil
}

func (l Layout) keepIndex(col int) int {
	if l.Keep == nil {
		return col - 1
	}
	for i, k := range l.Keep {
		if k == col {
			return i
		}
	}
	return -1
}

// OutChromCol returns the 1-based position of the chromosome column
// after projection.  OutStartCol and OutEndCol do the same for the
// coordinate columns.  These are the values a tabix header wants.
func (l Layout) OutChromCol() int { return l.keepIndex(l.ChromCol) + 1 }

// OutStartCol returns the 1-based post-projection start column.
func (l Layout) OutStartCol() int { return l.keepIndex(l.StartCol) + 1 }

// OutEndCol returns the 1-based post-projection end column.
func (l Layout) OutEndCol() int { return l.keepIndex(l.EndCol) + 1 }
