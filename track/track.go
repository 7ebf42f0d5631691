// Package track converts UCSC genome-database table dumps into
// annotation tracks for genome browsers running on references with
// bare chromosome names (GRCh37/hs37d5 style).  The conversion is a
// streaming per-line transform: project the configured columns,
// strip the UCSC "chr" prefix from the chromosome column, and hand
// the record to an output sink.  Prep wraps the transform in the full
// pipeline: fetch, decompress, convert, sort, block-compress, and
// index.
//
// The converter itself is stateless and order preserving; one valid
// input line becomes exactly one output record, with every field
// other than the chromosome passed through byte for byte.
package track

import (
	"github.com/grailbio/base/log"
)

// Record is one converted annotation record, handed to a Sink.  Line
// is the full output line without a trailing newline; Chrom, Start
// and End are the parsed coordinate fields of Line, with Chrom
// already renamed.  The byte slices alias buffers owned by the
// converter and are valid only until Append returns.
type Record struct {
	Chrom []byte
	Start int64
	End   int64
	Line  []byte
}

// Sink consumes converted records.  Append is called once per record
// in input order; Close is called once after the last record, even
// when no records were appended.
type Sink interface {
	Append(rec Record) error
	Close() error
}

// MalformedPolicy selects what the converter does with rows that
// violate the table layout (too few columns, unparseable
// coordinates).
type MalformedPolicy int

const (
	// FailOnMalformed aborts the conversion with an error naming the
	// offending line.  This is the default: a truncated download is
	// far more likely than a legitimately ragged UCSC dump.
	FailOnMalformed MalformedPolicy = iota
	// SkipMalformed drops such rows and counts them in
	// Stats.Malformed.
	SkipMalformed
)

// Stats summarizes one conversion.
type Stats struct {
	// Lines is the number of input lines read, including skipped ones.
	Lines int64
	// Records is the number of records emitted to the sink.
	Records int64
	// Skipped is the number of comment and blank lines.
	Skipped int64
	// Malformed is the number of rows dropped under SkipMalformed.
	Malformed int64
}

func (s Stats) log(src string) {
	log.Printf("%s: %d lines, %d records, %d comment/blank, %d malformed",
		src, s.Lines, s.Records, s.Skipped, s.Malformed)
}

// Rename rewrites chromosome names.  TrimPrefix is removed from the
// front of the name when present; Aliases then maps whole names to
// replacements.  The zero value leaves names untouched.
type Rename struct {
	TrimPrefix string
	Aliases    map[string]string
}

// UCSCToEnsembl returns the default rename for UCSC inputs: strip
// the literal "chr" prefix and change nothing else, so chr1 becomes
// 1 and an already bare name passes through.  Applying it to its own
// output is a no-op.
func UCSCToEnsembl() Rename {
	return Rename{TrimPrefix: "chr"}
}

// HS37d5 returns the rename for the hs37d5 reference build: the
// "chr" strip plus the mitochondrion naming fix, since UCSC calls
// the contig chrM while hs37d5 calls it MT.
func HS37d5() Rename {
	return Rename{
		TrimPrefix: "chr",
		Aliases:    map[string]string{"M": "MT"},
	}
}

// Apply returns the renamed form of chrom.  The result aliases either
// chrom or the Aliases table; the caller must not modify it.
func (r Rename) Apply(chrom []byte) []byte {
	// string(...) in a comparison does not allocate.
	if p := r.TrimPrefix; p != "" && len(chrom) >= len(p) && string(chrom[:len(p)]) == p {
		chrom = chrom[len(p):]
	}
	if len(r.Aliases) > 0 {
		if alias, ok := r.Aliases[string(chrom)]; ok {
			return []byte(alias)
		}
	}
	return chrom
}
