// Package tabix reads and writes .tbi positional indexes over
// bgzf-compressed, coordinate-sorted text files such as BED
// annotation tracks.  A .tbi file maps genomic ranges to virtual
// offsets in the compressed data file, which lets a reader serve a
// range query by decompressing only the blocks that can contain
// overlapping records.
//
// The format is defined in https://samtools.github.io/hts-specs/tabix.pdf.
// It reuses the .bai indexing scheme: positions are 29-bit, records
// are distributed over a six-level binning hierarchy (bins 0-37448),
// and a linear index holds the least virtual offset of the records
// overlapping each 16 kbp window.  Bin 37450 is a pseudo bin carrying
// per-reference metadata.  The index payload is itself bgzf
// compressed.
//
// The data file layout (which columns hold the sequence name and
// coordinates, the comment character, lines to skip) is described by
// a Config, stored in the index so that query tools need no further
// knowledge of the table type.
package tabix

import (
	"github.com/biogo/hts/bgzf"
)

// Format values for Config.Format.  FlagZeroBased marks the
// coordinate convention as BED-like (0-based, half-open); without it
// coordinates are interpreted as 1-based, closed.
const (
	FormatGeneric = 0
	FormatSAM     = 1
	FormatVCF     = 2
	FlagZeroBased = 0x10000
)

// metaBin is the pseudo bin number holding per-reference metadata.
const metaBin = 37450

// Config describes the layout of the indexed data file.  Column
// numbers are 1-based.  An EndCol of 0 means the record end is
// derived from the begin column.
type Config struct {
	Format   int32
	NameCol  int32
	BeginCol int32
	EndCol   int32
	Meta     byte
	Skip     int32
}

// GenericConfig returns a Config for a generic zero-based tab
// separated file with the given 1-based coordinate columns and '#'
// comment lines.
func GenericConfig(nameCol, beginCol, endCol int) Config {
	return Config{
		Format:   FormatGeneric | FlagZeroBased,
		NameCol:  int32(nameCol),
		BeginCol: int32(beginCol),
		EndCol:   int32(endCol),
		Meta:     '#',
	}
}

// BEDConfig returns the Config for a plain BED file.
func BEDConfig() Config {
	return GenericConfig(1, 2, 3)
}

// Index represents the content of a .tbi index file.
type Index struct {
	Config Config
	// Names lists the reference sequence names in the order their
	// records appear in the data file.  The position in Names is the
	// reference ID used by Refs.
	Names []string
	Refs  []Reference
	// NoCoor is the number of records without coordinates.
	NoCoor uint64

	nameIDs map[string]int
}

// Reference holds the index data for a single reference sequence.
type Reference struct {
	// Bins is sorted by BinNum and excludes the metadata pseudo bin.
	Bins []Bin
	// Intervals is the linear index: the least virtual offset of the
	// records overlapping each 16 kbp window.
	Intervals []bgzf.Offset
	Meta      Metadata
}

// Bin represents one bin of the .tbi binning hierarchy.
type Bin struct {
	BinNum uint32
	Chunks []Chunk
}

// Chunk is a [Begin, End) range of virtual offsets in the data file.
type Chunk struct {
	Begin bgzf.Offset
	End   bgzf.Offset
}

// Metadata represents the pseudo bin contents for one reference.
type Metadata struct {
	// RefBegin and RefEnd are the virtual offsets spanning the
	// reference's records in the data file.
	RefBegin uint64
	RefEnd   uint64
	// NumRecords is the number of records indexed for the reference.
	// NumUnplaced is kept for format compatibility and is always zero
	// for tracks written by this package.
	NumRecords  uint64
	NumUnplaced uint64
}

// RefID returns the reference ID for a name, or -1 if the index has
// no records for it.
func (i *Index) RefID(name string) int {
	if id, ok := i.nameIDs[name]; ok {
		return id
	}
	return -1
}

func (i *Index) buildNameIDs() {
	i.nameIDs = make(map[string]int, len(i.Names))
	for id, name := range i.Names {
		i.nameIDs[name] = id
	}
}

// ToOffset converts a uint64 virtual offset into a bgzf.Offset.
func ToOffset(voffset uint64) bgzf.Offset {
	return bgzf.Offset{File: int64(voffset >> 16), Block: uint16(voffset)}
}

// FromOffset converts a bgzf.Offset into a uint64 virtual offset.
func FromOffset(offset bgzf.Offset) uint64 {
	return uint64(offset.File)<<16 | uint64(offset.Block)
}

// The binning constants below follow the SAM/BAM specification;
// positions are limited to 29 bits and each level of the hierarchy
// widens bins by a factor of 8.
const (
	indexWordBits = 29
	nextBinShift  = 3
	// intervalShift is the log2 width of a linear index window.
	intervalShift = 14
)

func validIndexPos(i int) bool { return 0 <= i && i <= (1<<indexWordBits-1)-1 } // 0-based.

const (
	level0 = uint32(((1 << (iota * nextBinShift)) - 1) / 7)
	level1
	level2
	level3
	level4
	level5
)

const (
	level0Shift = indexWordBits - (iota * nextBinShift)
	level1Shift
	level2Shift
	level3Shift
	level4Shift
	level5Shift
)

// reg2bin computes the smallest bin fully containing the zero-based,
// half-open region [beg, end).
func reg2bin(beg, end int) uint32 {
	end--
	switch {
	case beg>>level5Shift == end>>level5Shift:
		return level5 + uint32(beg>>level5Shift)
	case beg>>level4Shift == end>>level4Shift:
		return level4 + uint32(beg>>level4Shift)
	case beg>>level3Shift == end>>level3Shift:
		return level3 + uint32(beg>>level3Shift)
	case beg>>level2Shift == end>>level2Shift:
		return level2 + uint32(beg>>level2Shift)
	case beg>>level1Shift == end>>level1Shift:
		return level1 + uint32(beg>>level1Shift)
	}
	return level0
}

// reg2bins returns the list of bins that may hold records overlapping
// the zero-based, half-open region [beg, end).
func reg2bins(beg, end int) []uint32 {
	end--
	list := []uint32{level0}
	for _, r := range []struct {
		offset uint32
		shift  uint
	}{
		{level1, level1Shift},
		{level2, level2Shift},
		{level3, level3Shift},
		{level4, level4Shift},
		{level5, level5Shift},
	} {
		for k := r.offset + uint32(beg>>r.shift); k <= r.offset+uint32(end>>r.shift); k++ {
			list = append(list, k)
		}
	}
	return list
}
