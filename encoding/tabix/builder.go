package tabix

import (
	"fmt"
	"sort"

	"github.com/biogo/hts/bgzf"
)

// unsetInterval marks a linear index window no record has touched
// yet.  It cannot collide with a real virtual offset: offsets that
// large would imply a >2^47 byte compressed file.
const unsetInterval = ^uint64(0)

// IndexBuilder accumulates an Index from a stream of records.  The
// records must arrive in the data file's order, which in turn must be
// grouped by reference with non-decreasing begin coordinates within
// each reference; Add enforces both.  That is exactly the order the
// track sorter emits.
//
// Example:
//   b := tabix.NewIndexBuilder(tabix.BEDConfig())
//   for each record written to the bgzf data file {
//     err := b.Add(chrom, beg, end, tabix.Chunk{Begin: ..., End: ...})
//   }
//   index := b.Finish()
//   err := index.Write(w)
type IndexBuilder struct {
	index   *Index
	nameIDs map[string]int

	cur      *refBuilder
	lastBeg  int
	finished bool
}

type refBuilder struct {
	name      string
	bins      map[uint32]*Bin
	intervals []uint64
	meta      Metadata
}

// NewIndexBuilder returns an IndexBuilder for a data file with the
// given layout.
func NewIndexBuilder(config Config) *IndexBuilder {
	return &IndexBuilder{
		index:   &Index{Config: config},
		nameIDs: make(map[string]int),
	}
}

// Add indexes one record.  chrom names the reference sequence, [beg,
// end) is the record's zero-based half-open coordinate range, and
// chunk spans the record's bytes in the data file as virtual offsets.
func (b *IndexBuilder) Add(chrom string, beg, end int, chunk Chunk) error {
	if b.finished {
		return fmt.Errorf("tabix.Add: Finish already called")
	}
	if end <= beg {
		// Zero length records still occupy one position in the index.
		end = beg + 1
	}
	if !validIndexPos(beg) || !validIndexPos(end-1) {
		return fmt.Errorf("tabix.Add: %s:[%d,%d) outside the indexable range", chrom, beg, end)
	}
	if b.cur == nil || b.cur.name != chrom {
		if _, seen := b.nameIDs[chrom]; seen {
			return fmt.Errorf("tabix.Add: records for %s are not contiguous", chrom)
		}
		b.flushRef()
		b.nameIDs[chrom] = len(b.index.Names)
		b.index.Names = append(b.index.Names, chrom)
		b.cur = &refBuilder{
			name: chrom,
			bins: make(map[uint32]*Bin),
			meta: Metadata{RefBegin: FromOffset(chunk.Begin)},
		}
		b.lastBeg = beg
	}
	if beg < b.lastBeg {
		return fmt.Errorf("tabix.Add: %s:%d after %s:%d, input is not position sorted",
			chrom, beg, chrom, b.lastBeg)
	}
	b.lastBeg = beg

	r := b.cur
	r.meta.NumRecords++
	if v := FromOffset(chunk.End); v > r.meta.RefEnd {
		r.meta.RefEnd = v
	}

	// Binning index.
	binNum := reg2bin(beg, end)
	bin := r.bins[binNum]
	if bin == nil {
		bin = &Bin{BinNum: binNum}
		r.bins[binNum] = bin
	}
	if n := len(bin.Chunks); n > 0 && FromOffset(chunk.Begin) <= FromOffset(bin.Chunks[n-1].End) {
		// Adjacent or overlapping chunks collapse into one.
		if FromOffset(chunk.End) > FromOffset(bin.Chunks[n-1].End) {
			bin.Chunks[n-1].End = chunk.End
		}
	} else {
		bin.Chunks = append(bin.Chunks, chunk)
	}

	// Linear index: every 16 kbp window the record overlaps gets the
	// record's begin offset unless an earlier record already claimed
	// the window.
	for win := beg >> intervalShift; win <= (end-1)>>intervalShift; win++ {
		for win >= len(r.intervals) {
			r.intervals = append(r.intervals, unsetInterval)
		}
		if r.intervals[win] == unsetInterval {
			r.intervals[win] = FromOffset(chunk.Begin)
		}
	}
	return nil
}

func (b *IndexBuilder) flushRef() {
	if b.cur == nil {
		return
	}
	r := b.cur
	ref := Reference{
		Bins: make([]Bin, 0, len(r.bins)),
		Meta: r.meta,
	}
	for _, bin := range r.bins {
		ref.Bins = append(ref.Bins, *bin)
	}
	sort.Slice(ref.Bins, func(i, j int) bool { return ref.Bins[i].BinNum < ref.Bins[j].BinNum })

	// Forward fill untouched windows so a reader can use any window as
	// a lower bound.
	prev := uint64(0)
	ref.Intervals = make([]bgzf.Offset, len(r.intervals))
	for i, v := range r.intervals {
		if v == unsetInterval {
			v = prev
		}
		ref.Intervals[i] = ToOffset(v)
		prev = v
	}
	b.index.Refs = append(b.index.Refs, ref)
	b.cur = nil
}

// Finish returns the completed Index.  The builder becomes invalid
// after the call.
func (b *IndexBuilder) Finish() *Index {
	b.flushRef()
	b.finished = true
	b.index.buildNameIDs()
	return b.index
}
