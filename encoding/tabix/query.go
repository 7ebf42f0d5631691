package tabix

import (
	"sort"
)

// Chunks returns the merged list of data file chunks that may contain
// records overlapping the zero-based, half-open region [beg, end) on
// the named reference.  A nil result means the index holds no records
// for the region.  Reading the returned chunks in order and filtering
// by exact coordinates yields every overlapping record.
func (i *Index) Chunks(chrom string, beg, end int) []Chunk {
	id := i.RefID(chrom)
	if id < 0 {
		return nil
	}
	ref := i.Refs[id]
	if beg < 0 {
		beg = 0
	}
	if beg >= 1<<indexWordBits {
		return nil
	}
	// Clamping keeps a whole-chromosome query from walking bin
	// numbers that cannot exist.
	if end > 1<<indexWordBits {
		end = 1 << indexWordBits
	}
	if end <= beg {
		end = beg + 1
	}

	// The linear index bounds the search: records in a candidate bin
	// that end before the first record of the query's 16 kbp window
	// cannot overlap the query.
	var minOff uint64
	if len(ref.Intervals) > 0 {
		win := beg >> intervalShift
		if win >= len(ref.Intervals) {
			win = len(ref.Intervals) - 1
		}
		minOff = FromOffset(ref.Intervals[win])
	}

	var chunks []Chunk
	for _, binNum := range reg2bins(beg, end) {
		n := sort.Search(len(ref.Bins), func(j int) bool { return ref.Bins[j].BinNum >= binNum })
		if n == len(ref.Bins) || ref.Bins[n].BinNum != binNum {
			continue
		}
		for _, c := range ref.Bins[n].Chunks {
			if FromOffset(c.End) > minOff {
				chunks = append(chunks, c)
			}
		}
	}
	sort.Slice(chunks, func(a, b int) bool {
		return FromOffset(chunks[a].Begin) < FromOffset(chunks[b].Begin)
	})

	var merged []Chunk
	for _, c := range chunks {
		if n := len(merged); n > 0 && FromOffset(c.Begin) <= FromOffset(merged[n-1].End) {
			if FromOffset(c.End) > FromOffset(merged[n-1].End) {
				merged[n-1].End = c.End
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}
