// Package tquery serves region queries over tabix indexed annotation
// tracks: a bgzf compressed, coordinate sorted text file plus its
// .tbi companion.  A query seeks straight to the blocks the index
// names, so a single-locus lookup on a multi-gigabyte track
// decompresses a few KB.
//
// Example:
//   r, err := tquery.Open("snp150.bed.gz", "")
//   it, err := r.QueryRegion("1:10000-10100")
//   for it.Scan() {
//     _, _, _, line := it.Record()
//   }
//   err = it.Err()
//   err = r.Close()
package tquery

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/biogo/hts/bgzf"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/trackprep/encoding/tabix"
	"github.com/grailbio/trackprep/interval"
)

// Reader serves queries over one track.  It is not safe for
// concurrent use; open one Reader per goroutine.
type Reader struct {
	in    file.File
	bg    *bgzf.Reader
	buf   *bufio.Reader
	index *tabix.Index
}

// Open opens the track at trackPath with its index at indexPath; an
// empty indexPath means trackPath + ".tbi".  The paths may be local
// or any scheme the file package supports.
func Open(trackPath, indexPath string) (*Reader, error) {
	ctx := vcontext.Background()
	if indexPath == "" {
		indexPath = trackPath + ".tbi"
	}
	idxIn, err := file.Open(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	index, err := tabix.Read(idxIn.Reader(ctx))
	if cerr := idxIn.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.E(err, "reading index:", indexPath)
	}
	in, err := file.Open(ctx, trackPath)
	if err != nil {
		return nil, err
	}
	bg, err := bgzf.NewReader(in.Reader(ctx), 1)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, "opening track:", trackPath)
	}
	return &Reader{
		in:    in,
		bg:    bg,
		buf:   bufio.NewReader(bg),
		index: index,
	}, nil
}

// Index returns the track's index.
func (r *Reader) Index() *tabix.Index { return r.index }

// Refs returns the chromosome names the track contains, in file
// order.
func (r *Reader) Refs() []string { return r.index.Names }

// Close releases the track file.  Any open iterator becomes invalid.
func (r *Reader) Close() error {
	err := r.bg.Close()
	if cerr := r.in.Close(vcontext.Background()); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Query returns an iterator over the records overlapping the
// zero-based, half-open range [beg, end) of chrom.  The iterator is
// valid until the next Query on the same Reader.
func (r *Reader) Query(chrom string, beg, end int) *Iter {
	it := &Iter{r: r, chrom: chrom, beg: beg, end: end}
	chunks := r.index.Chunks(chrom, beg, end)
	if len(chunks) == 0 {
		it.done = true
		return it
	}
	// One linear scan from the first candidate chunk.  Records are
	// position sorted, so the scan ends at the first record starting
	// at or past the query end; for a local query that is a handful
	// of blocks.
	if err := r.bg.Seek(chunks[0].Begin); err != nil {
		it.err = errors.E(err, "seeking track:", chrom)
		it.done = true
		return it
	}
	r.buf.Reset(r.bg)
	return it
}

// QueryRegion queries a samtools style region string: "chrom",
// "chrom:pos", or "chrom:first-last" with 1-based inclusive
// positions.
func (r *Reader) QueryRegion(region string) (*Iter, error) {
	ent, err := interval.ParseRegionString(region)
	if err != nil {
		return nil, err
	}
	return r.Query(ent.ChrName, int(ent.Start0), int(ent.End)), nil
}

// Iter iterates over the records matching one query.
type Iter struct {
	r        *Reader
	chrom    string
	beg, end int
	done     bool
	err      error
	line     []byte
	recChrom []byte
	recBeg   int
	recEnd   int
	fields   [][2]int
}

// Scan advances to the next matching record, returning false at the
// end of the matches or on error.
func (it *Iter) Scan() bool {
	if it.done || it.err != nil {
		return false
	}
	for {
		line, rerr := it.r.buf.ReadBytes('\n')
		if rerr != nil && rerr != io.EOF {
			it.err = rerr
			return false
		}
		if rerr == io.EOF {
			it.done = true
			if len(line) == 0 {
				return false
			}
		}
		if n := len(line); n > 0 && line[n-1] == '\n' {
			line = line[:n-1]
		}
		match, err := it.match(line)
		if err != nil {
			it.err = err
			return false
		}
		if match {
			it.line = line
			return true
		}
		if it.done {
			return false
		}
	}
}

// match parses line against the index config and reports whether it
// overlaps the query.  A record at or past the query end finishes the
// iteration.
func (it *Iter) match(line []byte) (bool, error) {
	cfg := &it.r.index.Config
	if len(line) == 0 || (cfg.Meta != 0 && line[0] == cfg.Meta) {
		return false, nil
	}
	maxCol := int(cfg.NameCol)
	if int(cfg.BeginCol) > maxCol {
		maxCol = int(cfg.BeginCol)
	}
	if int(cfg.EndCol) > maxCol {
		maxCol = int(cfg.EndCol)
	}
	if cap(it.fields) < maxCol {
		it.fields = make([][2]int, maxCol)
	}
	fields := it.fields[:maxCol]
	if nf := splitColumns(fields, line); nf < maxCol {
		return false, fmt.Errorf("tquery: malformed record %q: %d columns, want at least %d",
			line, nf, maxCol)
	}
	col := func(c int32) []byte {
		f := fields[c-1]
		return line[f[0]:f[1]]
	}
	name := col(cfg.NameCol)
	if gunsafe.BytesToString(name) != it.chrom {
		// Records are grouped by chromosome; a different name means
		// the query chromosome's records are exhausted.
		it.done = true
		return false, nil
	}
	beg, err := strconv.Atoi(gunsafe.BytesToString(col(cfg.BeginCol)))
	if err != nil {
		return false, fmt.Errorf("tquery: malformed record %q: bad begin coordinate", line)
	}
	if cfg.Format&tabix.FlagZeroBased == 0 {
		beg--
	}
	if beg >= it.end {
		it.done = true
		return false, nil
	}
	end := beg + 1
	if cfg.EndCol > 0 {
		if end, err = strconv.Atoi(gunsafe.BytesToString(col(cfg.EndCol))); err != nil {
			return false, fmt.Errorf("tquery: malformed record %q: bad end coordinate", line)
		}
	}
	if end <= it.beg {
		return false, nil
	}
	it.recChrom, it.recBeg, it.recEnd = name, beg, end
	return true, nil
}

// Record returns the current record's coordinates and full line
// without the trailing newline.  The slices are valid until the next
// call to Scan.
//
// REQUIRES: Scan() returned true.
func (it *Iter) Record() (chrom []byte, beg, end int, line []byte) {
	return it.recChrom, it.recBeg, it.recEnd, it.line
}

// Err returns the first error encountered by the iteration.
func (it *Iter) Err() error { return it.err }

// splitColumns writes the [start, end) offsets of up to len(fields)
// leading tab separated columns of line, returning the count found.
// Empty columns are kept.
func splitColumns(fields [][2]int, line []byte) int {
	n := 0
	start := 0
	for pos := 0; pos <= len(line); pos++ {
		if pos == len(line) || line[pos] == '\t' {
			fields[n] = [2]int{start, pos}
			n++
			start = pos + 1
			if n == len(fields) || pos == len(line) {
				break
			}
		}
	}
	return n
}
