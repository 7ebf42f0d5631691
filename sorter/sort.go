// Package sorter implements an external merge sort for annotation
// track records.  Positional indexing requires records grouped by
// chromosome with non-decreasing start coordinates, and UCSC table
// dumps carry no such guarantee, so every record stream passes
// through this package before compression.
//
// Records are accumulated into in-memory batches.  Full batches are
// handed to background goroutines that sort them and spill them to
// snappy-compressed temp shard files; Finish then returns a Merger
// that streams the union of all shards in sorted order via an N-way
// merge.
//
// The sort order is: chromosome name in byte order, then start
// coordinate, then the full record line in byte order.  The order is
// a total one over record contents, so the output is deterministic
// regardless of input order or batch boundaries.
//
// Example:
//   s := sorter.New(sorter.Options{})
//   for each record {
//     s.Add(chrom, start, end, line)
//   }
//   m, err := s.Finish()
//   for m.Scan() {
//     use m.Record()
//   }
//   err = m.Close()
package sorter

import (
	"bytes"
	"io/ioutil"
	"os"
	"sort"
	"sync"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"v.io/x/lib/vlog"
)

// DefaultBatchSize is the default number of records to keep in
// memory before resorting to external sorting.
const DefaultBatchSize = 1 << 20

// DefaultParallelism is the default value for Options.Parallelism.
const DefaultParallelism = 2

// Options controls a Sorter.
type Options struct {
	// BatchSize is the number of records to keep in memory before
	// spilling a sorted shard to disk.  Not for general use; the
	// default value should suffice for most applications.
	BatchSize int

	// Parallelism limits the number of background sorts.  Max memory
	// consumption of the sorter grows linearly with this value.  If
	// <= 0, DefaultParallelism is used.
	Parallelism int

	// NoCompressTmpFiles, if false (default), compresses temp shards
	// using snappy.  Compression is a big win on an EC2 EBS.  It will
	// slow sort down by a minor degree on fast NVMe disks.
	NoCompressTmpFiles bool

	// TmpDir defines the directory to store temp files created during
	// the sort.  "" means the system default, usually /tmp.
	TmpDir string
}

// sortEntry is one record with its sort key broken out.  chrom and
// line are owned by the entry.  end rides along for the index builder
// downstream; it is not part of the sort key since the line text
// already embeds it.
type sortEntry struct {
	chrom []byte
	start int64
	end   int64
	line  []byte
}

// Return -1, 0, 1 if e < other, e == other, e > other, respectively.
func (e sortEntry) compare(other sortEntry) int {
	if c := bytes.Compare(e.chrom, other.chrom); c != 0 {
		return c
	}
	if e.start < other.start {
		return -1
	}
	if e.start > other.start {
		return 1
	}
	return bytes.Compare(e.line, other.line)
}

// Sorter sorts annotation records.  Add records with Add, then call
// Finish to obtain the merged sorted stream.  Add and Finish must be
// called from a single goroutine.
type Sorter struct {
	options Options
	recs    []sortEntry
	err     errors.Once
	batchCh chan []sortEntry

	wg     sync.WaitGroup
	mu     sync.Mutex
	shards []string // pathnames of temp shard files.
}

// New creates a Sorter object.
func New(options Options) *Sorter {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	if options.Parallelism <= 0 {
		options.Parallelism = DefaultParallelism
	}
	vlog.VI(1).Infof("New sorter: %+v", options)
	s := &Sorter{
		options: options,
		batchCh: make(chan []sortEntry, options.Parallelism),
	}
	for i := 0; i < options.Parallelism; i++ {
		s.wg.Add(1)
		go func() {
			for batch := range s.batchCh {
				path := s.sortAndSpill(batch)
				s.mu.Lock()
				s.shards = append(s.shards, path)
				s.mu.Unlock()
			}
			s.wg.Done()
		}()
	}
	return s
}

// Add adds one record.  chrom is the record's chromosome name, start
// and end its 0-based half-open coordinates, and line the full output
// line without a trailing newline.  The sorter copies chrom and line;
// the caller may reuse the slices.
func (s *Sorter) Add(chrom []byte, start, end int64, line []byte) {
	e := sortEntry{
		chrom: append([]byte(nil), chrom...),
		start: start,
		end:   end,
		line:  append([]byte(nil), line...),
	}
	s.recs = append(s.recs, e)
	if len(s.recs) >= s.options.BatchSize {
		s.batchCh <- s.recs
		s.recs = nil
	}
}

func (s *Sorter) sortAndSpill(recs []sortEntry) string {
	vlog.VI(1).Infof("Sorting %d records", len(recs))
	temp, err := ioutil.TempFile(s.options.TmpDir, "tracksort")
	if err != nil {
		s.err.Set(err)
		return ""
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].compare(recs[j]) < 0
	})
	w := newShardWriter(temp, !s.options.NoCompressTmpFiles)
	for _, e := range recs {
		if err := w.write(e); err != nil {
			s.err.Set(err)
			break
		}
	}
	s.err.Set(w.close())
	s.err.Set(temp.Close())
	return temp.Name()
}

// Finish flushes pending records, waits for background sorts, and
// returns a Merger over the sorted stream.  The Sorter becomes
// invalid after the call.  The caller must Close the Merger to
// release the temp shards.
func (s *Sorter) Finish() (*Merger, error) {
	if len(s.recs) > 0 {
		s.batchCh <- s.recs
		s.recs = nil
	}
	close(s.batchCh)
	s.wg.Wait()
	if err := s.err.Err(); err != nil {
		removeShards(s.shards)
		return nil, err
	}
	m := newMerger(s.shards, !s.options.NoCompressTmpFiles, &s.err)
	return m, nil
}

func removeShards(shards []string) {
	for _, path := range shards {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil {
			vlog.Errorf("sort %v: failed to remove temp shard: %v", path, err)
		}
	}
}

// mergeLeaf is one shard in the merge tree.  seq distinguishes leafs
// whose current keys compare equal.
type mergeLeaf struct {
	seq    int
	reader *shardReader
}

func (l *mergeLeaf) Compare(c1 llrb.Comparable) int {
	l1 := c1.(*mergeLeaf)
	if c := l.reader.entry().compare(l1.reader.entry()); c != 0 {
		return c
	}
	return l.seq - l1.seq
}

// Merger streams records from sorted temp shards in merged order.
//
// Example:
//   for m.Scan() {
//     chrom, start, end, line := m.Record()
//   }
//   err := m.Close()
type Merger struct {
	shards  []string
	readers []*shardReader
	leafs   llrb.Tree
	cur     sortEntry
	err     *errors.Once
}

func newMerger(shards []string, compressed bool, err *errors.Once) *Merger {
	m := &Merger{shards: shards, err: err}
	for i, path := range shards {
		if path == "" {
			continue
		}
		r := newShardReader(path, compressed, err)
		m.readers = append(m.readers, r)
		if r.scan() {
			m.leafs.Insert(&mergeLeaf{seq: i, reader: r})
		}
	}
	vlog.VI(1).Infof("Merging %d shards, %d leafs active", len(shards), m.leafs.Len())
	return m
}

// Scan advances the Merger to the next record in sort order.  It
// returns false at the end of the stream or on error.
func (m *Merger) Scan() bool {
	if m.leafs.Len() == 0 || m.err.Err() != nil {
		return false
	}
	// The minimum leaf holds the next record.  Tree order is
	// maintained by reinserting the leaf after it advances.
	top := m.leafs.Min().(*mergeLeaf)
	m.cur = top.reader.entry()
	m.leafs.DeleteMin()
	if top.reader.scan() {
		m.leafs.Insert(top)
	}
	return true
}

// Record returns the current record.  The returned slices are valid
// until the next call to Scan.
//
// REQUIRES: Scan() returned true.
func (m *Merger) Record() (chrom []byte, start, end int64, line []byte) {
	return m.cur.chrom, m.cur.start, m.cur.end, m.cur.line
}

// Err returns the first error encountered by the sort or the merge.
func (m *Merger) Err() error {
	return m.err.Err()
}

// Close releases the shard readers and removes the temp shards.
func (m *Merger) Close() error {
	for _, r := range m.readers {
		r.close()
	}
	removeShards(m.shards)
	return m.err.Err()
}
