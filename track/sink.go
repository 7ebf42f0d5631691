package track

import (
	"bufio"
	"hash"
	"io"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/bgzf"
	gbgzf "github.com/grailbio/trackprep/encoding/bgzf"
	"github.com/grailbio/trackprep/encoding/tabix"
	"github.com/grailbio/trackprep/sorter"
)

var newline = []byte{'\n'}

// WriterSink writes records as plain text, one line per record.  It
// is the uncompressed output path and the workhorse of tests.
type WriterSink struct {
	w   *bufio.Writer
	sum hash.Hash64
}

// NewWriterSink returns a WriterSink writing to w.  Closing the sink
// flushes buffered output but does not close w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w), sum: seahash.New()}
}

// Append implements Sink.
func (s *WriterSink) Append(rec Record) error {
	if _, err := s.w.Write(rec.Line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.sum.Write(rec.Line)
	s.sum.Write(newline)
	return nil
}

// Close implements Sink.
func (s *WriterSink) Close() error {
	return s.w.Flush()
}

// Checksum returns the seahash of the payload written so far.
func (s *WriterSink) Checksum() uint64 { return s.sum.Sum64() }

// BGZFSink writes records into a bgzf compressed stream without a
// positional index.  Compression is sharded over parallelism
// goroutines.
type BGZFSink struct {
	bw  *bgzf.Writer
	sum hash.Hash64
}

// NewBGZFSink returns a BGZFSink writing to w.  Closing the sink
// appends the bgzf terminator but does not close w.
func NewBGZFSink(w io.Writer, parallelism int) *BGZFSink {
	return &BGZFSink{bw: bgzf.NewWriter(w, parallelism), sum: seahash.New()}
}

// Append implements Sink.
func (s *BGZFSink) Append(rec Record) error {
	if _, err := s.bw.Write(rec.Line); err != nil {
		return err
	}
	if _, err := s.bw.Write(newline); err != nil {
		return err
	}
	s.sum.Write(rec.Line)
	s.sum.Write(newline)
	return nil
}

// Close implements Sink.
func (s *BGZFSink) Close() error {
	return s.bw.Close()
}

// Checksum returns the seahash of the uncompressed payload written so
// far.
func (s *BGZFSink) Checksum() uint64 { return s.sum.Sum64() }

// IndexedBGZFSink writes records into a bgzf compressed stream while
// building a tabix index over them.  Records must arrive grouped by
// chromosome with non-decreasing start coordinates; feed the sink
// through a SortingSink unless the input order is already known good.
//
// Compression is single threaded.  Building the index requires the
// virtual offset of every record, which rules out the sharded writer
// used by BGZFSink.
type IndexedBGZFSink struct {
	bw      *gbgzf.Writer
	builder *tabix.IndexBuilder
	sum     hash.Hash64
	index   *tabix.Index
}

// NewIndexedBGZFSink returns an IndexedBGZFSink writing bgzf data to
// w at the given gzip level.  config describes the record layout for
// the index.
func NewIndexedBGZFSink(w io.Writer, level int, config tabix.Config) (*IndexedBGZFSink, error) {
	bw, err := gbgzf.NewWriter(w, level)
	if err != nil {
		return nil, err
	}
	return &IndexedBGZFSink{
		bw:      bw,
		builder: tabix.NewIndexBuilder(config),
		sum:     seahash.New(),
	}, nil
}

// Append implements Sink.
func (s *IndexedBGZFSink) Append(rec Record) error {
	begin := s.bw.VOffset()
	if _, err := s.bw.Write(rec.Line); err != nil {
		return err
	}
	if _, err := s.bw.Write(newline); err != nil {
		return err
	}
	s.sum.Write(rec.Line)
	s.sum.Write(newline)
	chunk := tabix.Chunk{Begin: tabix.ToOffset(begin), End: tabix.ToOffset(s.bw.VOffset())}
	return s.builder.Add(string(rec.Chrom), int(rec.Start), int(rec.End), chunk)
}

// Close implements Sink.  It flushes the final block and appends the
// bgzf terminator; the completed index becomes available from Index.
func (s *IndexedBGZFSink) Close() error {
	if err := s.bw.Close(); err != nil {
		return err
	}
	s.index = s.builder.Finish()
	return nil
}

// Index returns the index built over the written records.
//
// REQUIRES: Close returned nil.
func (s *IndexedBGZFSink) Index() *tabix.Index { return s.index }

// Checksum returns the seahash of the uncompressed payload written so
// far.
func (s *IndexedBGZFSink) Checksum() uint64 { return s.sum.Sum64() }

// SortingSink buffers records through an external merge sort and
// forwards them to dst in (chromosome, start) order on Close.  It
// owns dst: closing the SortingSink drains the sorted stream into dst
// and then closes dst.
type SortingSink struct {
	sorter *sorter.Sorter
	dst    Sink
}

// NewSortingSink returns a SortingSink sorting into dst.
func NewSortingSink(dst Sink, opts sorter.Options) *SortingSink {
	return &SortingSink{sorter: sorter.New(opts), dst: dst}
}

// Append implements Sink.
func (s *SortingSink) Append(rec Record) error {
	s.sorter.Add(rec.Chrom, rec.Start, rec.End, rec.Line)
	return nil
}

// Close implements Sink.
func (s *SortingSink) Close() error {
	var e errors.Once
	m, ferr := s.sorter.Finish()
	if ferr != nil {
		e.Set(ferr)
		e.Set(s.dst.Close())
		return e.Err()
	}
	for m.Scan() {
		chrom, start, end, line := m.Record()
		if aerr := s.dst.Append(Record{Chrom: chrom, Start: start, End: end, Line: line}); aerr != nil {
			e.Set(aerr)
			break
		}
	}
	e.Set(m.Close())
	e.Set(s.dst.Close())
	return e.Err()
}
