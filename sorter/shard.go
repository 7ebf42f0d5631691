package sorter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
)

// Temp shard format: a flat sequence of records with no padding,
// snappy-framed unless NoCompressTmpFiles is set.  Each record is
//
//   chromLen uint32
//   lineLen  uint32
//   start    uint64
//   end      uint64
//   chrom    [chromLen]byte
//   line     [lineLen]byte
//
// Shards are private to one process and carry no header or trailer;
// the sorter knows how it wrote them.
const shardRecordHeaderSize = 24

// shardWriter writes sorted entries to a temp shard.  The underlying
// file is owned by the caller.
type shardWriter struct {
	sw  *snappy.Writer
	bw  *bufio.Writer
	w   io.Writer
	hdr [shardRecordHeaderSize]byte
}

func newShardWriter(f *os.File, compress bool) *shardWriter {
	w := &shardWriter{}
	if compress {
		w.sw = snappy.NewBufferedWriter(f)
		w.w = w.sw
	} else {
		w.bw = bufio.NewWriter(f)
		w.w = w.bw
	}
	return w
}

func (w *shardWriter) write(e sortEntry) error {
	binary.LittleEndian.PutUint32(w.hdr[0:4], uint32(len(e.chrom)))
	binary.LittleEndian.PutUint32(w.hdr[4:8], uint32(len(e.line)))
	binary.LittleEndian.PutUint64(w.hdr[8:16], uint64(e.start))
	binary.LittleEndian.PutUint64(w.hdr[16:24], uint64(e.end))
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(e.chrom); err != nil {
		return err
	}
	_, err := w.w.Write(e.line)
	return err
}

func (w *shardWriter) close() error {
	if w.sw != nil {
		return w.sw.Close()
	}
	return w.bw.Flush()
}

// shardReader reads entries back from a temp shard.  Any error is
// reported through the shared error reporter; scan returns false on
// EOF or error.
type shardReader struct {
	path string
	f    *os.File
	r    io.Reader
	err  *errors.Once
	cur  sortEntry
	hdr  [shardRecordHeaderSize]byte
}

func newShardReader(path string, compressed bool, err *errors.Once) *shardReader {
	r := &shardReader{path: path, err: err}
	f, e := os.Open(path)
	if e != nil {
		err.Set(e)
		return r
	}
	r.f = f
	if compressed {
		r.r = snappy.NewReader(f)
	} else {
		r.r = bufio.NewReader(f)
	}
	return r
}

// scan reads the next entry.  Each entry gets fresh backing slices,
// so entries remain valid after subsequent scans.
func (r *shardReader) scan() bool {
	if r.r == nil || r.err.Err() != nil {
		return false
	}
	if _, e := io.ReadFull(r.r, r.hdr[:]); e != nil {
		if e != io.EOF {
			r.err.Set(fmt.Errorf("sorter: %s: reading shard record header: %v", r.path, e))
		}
		return false
	}
	chromLen := binary.LittleEndian.Uint32(r.hdr[0:4])
	lineLen := binary.LittleEndian.Uint32(r.hdr[4:8])
	r.cur.start = int64(binary.LittleEndian.Uint64(r.hdr[8:16]))
	r.cur.end = int64(binary.LittleEndian.Uint64(r.hdr[16:24]))
	buf := make([]byte, chromLen+lineLen)
	if _, e := io.ReadFull(r.r, buf); e != nil {
		r.err.Set(fmt.Errorf("sorter: %s: truncated shard record: %v", r.path, e))
		return false
	}
	r.cur.chrom = buf[:chromLen:chromLen]
	r.cur.line = buf[chromLen:]
	return true
}

// entry returns the current entry.
//
// REQUIRES: scan() returned true.
func (r *shardReader) entry() sortEntry {
	return r.cur
}

func (r *shardReader) close() {
	if r.f != nil {
		r.err.Set(r.f.Close())
	}
}
