package fasta

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type faiEntry struct {
	length    uint64
	offset    uint64
	lineBases uint64
	lineWidth uint64
}

type indexedFasta struct {
	r        io.ReadSeeker
	seqs     map[string]faiEntry
	seqNames []string
	mu       sync.Mutex
}

// NewIndexed returns a Fasta that random-accesses fasta through the
// .fai index read from index, without loading sequence data into
// memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	f := &indexedFasta{r: fasta, seqs: make(map[string]faiEntry)}
	scanner := bufio.NewScanner(index)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 5 {
			return nil, errors.Errorf("fai:%d: got %d fields, want 5", line, len(fields))
		}
		var (
			entry faiEntry
			err   error
		)
		for i, dst := range []*uint64{&entry.length, &entry.offset, &entry.lineBases, &entry.lineWidth} {
			if *dst, err = strconv.ParseUint(fields[i+1], 10, 64); err != nil {
				return nil, errors.Wrapf(err, "fai:%d: field %d", line, i+2)
			}
		}
		if entry.lineBases == 0 || entry.lineWidth <= entry.lineBases {
			return nil, errors.Errorf("fai:%d: bad line geometry %d/%d",
				line, entry.lineBases, entry.lineWidth)
		}
		name := fields[0]
		if _, ok := f.seqs[name]; ok {
			return nil, errors.Errorf("fai:%d: duplicate sequence %s", line, name)
		}
		f.seqs[name] = entry
		f.seqNames = append(f.seqNames, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading fai")
	}
	return f, nil
}

// fileOffset maps the 0-based base position pos to its byte offset in
// the FASTA file.
func (e faiEntry) fileOffset(pos uint64) int64 {
	return int64(e.offset + pos/e.lineBases*e.lineWidth + pos%e.lineBases)
}

// Get implements Fasta.
func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	entry, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start || end > entry.length {
		return "", errors.Errorf("invalid range [%d, %d) for sequence %s of length %d",
			start, end, seqName, entry.length)
	}
	off := entry.fileOffset(start)
	n := entry.fileOffset(end-1) + 1 - off
	raw := make([]byte, n)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.r.Seek(off, io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "seek %s:%d", seqName, start)
	}
	if _, err := io.ReadFull(f.r, raw); err != nil {
		return "", errors.Wrapf(err, "read %s:[%d, %d)", seqName, start, end)
	}
	// Drop the line terminators that fell inside the byte range.
	bases := raw[:0]
	for _, c := range raw {
		if c != '\n' && c != '\r' {
			bases = append(bases, c)
		}
	}
	if uint64(len(bases)) != end-start {
		return "", errors.Errorf("sequence %s: index geometry does not match file", seqName)
	}
	return string(bases), nil
}

// Len implements Fasta.
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	entry, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return entry.length, nil
}

// SeqNames implements Fasta.
func (f *indexedFasta) SeqNames() []string { return f.seqNames }
