// Package fasta prepares reference FASTA files for genome browsers
// and reads them back.  The write side is Rewrite, which renames
// sequence headers (UCSC chr1 to bare 1, say), re-wraps the sequence
// lines to a uniform width, and emits the matching .fai index in a
// single pass.  The read side is the Fasta interface with an
// in-memory implementation and an indexed one that random-accesses
// the file through its .fai.
//
// The .fai format is the one defined by samtools faidx
// (http://www.htslib.org/doc/faidx.html): one tab-separated line per
// sequence with name, length, byte offset of the first base, bases
// per line, and bytes per line.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Fasta is read access to a set of named sequences.
type Fasta interface {
	// Get returns the bases of the named sequence in the 0-based
	// half-open range [start, end).  Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the named sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns all sequence names in file order.
	SeqNames() []string
}

// headerName extracts the sequence name from a header line (without
// the leading '>'): the characters up to the first space.  Any
// description after the space is not part of the name.
func headerName(header []byte) string {
	if i := bytes.IndexByte(header, ' '); i >= 0 {
		return string(header[:i])
	}
	return string(header)
}

type memFasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all FASTA data from r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string]string)}
	var (
		name string
		seq  strings.Builder
		seen bool
	)
	flush := func() error {
		if _, ok := f.seqs[name]; ok {
			return errors.Errorf("duplicate sequence %s", name)
		}
		f.seqs[name] = seq.String()
		f.seqNames = append(f.seqNames, name)
		seq.Reset()
		return nil
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSuffix(scanner.Bytes(), []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if seen {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			name = headerName(line[1:])
			if name == "" {
				return nil, errors.New("empty sequence name")
			}
			seen = true
			continue
		}
		if !seen {
			return nil, errors.New("sequence data before first header")
		}
		seq.Write(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading FASTA")
	}
	if !seen {
		return nil, errors.New("empty FASTA file")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// Get implements Fasta.
func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start || end > uint64(len(s)) {
		return "", errors.Errorf("invalid range [%d, %d) for sequence %s of length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Fasta.
func (f *memFasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.
func (f *memFasta) SeqNames() []string { return f.seqNames }
