package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// DefaultLineWidth is the sequence line width Rewrite uses when the
// caller passes width <= 0.  60 is what samtools and most reference
// distributions emit.
const DefaultLineWidth = 60

// RewriteStats summarizes one Rewrite pass.
type RewriteStats struct {
	// Seqs is the number of sequences written.
	Seqs int
	// Bases is the total number of bases written.
	Bases int64
	// Renamed is the number of sequences whose name changed.
	Renamed int
}

// Rewrite streams the FASTA data from in to out, renaming each
// sequence with rename and re-wrapping sequence lines to width bases
// (DefaultLineWidth if width <= 0).  It writes the .fai index of the
// rewritten output to faiOut in the same pass; the offsets in the
// index refer to the output, not the input, since renaming and
// re-wrapping both move them.
//
// Header descriptions (text after the first space) are preserved.
// rename may be nil, which keeps every name.  Duplicate post-rename
// names and sequences with no bases are errors.
func Rewrite(out, faiOut io.Writer, in io.Reader, rename func(string) string, width int) (RewriteStats, error) {
	if width <= 0 {
		width = DefaultLineWidth
	}
	if rename == nil {
		rename = func(name string) string { return name }
	}
	var (
		stats   RewriteStats
		w       = bufio.NewWriter(out)
		fai     = tsv.NewWriter(faiOut)
		seen    = make(map[string]bool)
		name    string
		outOff  int64 // bytes written to out so far
		seqOff  int64 // offset of the current sequence's first base
		nBases  int64 // bases written for the current sequence
		col     int   // bases on the current output line
		started bool
	)
	write := func(b []byte) error {
		n, err := w.Write(b)
		outOff += int64(n)
		return err
	}
	// flush ends the current sequence: terminates a partial line and
	// appends the sequence's .fai row.
	flush := func() error {
		if nBases == 0 {
			return errors.Errorf("sequence %s has no bases", name)
		}
		if col > 0 {
			if err := write([]byte{'\n'}); err != nil {
				return err
			}
			col = 0
		}
		fai.WriteString(name)
		fai.WriteInt64(nBases)
		fai.WriteInt64(seqOff)
		fai.WriteInt64(int64(width))
		fai.WriteInt64(int64(width) + 1)
		if err := fai.EndLine(); err != nil {
			return err
		}
		stats.Seqs++
		stats.Bases += nBases
		return nil
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(nil, 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSuffix(scanner.Bytes(), []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if started {
				if err := flush(); err != nil {
					return stats, err
				}
			}
			old := headerName(line[1:])
			if old == "" {
				return stats, errors.New("empty sequence name")
			}
			name = rename(old)
			if name != old {
				stats.Renamed++
			}
			if seen[name] {
				return stats, errors.Errorf("duplicate sequence %s after renaming", name)
			}
			seen[name] = true
			header := []byte{'>'}
			header = append(header, name...)
			if i := bytes.IndexByte(line, ' '); i >= 0 {
				header = append(header, line[i:]...)
			}
			header = append(header, '\n')
			if err := write(header); err != nil {
				return stats, err
			}
			seqOff = outOff
			nBases = 0
			started = true
			continue
		}
		if !started {
			return stats, errors.New("sequence data before first header")
		}
		for len(line) > 0 {
			n := width - col
			if n > len(line) {
				n = len(line)
			}
			if err := write(line[:n]); err != nil {
				return stats, err
			}
			nBases += int64(n)
			col += n
			line = line[n:]
			if col == width {
				if err := write([]byte{'\n'}); err != nil {
					return stats, err
				}
				col = 0
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.Wrap(err, "reading FASTA")
	}
	if !started {
		return stats, errors.New("empty FASTA file")
	}
	if err := flush(); err != nil {
		return stats, err
	}
	if err := fai.Flush(); err != nil {
		return stats, err
	}
	return stats, w.Flush()
}
