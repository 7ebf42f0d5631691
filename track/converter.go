package track

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/trackprep/encoding/ucsc"
)

// maxLineBytes bounds a single input line.  dbSNP rows carrying long
// indel alleles run to a few hundred KB; anything larger than this is
// not a table row.
const maxLineBytes = 16 << 20

// ConverterOpts adjusts Converter behavior beyond the table layout.
type ConverterOpts struct {
	Policy MalformedPolicy
}

// Converter applies the per-line transform for one table layout: it
// validates each row against the layout, projects the kept columns,
// and renames the chromosome column.
type Converter struct {
	layout ucsc.Layout
	rename Rename
	opts   ConverterOpts

	// fields holds the [start, end) byte offsets of the leading
	// columns of the current line.
	fields [][2]int
	out    bytes.Buffer
}

// NewConverter returns a Converter for the given table layout and
// chromosome rename.
func NewConverter(layout ucsc.Layout, rename Rename, opts ConverterOpts) (*Converter, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Converter{
		layout: layout,
		rename: rename,
		opts:   opts,
		fields: make([][2]int, layout.MinFields),
	}, nil
}

// splitFields writes the [start, end) offsets of up to len(fields)
// leading tab separated columns of curLine, returning the number of
// columns found.  Unlike whitespace tokenizers this keeps empty
// columns, which UCSC tables contain.
func splitFields(fields [][2]int, curLine []byte) int {
	n := 0
	start := 0
	for pos := 0; pos <= len(curLine); pos++ {
		if pos == len(curLine) || curLine[pos] == '\t' {
			fields[n] = [2]int{start, pos}
			n++
			start = pos + 1
			if n == len(fields) || pos == len(curLine) {
				break
			}
		}
	}
	return n
}

// Convert reads table rows from r and appends one converted Record
// per valid row to sink, preserving input order.  It does not close
// the sink.  On error the returned Stats cover the lines consumed so
// far.
func (c *Converter) Convert(r io.Reader, sink Sink) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	for scanner.Scan() {
		stats.Lines++
		curLine := scanner.Bytes()
		if len(curLine) == 0 || curLine[0] == '#' {
			stats.Skipped++
			continue
		}
		rec, err := c.convertLine(curLine)
		if err != nil {
			if c.opts.Policy == SkipMalformed {
				stats.Malformed++
				continue
			}
			return stats, fmt.Errorf("track.Convert: line %d: %v", stats.Lines, err)
		}
		if err := sink.Append(rec); err != nil {
			return stats, err
		}
		stats.Records++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("track.Convert: reading line %d: %v", stats.Lines+1, err)
	}
	return stats, nil
}

// convertLine validates one row and builds its output Record.  The
// Record's slices alias c's buffers and curLine.
func (c *Converter) convertLine(curLine []byte) (Record, error) {
	layout := &c.layout
	nf := splitFields(c.fields, curLine)
	if nf < layout.MinFields {
		return Record{}, fmt.Errorf("%d columns, %s table needs at least %d",
			nf, layout.Name, layout.MinFields)
	}

	field := func(col int) []byte {
		f := c.fields[col-1]
		return curLine[f[0]:f[1]]
	}
	chrom := c.rename.Apply(field(layout.ChromCol))
	if len(chrom) == 0 {
		return Record{}, fmt.Errorf("empty chromosome name in column %d", layout.ChromCol)
	}
	start, err := strconv.ParseInt(gunsafe.BytesToString(field(layout.StartCol)), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad start coordinate %q in column %d", field(layout.StartCol), layout.StartCol)
	}
	end, err := strconv.ParseInt(gunsafe.BytesToString(field(layout.EndCol)), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad end coordinate %q in column %d", field(layout.EndCol), layout.EndCol)
	}
	if start < 0 || end < start {
		return Record{}, fmt.Errorf("invalid coordinate pair [%d, %d)", start, end)
	}

	c.out.Reset()
	if layout.Keep == nil {
		// Keep every column: splice the renamed chromosome into the
		// otherwise untouched line.
		f := c.fields[layout.ChromCol-1]
		c.out.Write(curLine[:f[0]])
		c.out.Write(chrom)
		c.out.Write(curLine[f[1]:])
	} else {
		for i, col := range layout.Keep {
			if i > 0 {
				c.out.WriteByte('\t')
			}
			if col == layout.ChromCol {
				c.out.Write(chrom)
			} else {
				c.out.Write(field(col))
			}
		}
	}
	return Record{Chrom: chrom, Start: start, End: end, Line: c.out.Bytes()}, nil
}
