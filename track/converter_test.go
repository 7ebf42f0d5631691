package track_test

import (
	"os"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/trackprep/encoding/ucsc"
	"github.com/grailbio/trackprep/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSink collects converted records.  It copies the record slices,
// which are only valid during Append.
type memSink struct {
	lines  []string
	chroms []string
	starts []int64
	ends   []int64
	closed bool
}

func (s *memSink) Append(rec track.Record) error {
	s.lines = append(s.lines, string(rec.Line))
	s.chroms = append(s.chroms, string(rec.Chrom))
	s.starts = append(s.starts, rec.Start)
	s.ends = append(s.ends, rec.End)
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

func convert(t *testing.T, layout ucsc.Layout, rename track.Rename, opts track.ConverterOpts,
	input string) (*memSink, track.Stats, error) {
	conv, err := track.NewConverter(layout, rename, opts)
	require.NoError(t, err)
	sink := &memSink{}
	stats, err := conv.Convert(strings.NewReader(input), sink)
	return sink, stats, err
}

func TestConvertSNP(t *testing.T) {
	// One row as dumped by UCSC: bin, chrom, chromStart, chromEnd,
	// name, strand, refNCBI, plus trailing columns the projection
	// drops.
	in := "585\tchr1\t10000\t10001\trs123\t+\tA\tA\tA/G\tgenomic\tsingle\n" +
		"586\tchr1\t10234\t10235\trs540431307\t-\tT\n"
	sink, stats, err := convert(t, ucsc.SNP(), track.UCSCToEnsembl(), track.ConverterOpts{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1\t10000\t10001\trs123\t+\tA",
		"1\t10234\t10235\trs540431307\t-\tT",
	}, sink.lines)
	assert.Equal(t, []string{"1", "1"}, sink.chroms)
	assert.Equal(t, []int64{10000, 10234}, sink.starts)
	assert.Equal(t, []int64{10001, 10235}, sink.ends)
	assert.Equal(t, track.Stats{Lines: 2, Records: 2}, stats)
}

func TestConvertPassthrough(t *testing.T) {
	// Every byte outside the chromosome column must survive
	// untouched: embedded spaces, '%', empty columns, odd names.
	in := "chr2\t5\t9\tname with spaces\t\t0.5%\n" +
		"chrGL000229.1\t0\t1\tx;y=z\t+\t.\n"
	sink, stats, err := convert(t, ucsc.BED(), track.UCSCToEnsembl(), track.ConverterOpts{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2\t5\t9\tname with spaces\t\t0.5%",
		"GL000229.1\t0\t1\tx;y=z\t+\t.",
	}, sink.lines)
	assert.Equal(t, track.Stats{Lines: 2, Records: 2}, stats)
}

func TestConvertIdempotent(t *testing.T) {
	// Names already in target form pass through, so running the
	// converter over its own output changes nothing.
	in := "chr1\t100\t200\ta\n" +
		"11\t300\t400\tb\n" +
		"chrM\t0\t16571\tc\n"
	first, _, err := convert(t, ucsc.BED(), track.HS37d5(), track.ConverterOpts{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1\t100\t200\ta",
		"11\t300\t400\tb",
		"MT\t0\t16571\tc",
	}, first.lines)

	again, _, err := convert(t, ucsc.BED(), track.HS37d5(), track.ConverterOpts{},
		strings.Join(first.lines, "\n")+"\n")
	require.NoError(t, err)
	assert.Equal(t, first.lines, again.lines)
}

func TestConvertOrderAndComments(t *testing.T) {
	// The converter preserves input order; sorting is the sink
	// chain's business.  Comment and blank lines are skipped and
	// counted.
	in := "#bin\tchrom\tchromStart\n" +
		"chr2\t10\t11\tx\n" +
		"\n" +
		"chr1\t99\t100\ty\n" +
		"chr1\t5\t6\tz\n"
	sink, stats, err := convert(t, ucsc.BED(), track.UCSCToEnsembl(), track.ConverterOpts{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"2\t10\t11\tx", "1\t99\t100\ty", "1\t5\t6\tz"}, sink.lines)
	assert.Equal(t, track.Stats{Lines: 5, Records: 3, Skipped: 2}, stats)
}

func TestConvertMissingTrailingField(t *testing.T) {
	// A row with exactly MinFields columns is valid even when the
	// last one is empty.
	in := "chr1\t10\t20\t\n"
	sink, _, err := convert(t, ucsc.BED(), track.UCSCToEnsembl(), track.ConverterOpts{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"1\t10\t20\t"}, sink.lines)
}

func TestConvertMalformedFail(t *testing.T) {
	tests := []struct {
		name   string
		layout ucsc.Layout
		input  string
		want   string
	}{
		{"short row", ucsc.BED(), "chr1\t10\t20\n585\tchr1\n", "line 2"},
		{"bad start", ucsc.SNP(), "585\tchr1\txyz\t10001\trs1\t+\tA\n", "bad start coordinate"},
		{"bad end", ucsc.SNP(), "585\tchr1\t10000\t1e4\trs1\t+\tA\n", "bad end coordinate"},
		{"negative start", ucsc.SNP(), "585\tchr1\t-5\t4\trs1\t+\tA\n", "invalid coordinate pair"},
		{"end before start", ucsc.SNP(), "585\tchr1\t10\t9\trs1\t+\tA\n", "invalid coordinate pair"},
		{"empty chrom", ucsc.SNP(), "585\tchr\t10000\t10001\trs1\t+\tA\n", "empty chromosome"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := convert(t, tt.layout, track.UCSCToEnsembl(), track.ConverterOpts{}, tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConvertMalformedSkip(t *testing.T) {
	in := "585\tchr1\t10000\t10001\trs1\t+\tA\n" +
		"585\tchr1\truncated\n" +
		"585\tchr2\tbad\t30\trs2\t+\tC\n" +
		"585\tchr2\t40\t41\trs3\t-\tG\n"
	sink, stats, err := convert(t, ucsc.SNP(), track.UCSCToEnsembl(),
		track.ConverterOpts{Policy: track.SkipMalformed}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1\t10000\t10001\trs1\t+\tA",
		"2\t40\t41\trs3\t-\tG",
	}, sink.lines)
	assert.Equal(t, track.Stats{Lines: 4, Records: 2, Malformed: 2}, stats)
}

func TestRenameApply(t *testing.T) {
	tests := []struct {
		rename track.Rename
		in     string
		want   string
	}{
		{track.UCSCToEnsembl(), "chr1", "1"},
		{track.UCSCToEnsembl(), "1", "1"},
		{track.UCSCToEnsembl(), "chrX", "X"},
		{track.UCSCToEnsembl(), "chrM", "M"},
		{track.HS37d5(), "chrM", "MT"},
		{track.HS37d5(), "M", "MT"},
		{track.HS37d5(), "MT", "MT"},
		{track.HS37d5(), "chr22", "22"},
		{track.Rename{}, "chr1", "chr1"},
		{track.Rename{Aliases: map[string]string{"chr1": "one"}}, "chr1", "one"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(tt.rename.Apply([]byte(tt.in))), "rename %q", tt.in)
	}
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
