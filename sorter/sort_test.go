package sorter

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"sort"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	entry := func(chrom string, start int64, line string) sortEntry {
		return sortEntry{chrom: []byte(chrom), start: start, line: []byte(line)}
	}
	tests := []struct {
		e0, e1 sortEntry
		want   int
	}{
		{entry("1", 100, "a"), entry("1", 100, "a"), 0},
		{entry("1", 100, "a"), entry("1", 101, "a"), -1},
		{entry("1", 101, "a"), entry("1", 100, "a"), 1},
		{entry("1", 100, "a"), entry("2", 0, "a"), -1},
		// Byte order, not numeric: "10" sorts before "2".
		{entry("10", 100, "a"), entry("2", 0, "a"), -1},
		{entry("MT", 0, "a"), entry("X", 0, "a"), -1},
		{entry("1", 100, "a"), entry("1", 100, "b"), -1},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, tt.e0.compare(tt.e1), "%v vs %v", tt.e0, tt.e1)
		assert.Equalf(t, -tt.want, tt.e1.compare(tt.e0), "%v vs %v reversed", tt.e1, tt.e0)
	}
}

// drain collects the merged output lines and closes the Merger.
func drain(t *testing.T, m *Merger) []string {
	var lines []string
	var prev sortEntry
	for m.Scan() {
		chrom, start, end, line := m.Record()
		cur := sortEntry{chrom: chrom, start: start, line: line}
		if prev.chrom != nil {
			require.True(t, prev.compare(cur) <= 0, "order violation: %v then %v", prev, cur)
		}
		require.Equal(t, start+1, end)
		prev = sortEntry{
			chrom: append([]byte(nil), chrom...),
			start: start,
			line:  append([]byte(nil), line...),
		}
		lines = append(lines, string(line))
	}
	require.NoError(t, m.Err())
	require.NoError(t, m.Close())
	return lines
}

func TestSortSmall(t *testing.T) {
	s := New(Options{})
	add := func(chrom string, start int64) {
		line := fmt.Sprintf("%s\t%d\t%d", chrom, start, start+1)
		s.Add([]byte(chrom), start, start+1, []byte(line))
	}
	add("2", 50)
	add("1", 300)
	add("1", 100)
	add("X", 7)
	add("1", 100) // duplicate record
	m, err := s.Finish()
	require.NoError(t, err)
	lines := drain(t, m)
	assert.Equal(t, []string{
		"1\t100\t101",
		"1\t100\t101",
		"1\t300\t301",
		"2\t50\t51",
		"X\t7\t8",
	}, lines)
}

func TestSortEmpty(t *testing.T) {
	s := New(Options{})
	m, err := s.Finish()
	require.NoError(t, err)
	assert.False(t, m.Scan())
	require.NoError(t, m.Err())
	require.NoError(t, m.Close())
}

func testSortRandom(t *testing.T, opts Options, nRecords int) {
	rnd := rand.New(rand.NewSource(0))
	chroms := []string{"1", "2", "10", "11", "20", "X", "Y", "MT", "GL000207.1"}

	s := New(opts)
	want := make([]sortEntry, 0, nRecords)
	for i := 0; i < nRecords; i++ {
		chrom := chroms[rnd.Intn(len(chroms))]
		start := int64(rnd.Intn(10000))
		line := fmt.Sprintf("%s\t%d\t%d\trs%d\t+\tA", chrom, start, start+1, i)
		s.Add([]byte(chrom), start, start+1, []byte(line))
		want = append(want, sortEntry{chrom: []byte(chrom), start: start, line: []byte(line)})
	}
	sort.Slice(want, func(i, j int) bool { return want[i].compare(want[j]) < 0 })

	m, err := s.Finish()
	require.NoError(t, err)
	got := drain(t, m)
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, string(want[i].line), got[i], "record %d", i)
	}
}

func TestSortSpill(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	// BatchSize 64 forces many shard spills for 1000 records.
	testSortRandom(t, Options{BatchSize: 64, TmpDir: tempDir}, 1000)

	// All temp shards must be removed after Close.
	files, err := ioutil.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 0, len(files))
}

func TestSortNoCompress(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	testSortRandom(t, Options{BatchSize: 64, TmpDir: tempDir, NoCompressTmpFiles: true}, 500)
}

func TestSortLargeBatch(t *testing.T) {
	testSortRandom(t, Options{}, 2000)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
