package interval

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestParseRegionString(t *testing.T) {
	tests := []struct {
		region  string
		chrName string
		start0  PosType
		end     PosType
	}{
		{
			"chr1:1-1000",
			"chr1",
			0,
			1000,
		},
		{
			"chr1:1000",
			"chr1",
			999,
			1000,
		},
		{
			"chr1:1000-1000",
			"chr1",
			999,
			1000,
		},
		{
			"chr1",
			"chr1",
			0,
			math.MaxInt32 - 1,
		},
		{
			"GL000207.1:5-10",
			"GL000207.1",
			4,
			10,
		},
	}

	for _, tt := range tests {
		result, err := ParseRegionString(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, result.ChrName, tt.chrName)
		expect.EQ(t, result.Start0, tt.start0)
		expect.EQ(t, result.End, tt.end)
	}
}

func TestParseRegionStringErrors(t *testing.T) {
	for _, region := range []string{
		"",
		":100-200",
		"chr1:0",
		"chr1:abc",
		"chr1:100-99",
		"chr1:100-xyz",
		"chr1:0-100",
	} {
		_, err := ParseRegionString(region)
		expect.True(t, err != nil, "region %q", region)
	}
}

func TestEntryString(t *testing.T) {
	e, err := ParseRegionString("1:100-200")
	expect.NoError(t, err)
	expect.False(t, e.Whole())
	expect.EQ(t, e.String(), "1:100-200")

	e, err = ParseRegionString("MT")
	expect.NoError(t, err)
	expect.True(t, e.Whole())
	expect.EQ(t, e.String(), "MT")
}
