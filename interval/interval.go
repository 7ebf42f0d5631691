// Package interval represents genomic intervals and parses the
// region strings used on annotation track query command lines.  It
// assumes every position fits in a PosType, which is currently
// defined as int32 since that is what tabix indexes are limited to.
package interval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PosType is the coordinate type.
type PosType int32

const posTypeMax = math.MaxInt32

// Entry represents a single interval, with 0-based half-open
// coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// Whole reports whether the entry spans an entire chromosome, i.e.
// it came from a region string with no positional restriction.
func (e Entry) Whole() bool {
	return e.Start0 == 0 && e.End == posTypeMax-1
}

// String renders the entry the way query command lines accept it:
// 1-based, inclusive on both ends, positions omitted for a whole
// chromosome.
func (e Entry) String() string {
	if e.Whole() {
		return e.ChrName
	}
	return fmt.Sprintf("%s:%d-%d", e.ChrName, int64(e.Start0)+1, int64(e.End))
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, posTypeMax - 1] is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.Start0 = 0
		result.End = posTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.ChrName = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	// end0 == posTypeMax is prohibited so that a whole-chromosome
	// entry is never mistaken for an explicit range.  This is why
	// Atoi rather than ParseInt(., 10, 32) is used above.
	if end0 <= start1-1 || end0 >= posTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}
