package tabix

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/biogo/hts/bgzf"
	gbgzf "github.com/grailbio/trackprep/encoding/bgzf"
)

var tbiMagic = [4]byte{'T', 'B', 'I', 0x1}

// Write serializes the index to w in .tbi format, including the bgzf
// compression layer.
func (i *Index) Write(w io.Writer) (err error) {
	bw, err := gbgzf.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return err
	}
	write := func(v interface{}) {
		if err == nil {
			err = binary.Write(bw, binary.LittleEndian, v)
		}
	}
	if _, err = bw.Write(tbiMagic[:]); err != nil {
		return err
	}
	write(int32(len(i.Refs)))
	write(i.Config.Format)
	write(i.Config.NameCol)
	write(i.Config.BeginCol)
	write(i.Config.EndCol)
	write(int32(i.Config.Meta))
	write(i.Config.Skip)

	var names []byte
	for _, name := range i.Names {
		names = append(names, name...)
		names = append(names, 0)
	}
	write(int32(len(names)))
	if err == nil {
		_, err = bw.Write(names)
	}

	for _, ref := range i.Refs {
		// The metadata pseudo bin counts toward n_bin.
		write(int32(len(ref.Bins) + 1))
		for _, bin := range ref.Bins {
			write(bin.BinNum)
			write(int32(len(bin.Chunks)))
			for _, c := range bin.Chunks {
				write(FromOffset(c.Begin))
				write(FromOffset(c.End))
			}
		}
		write(uint32(metaBin))
		write(int32(2))
		write(ref.Meta.RefBegin)
		write(ref.Meta.RefEnd)
		write(ref.Meta.NumRecords)
		write(ref.Meta.NumUnplaced)

		write(int32(len(ref.Intervals)))
		for _, iv := range ref.Intervals {
			write(FromOffset(iv))
		}
	}
	write(i.NoCoor)
	if err != nil {
		return err
	}
	return bw.Close()
}

// Read parses a .tbi index from r and returns an Index or nil and an
// error.
func Read(r io.Reader) (idx *Index, err error) {
	var br *bgzf.Reader
	if br, err = bgzf.NewReader(r, 1); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := br.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	idx, err = readIndex(br)
	return idx, err
}

func readIndex(r io.Reader) (*Index, error) {
	i := &Index{}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[0:]); err != nil {
		return nil, err
	}
	if magic != tbiMagic {
		return nil, fmt.Errorf("tabix index invalid magic: %v", magic)
	}

	var refCount int32
	if err := binary.Read(r, binary.LittleEndian, &refCount); err != nil {
		return nil, err
	}
	var meta int32
	for _, v := range []interface{}{
		&i.Config.Format, &i.Config.NameCol, &i.Config.BeginCol, &i.Config.EndCol,
		&meta, &i.Config.Skip,
	} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	i.Config.Meta = byte(meta)

	var nameLen int32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, err
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, err
	}
	for len(nameBuf) > 0 {
		nul := bytes.IndexByte(nameBuf, 0)
		if nul == -1 {
			return nil, fmt.Errorf("tabix index name block is not NUL terminated")
		}
		i.Names = append(i.Names, string(nameBuf[:nul]))
		nameBuf = nameBuf[nul+1:]
	}
	if len(i.Names) != int(refCount) {
		return nil, fmt.Errorf("tabix index has %d names for %d references", len(i.Names), refCount)
	}

	i.Refs = make([]Reference, refCount)
	for refID := 0; int32(refID) < refCount; refID++ {
		var binCount int32
		if err := binary.Read(r, binary.LittleEndian, &binCount); err != nil {
			return nil, err
		}
		ref := Reference{
			Bins: make([]Bin, 0, binCount),
		}
		for b := 0; int32(b) < binCount; b++ {
			var binNum uint32
			if err := binary.Read(r, binary.LittleEndian, &binNum); err != nil {
				return nil, err
			}
			var chunkCount int32
			if err := binary.Read(r, binary.LittleEndian, &chunkCount); err != nil {
				return nil, err
			}
			bin := Bin{
				BinNum: binNum,
				Chunks: make([]Chunk, chunkCount),
			}
			for c := 0; int32(c) < chunkCount; c++ {
				var beginOffset, endOffset uint64
				if err := binary.Read(r, binary.LittleEndian, &beginOffset); err != nil {
					return nil, err
				}
				if err := binary.Read(r, binary.LittleEndian, &endOffset); err != nil {
					return nil, err
				}
				bin.Chunks[c] = Chunk{
					Begin: ToOffset(beginOffset),
					End:   ToOffset(endOffset),
				}
			}

			if binNum == metaBin {
				// The pseudo bin goes to ref.Meta instead of ref.Bins.
				if len(bin.Chunks) != 2 {
					return nil, fmt.Errorf("invalid metadata bin has %d chunks, should have 2", len(bin.Chunks))
				}
				ref.Meta = Metadata{
					RefBegin:    FromOffset(bin.Chunks[0].Begin),
					RefEnd:      FromOffset(bin.Chunks[0].End),
					NumRecords:  FromOffset(bin.Chunks[1].Begin),
					NumUnplaced: FromOffset(bin.Chunks[1].End),
				}
			} else {
				ref.Bins = append(ref.Bins, bin)
			}
		}
		sort.Slice(ref.Bins, func(a, b int) bool { return ref.Bins[a].BinNum < ref.Bins[b].BinNum })

		var intervalCount int32
		if err := binary.Read(r, binary.LittleEndian, &intervalCount); err != nil {
			return nil, err
		}
		ref.Intervals = make([]bgzf.Offset, intervalCount)
		for inv := 0; int32(inv) < intervalCount; inv++ {
			var ioffset uint64
			if err := binary.Read(r, binary.LittleEndian, &ioffset); err != nil {
				return nil, err
			}
			ref.Intervals[inv] = ToOffset(ioffset)
		}
		i.Refs[refID] = ref
	}

	// The trailing no-coordinate count is optional.
	var noCoor uint64
	if err := binary.Read(r, binary.LittleEndian, &noCoor); err == nil {
		i.NoCoor = noCoor
	} else if err != io.EOF {
		return nil, err
	}
	i.buildNameIDs()
	return i, nil
}
