package track

import (
	"compress/flate"
	"context"
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/trackprep/encoding/tabix"
	"github.com/grailbio/trackprep/encoding/ucsc"
	"github.com/grailbio/trackprep/sorter"
)

// PrepOpts configures Prep.
type PrepOpts struct {
	// URL locates the source table: an http(s) URL, a local path, or
	// an s3:// path.  Gzip sources are decompressed on the fly.
	URL string

	// OutPath is the destination of the bgzf compressed track.  The
	// index, unless NoIndex is set, lands at OutPath + ".tbi".
	OutPath string

	// Layout describes the source table columns.
	Layout ucsc.Layout

	// Rename rewrites chromosome names.  The zero value keeps names
	// untouched.
	Rename Rename

	// Policy selects the response to malformed rows.
	Policy MalformedPolicy

	// SortBatchSize overrides the number of records the sorter keeps
	// in memory before spilling.  0 means the sorter default.
	SortBatchSize int

	// Parallelism bounds background sort and compression goroutines.
	// 0 means runtime.NumCPU().
	Parallelism int

	// TmpDir holds sort spill files.  "" means the system default.
	TmpDir string

	// NoIndex skips the tabix index and switches to the sharded bgzf
	// writer.  For tracks the browser only ever reads whole.
	NoIndex bool
}

// PrepResult reports what Prep wrote.
type PrepResult struct {
	Stats Stats

	// OutPath and IndexPath name the written artifacts.  IndexPath is
	// "" when NoIndex is set.
	OutPath   string
	IndexPath string

	// Checksum is the seahash of the uncompressed output payload, for
	// provenance logs and later verification.
	Checksum uint64

	// Refs lists the chromosome names indexed, in output order.
	// Empty when NoIndex is set.
	Refs []string
}

// Prep runs the preparation pipeline: fetch the source table, convert
// and rename rows, sort, compress to bgzf, and index.  Any stage
// failure aborts the run and removes whatever artifacts were already
// written; on success the outputs named in PrepResult are complete.
func Prep(ctx context.Context, opts PrepOpts) (result PrepResult, err error) {
	if opts.URL == "" || opts.OutPath == "" {
		return result, fmt.Errorf("track.Prep: URL and OutPath are required")
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	conv, err := NewConverter(opts.Layout, opts.Rename, ConverterOpts{Policy: opts.Policy})
	if err != nil {
		return result, err
	}
	result.OutPath = opts.OutPath

	in, err := Open(ctx, opts.URL)
	if err != nil {
		return result, errors.E(err, "fetching table:", opts.URL)
	}
	out, err := file.Create(ctx, opts.OutPath)
	if err != nil {
		if cerr := in.Close(); cerr != nil {
			log.Printf("prep %s: closing input: %v", opts.URL, cerr)
		}
		return result, err
	}
	// A failed run must not leave partial artifacts behind.  This
	// runs after the deferred Close below has settled the output
	// file's fate.
	defer func() {
		if err == nil {
			return
		}
		for _, path := range []string{opts.OutPath, result.IndexPath} {
			if path == "" {
				continue
			}
			if rerr := file.Remove(ctx, path); rerr != nil {
				log.Printf("prep %s: removing partial output: %v", path, rerr)
			}
		}
	}()
	defer file.CloseAndReport(ctx, out, &err)

	var (
		data    Sink
		indexed *IndexedBGZFSink
		plain   *BGZFSink
	)
	if opts.NoIndex {
		plain = NewBGZFSink(out.Writer(ctx), parallelism)
		data = plain
	} else {
		config := tabix.GenericConfig(
			opts.Layout.OutChromCol(), opts.Layout.OutStartCol(), opts.Layout.OutEndCol())
		if indexed, err = NewIndexedBGZFSink(out.Writer(ctx), flate.DefaultCompression, config); err != nil {
			if cerr := in.Close(); cerr != nil {
				log.Printf("prep %s: closing input: %v", opts.URL, cerr)
			}
			return result, err
		}
		data = indexed
	}
	sink := NewSortingSink(data, sorter.Options{
		BatchSize:   opts.SortBatchSize,
		Parallelism: parallelism,
		TmpDir:      opts.TmpDir,
	})

	// The sink chain must be closed even when Convert fails, both to
	// release sorter temp files and to unblock its goroutines.
	result.Stats, err = conv.Convert(in, sink)
	if serr := sink.Close(); err == nil {
		err = serr
	}
	if cerr := in.Close(); cerr != nil && err == nil {
		err = errors.E(cerr, "closing input:", opts.URL)
	}
	if err != nil {
		return result, err
	}
	result.Stats.log(opts.URL)

	if opts.NoIndex {
		result.Checksum = plain.Checksum()
		return result, nil
	}
	result.Checksum = indexed.Checksum()
	idx := indexed.Index()
	result.Refs = idx.Names
	result.IndexPath = opts.OutPath + ".tbi"
	if err = writeIndex(ctx, result.IndexPath, idx); err != nil {
		return result, errors.E(err, "writing index:", result.IndexPath)
	}
	log.Printf("prep %s: wrote %s + %s (%d refs, payload checksum %016x)",
		opts.URL, result.OutPath, result.IndexPath, len(result.Refs), result.Checksum)
	return result, nil
}

func writeIndex(ctx context.Context, path string, idx *tabix.Index) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	return idx.Write(out.Writer(ctx))
}
