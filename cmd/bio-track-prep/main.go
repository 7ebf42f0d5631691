package main

// See doc.go for documentation
import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/trackprep/encoding/ucsc"
	"github.com/grailbio/trackprep/track"
)

var (
	layoutName    = flag.String("layout", "snp", "Source table layout; 'snp', 'cytoband', 'refgene', and 'bed' supported")
	renameName    = flag.String("rename", "hs37d5", "Chromosome renaming; 'hs37d5' (strip chr, M->MT), 'ensembl' (strip chr), or 'none'")
	skipMalformed = flag.Bool("skip-malformed", false, "Drop rows with too few or unparseable columns instead of failing")
	sortBatchSize = flag.Int("sort-batch-size", 0, "Records held in memory per sort batch before spilling; 0 = sorter default")
	parallelism   = flag.Int("parallelism", 0, "Maximum number of background sort/compression goroutines; 0 = runtime.NumCPU()")
	tempDir       = flag.String("temp-dir", "", "Directory for sort spill files (default os.TempDir())")
	noIndex       = flag.Bool("no-index", false, "Skip the tabix index; output is sorted and compressed only")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] src dst\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

func rename(name string) (track.Rename, error) {
	switch name {
	case "hs37d5":
		return track.HS37d5(), nil
	case "ensembl":
		return track.UCSCToEnsembl(), nil
	case "none":
		return track.Rename{}, nil
	}
	return track.Rename{}, fmt.Errorf("unknown rename %q (want hs37d5, ensembl, or none)", name)
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	layout, err := ucsc.FromName(*layoutName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ren, err := rename(*renameName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	policy := track.FailOnMalformed
	if *skipMalformed {
		policy = track.SkipMalformed
	}
	ctx := vcontext.Background()
	result, err := track.Prep(ctx, track.PrepOpts{
		URL:           flag.Arg(0),
		OutPath:       flag.Arg(1),
		Layout:        layout,
		Rename:        ren,
		Policy:        policy,
		SortBatchSize: *sortBatchSize,
		Parallelism:   *parallelism,
		TmpDir:        *tempDir,
		NoIndex:       *noIndex,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("%s\t%d records\tchecksum %016x\n", result.OutPath, result.Stats.Records, result.Checksum)
}
