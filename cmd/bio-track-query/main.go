package main

// See doc.go for documentation
import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"
	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/trackprep/tquery"
)

var (
	indexPath    = flag.String("index", "", "Track index path. Defaults to trackpath + .tbi")
	listRefs     = flag.Bool("refs", false, "List the chromosome names in the track and exit")
	showChecksum = flag.Bool("checksum", false, "Print the seahash of the uncompressed payload and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] track.bed.gz [region ...]\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

// checksum recompresses nothing: it streams the track through a bgzf
// reader and hashes the payload, yielding the same value
// bio-track-prep reported when it wrote the file.
func checksum(path string) (sum uint64, err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	br, err := bgzf.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return 0, err
	}
	h := seahash.New()
	if _, err = io.Copy(h, br); err != nil {
		return 0, err
	}
	if err = br.Close(); err != nil {
		return 0, err
	}
	return h.Sum64(), err
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	trackPath := flag.Arg(0)
	regions := flag.Args()[1:]

	if *showChecksum {
		sum, err := checksum(trackPath)
		if err != nil {
			log.Fatalf("%s: %v", trackPath, err)
		}
		fmt.Printf("%016x\n", sum)
		return
	}
	r, err := tquery.Open(trackPath, *indexPath)
	if err != nil {
		log.Fatalf("%s: %v", trackPath, err)
	}
	if *listRefs {
		for _, name := range r.Refs() {
			fmt.Println(name)
		}
	} else if len(regions) == 0 {
		log.Fatalf("no regions given")
	}
	out := bufio.NewWriter(os.Stdout)
	for _, region := range regions {
		it, err := r.QueryRegion(region)
		if err != nil {
			log.Fatalf("%s: %v", region, err)
		}
		for it.Scan() {
			_, _, _, line := it.Record()
			out.Write(line)     // nolint: errcheck
			out.WriteByte('\n') // nolint: errcheck
		}
		if err := it.Err(); err != nil {
			log.Fatalf("%s: %v", region, err)
		}
	}
	if err := out.Flush(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := r.Close(); err != nil {
		log.Fatalf("%s: %v", trackPath, err)
	}
}
