package main

// See doc.go for documentation
import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/trackprep/variant"
	"github.com/pkg/errors"
)

var (
	methodName = flag.String("method", "auto", "Lookup API; 'myvariant', 'ensembl', or 'auto' (MyVariant with Ensembl fallback)")
	delay      = flag.Duration("delay", 200*time.Millisecond, "Delay between consecutive API requests")
	ucscStyle  = flag.Bool("ucsc-style", false, "Print loci with the chr prefix (chr1:12345) instead of bare hs37d5 names")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] rsid [rsid ...]\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	method, err := variant.ParseMethod(*methodName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx := vcontext.Background()
	client := variant.Client{Delay: *delay}
	missing := false
	for i, rsid := range flag.Args() {
		rsid = variant.NormalizeRSID(rsid)
		locus, err := client.Lookup(ctx, rsid, method)
		switch {
		case errors.Cause(err) == variant.ErrNotFound:
			fmt.Printf("%s: not found\n", rsid)
			missing = true
		case err != nil:
			log.Fatalf("%s: %v", rsid, err)
		case *ucscStyle:
			fmt.Printf("%s: %s\n", rsid, locus.UCSCString())
		default:
			fmt.Printf("%s: %s\n", rsid, locus)
		}
		if *delay > 0 && i < flag.NArg()-1 {
			time.Sleep(*delay)
		}
	}
	if missing {
		os.Exit(1)
	}
}
