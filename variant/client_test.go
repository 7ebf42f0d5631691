package variant_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/trackprep/variant"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// myVariantServer serves canned MyVariant.info responses keyed by
// rsID; unknown rsIDs get a 404.
func myVariantServer(t *testing.T, responses map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hg19", r.URL.Query().Get("assembly"))
		rsid := r.URL.Path[len("/variant/"):]
		body, ok := responses[rsid]
		if !ok {
			http.Error(w, `{"success":false}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func ensemblServer(responses map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsid := r.URL.Path[len("/variation/human/"):]
		body, ok := responses[rsid]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func TestLookupMyVariantObject(t *testing.T) {
	// dbsnp.hg19 as an object, dbsnp.alt as a plain string: the
	// common SNV shape.
	server := myVariantServer(t, map[string]string{
		"rs429358": `{"dbsnp":{"rsid":"rs429358","chrom":"19","hg19":{"start":45411941,"end":45411942},"ref":"T","alt":"C"}}`,
	})
	defer server.Close()
	client := variant.Client{MyVariantURL: server.URL}
	locus, err := client.LookupMyVariant(context.Background(), "rs429358")
	require.NoError(t, err)
	assert.Equal(t, variant.Locus{
		RSID:  "rs429358",
		Chrom: "19",
		Pos:   45411941,
		Ref:   "T",
		Alts:  []string{"C"},
		Build: "hs37d5",
	}, locus)
	assert.Equal(t, "19:45411941 (T/C)", locus.String())
	assert.Equal(t, "chr19:45411941 (T/C)", locus.UCSCString())
}

func TestLookupMyVariantArray(t *testing.T) {
	// Multi-mapping variants return dbsnp.hg19 and dbsnp.alt as
	// arrays; the first mapping wins.  chrom comes prefixed here and
	// must be stripped.
	server := myVariantServer(t, map[string]string{
		"rs1799945": `{"dbsnp":{"rsid":"rs1799945","chrom":"chr6","hg19":[{"start":26091179},{"start":26091500}],"ref":"C","alt":["G","T"]}}`,
	})
	defer server.Close()
	client := variant.Client{MyVariantURL: server.URL}
	// Bare numeric input gets the rs prefix.
	locus, err := client.LookupMyVariant(context.Background(), "1799945")
	require.NoError(t, err)
	assert.Equal(t, "rs1799945", locus.RSID)
	assert.Equal(t, "6", locus.Chrom)
	assert.EqualValues(t, 26091179, locus.Pos)
	assert.Equal(t, []string{"G", "T"}, locus.Alts)
}

func TestLookupMyVariantNotFound(t *testing.T) {
	server := myVariantServer(t, nil)
	defer server.Close()
	client := variant.Client{MyVariantURL: server.URL}
	_, err := client.LookupMyVariant(context.Background(), "rs0")
	assert.Equal(t, variant.ErrNotFound, errors.Cause(err))

	// A response with no hg19 mapping is also not found.
	server2 := myVariantServer(t, map[string]string{
		"rs1": `{"dbsnp":{"rsid":"rs1","chrom":"1"}}`,
	})
	defer server2.Close()
	client = variant.Client{MyVariantURL: server2.URL}
	_, err = client.LookupMyVariant(context.Background(), "rs1")
	assert.Equal(t, variant.ErrNotFound, errors.Cause(err))
}

func TestLookupEnsembl(t *testing.T) {
	server := ensemblServer(map[string]string{
		"rs7412": `{"name":"rs7412","mappings":[
			{"seq_region_name":"19","start":45412079,"allele_string":"C/T","assembly_name":"GRCh37"}]}`,
	})
	defer server.Close()
	client := variant.Client{EnsemblURL: server.URL}
	locus, err := client.LookupEnsembl(context.Background(), "rs7412")
	require.NoError(t, err)
	assert.Equal(t, variant.Locus{
		RSID:  "rs7412",
		Chrom: "19",
		Pos:   45412079,
		Ref:   "C",
		Alts:  []string{"T"},
		Build: "hs37d5",
	}, locus)
}

func TestLookupEnsemblMitochondrion(t *testing.T) {
	// The chrM alias maps to hs37d5's MT.
	server := ensemblServer(map[string]string{
		"rs199476128": `{"mappings":[{"seq_region_name":"chrM","start":8993,"allele_string":"T/C/G"}]}`,
	})
	defer server.Close()
	client := variant.Client{EnsemblURL: server.URL}
	locus, err := client.LookupEnsembl(context.Background(), "rs199476128")
	require.NoError(t, err)
	assert.Equal(t, "MT", locus.Chrom)
	assert.Equal(t, "T", locus.Ref)
	assert.Equal(t, []string{"C", "G"}, locus.Alts)
}

func TestLookupAutoFallback(t *testing.T) {
	mv := myVariantServer(t, nil) // knows nothing
	defer mv.Close()
	ens := ensemblServer(map[string]string{
		"rs1800562": `{"mappings":[{"seq_region_name":"6","start":26093141,"allele_string":"G/A"}]}`,
	})
	defer ens.Close()
	client := variant.Client{MyVariantURL: mv.URL, EnsemblURL: ens.URL}

	locus, err := client.Lookup(context.Background(), "rs1800562", variant.Auto)
	require.NoError(t, err)
	assert.Equal(t, "6", locus.Chrom)

	// Explicit myvariant does not fall back.
	_, err = client.Lookup(context.Background(), "rs1800562", variant.MyVariant)
	assert.Equal(t, variant.ErrNotFound, errors.Cause(err))
}

func TestLookupBatch(t *testing.T) {
	server := myVariantServer(t, map[string]string{
		"rs7412":   `{"dbsnp":{"rsid":"rs7412","chrom":"19","hg19":{"start":45412079},"ref":"C","alt":"T"}}`,
		"rs429358": `{"dbsnp":{"rsid":"rs429358","chrom":"19","hg19":{"start":45411941},"ref":"T","alt":"C"}}`,
	})
	defer server.Close()
	client := variant.Client{MyVariantURL: server.URL, Delay: time.Millisecond}
	results, err := client.LookupBatch(context.Background(),
		[]string{"rs7412", "rs0", "429358"}, variant.MyVariant)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.EqualValues(t, 45412079, results["rs7412"].Pos)
	assert.EqualValues(t, 45411941, results["rs429358"].Pos)
}

func TestLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()
	client := variant.Client{MyVariantURL: server.URL, EnsemblURL: server.URL}
	_, err := client.Lookup(context.Background(), "rs1", variant.Auto)
	require.Error(t, err)
	assert.NotEqual(t, variant.ErrNotFound, errors.Cause(err))

	// A server error from a batch aborts it.
	_, err = client.LookupBatch(context.Background(), []string{"rs1"}, variant.MyVariant)
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	for _, s := range []string{"myvariant", "ensembl", "auto"} {
		m, err := variant.ParseMethod(s)
		require.NoError(t, err)
		assert.EqualValues(t, s, m)
	}
	_, err := variant.ParseMethod("dbsnp")
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
