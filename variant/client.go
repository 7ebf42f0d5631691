package variant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/trackprep/track"
	"github.com/pkg/errors"
)

// Method selects which API a lookup uses.
type Method string

const (
	// MyVariant queries MyVariant.info with hg19 assembly fields.
	MyVariant Method = "myvariant"
	// Ensembl queries the Ensembl GRCh37 archive REST API.
	Ensembl Method = "ensembl"
	// Auto tries MyVariant first and falls back to Ensembl when the
	// rsID is not found there.
	Auto Method = "auto"
)

// ParseMethod converts a command-line method name to a Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MyVariant, Ensembl, Auto:
		return m, nil
	}
	return "", errors.Errorf("unknown lookup method %q (want myvariant, ensembl, or auto)", s)
}

// ErrNotFound is returned when the API has no record of the rsID.
var ErrNotFound = errors.New("rsID not found")

const (
	defaultMyVariantURL = "https://myvariant.info/v1"
	defaultEnsemblURL   = "https://grch37.rest.ensembl.org"
)

// Client looks up rsIDs.  The zero value queries the public
// endpoints with http.DefaultClient and no inter-request delay.
type Client struct {
	// MyVariantURL is the MyVariant.info base URL, without the
	// trailing /variant.
	MyVariantURL string
	// EnsemblURL is the Ensembl GRCh37 REST base URL.
	EnsemblURL string
	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client
	// Delay is slept between consecutive LookupBatch requests, out of
	// politeness to the public APIs.
	Delay time.Duration
}

// bareChrom renames a chromosome the same way the track converter
// does, so rsID loci and prepared tracks agree on naming.
var bareChrom = track.HS37d5()

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint: errcheck
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: %s", u, resp.Status)
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "GET %s", u)
}

// myVariantHG19 is the dbsnp.hg19 block of a MyVariant.info
// response.  The API returns it as an object for SNVs and as an
// array for multi-mapping variants.
type myVariantHG19 struct {
	Chr   string `json:"chr"`
	Start int64  `json:"start"`
}

type myVariantResponse struct {
	DBSNP struct {
		RSID  string          `json:"rsid"`
		Chrom string          `json:"chrom"`
		HG19  json.RawMessage `json:"hg19"`
		Ref   string          `json:"ref"`
		Alt   json.RawMessage `json:"alt"`
	} `json:"dbsnp"`
}

// LookupMyVariant resolves rsid through MyVariant.info.
func (c *Client) LookupMyVariant(ctx context.Context, rsid string) (Locus, error) {
	rsid = NormalizeRSID(rsid)
	base := c.MyVariantURL
	if base == "" {
		base = defaultMyVariantURL
	}
	u := fmt.Sprintf("%s/variant/%s?assembly=hg19&fields=%s", base, url.PathEscape(rsid),
		url.QueryEscape("dbsnp.rsid,dbsnp.chrom,dbsnp.hg19,dbsnp.ref,dbsnp.alt"))
	var resp myVariantResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return Locus{}, errors.Wrapf(err, "myvariant %s", rsid)
	}
	var hg19 myVariantHG19
	if len(resp.DBSNP.HG19) > 0 && resp.DBSNP.HG19[0] == '[' {
		var list []myVariantHG19
		if err := json.Unmarshal(resp.DBSNP.HG19, &list); err != nil {
			return Locus{}, errors.Wrapf(err, "myvariant %s: dbsnp.hg19", rsid)
		}
		if len(list) > 0 {
			hg19 = list[0]
		}
	} else if len(resp.DBSNP.HG19) > 0 {
		if err := json.Unmarshal(resp.DBSNP.HG19, &hg19); err != nil {
			return Locus{}, errors.Wrapf(err, "myvariant %s: dbsnp.hg19", rsid)
		}
	}
	chrom := resp.DBSNP.Chrom
	if chrom == "" {
		chrom = hg19.Chr
	}
	chrom = string(bareChrom.Apply([]byte(chrom)))
	if chrom == "" || hg19.Start == 0 {
		return Locus{}, errors.Wrapf(ErrNotFound, "myvariant %s: no hg19 mapping", rsid)
	}
	var alts []string
	if len(resp.DBSNP.Alt) > 0 {
		// Single alt comes as a string, multiple as an array.
		var alt string
		if err := json.Unmarshal(resp.DBSNP.Alt, &alt); err == nil {
			alts = []string{alt}
		} else if err := json.Unmarshal(resp.DBSNP.Alt, &alts); err != nil {
			return Locus{}, errors.Wrapf(err, "myvariant %s: dbsnp.alt", rsid)
		}
	}
	return Locus{
		RSID:  rsid,
		Chrom: chrom,
		Pos:   hg19.Start,
		Ref:   resp.DBSNP.Ref,
		Alts:  alts,
		Build: Build,
	}, nil
}

type ensemblResponse struct {
	Mappings []struct {
		SeqRegionName string `json:"seq_region_name"`
		Start         int64  `json:"start"`
		AlleleString  string `json:"allele_string"`
		AssemblyName  string `json:"assembly_name"`
	} `json:"mappings"`
}

// LookupEnsembl resolves rsid through the Ensembl GRCh37 archive.
func (c *Client) LookupEnsembl(ctx context.Context, rsid string) (Locus, error) {
	rsid = NormalizeRSID(rsid)
	base := c.EnsemblURL
	if base == "" {
		base = defaultEnsemblURL
	}
	var resp ensemblResponse
	if err := c.get(ctx, base+"/variation/human/"+url.PathEscape(rsid), &resp); err != nil {
		return Locus{}, errors.Wrapf(err, "ensembl %s", rsid)
	}
	for _, m := range resp.Mappings {
		if m.SeqRegionName == "" {
			continue
		}
		// The GRCh37 archive only serves GRCh37 mappings, but skip
		// anything explicitly labeled otherwise.
		if m.AssemblyName != "" && m.AssemblyName != "GRCh37" {
			continue
		}
		locus := Locus{
			RSID:  rsid,
			Chrom: string(bareChrom.Apply([]byte(m.SeqRegionName))),
			Pos:   m.Start,
			Build: Build,
		}
		if alleles := m.AlleleString; alleles != "" {
			parts := strings.Split(alleles, "/")
			locus.Ref = parts[0]
			locus.Alts = parts[1:]
		}
		return locus, nil
	}
	return Locus{}, errors.Wrapf(ErrNotFound, "ensembl %s: no GRCh37 mapping", rsid)
}

// Lookup resolves rsid using the given method.  With Auto, a not
// found result from MyVariant falls through to Ensembl; other
// MyVariant errors do not.
func (c *Client) Lookup(ctx context.Context, rsid string, method Method) (Locus, error) {
	switch method {
	case MyVariant:
		return c.LookupMyVariant(ctx, rsid)
	case Ensembl:
		return c.LookupEnsembl(ctx, rsid)
	case Auto:
		locus, err := c.LookupMyVariant(ctx, rsid)
		if errors.Cause(err) == ErrNotFound {
			return c.LookupEnsembl(ctx, rsid)
		}
		return locus, err
	}
	return Locus{}, errors.Errorf("unknown lookup method %q", method)
}

// LookupBatch resolves a list of rsIDs sequentially, sleeping
// Client.Delay between requests.  rsIDs the API does not know are
// logged and omitted from the result rather than failing the batch;
// any other error aborts it.
func (c *Client) LookupBatch(ctx context.Context, rsids []string, method Method) (map[string]Locus, error) {
	results := make(map[string]Locus)
	for i, rsid := range rsids {
		rsid = NormalizeRSID(rsid)
		locus, err := c.Lookup(ctx, rsid, method)
		switch {
		case errors.Cause(err) == ErrNotFound:
			log.Printf("%s: not found", rsid)
		case err != nil:
			return results, err
		default:
			results[rsid] = locus
		}
		if c.Delay > 0 && i < len(rsids)-1 {
			select {
			case <-time.After(c.Delay):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}
	}
	return results, nil
}
