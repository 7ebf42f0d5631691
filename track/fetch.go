package track

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// source bundles a reader with the cleanup chain that releases it.
type source struct {
	r     io.Reader
	close func() error
}

func (s *source) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *source) Close() error               { return s.close() }

func httpURL(src string) *url.URL {
	u, err := url.Parse(src)
	if err != nil {
		return nil
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u
	}
	return nil
}

// Open opens a track source for reading, transparently decompressing
// a gzip payload.  src may be an http(s) URL or any path the file
// package understands, local paths and s3:// included.  A non-200
// HTTP response is an error; there are no retries, since resuming a
// partially fetched table silently is worse than failing.
func Open(ctx context.Context, src string) (io.ReadCloser, error) {
	r, closeRaw, err := openRaw(ctx, src)
	if err != nil {
		return nil, err
	}
	typePath := src
	if u := httpURL(src); u != nil {
		// Judge the compression type from the URL path so a query
		// string cannot hide a .gz suffix.
		typePath = u.Path
	}
	if fileio.DetermineType(typePath) != fileio.Gzip {
		return &source{r: r, close: closeRaw}, nil
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		closeRaw() // nolint: errcheck
		return nil, fmt.Errorf("track.Open %s: bad gzip stream: %v", src, err)
	}
	return &source{
		r: gz,
		close: func() error {
			err := gz.Close()
			if cerr := closeRaw(); err == nil {
				err = cerr
			}
			return err
		},
	}, nil
}

// openRaw returns the undecompressed byte stream for src.
func openRaw(ctx context.Context, src string) (io.Reader, func() error, error) {
	if httpURL(src) != nil {
		req, err := http.NewRequest("GET", src, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("track.Open %s: %v", src, err)
		}
		resp, err := http.DefaultClient.Do(req.WithContext(ctx))
		if err != nil {
			return nil, nil, fmt.Errorf("track.Open %s: %v", src, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close() // nolint: errcheck
			return nil, nil, fmt.Errorf("track.Open %s: %s", src, resp.Status)
		}
		return resp.Body, resp.Body.Close, nil
	}
	in, err := file.Open(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	return in.Reader(ctx), func() error { return in.Close(ctx) }, nil
}
