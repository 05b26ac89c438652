package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spektr-org/salesdash/data"
	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// SOURCES — Where a run gets its dataset from
// ============================================================================
// Every Load returns a fresh, immutable Dataset or a *LoadError. Sources keep
// no state between loads (Watched is the caching exception).
//
//   File      local CSV or JSON file
//   Embedded  bytes compiled into the binary (the bundled fixture)
//   HTTP      GET a CSV or JSON URL
//   S3        object in a bucket (s3.go)
//   SQL       query against sqlite or postgres (sql.go)
// ============================================================================

// Source yields a dataset per run.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Dataset, error)
}

// maxBodyBytes caps remote bodies.
const maxBodyBytes = 64 << 20

// ============================================================================
// FILE
// ============================================================================

// File reads a local CSV or JSON file; the format follows the extension.
type File struct {
	Path   string
	Schema schema.Config
}

func (f *File) Name() string { return "file:" + f.Path }

func (f *File) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, loadFailed(f.Name(), err)
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, loadFailed(f.Name(), err)
	}
	defer fh.Close()

	ds, err := Parse(fh, FormatFor(f.Path), schemaOrDefault(f.Schema))
	if err != nil {
		return nil, loadFailed(f.Name(), err)
	}
	ds.Name = f.Name()
	return ds, nil
}

// ============================================================================
// EMBEDDED
// ============================================================================

// Embedded parses bytes held in memory.
type Embedded struct {
	Label  string
	Data   []byte
	Format Format
	Schema schema.Config
}

// NewEmbedded returns the bundled sales dataset.
func NewEmbedded() *Embedded {
	return &Embedded{Label: data.SalesName, Data: data.SalesCSV, Format: FormatCSV, Schema: schema.Sales()}
}

func (e *Embedded) Name() string { return e.Label }

func (e *Embedded) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, loadFailed(e.Name(), err)
	}
	ds, err := Parse(bytes.NewReader(e.Data), e.Format, schemaOrDefault(e.Schema))
	if err != nil {
		return nil, loadFailed(e.Name(), err)
	}
	ds.Name = e.Name()
	return ds, nil
}

// ============================================================================
// HTTP
// ============================================================================

// HTTP fetches a dataset with GET. JSON is chosen when the response says so
// or the URL path ends in .json; anything else is read as CSV.
type HTTP struct {
	URL     string
	Params  url.Values // appended to the query string, e.g. regiao/ano
	Client  *http.Client
	Timeout time.Duration
	Schema  schema.Config
}

func (h *HTTP) Name() string { return "http:" + h.URL }

func (h *HTTP) Load(ctx context.Context) (*Dataset, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	u, err := url.Parse(h.URL)
	if err != nil {
		return nil, loadFailed(h.Name(), err)
	}
	if len(h.Params) > 0 {
		q := u.Query()
		for k, vs := range h.Params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, loadFailed(h.Name(), err)
	}
	req.Header.Set("Accept", "application/json, text/csv")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, loadFailed(h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, loadFailed(h.Name(), fmt.Errorf("unexpected status %s", resp.Status))
	}

	format := FormatFor(u.Path)
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/json":
			format = FormatJSON
		case "text/csv":
			format = FormatCSV
		}
	}

	ds, err := Parse(io.LimitReader(resp.Body, maxBodyBytes), format, schemaOrDefault(h.Schema))
	if err != nil {
		return nil, loadFailed(h.Name(), err)
	}
	ds.Name = h.Name()
	return ds, nil
}

func schemaOrDefault(sch schema.Config) schema.Config {
	if len(sch.Columns) == 0 {
		return schema.Sales()
	}
	return sch
}
