package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/salesdash/schema"
)

// ============================================================================
// SOURCE TESTS
// ============================================================================

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileSourceCSVAndJSON(t *testing.T) {
	ctx := context.Background()

	csvPath := writeFile(t, "sales.csv", smallCSV)
	ds, err := (&File{Path: csvPath}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "file:"+csvPath, ds.Name)
	assert.False(t, ds.LoadedAt.IsZero())

	jsonPath := writeFile(t, "produtos.json", smallJSON)
	ds, err = (&File{Path: jsonPath, Schema: schema.Sales()}).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestFileSourceMissingIsLoadError(t *testing.T) {
	_, err := (&File{Path: filepath.Join(t.TempDir(), "nope.csv")}).Load(context.Background())

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Source, "nope.csv")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileSourceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&File{Path: writeFile(t, "sales.csv", smallCSV)}).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSource(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, smallJSON)
	}))
	defer srv.Close()

	src := &HTTP{URL: srv.URL + "/produtos", Params: url.Values{"regiao": {"sudeste"}, "ano": {"0"}}}
	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "sudeste", gotQuery.Get("regiao"))
	assert.Equal(t, "0", gotQuery.Get("ano"))
}

func TestHTTPSourceCSVByPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, smallCSV)
	}))
	defer srv.Close()

	ds, err := (&HTTP{URL: srv.URL + "/sales.csv"}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestHTTPSourceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := (&HTTP{URL: srv.URL}).Load(context.Background())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, err.Error(), "502")
}

type fakeGetter struct {
	bodies map[string]string
	input  *s3.GetObjectInput
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	body, ok := f.bodies[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source(t *testing.T) {
	getter := &fakeGetter{bodies: map[string]string{"exports/produtos.json": smallJSON}}

	src := &S3{Client: getter, Bucket: "vendas", Key: "exports/produtos.json"}
	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "s3://vendas/exports/produtos.json", ds.Name)
	assert.Equal(t, "vendas", aws.ToString(getter.input.Bucket))

	_, err = (&S3{Client: getter, Bucket: "vendas", Key: "missing.csv"}).Load(context.Background())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorContains(t, err, "NoSuchKey")

	_, err = (&S3{Bucket: "vendas"}).Load(context.Background())
	assert.ErrorAs(t, err, &le)
}

func TestSQLSourceSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(DriverSQLite, ":memory:")
	require.NoError(t, err)
	src := &SQL{DB: db, Driver: DriverSQLite, Schema: schema.Sales(),
		Query: `SELECT "Produto", "Preço", "Data da Compra", seller, "Local da compra" FROM vendas ORDER BY id`}
	defer src.Close()

	_, err = db.ExecContext(ctx, `CREATE TABLE vendas (
		id INTEGER PRIMARY KEY,
		"Produto" TEXT, "Preço" REAL, "Data da Compra" TEXT, seller TEXT, "Local da compra" TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO vendas ("Produto", "Preço", "Data da Compra", seller, "Local da compra") VALUES
		('Livro', 45.5, '25/03/2021', 'Ana', 'SP'),
		('Mesa', 300, '02/01/2022', 'Beto', 'RJ'),
		('Sem data', 10, NULL, 'Beto', 'RJ')`)
	require.NoError(t, err)

	ds, err := src.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, 1, ds.Skipped)

	v := ds.View()
	assert.Equal(t, 45.5, v.Measure(0, "price"))
	assert.Equal(t, "Ana", v.Dimension(0, "seller"))
	assert.Equal(t, 300.0, v.Measure(1, "price"))
	assert.Equal(t, "2022-01", v.Dimension(1, schema.PeriodKey))
}

func TestSQLSourceBadQuery(t *testing.T) {
	db, err := OpenSQL(DriverSQLite, ":memory:")
	require.NoError(t, err)
	src := &SQL{DB: db, Driver: DriverSQLite, Query: "SELECT * FROM nowhere"}
	defer src.Close()

	_, err = src.Load(context.Background())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "sql:sqlite", le.Source)
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL("mysql", "dsn")
	assert.ErrorContains(t, err, "unsupported sql driver")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	src, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Embedded{}, src)

	src, err = Open(ctx, Options{Kind: KindFile, Path: "sales.csv"})
	require.NoError(t, err)
	assert.IsType(t, &File{}, src)

	src, err = Open(ctx, Options{Kind: KindFile, Path: "sales.csv", Watch: true})
	require.NoError(t, err)
	assert.IsType(t, &Watched{}, src)

	src, err = Open(ctx, Options{Kind: KindHTTP, URL: "https://labdados.com/produtos"})
	require.NoError(t, err)
	assert.Equal(t, "http:https://labdados.com/produtos", src.Name())

	src, err = Open(ctx, Options{Kind: KindSQL, Driver: DriverSQLite, DSN: ":memory:", Query: "SELECT 1"})
	require.NoError(t, err)
	require.Implements(t, (*io.Closer)(nil), src)
	require.NoError(t, src.(io.Closer).Close())

	for _, bad := range []Options{
		{Kind: KindFile},
		{Kind: KindHTTP},
		{Kind: KindSQL, Driver: DriverSQLite},
		{Kind: "ftp"},
	} {
		_, err := Open(ctx, bad)
		assert.Error(t, err, bad.Kind)
	}
}
