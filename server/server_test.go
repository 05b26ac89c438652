package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/source"
)

// ============================================================================
// FIXTURES
// ============================================================================

type brokenSource struct{}

func (brokenSource) Name() string { return "broken" }

func (brokenSource) Load(ctx context.Context) (*source.Dataset, error) {
	return nil, &source.LoadError{Source: "broken", Err: errors.New("connection refused")}
}

func newTestServer(t *testing.T, src source.Source) *Server {
	t.Helper()
	return New(src, dashboard.DefaultLayout(), WithLogger(zaptest.NewLogger(t)))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// ============================================================================
// ROUTES
// ============================================================================

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, source.NewEmbedded()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPage(t *testing.T) {
	s := newTestServer(t, source.NewEmbedded())

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<title>Sales dashboard</title>")
	assert.Contains(t, rec.Body.String(), "R$ 85.34 mil")

	rec = get(t, s, "/?region=Sul")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="Sul" selected>Sul</option>`)
}

func TestDashboardJSON(t *testing.T) {
	s := newTestServer(t, source.NewEmbedded())

	rec := get(t, s, "/api/dashboard?region=Sul")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 100, d.Total)
	assert.Equal(t, 22, d.Matched)
	assert.Equal(t, []string{"Sul"}, d.Filters.Dimensions["region"])
	assert.Len(t, d.Records.Rows, 22)
}

func TestDashboardJSONTopN(t *testing.T) {
	rec := get(t, newTestServer(t, source.NewEmbedded()), "/api/dashboard?top=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	p, ok := d.Panel("top_sellers_income")
	require.True(t, ok)
	assert.Equal(t, "Top 3 sellers (income)", p.Title)
	assert.Len(t, p.ChartConfig.Series[0].Data, 3)
}

func TestControlsJSON(t *testing.T) {
	rec := get(t, newTestServer(t, source.NewEmbedded()), "/api/controls?seller=Ana+Souza")
	require.Equal(t, http.StatusOK, rec.Code)

	var controls []dashboard.Control
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &controls))
	require.Len(t, controls, 5)
	assert.Equal(t, "seller", controls[2].Key)
	var selected []string
	for _, o := range controls[2].Options {
		if o.Selected {
			selected = append(selected, o.Value)
		}
	}
	assert.Equal(t, []string{"Ana Souza"}, selected)
}

func TestChartPNG(t *testing.T) {
	s := newTestServer(t, source.NewEmbedded())

	rec := get(t, s, "/charts/top_states_income.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = get(t, s, "/charts/monthly_qty.png?w=400&h=300")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/charts/unknown.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/charts/top_states_income.png?region=Atlantis")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestExportCSV(t *testing.T) {
	rec := get(t, newTestServer(t, source.NewEmbedded()), "/export.csv?region=Sul")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales.csv")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 22+2)
	assert.True(t, strings.HasPrefix(rows[len(rows)-1][0], "Total (22 records)"))
}

func TestLoadFailure(t *testing.T) {
	s := newTestServer(t, brokenSource{})

	rec := get(t, s, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), msgLoadFailed)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = get(t, s, "/api/dashboard")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"`+msgLoadFailed+`"}`, rec.Body.String())

	rec = get(t, s, "/api/controls")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, s, "/charts/top_states_income.png")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(t, s, "/export.csv")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetrics(t *testing.T) {
	s := New(brokenSource{}, dashboard.DefaultLayout())
	get(t, s, "/")
	get(t, s, "/api/dashboard")

	ok := New(source.NewEmbedded(), dashboard.DefaultLayout(), WithMetrics(s.Metrics()))
	get(t, ok, "/?region=Sul")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `salesdash_runs_total{outcome="load_error"} 2`)
	assert.Contains(t, body, `salesdash_runs_total{outcome="ok"} 1`)
	assert.Contains(t, body, "salesdash_dataset_records 100")
	assert.Contains(t, body, "salesdash_filtered_records 22")
	assert.Contains(t, body, "salesdash_run_duration_seconds_count 3")
}

func TestCORSPreflight(t *testing.T) {
	s := New(source.NewEmbedded(), dashboard.DefaultLayout(), WithAllowedOrigins([]string{"http://localhost:3000"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// ============================================================================
// LIFECYCLE
// ============================================================================

func TestRunShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: newTestServer(t, source.NewEmbedded()), ReadHeaderTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, ln, time.Second) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
