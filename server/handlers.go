package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/engine"
	"github.com/spektr-org/salesdash/render"
	"github.com/spektr-org/salesdash/source"
)

// ============================================================================
// HANDLERS — One dashboard run per request
// ============================================================================

// Messages shown when a run fails. Details go to the log only.
const (
	msgLoadFailed  = "the sales data could not be loaded"
	msgBuildFailed = "the dashboard could not be built"
)

// RegisterRoutes mounts every route on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", s.Page)
	r.Get("/api/dashboard", s.DashboardJSON)
	r.Get("/api/controls", s.ControlsJSON)
	r.Get("/charts/{panel}.png", s.ChartPNG)
	r.Get("/export.csv", s.ExportCSV)
	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

// run loads the dataset and builds the dashboard for the request's query.
func (s *Server) run(r *http.Request) (*dashboard.Dashboard, error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		s.metrics.Runs.WithLabelValues(outcome).Inc()
		s.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	ds, err := s.source.Load(r.Context())
	if err != nil {
		outcome = OutcomeLoadError
		s.logger.Error("dataset load failed", zap.String("source", s.source.Name()), zap.Error(err))
		return nil, err
	}
	s.metrics.DatasetRecords.Set(float64(ds.Len()))

	sel := dashboard.ParseSelection(r.URL.Query(), s.layout)
	d, err := dashboard.Build(ds, sel, s.layout, dashboard.WithLogger(s.logger))
	if err != nil {
		outcome = OutcomeError
		s.logger.Error("dashboard build failed", zap.Error(err))
		return nil, err
	}
	s.metrics.FilteredRecords.Set(float64(d.Matched))
	return d, nil
}

func failureMessage(err error) string {
	var le *source.LoadError
	if errors.As(err, &le) {
		return msgLoadFailed
	}
	return msgBuildFailed
}

// Page renders the HTML dashboard.
func (s *Server) Page(w http.ResponseWriter, r *http.Request) {
	d, err := s.run(r)
	if err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = render.ErrorPage(w, s.layout.Title, errors.New(failureMessage(err)))
		return
	}

	var buf bytes.Buffer
	if err := render.HTML(&buf, d); err != nil {
		s.logger.Error("template error", zap.Error(err))
		http.Error(w, msgBuildFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// DashboardJSON returns the whole run as JSON.
func (s *Server) DashboardJSON(w http.ResponseWriter, r *http.Request) {
	d, err := s.run(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": failureMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ControlsJSON returns the sidebar widgets for the query's selection.
func (s *Server) ControlsJSON(w http.ResponseWriter, r *http.Request) {
	ds, err := s.source.Load(r.Context())
	if err != nil {
		s.logger.Error("dataset load failed", zap.String("source", s.source.Name()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgLoadFailed})
		return
	}
	sel := dashboard.ParseSelection(r.URL.Query(), s.layout)
	writeJSON(w, http.StatusOK, dashboard.Controls(ds.View(), s.layout, sel))
}

// ChartPNG renders one chart panel as a PNG. Unknown or non-chart panels
// are 404; a chart with nothing to draw is 204.
func (s *Server) ChartPNG(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "panel")
	if !s.isChartPanel(id) {
		http.NotFound(w, r)
		return
	}

	d, err := s.run(r)
	if err != nil {
		http.Error(w, failureMessage(err), http.StatusInternalServerError)
		return
	}
	res, ok := d.Panel(id)
	if !ok || res.ChartConfig == nil || res.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	height, _ := strconv.Atoi(r.URL.Query().Get("h"))
	var buf bytes.Buffer
	if err := render.PNG(&buf, res.ChartConfig, clampSize(width, 200, 2000), clampSize(height, 150, 1500)); err != nil {
		if errors.Is(err, render.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.logger.Error("chart render failed", zap.String("panel", id), zap.Error(err))
		http.Error(w, msgBuildFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) isChartPanel(id string) bool {
	for _, p := range s.layout.Panels() {
		if p.ID == id {
			return p.Intent == engine.IntentChart
		}
	}
	return false
}

// clampSize keeps a requested image dimension in range; 0 keeps the default.
func clampSize(v, min, max int) int {
	switch {
	case v == 0:
		return 0
	case v < min:
		return min
	case v > max:
		return max
	}
	return v
}

// ExportCSV downloads the filtered records.
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	d, err := s.run(r)
	if err != nil {
		http.Error(w, failureMessage(err), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := render.WriteTableCSV(&buf, d.Records); err != nil {
		s.logger.Error("csv export failed", zap.Error(err))
		http.Error(w, msgBuildFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
	_, _ = buf.WriteTo(w)
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
