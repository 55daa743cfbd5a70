package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/cache"
	"github.com/mlbench/benchdash/internal/charts"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/reporting"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0-dev"

// Endpoints lists the routes registered by RegisterRoutes.
var Endpoints = []string{
	"GET /",
	"GET /health",
	"GET /api/benchmarks",
	"POST /api/refresh",
	"GET /api/cache-status",
	"GET /api/leaderboards",
	"GET /api/trends",
	"GET /api/aggregate",
	"GET /api/charts/{kind}",
	"GET /api/report",
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	store  BundleStore
	opts   aggregation.Options
	logger *slog.Logger
	now    func() time.Time
}

// NewHandlers creates Handlers serving bundles from store. opts is used when
// a view is recomputed for a request.
func NewHandlers(store BundleStore, opts aggregation.Options, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HandleRoot describes the service.
func (h *Handlers) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message:   "ML benchmark dashboard API",
		Version:   Version,
		Endpoints: Endpoints,
	})
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now(),
		Version:   Version,
	})
}

// HandleBenchmarks returns the full bundle, refreshing it first when
// force_refresh is true.
func (h *Handlers) HandleBenchmarks(w http.ResponseWriter, r *http.Request) {
	force, err := boolParam(r.URL.Query(), "force_refresh")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	res, ok := h.bundle(w, r, force)
	if !ok {
		return
	}
	b := res.Bundle
	writeJSON(w, http.StatusOK, BenchmarksResponse{
		Data:         b.Records,
		Summary:      b.Summary,
		Correlations: b.Correlations,
		Leaderboards: b.Leaderboards,
		Meta:         metaOf(b, res.Stale, res.RefreshError),
	})
}

// HandleRefresh starts a background refresh and returns immediately.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	done := h.store.RefreshAsync(context.WithoutCancel(r.Context()))
	go func() {
		if err := <-done; err != nil {
			h.logger.Warn("background refresh failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, RefreshResponse{
		Message:   "Data refresh started in background",
		Timestamp: h.now(),
	})
}

// HandleCacheStatus reports the cache state.
func (h *Handlers) HandleCacheStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Status())
}

// HandleLeaderboards lists leaderboards filtered by task, dataset and a
// metric substring. rank_by=efficiency reorders entries by efficiency score.
func (h *Handlers) HandleLeaderboards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	task, err := taskParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	rankBy := strings.ToLower(strings.TrimSpace(q.Get("rank_by")))
	switch rankBy {
	case "":
		rankBy = "value"
	case "value", "efficiency":
	default:
		writeError(w, http.StatusBadRequest, CodeBadRequest, (&paramError{Name: "rank_by", Value: rankBy, Want: "value or efficiency"}).Error())
		return
	}

	res, ok := h.bundle(w, r, false)
	if !ok {
		return
	}
	dataset := strings.TrimSpace(q.Get("dataset"))
	metric := strings.ToLower(strings.TrimSpace(q.Get("metric")))

	out := []models.Leaderboard{}
	for _, lb := range res.Bundle.Leaderboards {
		if task != "" && lb.Task != task {
			continue
		}
		if dataset != "" && lb.Dataset != dataset {
			continue
		}
		if metric != "" && !strings.Contains(strings.ToLower(lb.MetricName), metric) {
			continue
		}
		if rankBy == "efficiency" {
			lb.Entries = lb.RankedByEfficiency()
		}
		if limit > 0 && len(lb.Entries) > limit {
			lb.Entries = lb.Entries[:limit]
		}
		if limit > 0 && len(lb.EfficiencyEntries) > limit {
			lb.EfficiencyEntries = lb.EfficiencyEntries[:limit]
		}
		out = append(out, lb)
	}
	writeJSON(w, http.StatusOK, LeaderboardsResponse{
		RankBy:       rankBy,
		Leaderboards: out,
		Meta:         metaOf(res.Bundle, res.Stale, res.RefreshError),
	})
}

// HandleTrends returns trend points, recomputing them when the requested
// granularity differs from the bundle's.
func (h *Handlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	task, err := taskParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	g := models.GranularityMonth
	if v := strings.TrimSpace(q.Get("granularity")); v != "" {
		parsed, ok := models.ParseGranularity(strings.ToLower(v))
		if !ok {
			writeError(w, http.StatusBadRequest, CodeBadRequest, (&paramError{Name: "granularity", Value: v, Want: "month, quarter or year"}).Error())
			return
		}
		g = parsed
	}

	res, ok := h.bundle(w, r, false)
	if !ok {
		return
	}
	b := res.Bundle
	points := b.Summary.TrendData
	if len(points) == 0 || points[0].Granularity != g {
		points = aggregation.Trends(b.Records, g)
	}
	out := []models.TrendPoint{}
	for _, p := range points {
		if task == "" || p.Task == task {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, TrendsResponse{
		Granularity: g,
		Points:      out,
		Meta:        metaOf(b, res.Stale, res.RefreshError),
	})
}

// HandleAggregate recomputes the summary views over the records matching
// the query parameters.
func (h *Handlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	res, ok := h.bundle(w, r, false)
	if !ok {
		return
	}
	b := res.Bundle
	subset := aggregation.Filter(b.Records, query)

	var src charts.Source
	if err := guardView(func() { src = charts.FromRecords(subset, h.opts).Resolve() }); err != nil {
		h.logger.Error("filtered aggregation failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "aggregation failed")
		return
	}
	writeJSON(w, http.StatusOK, AggregateResponse{
		Matched:      len(subset),
		Total:        len(b.Records),
		Summary:      *src.Summary,
		Correlations: src.Correlations,
		Leaderboards: src.Leaderboards,
		Meta:         metaOf(b, res.Stale, res.RefreshError),
	})
}

// HandleChart renders one chart from the current bundle.
func (h *Handlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	q := r.URL.Query()
	n, err := intParam(q, "n")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	task, err := taskParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, ok := h.bundle(w, r, false)
	if !ok {
		return
	}
	chart, err := charts.Build(charts.FromBundle(res.Bundle), kind, charts.Params{
		Metric:  q.Get("metric"),
		N:       n,
		Task:    task,
		Dataset: strings.TrimSpace(q.Get("dataset")),
		Axes:    listParam(q, "axes"),
	})
	switch {
	case errors.Is(err, charts.ErrUnknownKind):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	case errors.Is(err, charts.ErrNoData):
		writeError(w, http.StatusNotFound, CodeNoData, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChartResponse{
		Kind:  kind,
		Chart: chart,
		Meta:  metaOf(res.Bundle, res.Stale, res.RefreshError),
	})
}

// HandleReport renders the bundle as an HTML page, or Markdown with
// format=md.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	outputFormat := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if outputFormat == "" {
		outputFormat = "html"
	}
	if outputFormat != "html" && outputFormat != "md" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, (&paramError{Name: "format", Value: outputFormat, Want: "html or md"}).Error())
		return
	}
	res, ok := h.bundle(w, r, false)
	if !ok {
		return
	}
	body, err := reporting.Render(res.Bundle, outputFormat, reporting.Options{})
	if err != nil {
		h.logger.Error("report rendering failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "report rendering failed")
		return
	}
	contentType := "text/html; charset=utf-8"
	if outputFormat == "md" {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

// bundle fetches the current bundle and writes the error response when there
// is none to serve.
func (h *Handlers) bundle(w http.ResponseWriter, r *http.Request, force bool) (cache.Result, bool) {
	res, err := h.store.GetOrCompute(r.Context(), force)
	if err == nil {
		if res.Stale {
			h.logger.Warn("serving stale benchmark data", "generation", res.Bundle.Generation, "error", res.RefreshError)
		}
		return res, true
	}

	var ce *aggregation.ComputationError
	switch {
	case errors.As(err, &ce):
		h.logger.Error("aggregation failed", "view", ce.View, "error", ce.Cause, "stack", string(ce.Stack))
		writeError(w, http.StatusInternalServerError, CodeInternal, "aggregation failed")
	case errors.Is(err, cache.ErrUnavailable):
		h.logger.Warn("benchmark data unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "benchmark data is not available yet: "+err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "request cancelled before data was ready")
	default:
		h.logger.Error("loading benchmark data failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
	return cache.Result{}, false
}

// guardView runs a request-time recompute, converting a panic into an error.
func guardView(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &aggregation.ComputationError{View: "filtered", Cause: fmt.Errorf("%v", r), Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/benchmarks", h.HandleBenchmarks)
	mux.HandleFunc("POST /api/refresh", h.HandleRefresh)
	mux.HandleFunc("GET /api/cache-status", h.HandleCacheStatus)
	mux.HandleFunc("GET /api/leaderboards", h.HandleLeaderboards)
	mux.HandleFunc("GET /api/trends", h.HandleTrends)
	mux.HandleFunc("GET /api/aggregate", h.HandleAggregate)
	mux.HandleFunc("GET /api/charts/{kind}", h.HandleChart)
	mux.HandleFunc("GET /api/report", h.HandleReport)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code, Status: status})
}
