package webapi

import (
	"time"

	"github.com/mlbench/benchdash/internal/models"
)

// RootResponse describes the service.
type RootResponse struct {
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Meta describes where a bundle came from.
type Meta struct {
	Generation     string                 `json:"generation"`
	ComputedAt     time.Time              `json:"computed_at"`
	Stale          bool                   `json:"stale"`
	RefreshError   string                 `json:"refresh_error,omitempty"`
	DroppedRecords int                    `json:"dropped_records"`
	Skipped        []models.SkippedRecord `json:"skipped,omitempty"`
}

// BenchmarksResponse is the full dashboard payload.
type BenchmarksResponse struct {
	Data         []models.ModelRecord       `json:"data"`
	Summary      models.Summary             `json:"summary"`
	Correlations []models.CorrelationMatrix `json:"correlations"`
	Leaderboards []models.Leaderboard       `json:"leaderboards"`
	Meta         Meta                       `json:"meta"`
}

// RefreshResponse acknowledges a background refresh.
type RefreshResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LeaderboardsResponse lists the leaderboards matching a query.
type LeaderboardsResponse struct {
	RankBy       string               `json:"rank_by"`
	Leaderboards []models.Leaderboard `json:"leaderboards"`
	Meta         Meta                 `json:"meta"`
}

// TrendsResponse holds trend points at one granularity.
type TrendsResponse struct {
	Granularity models.Granularity  `json:"granularity"`
	Points      []models.TrendPoint `json:"points"`
	Meta        Meta                `json:"meta"`
}

// AggregateResponse is a recompute over a filtered subset of records.
type AggregateResponse struct {
	Matched      int                        `json:"matched"`
	Total        int                        `json:"total"`
	Summary      models.Summary             `json:"summary"`
	Correlations []models.CorrelationMatrix `json:"correlations"`
	Leaderboards []models.Leaderboard       `json:"leaderboards"`
	Meta         Meta                       `json:"meta"`
}

// ChartResponse wraps one chart payload.
type ChartResponse struct {
	Kind  string `json:"kind"`
	Chart any    `json:"chart"`
	Meta  Meta   `json:"meta"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Status int    `json:"status"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeNoData      = "no_data"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

func metaOf(b *models.Bundle, stale bool, refreshErr error) Meta {
	m := Meta{
		Generation:     b.Generation,
		ComputedAt:     b.ComputedAt,
		Stale:          stale,
		DroppedRecords: b.Dropped,
		Skipped:        b.Skipped,
	}
	if refreshErr != nil {
		m.RefreshError = refreshErr.Error()
	}
	return m
}
