// Package charts reshapes aggregate views into series for the dashboard's
// plotting library. Most adapters only reorganize values the aggregation
// package produced; the family radar also attaches bootstrap confidence
// intervals to its per-family means. When a view was not precomputed it is
// recomputed from the records with the aggregation package, the same code
// the server uses to build its bundle.
package charts

import (
	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/models"
)

// Source is the input to the chart adapters. Nil views are absent and are
// recomputed from Records on demand.
type Source struct {
	Summary      *models.Summary
	Correlations []models.CorrelationMatrix
	Trends       []models.TrendPoint
	Leaderboards []models.Leaderboard
	Records      []models.ModelRecord
	Options      aggregation.Options
}

// FromBundle returns a source with every precomputed view of b.
func FromBundle(b *models.Bundle) Source {
	summary := b.Summary
	return Source{
		Summary:      &summary,
		Correlations: b.Correlations,
		Trends:       b.Summary.TrendData,
		Leaderboards: b.Leaderboards,
		Records:      b.Records,
	}
}

// FromRecords returns a source with no precomputed views. Every view is
// recomputed from records.
func FromRecords(records []models.ModelRecord, opts aggregation.Options) Source {
	return Source{Records: records, Options: opts}
}

// Resolve returns a copy of s with every missing view filled in.
func (s Source) Resolve() Source {
	summary := s.SummaryView()
	s.Summary = &summary
	s.Correlations = s.CorrelationView()
	s.Trends = s.TrendView()
	s.Leaderboards = s.LeaderboardView()
	return s
}

// SummaryView returns the precomputed summary or recomputes it.
func (s Source) SummaryView() models.Summary {
	if s.Summary != nil {
		return *s.Summary
	}
	return aggregation.Summarize(s.Records, s.Options)
}

// CorrelationView returns the precomputed correlation matrices or
// recomputes them.
func (s Source) CorrelationView() []models.CorrelationMatrix {
	if s.Correlations != nil {
		return s.Correlations
	}
	threshold := s.Options.NotableThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = aggregation.DefaultOptions().NotableThreshold
	}
	return aggregation.Correlations(s.Records, threshold)
}

// TrendView returns the precomputed trend points or recomputes them at
// the configured granularity.
func (s Source) TrendView() []models.TrendPoint {
	if s.Trends != nil {
		return s.Trends
	}
	if s.Summary != nil && s.Summary.TrendData != nil {
		return s.Summary.TrendData
	}
	return aggregation.Trends(s.Records, s.Options.Granularity)
}

// LeaderboardView returns the precomputed leaderboards or recomputes them.
func (s Source) LeaderboardView() []models.Leaderboard {
	if s.Leaderboards != nil {
		return s.Leaderboards
	}
	return aggregation.Leaderboards(s.Records, s.Options)
}
