package models

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// TaskStatistics summarizes all models of one task type.
type TaskStatistics struct {
	Task         TaskType           `json:"task_type"`
	ModelCount   int                `json:"model_count"`
	DatasetCount int                `json:"dataset_count"`
	AvgMetrics   map[string]float64 `json:"avg_metrics"`
	TopModels    []string           `json:"top_models"`
}

// DatasetStatistics summarizes all results reported on one dataset.
type DatasetStatistics struct {
	Dataset          string             `json:"dataset_name"`
	Task             TaskType           `json:"task_type"`
	ModelCount       int                `json:"model_count"`
	AvgPerformance   map[string]float64 `json:"avg_performance"`
	BestPerformance  map[string]float64 `json:"best_performance"`
	WorstPerformance map[string]float64 `json:"worst_performance"`
}

// ModelFamilyStatistics summarizes all models of one family.
type ModelFamilyStatistics struct {
	Family            ModelFamily        `json:"family"`
	Architecture      Architecture       `json:"architecture"`
	ModelCount        int                `json:"model_count"`
	AvgParameterCount *float64           `json:"avg_parameter_count"`
	AvgPerformance    map[string]float64 `json:"avg_performance"`
	TaskDistribution  map[TaskType]int   `json:"task_distribution"`
	// DiversityScore is distinct tasks / ln(models + 1). It is a display
	// heuristic only and carries no statistical meaning.
	DiversityScore *float64 `json:"diversity_score,omitempty"`
}

// Granularity selects the width of a trend bucket.
type Granularity string

const (
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// ParseGranularity returns the granularity named by s, or false if s is not
// one of month, quarter or year.
func ParseGranularity(s string) (Granularity, bool) {
	switch Granularity(s) {
	case GranularityMonth, GranularityQuarter, GranularityYear:
		return Granularity(s), true
	default:
		return "", false
	}
}

// TrendPoint is one (bucket, task, metric) aggregate.
type TrendPoint struct {
	Date        string      `json:"date"`
	Granularity Granularity `json:"granularity"`
	Task        TaskType    `json:"task_type"`
	MetricName  string      `json:"metric_name"`
	AvgValue    float64     `json:"avg_value"`
	BestValue   float64     `json:"best_value"`
	ModelCount  int         `json:"model_count"`
}

// Summary is the cross-task block of an aggregate bundle.
type Summary struct {
	TotalModels      int                     `json:"total_models"`
	TotalDatasets    int                     `json:"total_datasets"`
	TaskStats        []TaskStatistics        `json:"task_stats"`
	DatasetStats     []DatasetStatistics     `json:"dataset_stats"`
	ModelFamilyStats []ModelFamilyStatistics `json:"model_family_stats"`
	TrendData        []TrendPoint            `json:"trend_data"`
	LastUpdated      time.Time               `json:"last_updated"`
}

// NotableCorrelation is a defined off-diagonal cell whose magnitude is at or
// above the notable threshold.
type NotableCorrelation struct {
	MetricA     string  `json:"metric_a"`
	MetricB     string  `json:"metric_b"`
	Coefficient float64 `json:"coefficient"`
	Samples     int     `json:"samples"`
}

// CorrelationMatrix holds pairwise Pearson coefficients for one task.
// Defined[i][j] is false when fewer than two paired samples exist or a
// series has no variance; such cells hold 0.
type CorrelationMatrix struct {
	Task    TaskType             `json:"task_type"`
	Metrics []string             `json:"metrics"`
	Matrix  [][]float64          `json:"correlation_matrix"`
	Defined [][]bool             `json:"defined"`
	Samples [][]int              `json:"samples"`
	Notable []NotableCorrelation `json:"notable"`
}

// LeaderboardEntry is one ranked model.
type LeaderboardEntry struct {
	Rank            int                `json:"rank"`
	Model           ModelRecord        `json:"model_info"`
	Primary         EvaluationResult   `json:"primary_metric"`
	Secondary       []EvaluationResult `json:"secondary_metrics"`
	EfficiencyScore *float64           `json:"efficiency_score"`
}

// Leaderboard ranks models for one (task, dataset, metric) triple.
// Entries holds the best values; EfficiencyEntries holds the best
// efficiency scores, drawn from every model on the board rather than only
// the ones that made the value cut.
type Leaderboard struct {
	Task              TaskType           `json:"task_type"`
	Dataset           string             `json:"dataset_name"`
	MetricName        string             `json:"metric_name"`
	MetricKind        MetricKind         `json:"metric_type"`
	LowerIsBetter     bool               `json:"lower_is_better"`
	Entries           []LeaderboardEntry `json:"entries"`
	EfficiencyEntries []LeaderboardEntry `json:"efficiency_entries"`
	LastUpdated       time.Time          `json:"last_updated"`
}

// RankedByEfficiency returns the efficiency ranking. Boards built by the
// aggregator carry it precomputed; otherwise Entries are re-ranked.
func (l *Leaderboard) RankedByEfficiency() []LeaderboardEntry {
	if l.EfficiencyEntries != nil {
		return slices.Clone(l.EfficiencyEntries)
	}
	return RankByEfficiency(l.Entries, l.LowerIsBetter)
}

// RankByEfficiency returns a copy of entries ordered by efficiency score in
// the metric's direction, re-ranked from 1. Entries without an efficiency
// score are omitted. Equal scores keep their input order.
func RankByEfficiency(entries []LeaderboardEntry, lowerIsBetter bool) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.EfficiencyScore != nil {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b LeaderboardEntry) int {
		if lowerIsBetter {
			return cmp.Compare(*a.EfficiencyScore, *b.EfficiencyScore)
		}
		return cmp.Compare(*b.EfficiencyScore, *a.EfficiencyScore)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// SkippedRecord reports a raw record the normalizer dropped.
type SkippedRecord struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Bundle is the immutable output of one aggregation pass. It is replaced
// wholesale on every recompute.
type Bundle struct {
	Generation   string              `json:"generation"`
	ComputedAt   time.Time           `json:"computed_at"`
	Records      []ModelRecord       `json:"data"`
	Summary      Summary             `json:"summary"`
	Correlations []CorrelationMatrix `json:"correlations"`
	Leaderboards []Leaderboard       `json:"leaderboards"`
	Dropped      int                 `json:"dropped_records"`
	Skipped      []SkippedRecord     `json:"skipped,omitempty"`
}

// FindLeaderboard returns the leaderboard for the given triple. Matching is
// exact on task and dataset and case-insensitive on the metric name.
func (b *Bundle) FindLeaderboard(task TaskType, dataset, metric string) (*Leaderboard, bool) {
	for i := range b.Leaderboards {
		lb := &b.Leaderboards[i]
		if lb.Task == task && lb.Dataset == dataset && strings.EqualFold(lb.MetricName, metric) {
			return lb, true
		}
	}
	return nil, false
}
