package charts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mlbench/benchdash/internal/models"
)

var (
	// ErrUnknownKind is returned by Build for a kind not in Kinds.
	ErrUnknownKind = errors.New("charts: unknown chart kind")
	// ErrNoData is returned when the source has nothing to plot for the
	// requested parameters.
	ErrNoData = errors.New("charts: no data for chart")
)

// Default chart parameters.
const (
	DefaultMetric   = "accuracy"
	DefaultBars     = 10
	DefaultFamilies = 8
)

// Params narrows a chart. Zero fields use the defaults or match everything.
type Params struct {
	Metric  string
	N       int
	Task    models.TaskType
	Dataset string
	Axes    []string
}

// Build renders the chart of the given kind from src.
func Build(src Source, kind string, p Params) (any, error) {
	metric := strings.TrimSpace(p.Metric)
	switch kind {
	case KindTopModels:
		if metric == "" {
			metric = DefaultMetric
		}
		return TopModelsBar(src.Records, metric, orDefault(p.N, DefaultBars)), nil

	case KindFamilies:
		return FamilyRadar(src.Records, p.Axes, orDefault(p.N, DefaultFamilies)), nil

	case KindEfficiency:
		lb := pickLeaderboard(src.LeaderboardView(), p.Task, p.Dataset, metric)
		if lb == nil {
			return nil, fmt.Errorf("%w: no leaderboard matches task=%q dataset=%q metric=%q", ErrNoData, p.Task, p.Dataset, metric)
		}
		return EfficiencyScatter(lb), nil

	case KindHeatmap:
		maps := []Heatmap{}
		for _, m := range src.CorrelationView() {
			if p.Task == "" || m.Task == p.Task {
				maps = append(maps, CorrelationHeatmap(m))
			}
		}
		if p.Task != "" && len(maps) == 0 {
			return nil, fmt.Errorf("%w: no correlation matrix for task %q", ErrNoData, p.Task)
		}
		return maps, nil

	case KindTrends:
		var points []models.TrendPoint
		for _, tp := range src.TrendView() {
			if p.Task != "" && tp.Task != p.Task {
				continue
			}
			if metric != "" && !strings.Contains(strings.ToLower(tp.MetricName), strings.ToLower(metric)) {
				continue
			}
			points = append(points, tp)
		}
		return TrendLines(points), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// pickLeaderboard returns the first board matching every set filter. The
// metric filter is a case-insensitive substring match.
func pickLeaderboard(boards []models.Leaderboard, task models.TaskType, dataset, metric string) *models.Leaderboard {
	metric = strings.ToLower(metric)
	for i := range boards {
		lb := &boards[i]
		if task != "" && lb.Task != task {
			continue
		}
		if dataset != "" && lb.Dataset != dataset {
			continue
		}
		if metric != "" && !strings.Contains(strings.ToLower(lb.MetricName), metric) {
			continue
		}
		return lb
	}
	return nil
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
