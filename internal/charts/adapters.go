package charts

import (
	"cmp"
	"slices"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/format"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/statistics"
)

// Chart kinds served by the API.
const (
	KindTopModels  = "top-models"
	KindFamilies   = "family-radar"
	KindEfficiency = "efficiency"
	KindHeatmap    = "heatmap"
	KindTrends     = "trends"
)

// Kinds lists every chart kind.
var Kinds = []string{KindTopModels, KindFamilies, KindEfficiency, KindHeatmap, KindTrends}

// DefaultRadarAxes are the metric categories of the family radar chart.
var DefaultRadarAxes = []string{"accuracy", "f1", "precision", "recall", "bleu", "rouge"}

const (
	radarConfidence = 0.95
	radarSeed       = 7
)

// Bar is one bar of a ranked bar chart.
type Bar struct {
	ModelID string  `json:"model_id"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
	Metric  string  `json:"metric_name"`
}

// BarChart ranks models on one metric category.
type BarChart struct {
	Metric string `json:"metric"`
	Title  string `json:"title"`
	Bars   []Bar  `json:"bars"`
}

// TopModelsBar ranks models by their best result whose metric name contains
// metric. Models without such a result are left out. At most n bars are
// returned, highest value first, ties in record order.
func TopModelsBar(records []models.ModelRecord, metric string, n int) BarChart {
	var bars []Bar
	for i := range records {
		rec := &records[i]
		best, ok := aggregation.BestMatching(rec, metric)
		if !ok {
			continue
		}
		bars = append(bars, Bar{
			ModelID: rec.ID,
			Label:   rec.Name,
			Value:   best.Value,
			Display: format.FormatValue(best.MetricName, best.Value),
			Metric:  best.MetricName,
		})
	}
	return BarChart{
		Metric: metric,
		Title:  "Top Models by " + format.MetricLabel(metric),
		Bars:   aggregation.TopN(bars, n, func(a, b Bar) bool { return a.Value > b.Value }),
	}
}

// RadarPoint is one axis value of a family. A nil Value means no model of
// the family reported a matching metric.
type RadarPoint struct {
	Value    *float64                       `json:"value"`
	Interval *statistics.ConfidenceInterval `json:"interval,omitempty"`
	Samples  int                            `json:"samples"`
}

// RadarSeries is one family on the radar chart.
type RadarSeries struct {
	Family     models.ModelFamily `json:"family"`
	Label      string             `json:"label"`
	ModelCount int                `json:"model_count"`
	Points     []RadarPoint       `json:"points"`
}

// RadarChart compares families across metric categories.
type RadarChart struct {
	Axes   []string      `json:"axes"`
	Labels []string      `json:"labels"`
	Series []RadarSeries `json:"series"`
}

// FamilyRadar averages each family's per-model best values for every axis
// category and attaches a bootstrap confidence interval. Families with no
// matching result on any axis are left out. The n families with the most
// contributing models are kept.
func FamilyRadar(records []models.ModelRecord, axes []string, n int) RadarChart {
	if len(axes) == 0 {
		axes = DefaultRadarAxes
	}

	type acc struct {
		models int
		values [][]float64
	}
	byFamily := map[models.ModelFamily]*acc{}
	for i := range records {
		rec := &records[i]
		a, ok := byFamily[rec.Family]
		if !ok {
			a = &acc{values: make([][]float64, len(axes))}
			byFamily[rec.Family] = a
		}
		contributed := false
		for j, axis := range axes {
			if best, ok := aggregation.BestMatching(rec, axis); ok {
				a.values[j] = append(a.values[j], best.Value)
				contributed = true
			}
		}
		if contributed {
			a.models++
		}
	}

	families := make([]models.ModelFamily, 0, len(byFamily))
	for f, a := range byFamily {
		if a.models > 0 {
			families = append(families, f)
		}
	}
	slices.Sort(families)
	families = aggregation.TopN(families, n, func(x, y models.ModelFamily) bool {
		return byFamily[x].models > byFamily[y].models
	})

	chart := RadarChart{Axes: axes, Labels: make([]string, len(axes)), Series: []RadarSeries{}}
	for j, axis := range axes {
		chart.Labels[j] = format.MetricLabel(axis)
	}
	for _, f := range families {
		a := byFamily[f]
		series := RadarSeries{Family: f, Label: format.FamilyLabel(f), ModelCount: a.models, Points: make([]RadarPoint, len(axes))}
		for j, values := range a.values {
			if len(values) == 0 {
				continue
			}
			ci := statistics.BootstrapCIWithSeed(values, radarConfidence, radarSeed)
			mean := ci.Mean
			series.Points[j] = RadarPoint{Value: &mean, Interval: &ci, Samples: len(values)}
		}
		chart.Series = append(chart.Series, series)
	}
	return chart
}

// ScatterPoint is one model on the efficiency chart.
type ScatterPoint struct {
	ModelID    string  `json:"model_id"`
	Label      string  `json:"label"`
	Params     float64 `json:"params_millions"`
	Value      float64 `json:"value"`
	Efficiency float64 `json:"efficiency"`
	Rank       int     `json:"rank"`
}

// ScatterChart plots value against size for one leaderboard.
type ScatterChart struct {
	Task          models.TaskType `json:"task_type"`
	Dataset       string          `json:"dataset_name"`
	Metric        string          `json:"metric_name"`
	XLabel        string          `json:"x_label"`
	YLabel        string          `json:"y_label"`
	LowerIsBetter bool            `json:"lower_is_better"`
	Points        []ScatterPoint  `json:"points"`
}

// EfficiencyScatter plots the leaderboard entries that have an efficiency
// score, keeping value rank order.
func EfficiencyScatter(lb *models.Leaderboard) ScatterChart {
	chart := ScatterChart{
		Task:          lb.Task,
		Dataset:       lb.Dataset,
		Metric:        lb.MetricName,
		XLabel:        "Parameters (M)",
		YLabel:        format.MetricLabel(lb.MetricName),
		LowerIsBetter: lb.LowerIsBetter,
		Points:        []ScatterPoint{},
	}
	for _, e := range lb.Entries {
		if e.EfficiencyScore == nil {
			continue
		}
		params, _ := e.Model.ParametersInMillions()
		chart.Points = append(chart.Points, ScatterPoint{
			ModelID:    e.Model.ID,
			Label:      e.Model.Name,
			Params:     params,
			Value:      e.Primary.Value,
			Efficiency: *e.EfficiencyScore,
			Rank:       e.Rank,
		})
	}
	return chart
}

// HeatCell is one cell of a correlation heatmap. Value is nil where the
// coefficient is undefined.
type HeatCell struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Value   *float64 `json:"value"`
	Samples int      `json:"samples"`
}

// Heatmap renders one task's correlation matrix.
type Heatmap struct {
	Task    models.TaskType `json:"task_type"`
	Title   string          `json:"title"`
	Metrics []string        `json:"metrics"`
	Labels  []string        `json:"labels"`
	Cells   []HeatCell      `json:"cells"`
}

// CorrelationHeatmap flattens m into row-major cells.
func CorrelationHeatmap(m models.CorrelationMatrix) Heatmap {
	h := Heatmap{
		Task:    m.Task,
		Title:   format.TaskLabel(m.Task) + " Metric Correlations",
		Metrics: m.Metrics,
		Labels:  make([]string, len(m.Metrics)),
		Cells:   make([]HeatCell, 0, len(m.Metrics)*len(m.Metrics)),
	}
	for i, name := range m.Metrics {
		h.Labels[i] = format.MetricLabel(name)
	}
	for y := range m.Metrics {
		for x := range m.Metrics {
			c := HeatCell{X: x, Y: y, Samples: m.Samples[y][x]}
			if m.Defined[y][x] {
				v := m.Matrix[y][x]
				c.Value = &v
			}
			h.Cells = append(h.Cells, c)
		}
	}
	return h
}

// LineSeries is one (task, metric) line. Values are aligned with the
// chart's buckets; nil marks a bucket without data.
type LineSeries struct {
	Task   models.TaskType `json:"task_type"`
	Metric string          `json:"metric_name"`
	Label  string          `json:"label"`
	Avg    []*float64      `json:"avg"`
	Best   []*float64      `json:"best"`
	Models []int           `json:"model_count"`
}

// LineChart plots trend points over time buckets.
type LineChart struct {
	Granularity models.Granularity `json:"granularity"`
	Buckets     []string           `json:"buckets"`
	Series      []LineSeries       `json:"series"`
}

// TrendLines pivots trend points into one series per (task, metric) over
// the sorted set of buckets.
func TrendLines(points []models.TrendPoint) LineChart {
	chart := LineChart{Buckets: []string{}, Series: []LineSeries{}}
	if len(points) == 0 {
		return chart
	}
	chart.Granularity = points[0].Granularity

	type key struct {
		task   models.TaskType
		metric string
	}
	buckets := map[string]int{}
	var keys []key
	seen := map[key]bool{}
	for _, p := range points {
		buckets[p.Date] = 0
		k := key{p.Task, p.MetricName}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for b := range buckets {
		chart.Buckets = append(chart.Buckets, b)
	}
	slices.Sort(chart.Buckets)
	for i, b := range chart.Buckets {
		buckets[b] = i
	}
	slices.SortFunc(keys, func(a, b key) int {
		return cmp.Or(cmp.Compare(a.task, b.task), cmp.Compare(a.metric, b.metric))
	})

	index := make(map[key]int, len(keys))
	for i, k := range keys {
		index[k] = i
		chart.Series = append(chart.Series, LineSeries{
			Task:   k.task,
			Metric: k.metric,
			Label:  format.TaskLabel(k.task) + " / " + format.MetricLabel(k.metric),
			Avg:    make([]*float64, len(chart.Buckets)),
			Best:   make([]*float64, len(chart.Buckets)),
			Models: make([]int, len(chart.Buckets)),
		})
	}
	for _, p := range points {
		s := &chart.Series[index[key{p.Task, p.MetricName}]]
		i := buckets[p.Date]
		avg, best := p.AvgValue, p.BestValue
		s.Avg[i] = &avg
		s.Best[i] = &best
		s.Models[i] = p.ModelCount
	}
	return chart
}
