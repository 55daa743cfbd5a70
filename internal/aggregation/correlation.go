package aggregation

import (
	"math"
	"slices"

	"github.com/mlbench/benchdash/internal/metrics"
	"github.com/mlbench/benchdash/internal/models"
)

// Correlations computes one Pearson matrix per task over the metric names
// reported by at least two models of that task. A model contributes the
// mean of its results for a metric name. Cells use pairwise-complete
// samples; a pair with fewer than two shared models or a constant series
// is left undefined (0 in Matrix, false in Defined) and is never notable.
// Tasks with fewer than two eligible metrics produce no matrix.
func Correlations(records []models.ModelRecord, notableThreshold float64) []models.CorrelationMatrix {
	// task -> model index -> metric -> mean value
	type modelMetrics map[string]float64
	byTask := map[models.TaskType][]modelMetrics{}
	for i := range records {
		rec := &records[i]
		if len(rec.Evaluations) == 0 {
			continue
		}
		groups := metricGroups{}
		for _, ev := range rec.Evaluations {
			groups.add(ev)
		}
		byTask[rec.Task] = append(byTask[rec.Task], groups.averages())
	}

	out := []models.CorrelationMatrix{}
	for _, task := range sortedKeys(byTask) {
		rows := byTask[task]

		counts := map[string]int{}
		for _, m := range rows {
			for name := range m {
				counts[name]++
			}
		}
		var names []string
		for name, c := range counts {
			if c >= 2 {
				names = append(names, name)
			}
		}
		if len(names) < 2 {
			continue
		}
		slices.Sort(names)

		n := len(names)
		cm := models.CorrelationMatrix{
			Task:    task,
			Metrics: names,
			Matrix:  make([][]float64, n),
			Defined: make([][]bool, n),
			Samples: make([][]int, n),
			Notable: []models.NotableCorrelation{},
		}
		for i := range n {
			cm.Matrix[i] = make([]float64, n)
			cm.Defined[i] = make([]bool, n)
			cm.Samples[i] = make([]int, n)
			cm.Matrix[i][i] = 1
			cm.Defined[i][i] = true
			cm.Samples[i][i] = counts[names[i]]
		}

		for i := range n {
			for j := i + 1; j < n; j++ {
				var xs, ys []float64
				for _, m := range rows {
					x, okx := m[names[i]]
					y, oky := m[names[j]]
					if okx && oky {
						xs = append(xs, x)
						ys = append(ys, y)
					}
				}
				r, ok := metrics.Pearson(xs, ys)
				if !ok {
					r = 0
				}
				cm.Matrix[i][j], cm.Matrix[j][i] = r, r
				cm.Defined[i][j], cm.Defined[j][i] = ok, ok
				cm.Samples[i][j], cm.Samples[j][i] = len(xs), len(xs)
				if ok && math.Abs(r) >= notableThreshold {
					cm.Notable = append(cm.Notable, models.NotableCorrelation{
						MetricA:     names[i],
						MetricB:     names[j],
						Coefficient: r,
						Samples:     len(xs),
					})
				}
			}
		}
		slices.SortStableFunc(cm.Notable, func(a, b models.NotableCorrelation) int {
			return cmpDesc(math.Abs(a.Coefficient), math.Abs(b.Coefficient))
		})
		out = append(out, cm)
	}
	return out
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
