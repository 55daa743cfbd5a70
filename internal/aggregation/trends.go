package aggregation

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/mlbench/benchdash/internal/metrics"
	"github.com/mlbench/benchdash/internal/models"
)

// Bucket returns the trend bucket label of t: "2024-03-01" for month,
// "2024-Q1" for quarter and "2024-01-01" for year. t is read in UTC.
func Bucket(t time.Time, g models.Granularity) string {
	t = t.UTC()
	switch g {
	case models.GranularityQuarter:
		return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case models.GranularityYear:
		return fmt.Sprintf("%04d-01-01", t.Year())
	default:
		return fmt.Sprintf("%04d-%02d-01", t.Year(), int(t.Month()))
	}
}

// Trends groups results by (creation bucket, task, metric name). Records
// without a creation timestamp are left out of this view only. Points are
// sorted by bucket, task and metric.
func Trends(records []models.ModelRecord, g models.Granularity) []models.TrendPoint {
	if _, ok := models.ParseGranularity(string(g)); !ok {
		g = models.GranularityMonth
	}

	type key struct {
		bucket string
		task   models.TaskType
		metric string
	}
	type acc struct {
		kind   models.MetricKind
		values []float64
		models map[string]bool
	}
	groups := map[key]*acc{}
	var keys []key

	for i := range records {
		rec := &records[i]
		if rec.CreatedAt == nil {
			continue
		}
		bucket := Bucket(*rec.CreatedAt, g)
		for _, ev := range rec.Evaluations {
			k := key{bucket: bucket, task: rec.Task, metric: ev.MetricName}
			a, ok := groups[k]
			if !ok {
				a = &acc{kind: ev.MetricKind, models: map[string]bool{}}
				groups[k] = a
				keys = append(keys, k)
			}
			a.values = append(a.values, ev.Value)
			a.models[rec.ID] = true
		}
	}

	slices.SortFunc(keys, func(a, b key) int {
		return cmp.Or(
			cmp.Compare(a.bucket, b.bucket),
			cmp.Compare(a.task, b.task),
			cmp.Compare(a.metric, b.metric),
		)
	})

	out := make([]models.TrendPoint, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		best, _ := metrics.Best(a.values, a.kind.LowerIsBetter())
		out = append(out, models.TrendPoint{
			Date:        k.bucket,
			Granularity: g,
			Task:        k.task,
			MetricName:  k.metric,
			AvgValue:    metrics.Mean(a.values),
			BestValue:   best,
			ModelCount:  len(a.models),
		})
	}
	return out
}
