package aggregation

import (
	"math"

	"github.com/mlbench/benchdash/internal/metrics"
	"github.com/mlbench/benchdash/internal/models"
)

// Summarize computes the cross-task summary block, including trend data.
func Summarize(records []models.ModelRecord, opts Options) models.Summary {
	opts = opts.withDefaults()

	datasets := map[string]bool{}
	for i := range records {
		for _, ev := range records[i].Evaluations {
			datasets[ev.Dataset] = true
		}
	}

	return models.Summary{
		TotalModels:      len(records),
		TotalDatasets:    len(datasets),
		TaskStats:        TaskStats(records, opts.TopModels),
		DatasetStats:     DatasetStats(records),
		ModelFamilyStats: FamilyStats(records),
		TrendData:        Trends(records, opts.Granularity),
		LastUpdated:      opts.Now(),
	}
}

// series collects the values reported under one metric name.
type series struct {
	kind   models.MetricKind
	values []float64
}

// metricGroups groups values by metric name. The kind of the first result
// seen for a name decides the ranking direction of that name.
type metricGroups map[string]*series

func (g metricGroups) add(ev models.EvaluationResult) {
	s, ok := g[ev.MetricName]
	if !ok {
		s = &series{kind: ev.MetricKind}
		g[ev.MetricName] = s
	}
	s.values = append(s.values, ev.Value)
}

func (g metricGroups) averages() map[string]float64 {
	out := make(map[string]float64, len(g))
	for name, s := range g {
		if len(s.values) > 0 {
			out[name] = metrics.Mean(s.values)
		}
	}
	return out
}

type scoredModel struct {
	id    string
	score float64
}

// TaskStats summarizes each task. Models without evaluations count toward
// ModelCount but are not ranked. TopModels lists up to topN model ids by
// the mean of each model's own result values.
func TaskStats(records []models.ModelRecord, topN int) []models.TaskStatistics {
	type acc struct {
		models   int
		datasets map[string]bool
		metrics  metricGroups
		scored   []scoredModel
	}
	byTask := map[models.TaskType]*acc{}
	for i := range records {
		rec := &records[i]
		a, ok := byTask[rec.Task]
		if !ok {
			a = &acc{datasets: map[string]bool{}, metrics: metricGroups{}}
			byTask[rec.Task] = a
		}
		a.models++
		if len(rec.Evaluations) == 0 {
			continue
		}
		values := make([]float64, 0, len(rec.Evaluations))
		for _, ev := range rec.Evaluations {
			a.datasets[ev.Dataset] = true
			a.metrics.add(ev)
			values = append(values, ev.Value)
		}
		a.scored = append(a.scored, scoredModel{id: rec.ID, score: metrics.Mean(values)})
	}

	out := make([]models.TaskStatistics, 0, len(byTask))
	for _, task := range sortedKeys(byTask) {
		a := byTask[task]
		top := TopN(a.scored, topN, func(x, y scoredModel) bool { return x.score > y.score })
		ids := make([]string, len(top))
		for i, m := range top {
			ids[i] = m.id
		}
		out = append(out, models.TaskStatistics{
			Task:         task,
			ModelCount:   a.models,
			DatasetCount: len(a.datasets),
			AvgMetrics:   a.metrics.averages(),
			TopModels:    ids,
		})
	}
	return out
}

// DatasetStats summarizes each dataset. The owning task is the task with
// the most evaluating models; ties go to the task seen first. Best and
// worst values follow each metric's direction.
func DatasetStats(records []models.ModelRecord) []models.DatasetStatistics {
	type acc struct {
		models    map[string]bool
		votes     map[models.TaskType]int
		taskOrder []models.TaskType
		metrics   metricGroups
	}
	byDataset := map[string]*acc{}
	for i := range records {
		rec := &records[i]
		for _, ev := range rec.Evaluations {
			a, ok := byDataset[ev.Dataset]
			if !ok {
				a = &acc{models: map[string]bool{}, votes: map[models.TaskType]int{}, metrics: metricGroups{}}
				byDataset[ev.Dataset] = a
			}
			if !a.models[rec.ID] {
				a.models[rec.ID] = true
				if _, seen := a.votes[rec.Task]; !seen {
					a.taskOrder = append(a.taskOrder, rec.Task)
				}
				a.votes[rec.Task]++
			}
			a.metrics.add(ev)
		}
	}

	out := make([]models.DatasetStatistics, 0, len(byDataset))
	for _, name := range sortedKeys(byDataset) {
		a := byDataset[name]
		owner := a.taskOrder[0]
		for _, t := range a.taskOrder[1:] {
			if a.votes[t] > a.votes[owner] {
				owner = t
			}
		}
		best := make(map[string]float64, len(a.metrics))
		worst := make(map[string]float64, len(a.metrics))
		for metric, s := range a.metrics {
			lower := s.kind.LowerIsBetter()
			if v, ok := metrics.Best(s.values, lower); ok {
				best[metric] = v
			}
			if v, ok := metrics.Worst(s.values, lower); ok {
				worst[metric] = v
			}
		}
		out = append(out, models.DatasetStatistics{
			Dataset:          name,
			Task:             owner,
			ModelCount:       len(a.models),
			AvgPerformance:   a.metrics.averages(),
			BestPerformance:  best,
			WorstPerformance: worst,
		})
	}
	return out
}

// FamilyStats summarizes each model family. AvgParameterCount only covers
// models with a known positive parameter count and is nil when there are
// none.
func FamilyStats(records []models.ModelRecord) []models.ModelFamilyStatistics {
	type acc struct {
		models  int
		params  []float64
		metrics metricGroups
		tasks   map[models.TaskType]int
	}
	byFamily := map[models.ModelFamily]*acc{}
	for i := range records {
		rec := &records[i]
		a, ok := byFamily[rec.Family]
		if !ok {
			a = &acc{metrics: metricGroups{}, tasks: map[models.TaskType]int{}}
			byFamily[rec.Family] = a
		}
		a.models++
		a.tasks[rec.Task]++
		if rec.HasParameters() {
			a.params = append(a.params, float64(*rec.ParameterCount))
		}
		for _, ev := range rec.Evaluations {
			a.metrics.add(ev)
		}
	}

	out := make([]models.ModelFamilyStatistics, 0, len(byFamily))
	for _, family := range sortedKeys(byFamily) {
		a := byFamily[family]
		stat := models.ModelFamilyStatistics{
			Family:           family,
			Architecture:     family.Architecture(),
			ModelCount:       a.models,
			AvgPerformance:   a.metrics.averages(),
			TaskDistribution: a.tasks,
			DiversityScore:   diversity(len(a.tasks), a.models),
		}
		if len(a.params) > 0 {
			avg := metrics.Mean(a.params)
			stat.AvgParameterCount = &avg
		}
		out = append(out, stat)
	}
	return out
}

// diversity is distinct tasks / ln(models + 1). A display heuristic.
func diversity(tasks, n int) *float64 {
	if n < 1 {
		return nil
	}
	d := float64(tasks) / math.Log(float64(n)+1)
	return &d
}
