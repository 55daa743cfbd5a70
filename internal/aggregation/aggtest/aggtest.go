// Package aggtest is the property suite every implementation of the
// aggregate views must pass. The engine and the chart fallback both run it
// so the two call sites cannot drift apart.
package aggtest

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/mlbench/benchdash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

// Views are the derived views shared by the engine and its fallback.
type Views struct {
	Summary      models.Summary
	Correlations []models.CorrelationMatrix
}

// Compute derives views from records. It must not modify records.
type Compute func(records []models.ModelRecord) Views

// Epoch is the fixed timestamp used by generated records.
var Epoch = time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

var (
	corpusTasks    = []models.TaskType{models.TaskTextClassification, models.TaskTranslation, models.TaskImageClassification}
	corpusFamilies = []models.ModelFamily{models.FamilyBERT, models.FamilyT5, models.FamilyViT, models.FamilyGPT}
	corpusMetrics  = []struct {
		name string
		kind models.MetricKind
	}{
		{"accuracy", models.MetricAccuracy},
		{"f1", models.MetricF1},
		{"bleu", models.MetricBLEU},
		{"perplexity", models.MetricPerplexity},
	}
	corpusDatasets = []string{"imdb", "glue", "wmt14", "imagenet-1k"}
)

// Corpus generates n deterministic records for the given seed. Some records
// have no evaluations, no parameter count or no creation time.
func Corpus(seed uint64, n int) []models.ModelRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]models.ModelRecord, 0, n)
	for i := range n {
		rec := models.ModelRecord{
			ID:        fmt.Sprintf("model-%03d", i),
			Name:      fmt.Sprintf("Model %d", i),
			Task:      corpusTasks[rng.IntN(len(corpusTasks))],
			Family:    corpusFamilies[rng.IntN(len(corpusFamilies))],
			Downloads: rng.Int64N(100_000),
			Tags:      []string{"pytorch"},
		}
		if rng.IntN(4) != 0 {
			p := int64(rng.IntN(2000)+1) * 1_000_000
			rec.ParameterCount = &p
		}
		if rng.IntN(5) != 0 {
			created := Epoch.AddDate(0, rng.IntN(24), rng.IntN(28))
			rec.CreatedAt = &created
		}
		evals := rng.IntN(6) // zero evaluations happen
		for range evals {
			m := corpusMetrics[rng.IntN(len(corpusMetrics))]
			value := rng.Float64()
			if m.kind == models.MetricPerplexity {
				value = 5 + rng.Float64()*40
			}
			rec.Evaluations = append(rec.Evaluations, models.EvaluationResult{
				MetricName: m.name,
				MetricKind: m.kind,
				Value:      value,
				Dataset:    corpusDatasets[rng.IntN(len(corpusDatasets))],
				Split:      "test",
			})
		}
		out = append(out, rec)
	}
	return out
}

// Run executes the property suite against compute.
func Run(t *testing.T, compute Compute) {
	t.Helper()
	corpora := map[string][]models.ModelRecord{
		"empty":  nil,
		"small":  Corpus(1, 12),
		"medium": Corpus(7, 120),
		"large":  Corpus(42, 400),
	}
	for name, records := range corpora {
		t.Run(name, func(t *testing.T) {
			views := compute(records)
			t.Run("totals", func(t *testing.T) { checkTotals(t, records, views) })
			t.Run("averages_within_range", func(t *testing.T) { checkAverages(t, records, views) })
			t.Run("correlation_shape", func(t *testing.T) { checkCorrelationShape(t, views) })
			t.Run("top_models", func(t *testing.T) { checkTopModels(t, records, views) })
			t.Run("idempotent", func(t *testing.T) {
				assert.Equal(t, views, compute(records))
			})
			t.Run("order_independent", func(t *testing.T) { checkOrderIndependence(t, records, views, compute) })
		})
	}
	t.Run("input_not_modified", func(t *testing.T) {
		records := Corpus(3, 50)
		before := cloneRecords(records)
		compute(records)
		assert.Equal(t, before, records)
	})
	t.Run("zero_evaluation_model", func(t *testing.T) { checkZeroEvaluationModel(t, compute) })
	t.Run("single_shared_model_is_undefined", func(t *testing.T) { checkSingleSharedModel(t, compute) })
	t.Run("perfect_correlation", func(t *testing.T) { checkPerfectCorrelation(t, compute) })
	t.Run("undated_records_skip_trends", func(t *testing.T) { checkUndatedRecords(t, compute) })
}

func checkTotals(t *testing.T, records []models.ModelRecord, v Views) {
	assert.Equal(t, len(records), v.Summary.TotalModels)

	datasets := map[string]bool{}
	perTask := map[models.TaskType]int{}
	for _, r := range records {
		perTask[r.Task]++
		for _, ev := range r.Evaluations {
			datasets[ev.Dataset] = true
		}
	}
	assert.Equal(t, len(datasets), v.Summary.TotalDatasets)
	require.Len(t, v.Summary.TaskStats, len(perTask))
	for _, ts := range v.Summary.TaskStats {
		assert.Equal(t, perTask[ts.Task], ts.ModelCount, "task %s", ts.Task)
	}
	familyTotal := 0
	for _, fs := range v.Summary.ModelFamilyStats {
		familyTotal += fs.ModelCount
	}
	assert.Equal(t, len(records), familyTotal)
}

func checkAverages(t *testing.T, records []models.ModelRecord, v Views) {
	values := map[models.TaskType]map[string][]float64{}
	for _, r := range records {
		for _, ev := range r.Evaluations {
			if values[r.Task] == nil {
				values[r.Task] = map[string][]float64{}
			}
			values[r.Task][ev.MetricName] = append(values[r.Task][ev.MetricName], ev.Value)
		}
	}
	for _, ts := range v.Summary.TaskStats {
		assert.Len(t, ts.AvgMetrics, len(values[ts.Task]), "empty groups are omitted")
		for name, avg := range ts.AvgMetrics {
			vals := values[ts.Task][name]
			require.NotEmpty(t, vals, "average reported for a metric without values")
			lo, hi := slices.Min(vals), slices.Max(vals)
			assert.True(t, avg >= lo-epsilon && avg <= hi+epsilon, "%s/%s avg %v outside [%v, %v]", ts.Task, name, avg, lo, hi)
		}
	}
	for _, ds := range v.Summary.DatasetStats {
		for name, avg := range ds.AvgPerformance {
			best, worst := ds.BestPerformance[name], ds.WorstPerformance[name]
			lo, hi := math.Min(best, worst), math.Max(best, worst)
			assert.True(t, avg >= lo-epsilon && avg <= hi+epsilon, "%s/%s avg %v outside [%v, %v]", ds.Dataset, name, avg, lo, hi)
		}
	}
	for _, tp := range v.Summary.TrendData {
		assert.Positive(t, tp.ModelCount)
		assert.False(t, math.IsNaN(tp.AvgValue))
	}
}

func checkCorrelationShape(t *testing.T, v Views) {
	for _, cm := range v.Correlations {
		n := len(cm.Metrics)
		require.GreaterOrEqual(t, n, 2, "matrices need two metrics")
		require.Len(t, cm.Matrix, n)
		for i := range n {
			require.Len(t, cm.Matrix[i], n)
			assert.Equal(t, 1.0, cm.Matrix[i][i], "diagonal")
			for j := range n {
				assert.Equal(t, cm.Matrix[i][j], cm.Matrix[j][i], "symmetric at %d,%d", i, j)
				assert.Equal(t, cm.Defined[i][j], cm.Defined[j][i])
				if !cm.Defined[i][j] {
					assert.Zero(t, cm.Matrix[i][j], "undefined cells are zero")
				}
				assert.LessOrEqual(t, math.Abs(cm.Matrix[i][j]), 1.0)
			}
		}
		for _, nc := range cm.Notable {
			i, j := slices.Index(cm.Metrics, nc.MetricA), slices.Index(cm.Metrics, nc.MetricB)
			require.True(t, i >= 0 && j >= 0)
			assert.True(t, cm.Defined[i][j], "notable pairs are defined")
			assert.GreaterOrEqual(t, nc.Samples, 2)
		}
	}
}

func checkTopModels(t *testing.T, records []models.ModelRecord, v Views) {
	taskOf := map[string]models.TaskType{}
	evaluated := map[string]bool{}
	for _, r := range records {
		taskOf[r.ID] = r.Task
		evaluated[r.ID] = len(r.Evaluations) > 0
	}
	for _, ts := range v.Summary.TaskStats {
		for _, id := range ts.TopModels {
			assert.Equal(t, ts.Task, taskOf[id])
			assert.True(t, evaluated[id], "models without results are not ranked")
		}
	}
}

func checkOrderIndependence(t *testing.T, records []models.ModelRecord, v Views, compute Compute) {
	reversed := cloneRecords(records)
	slices.Reverse(reversed)
	w := compute(reversed)

	assert.Equal(t, v.Summary.TotalModels, w.Summary.TotalModels)
	require.Len(t, w.Summary.TaskStats, len(v.Summary.TaskStats))
	for i := range v.Summary.TaskStats {
		a, b := v.Summary.TaskStats[i], w.Summary.TaskStats[i]
		assert.Equal(t, a.Task, b.Task)
		assert.Equal(t, a.DatasetCount, b.DatasetCount)
		assertMapsInDelta(t, a.AvgMetrics, b.AvgMetrics)
	}
	require.Len(t, w.Correlations, len(v.Correlations))
	for i := range v.Correlations {
		a, b := v.Correlations[i], w.Correlations[i]
		assert.Equal(t, a.Metrics, b.Metrics)
		assert.Equal(t, a.Defined, b.Defined)
		for r := range a.Matrix {
			assert.InDeltaSlice(t, a.Matrix[r], b.Matrix[r], 1e-9)
		}
	}
}

func checkZeroEvaluationModel(t *testing.T, compute Compute) {
	records := Corpus(11, 60)
	base := compute(records)

	extra := append(cloneRecords(records), models.ModelRecord{
		ID:     "no-results",
		Task:   models.TaskTextClassification,
		Family: models.FamilyBERT,
	})
	with := compute(extra)

	assert.Equal(t, base.Summary.TotalModels+1, with.Summary.TotalModels)
	assert.Equal(t, base.Correlations, with.Correlations)
	for _, ts := range with.Summary.TaskStats {
		assert.NotContains(t, ts.TopModels, "no-results")
	}
}

func checkSingleSharedModel(t *testing.T, compute Compute) {
	records := []models.ModelRecord{
		record("m1", eval("accuracy", 0.9, "d"), eval("f1", 0.8, "d")),
		record("m2", eval("accuracy", 0.7, "d")),
		record("m3", eval("f1", 0.6, "d")),
	}
	v := compute(records)
	require.Len(t, v.Correlations, 1)
	cm := v.Correlations[0]
	assert.Equal(t, []string{"accuracy", "f1"}, cm.Metrics)
	assert.False(t, cm.Defined[0][1])
	assert.Zero(t, cm.Matrix[0][1])
	assert.Equal(t, 1, cm.Samples[0][1])
	assert.Empty(t, cm.Notable)
}

func checkPerfectCorrelation(t *testing.T, compute Compute) {
	records := []models.ModelRecord{
		record("m1", eval("accuracy", 0.5, "d"), eval("f1", 0.4, "d")),
		record("m2", eval("accuracy", 0.6, "d"), eval("f1", 0.5, "d")),
		record("m3", eval("accuracy", 0.7, "d"), eval("f1", 0.6, "d")),
	}
	v := compute(records)
	require.Len(t, v.Correlations, 1)
	cm := v.Correlations[0]
	assert.True(t, cm.Defined[0][1])
	assert.InDelta(t, 1.0, cm.Matrix[0][1], epsilon)
	require.Len(t, cm.Notable, 1)
	assert.Equal(t, 3, cm.Notable[0].Samples)
}

func checkUndatedRecords(t *testing.T, compute Compute) {
	created := Epoch
	dated := record("dated", eval("accuracy", 0.5, "d"))
	dated.CreatedAt = &created
	undated := record("undated", eval("accuracy", 0.9, "d"))

	v := compute([]models.ModelRecord{dated, undated})
	require.Len(t, v.Summary.TrendData, 1)
	tp := v.Summary.TrendData[0]
	assert.Equal(t, 1, tp.ModelCount)
	assert.Equal(t, 0.5, tp.AvgValue)
	assert.Equal(t, 2, v.Summary.TotalModels, "undated records still count")
}

func record(id string, evals ...models.EvaluationResult) models.ModelRecord {
	return models.ModelRecord{
		ID:          id,
		Name:        id,
		Task:        models.TaskTextClassification,
		Family:      models.FamilyBERT,
		Evaluations: evals,
	}
}

func eval(metric string, value float64, dataset string) models.EvaluationResult {
	kind := models.MetricKind(metric)
	return models.EvaluationResult{MetricName: metric, MetricKind: kind, Value: value, Dataset: dataset, Split: "test"}
}

func cloneRecords(records []models.ModelRecord) []models.ModelRecord {
	out := make([]models.ModelRecord, len(records))
	for i, r := range records {
		r.Evaluations = slices.Clone(r.Evaluations)
		r.Tags = slices.Clone(r.Tags)
		out[i] = r
	}
	return out
}

func assertMapsInDelta(t *testing.T, want, got map[string]float64) {
	t.Helper()
	assert.Len(t, got, len(want))
	for k, w := range want {
		assert.InDelta(t, w, got[k], 1e-9, k)
	}
}
