package aggregation

import (
	"cmp"
	"slices"

	"github.com/mlbench/benchdash/internal/models"
)

type boardKey struct {
	task    models.TaskType
	dataset string
	metric  string
}

type candidate struct {
	rec     *models.ModelRecord
	primary int // index into rec.Evaluations
}

// Leaderboards builds one leaderboard per (task, dataset, metric name).
// Each model appears once with its best value for the triple. Entries are
// stable-sorted in the metric's direction, so equal values keep the order
// in which the models were encountered. Boards with fewer than
// opts.MinLeaderboardEntries models are omitted. Both the value ranking and
// the efficiency ranking cover every model on the board before each is
// truncated to opts.LeaderboardSize.
func Leaderboards(records []models.ModelRecord, opts Options) []models.Leaderboard {
	opts = opts.withDefaults()
	now := opts.Now()

	type board struct {
		kind       models.MetricKind
		candidates []candidate
		index      map[string]int // model id -> candidate position
	}
	boards := map[boardKey]*board{}
	var keys []boardKey

	for i := range records {
		rec := &records[i]
		for j, ev := range rec.Evaluations {
			key := boardKey{task: rec.Task, dataset: ev.Dataset, metric: ev.MetricName}
			b, ok := boards[key]
			if !ok {
				b = &board{kind: ev.MetricKind, index: map[string]int{}}
				boards[key] = b
				keys = append(keys, key)
			}
			pos, seen := b.index[rec.ID]
			if !seen {
				b.index[rec.ID] = len(b.candidates)
				b.candidates = append(b.candidates, candidate{rec: rec, primary: j})
				continue
			}
			c := &b.candidates[pos]
			if b.kind.Better(ev.Value, c.rec.Evaluations[c.primary].Value) {
				c.primary = j
			}
		}
	}

	slices.SortFunc(keys, func(a, b boardKey) int {
		return cmp.Or(
			cmp.Compare(a.task, b.task),
			cmp.Compare(a.dataset, b.dataset),
			cmp.Compare(a.metric, b.metric),
		)
	})

	out := []models.Leaderboard{}
	for _, key := range keys {
		b := boards[key]
		if len(b.candidates) < opts.MinLeaderboardEntries {
			continue
		}
		ranked := TopN(b.candidates, len(b.candidates), func(x, y candidate) bool {
			return b.kind.Better(x.value(), y.value())
		})
		all := make([]models.LeaderboardEntry, len(ranked))
		for i, c := range ranked {
			all[i] = entry(i+1, c, key.dataset)
		}
		byEfficiency := models.RankByEfficiency(all, b.kind.LowerIsBetter())
		out = append(out, models.Leaderboard{
			Task:              key.task,
			Dataset:           key.dataset,
			MetricName:        key.metric,
			MetricKind:        b.kind,
			LowerIsBetter:     b.kind.LowerIsBetter(),
			Entries:           truncate(all, opts.LeaderboardSize),
			EfficiencyEntries: truncate(byEfficiency, opts.LeaderboardSize),
			LastUpdated:       now,
		})
	}
	return out
}

func truncate(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if n < len(entries) {
		return entries[:n:n]
	}
	return entries
}

func (c candidate) value() float64 {
	return c.rec.Evaluations[c.primary].Value
}

func entry(rank int, c candidate, dataset string) models.LeaderboardEntry {
	primary := c.rec.Evaluations[c.primary]
	secondary := []models.EvaluationResult{}
	for j, ev := range c.rec.Evaluations {
		if j != c.primary && ev.Dataset == dataset {
			secondary = append(secondary, ev)
		}
	}
	return models.LeaderboardEntry{
		Rank:            rank,
		Model:           stripEvaluations(*c.rec),
		Primary:         primary,
		Secondary:       secondary,
		EfficiencyScore: Efficiency(c.rec, primary.Value),
	}
}

// Efficiency returns value per million parameters, or nil when the
// parameter count is unknown or zero.
func Efficiency(rec *models.ModelRecord, value float64) *float64 {
	millions, ok := rec.ParametersInMillions()
	if !ok {
		return nil
	}
	e := value / millions
	return &e
}
