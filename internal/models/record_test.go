package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskType(t *testing.T) {
	tests := []struct {
		in   string
		want TaskType
	}{
		{"text-classification", TaskTextClassification},
		{"  Image-Classification ", TaskImageClassification},
		{"automatic-speech-recognition", TaskSpeechRecognition},
		{"", TaskOther},
		{"fill-mask", TaskOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTaskType(tt.in))
		})
	}
}

func TestParseModelFamily(t *testing.T) {
	f, ok := ParseModelFamily("RoBERTa")
	assert.True(t, ok)
	assert.Equal(t, FamilyRoBERTa, f)

	f, ok = ParseModelFamily("other")
	assert.False(t, ok)
	assert.Equal(t, FamilyOther, f)

	f, ok = ParseModelFamily("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, FamilyOther, f)
}

func TestFamilyArchitecture(t *testing.T) {
	assert.Equal(t, ArchEncoderOnly, FamilyDistilBERT.Architecture())
	assert.Equal(t, ArchDecoderOnly, FamilyLLaMA.Architecture())
	assert.Equal(t, ArchEncoderDecoder, FamilyT5.Architecture())
	assert.Equal(t, ArchVision, FamilyViT.Architecture())
	assert.Equal(t, ArchMultimodal, FamilyCLIP.Architecture())
	assert.Equal(t, ArchSpeech, FamilyWhisper.Architecture())
	assert.Equal(t, ArchOther, FamilyOther.Architecture())

	for _, f := range AllFamilies {
		assert.NotEmpty(t, f.Architecture(), "family %s has no architecture", f)
	}
}

func TestMetricKindDirection(t *testing.T) {
	lower := []MetricKind{MetricPerplexity, MetricWER, MetricCER, MetricMSE, MetricMAE}
	for _, k := range lower {
		assert.True(t, k.LowerIsBetter(), k)
		assert.True(t, k.Better(1, 2), k)
	}
	higher := []MetricKind{MetricAccuracy, MetricF1, MetricBLEU, MetricR2, MetricOther}
	for _, k := range higher {
		assert.False(t, k.LowerIsBetter(), k)
		assert.True(t, k.Better(2, 1), k)
	}
	assert.False(t, MetricAccuracy.Better(1, 1))
}

func TestParametersInMillions(t *testing.T) {
	var m ModelRecord
	_, ok := m.ParametersInMillions()
	assert.False(t, ok)

	zero := int64(0)
	m.ParameterCount = &zero
	_, ok = m.ParametersInMillions()
	assert.False(t, ok, "zero parameters is known but has no efficiency")

	n := int64(110_000_000)
	m.ParameterCount = &n
	got, ok := m.ParametersInMillions()
	require.True(t, ok)
	assert.InDelta(t, 110.0, got, 1e-9)
}

func TestHasTag(t *testing.T) {
	m := ModelRecord{Tags: []string{"pytorch", "Transformers"}}
	assert.True(t, m.HasTag("transformers"))
	assert.False(t, m.HasTag("jax"))
}

func TestDedupeKey(t *testing.T) {
	a := EvaluationResult{MetricName: "Accuracy", Dataset: "glue", Split: "test"}
	b := EvaluationResult{MetricName: "accuracy", Dataset: "glue", Split: "test", Value: 0.3}
	c := EvaluationResult{MetricName: "accuracy", Dataset: "glue", Split: "validation"}
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())
	assert.NotEqual(t, a.DedupeKey(), c.DedupeKey())
}

func ptr(v float64) *float64 { return &v }

func TestRankedByEfficiency(t *testing.T) {
	lb := Leaderboard{
		Entries: []LeaderboardEntry{
			{Rank: 1, Model: ModelRecord{ID: "a"}, EfficiencyScore: ptr(0.001)},
			{Rank: 2, Model: ModelRecord{ID: "b"}},
			{Rank: 3, Model: ModelRecord{ID: "c"}, EfficiencyScore: ptr(0.05)},
			{Rank: 4, Model: ModelRecord{ID: "d"}, EfficiencyScore: ptr(0.05)},
		},
	}

	got := lb.RankedByEfficiency()
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Model.ID)
	assert.Equal(t, "d", got[1].Model.ID, "ties keep value order")
	assert.Equal(t, "a", got[2].Model.ID)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Rank, got[1].Rank, got[2].Rank})
	assert.Equal(t, 1, lb.Entries[0].Rank, "original entries are untouched")

	lb.LowerIsBetter = true
	got = lb.RankedByEfficiency()
	assert.Equal(t, "a", got[0].Model.ID)
}

func TestRankedByEfficiency_Precomputed(t *testing.T) {
	lb := Leaderboard{
		Entries:           []LeaderboardEntry{{Rank: 1, Model: ModelRecord{ID: "a"}, EfficiencyScore: ptr(0.1)}},
		EfficiencyEntries: []LeaderboardEntry{{Rank: 1, Model: ModelRecord{ID: "z"}, EfficiencyScore: ptr(9)}},
	}
	got := lb.RankedByEfficiency()
	require.Len(t, got, 1)
	assert.Equal(t, "z", got[0].Model.ID)

	got[0].Rank = 7
	assert.Equal(t, 1, lb.EfficiencyEntries[0].Rank, "result is a copy")
}

func TestFindLeaderboard(t *testing.T) {
	b := Bundle{Leaderboards: []Leaderboard{
		{Task: TaskTextClassification, Dataset: "glue", MetricName: "accuracy"},
		{Task: TaskTextClassification, Dataset: "imdb", MetricName: "f1"},
	}}
	lb, ok := b.FindLeaderboard(TaskTextClassification, "imdb", "F1")
	require.True(t, ok)
	assert.Equal(t, "imdb", lb.Dataset)

	_, ok = b.FindLeaderboard(TaskTranslation, "glue", "accuracy")
	assert.False(t, ok)
}

func TestParseGranularity(t *testing.T) {
	g, ok := ParseGranularity("quarter")
	assert.True(t, ok)
	assert.Equal(t, GranularityQuarter, g)
	_, ok = ParseGranularity("week")
	assert.False(t, ok)
}
