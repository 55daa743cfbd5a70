package webapi

import (
	"net/url"
	"testing"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    aggregation.Query
		wantErr string
	}{
		{"empty", "", aggregation.Query{}, ""},
		{"all fields", "task=Translation&family=t5&tag=jax&q=small&min_downloads=10",
			aggregation.Query{Task: models.TaskTranslation, Family: models.FamilyT5, Tag: "jax", Search: "small", MinDownloads: 10}, ""},
		{"explicit other", "task=other&family=other",
			aggregation.Query{Task: models.TaskOther, Family: models.FamilyOther}, ""},
		{"unknown task", "task=juggling", aggregation.Query{}, `invalid task "juggling"`},
		{"unknown family", "family=lstm", aggregation.Query{}, `invalid family "lstm"`},
		{"negative downloads", "min_downloads=-5", aggregation.Query{}, "min_downloads"},
		{"text downloads", "min_downloads=many", aggregation.Query{}, "min_downloads"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)
			got, err := parseQuery(q)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoolAndIntParams(t *testing.T) {
	q := url.Values{"yes": {"true"}, "one": {"1"}, "bad": {"perhaps"}, "n": {"7"}, "neg": {"-1"}}

	b, err := boolParam(q, "yes")
	require.NoError(t, err)
	assert.True(t, b)
	b, err = boolParam(q, "one")
	require.NoError(t, err)
	assert.True(t, b)
	b, err = boolParam(q, "missing")
	require.NoError(t, err)
	assert.False(t, b)
	_, err = boolParam(q, "bad")
	assert.ErrorContains(t, err, "true or false")

	n, err := intParam(q, "n")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	_, err = intParam(q, "neg")
	assert.Error(t, err)
}

func TestListParam(t *testing.T) {
	q := url.Values{"axes": {" accuracy, ,f1,"}}
	assert.Equal(t, []string{"accuracy", "f1"}, listParam(q, "axes"))
	assert.Nil(t, listParam(q, "missing"))
}

func FuzzParseQuery(f *testing.F) {
	for _, seed := range []string{
		"",
		"task=translation&min_downloads=100",
		"family=bert&tag=pytorch&q=base",
		"min_downloads=-1",
		"task=%ZZ",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		q, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		got, err := parseQuery(q)
		if err != nil {
			return
		}
		if got.MinDownloads < 0 {
			t.Fatalf("negative min_downloads accepted from %q", raw)
		}
		if got.Task != "" && models.ParseTaskType(string(got.Task)) != got.Task {
			t.Fatalf("task %q is not canonical", got.Task)
		}
	})
}
