package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/normalize"
	"github.com/mlbench/benchdash/internal/projectconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sotaPages = map[string]string{
	"/sota/glue": `{"results": [
		{"model_name": "DeBERTa-v3-large", "metrics": [
			{"name": "accuracy", "value": 91.4, "dataset_name": "sst2"},
			{"value": 90.1, "dataset_name": "mnli"}
		]},
		{"metrics": [{"name": "accuracy", "value": 80}]}
	]}`,
	"/sota/image-classification-on-imagenet": `{"results": [
		{"model_name": "ViT-H/14", "metrics": {"accuracy": 88.55, "top5": 98.6}},
		{"model_name": "unscored", "metrics": {}}
	]}`,
	"/sota/question-answering-on-squad": `{"results": [
		{"model_name": "bert-large-uncased", "metrics": {"exact_match": 84.1, "f1": 90.9}},
		{"model_name": "no-scores", "metrics": {"exact_match": 0, "f1": 0}}
	]}`,
	"/sota/machine-translation-on-wmt2014-english-german": `{"results": [
		{"model_name": "Transformer Big", "metrics": {"bleu": 28.4}}
	]}`,
	"/sota/machine-translation-on-wmt2014-english-french": `{"results": [
		{"model_name": "Transformer Big", "metrics": {"bleu": 41.8}}
	]}`,
}

func newSOTAServer(t *testing.T, fail map[string]bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := new(atomic.Int32)
	srv := newHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail[r.URL.Path] {
			http.Error(w, "gone", http.StatusBadGateway)
			return
		}
		body, ok := sotaPages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
	return srv, hits
}

func TestSOTA_FetchMapsTables(t *testing.T) {
	srv, hits := newSOTAServer(t, nil)
	sota, err := NewSOTA(SOTAConfig{BaseURL: srv.URL, Tables: projectconfig.DefaultSOTATables})
	require.NoError(t, err)

	recs, err := sota.Fetch(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, hits.Load(), "wmt reads two pages")

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r["id"].(string)
	}
	assert.Equal(t, []string{"DeBERTa-v3-large", "ViT-H/14", "bert-large-uncased", "Transformer Big", "Transformer Big"}, ids)

	glue := recs[0]
	assert.Equal(t, "text-classification", glue["task"])
	evals := glue["evaluations"].([]any)
	require.Len(t, evals, 2)
	second := evals[1].(map[string]any)
	assert.Equal(t, "accuracy", second["metric"], "list entries default to accuracy")
	assert.Equal(t, "GLUE", second["dataset"])
	assert.Equal(t, "mnli", second["dataset_config"])

	imagenet := recs[1]["evaluations"].([]any)
	require.Len(t, imagenet, 1, "only the configured metric keys are read")
	assert.Equal(t, "validation", imagenet[0].(map[string]any)["split"])

	squad := recs[2]["evaluations"].([]any)
	require.Len(t, squad, 2)
	assert.Equal(t, "exact_match", squad[0].(map[string]any)["metric"])

	fr := recs[4]["evaluations"].([]any)[0].(map[string]any)
	assert.Equal(t, "en-fr", fr["dataset_config"])
	assert.Equal(t, []any{"wmt", "translation", "en-fr"}, recs[4]["tags"])
}

func TestSOTA_RecordsNormalize(t *testing.T) {
	srv, _ := newSOTAServer(t, nil)
	sota, err := NewSOTA(SOTAConfig{BaseURL: srv.URL, Tables: []string{"squad"}})
	require.NoError(t, err)
	raws, err := sota.Fetch(context.Background())
	require.NoError(t, err)

	res := normalize.Normalize(raws)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, models.TaskQuestionAnswering, rec.Task)
	assert.Equal(t, models.FamilyBERT, rec.Family)
	require.Len(t, rec.Evaluations, 2)
	assert.Equal(t, models.MetricF1, rec.Evaluations[1].MetricKind)
}

func TestSOTA_PartialFailure(t *testing.T) {
	srv, _ := newSOTAServer(t, map[string]bool{"/sota/glue": true})
	sota, err := NewSOTA(SOTAConfig{BaseURL: srv.URL, Tables: []string{"glue", "imagenet"}})
	require.NoError(t, err)

	recs, err := sota.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ViT-H/14", recs[0]["id"])
}

func TestSOTA_AllPagesFail(t *testing.T) {
	srv, _ := newSOTAServer(t, map[string]bool{"/sota/glue": true})
	sota, err := NewSOTA(SOTAConfig{BaseURL: srv.URL, Tables: []string{"glue"}})
	require.NoError(t, err)

	_, err = sota.Fetch(context.Background())
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "sota", pe.Source)
	assert.Contains(t, err.Error(), "502")
}

func TestSOTA_Config(t *testing.T) {
	_, err := NewSOTA(SOTAConfig{Tables: []string{"glue", "coco"}})
	assert.ErrorContains(t, err, "coco")

	sota, err := NewSOTA(SOTAConfig{BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)
	_, err = sota.Fetch(context.Background())
	assert.ErrorContains(t, err, "no tables configured")
}

type stubProvider struct {
	name    string
	records []map[string]any
	err     error
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Fetch(context.Context) ([]map[string]any, error) {
	return s.records, s.err
}

func TestComposite_ConcatenatesInOrder(t *testing.T) {
	c := NewComposite(nil,
		stubProvider{name: "hub", records: []map[string]any{{"id": "a", "task": "translation"}, {"id": "b"}}},
		stubProvider{name: "sota", records: []map[string]any{{"id": "a", "task": "summarization"}, {"id": "c"}}},
	)
	assert.Equal(t, "hub+sota", c.Name())

	raws, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 4)

	res := normalize.Normalize(raws)
	require.Len(t, res.Records, 3)
	assert.Equal(t, models.TaskTranslation, res.Records[0].Task, "first source wins a repeated id")
	assert.Equal(t, 1, res.Dropped)
}

func TestComposite_ToleratesOneFailure(t *testing.T) {
	c := NewComposite(nil,
		stubProvider{name: "hub", err: errors.New("down")},
		stubProvider{name: "sota", records: []map[string]any{{"id": "c"}}},
	)
	raws, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 1)
}

func TestComposite_AllFail(t *testing.T) {
	c := NewComposite(nil,
		stubProvider{name: "hub", err: errors.New("hub down")},
		stubProvider{name: "sota", err: errors.New("sota down")},
	)
	_, err := c.Fetch(context.Background())
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "hub+sota", pe.Source)
	assert.ErrorContains(t, err, "hub down")
	assert.ErrorContains(t, err, "sota down")

	_, err = NewComposite(nil).Fetch(context.Background())
	assert.Error(t, err)
}

func TestNew_HubWithSOTATables(t *testing.T) {
	cfg := projectconfig.New().Source
	cfg.SOTAURL = "https://sota.example.com/api/v1"

	p, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hub+sota", p.Name())

	cfg.SOTATables = []string{"mmlu"}
	_, err = New(cfg, Options{})
	assert.ErrorContains(t, err, "mmlu")
}
