package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/mlbench/benchdash/internal/projectconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hubListing = `[
  {
    "id": "bert-base-uncased",
    "modelId": "bert-base-uncased",
    "downloads": 1000,
    "likes": 10,
    "tags": ["pytorch", "bert"],
    "pipeline_tag": "text-classification",
    "library_name": "transformers",
    "createdAt": "2022-03-02T23:29:04.000Z",
    "lastModified": "2024-02-19T11:06:12.000Z",
    "cardData": {
      "license": "apache-2.0",
      "eval_results": [
        {"dataset": {"name": "glue", "config": "sst2", "split": "validation"},
         "metrics": [{"name": "Accuracy", "value": 0.92}, {"name": "f1", "value": 0.9}]}
      ],
      "model-index": [
        {"name": "bert", "results": [
          {"task": {"type": "text-classification"},
           "dataset": {"type": "imdb", "name": "IMDB"},
           "metrics": [{"type": "accuracy", "value": 0.88}]}
        ]}
      ]
    }
  },
  {"id": "no-card", "downloads": 5}
]`

func newHubServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHub_FetchMapsListing(t *testing.T) {
	var gotQuery atomic.Value
	srv := newHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, hubListing)
	})

	hub := NewHub(HubConfig{BaseURL: srv.URL + "/", Tasks: []string{"text-classification"}, Limit: 7})
	recs, err := hub.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, []string{"text-classification"}, q["pipeline_tag"])
	assert.Equal(t, []string{"downloads"}, q["sort"])
	assert.Equal(t, []string{"-1"}, q["direction"])
	assert.Equal(t, []string{"7"}, q["limit"])
	assert.Equal(t, []string{"true"}, q["cardData"])

	bert := recs[0]
	assert.Equal(t, "bert-base-uncased", bert["id"])
	assert.Equal(t, "apache-2.0", bert["license"])
	assert.Equal(t, "2024-02-19T11:06:12.000Z", bert["evaluated_at"])
	assert.Equal(t, "2022-03-02T23:29:04.000Z", bert["created_at"])

	evals := bert["evaluations"].([]any)
	require.Len(t, evals, 3)
	first := evals[0].(map[string]any)
	assert.Equal(t, "accuracy", first["metric"], "metric names are lower-cased")
	assert.Equal(t, "glue", first["dataset"])
	assert.Equal(t, "sst2", first["dataset_config"])
	assert.Equal(t, "validation", first["split"])
	third := evals[2].(map[string]any)
	assert.Equal(t, "IMDB", third["dataset"])
	assert.Equal(t, "accuracy", third["metric_type"])

	noCard := recs[1]
	assert.Equal(t, "text-classification", noCard["pipeline_tag"], "requested task fills a missing pipeline tag")
	assert.NotContains(t, noCard, "evaluations")
}

func TestHub_PartialFailureIsTolerated(t *testing.T) {
	srv := newHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pipeline_tag") == "translation" {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[{"id": "ok-model"}]`)
	})

	hub := NewHub(HubConfig{BaseURL: srv.URL, Tasks: []string{"translation", "summarization"}, Concurrency: 2})
	recs, err := hub.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "summarization", recs[0]["pipeline_tag"])
}

func TestHub_AllTasksFail(t *testing.T) {
	srv := newHubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	hub := NewHub(HubConfig{BaseURL: srv.URL, Tasks: []string{"a", "b"}})
	_, err := hub.Fetch(context.Background())

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "hub", pe.Source)
	assert.Contains(t, err.Error(), "503")
	assert.False(t, pe.Timeout())
}

func TestHub_EmptyListing(t *testing.T) {
	srv := newHubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := NewHub(HubConfig{BaseURL: srv.URL, Tasks: []string{"a"}}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestHub_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHub(HubConfig{BaseURL: srv.URL, Tasks: []string{"a"}}).Fetch(ctx)
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHub_NoTasks(t *testing.T) {
	_, err := NewHub(HubConfig{BaseURL: "http://127.0.0.1:0"}).Fetch(context.Background())
	require.Error(t, err)
}

func TestFile_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"list.json":     `[{"id": "a"}, {"id": "b"}, 3]`,
		"snapshot.json": `{"generation": "g", "data": [{"model_id": "a"}, {"model_id": "b"}, null]}`,
		"records.yaml":  "records:\n  - id: a\n  - id: b\n  - plain\n",
		"table.csv":     "id,metric,value,dataset\na,accuracy,0.5,d\nb,accuracy,0.6,d\nc,accuracy,0.7,d\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			recs, err := NewFile(filepath.Join(dir, name)).Fetch(context.Background())
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.NotNil(t, recs[0])
		})
	}
}

func TestFile_NonObjectEntriesBecomeNil(t *testing.T) {
	recs, err := Decode("x.json", []byte(`[{"id": "a"}, "oops"]`))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Nil(t, recs[1])
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": `), 0o644))
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	wrongShape := filepath.Join(dir, "shape.json")
	require.NoError(t, os.WriteFile(wrongShape, []byte(`{"items": []}`), 0o644))

	tests := []struct {
		name string
		path string
		is   error
	}{
		{"missing", filepath.Join(dir, "nope.json"), os.ErrNotExist},
		{"malformed", bad, nil},
		{"empty", empty, ErrNoRecords},
		{"wrong shape", wrongShape, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFile(tt.path).Fetch(context.Background())
			var pe *Error
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, "file", pe.Source)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

type fakeDownloader struct {
	body string
	err  error
	got  []string
}

func (f *fakeDownloader) Download(_ context.Context, container, name string) (io.ReadCloser, error) {
	f.got = []string{container, name}
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func TestBlob_Fetch(t *testing.T) {
	payload, err := json.Marshal([]map[string]any{{"id": "a"}, {"id": "b"}})
	require.NoError(t, err)

	dl := &fakeDownloader{body: string(payload)}
	b := &Blob{cfg: BlobConfig{Container: "snapshots", Name: "latest.json"}, dl: dl}

	recs, err := b.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, []string{"snapshots", "latest.json"}, dl.got)
	assert.Equal(t, "blob", b.Name())
}

func TestBlob_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://acct.blob.core.windows.net/snapshots/latest.json", nil)
	respErr := &azcore.ResponseError{
		ErrorCode:  "BlobNotFound",
		StatusCode: http.StatusNotFound,
		RawResponse: &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 The specified blob does not exist.",
			Request:    req,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		},
	}
	b := &Blob{cfg: BlobConfig{Container: "snapshots", Name: "latest.json"}, dl: &fakeDownloader{err: respErr}}

	_, err := b.Fetch(context.Background())
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestBlob_ServerError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://acct.blob.core.windows.net/snapshots/latest.json", nil)
	respErr := &azcore.ResponseError{
		ErrorCode:  "ServerBusy",
		StatusCode: http.StatusServiceUnavailable,
		RawResponse: &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Status:     "503 Server Busy",
			Request:    req,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		},
	}
	b := &Blob{cfg: BlobConfig{Container: "c", Name: "n.json"}, dl: &fakeDownloader{err: respErr}}

	_, err := b.Fetch(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlobNotFound)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNew_SelectsProvider(t *testing.T) {
	cfg := projectconfig.New().Source

	p, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hub", p.Name())

	cfg.Kind = projectconfig.SourceFile
	cfg.Path = "records.json"
	p, err = New(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "file", p.Name())

	cfg.Kind = "ftp"
	_, err = New(cfg, Options{})
	assert.Error(t, err)
}
