package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const sotaSourceName = "sota"

// maxSOTAResponseBytes caps a single table response.
const maxSOTAResponseBytes = 16 << 20

// sotaTable describes one curated leaderboard. A table may span
// several endpoints sharing the same task and dataset.
type sotaTable struct {
	task    string
	dataset string
	split   string
	pages   []sotaPage
	// metrics names the keys read when a row's metrics is an object. List
	// shaped metrics hold {name, value, dataset_name} entries instead.
	metrics []string
	// defaultMetric names list entries that omit one.
	defaultMetric string
	// keepZero keeps metric values of zero, which otherwise mark a missing score.
	keepZero bool
}

type sotaPage struct {
	path   string
	config string
	tags   []string
}

var sotaTables = map[string]sotaTable{
	"glue": {
		task:          "text-classification",
		dataset:       "GLUE",
		split:         "test",
		pages:         []sotaPage{{path: "/sota/glue", tags: []string{"glue", "text-classification"}}},
		defaultMetric: "accuracy",
		keepZero:      true,
	},
	"imagenet": {
		task:    "image-classification",
		dataset: "ImageNet",
		split:   "validation",
		pages: []sotaPage{{
			path: "/sota/image-classification-on-imagenet",
			tags: []string{"imagenet", "image-classification"},
		}},
		metrics:  []string{"accuracy"},
		keepZero: true,
	},
	"squad": {
		task:    "question-answering",
		dataset: "SQuAD",
		split:   "test",
		pages: []sotaPage{{
			path: "/sota/question-answering-on-squad",
			tags: []string{"squad", "question-answering"},
		}},
		metrics: []string{"exact_match", "f1"},
	},
	"wmt": {
		task:    "translation",
		dataset: "WMT14",
		split:   "test",
		pages: []sotaPage{
			{path: "/sota/machine-translation-on-wmt2014-english-german", config: "en-de", tags: []string{"wmt", "translation", "en-de"}},
			{path: "/sota/machine-translation-on-wmt2014-english-french", config: "en-fr", tags: []string{"wmt", "translation", "en-fr"}},
		},
		metrics: []string{"bleu"},
	},
}

// SOTAConfig configures a SOTA provider.
type SOTAConfig struct {
	BaseURL string
	// Tables lists curated tables by name: glue, imagenet, squad or wmt.
	Tables []string
	Client *http.Client
	Logger *slog.Logger
}

// SOTA reads curated state-of-the-art tables from a Papers with Code style
// API. Rows name a model and its headline scores; each row becomes a raw
// record with one evaluation per score.
type SOTA struct {
	cfg    SOTAConfig
	tables []sotaTable
}

// NewSOTA creates a SOTA provider. An unknown table name is an error.
func NewSOTA(cfg SOTAConfig) (*SOTA, error) {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	tables := make([]sotaTable, 0, len(cfg.Tables))
	for _, name := range cfg.Tables {
		t, ok := sotaTables[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown sota table %q", name)
		}
		tables = append(tables, t)
	}
	return &SOTA{cfg: cfg, tables: tables}, nil
}

// Name implements Provider.
func (s *SOTA) Name() string { return sotaSourceName }

// Fetch reads every page of every configured table concurrently and
// returns the rows in table order. A failing page is logged and skipped.
func (s *SOTA) Fetch(ctx context.Context) ([]map[string]any, error) {
	type job struct {
		table sotaTable
		page  sotaPage
	}
	var jobs []job
	for _, t := range s.tables {
		for _, p := range t.pages {
			jobs = append(jobs, job{table: t, page: p})
		}
	}
	if len(jobs) == 0 {
		return nil, &Error{Source: sotaSourceName, Op: "read tables", Err: errors.New("no tables configured")}
	}

	perPage := make([][]map[string]any, len(jobs))
	errs := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		g.Go(func() error {
			rows, err := s.readPage(gctx, j.table, j.page)
			if err != nil {
				s.cfg.Logger.Warn("sota table fetch failed", "path", j.page.path, "error", err)
				errs[i] = fmt.Errorf("%s: %w", j.page.path, err)
				return nil
			}
			s.cfg.Logger.Debug("sota table fetched", "path", j.page.path, "rows", len(rows))
			perPage[i] = rows
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var records []map[string]any
	for i := range jobs {
		if errs[i] != nil {
			failed++
			continue
		}
		records = append(records, perPage[i]...)
	}
	if failed == len(jobs) {
		return nil, &Error{Source: sotaSourceName, Op: "read tables", Err: errors.Join(errs...)}
	}
	if len(records) == 0 {
		return nil, &Error{Source: sotaSourceName, Op: "read tables", Err: ErrNoRecords}
	}
	return records, nil
}

func (s *SOTA) readPage(ctx context.Context, t sotaTable, p sotaPage) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+p.path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSOTAResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	out := make([]map[string]any, 0, len(body.Results))
	for _, row := range body.Results {
		if rec, ok := sotaRecord(t, p, row); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// sotaRecord maps one table row to the canonical raw record shape. Rows
// without a model name or any usable score are skipped.
func sotaRecord(t sotaTable, p sotaPage, row map[string]any) (map[string]any, bool) {
	name := firstString(row, "model_name")
	if name == "" {
		return nil, false
	}

	var evals []any
	switch metrics := row["metrics"].(type) {
	case []any:
		for _, m := range metrics {
			mm, ok := m.(map[string]any)
			if !ok {
				continue
			}
			metric := firstString(mm, "name")
			if metric == "" {
				metric = t.defaultMetric
			}
			ev := t.evaluation(p, metric, mm["value"])
			if ev == nil {
				continue
			}
			// list tables report the sub-task as the dataset name
			if cfg := firstString(mm, "dataset_name"); cfg != "" {
				ev["dataset_config"] = cfg
			}
			evals = append(evals, ev)
		}
	case map[string]any:
		for _, metric := range t.metrics {
			if ev := t.evaluation(p, metric, metrics[metric]); ev != nil {
				evals = append(evals, ev)
			}
		}
	}
	if len(evals) == 0 {
		return nil, false
	}

	tags := make([]any, len(p.tags))
	for i, tag := range p.tags {
		tags[i] = tag
	}
	return map[string]any{
		"id":          name,
		"name":        name,
		"task":        t.task,
		"tags":        tags,
		"evaluations": evals,
	}, true
}

func (t sotaTable) evaluation(p sotaPage, metric string, value any) map[string]any {
	if value == nil || metric == "" {
		return nil
	}
	if f, ok := value.(float64); ok && f == 0 && !t.keepZero {
		return nil
	}
	ev := map[string]any{
		"metric":  strings.ToLower(metric),
		"value":   value,
		"dataset": t.dataset,
		"split":   t.split,
	}
	if p.config != "" {
		ev["dataset_config"] = p.config
	}
	return ev
}
