package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const hubSourceName = "hub"

// maxHubResponseBytes caps a single listing response.
const maxHubResponseBytes = 64 << 20

// HubConfig configures a Hub provider.
type HubConfig struct {
	BaseURL     string
	Tasks       []string
	Limit       int
	Concurrency int
	Client      *http.Client
	Logger      *slog.Logger
}

// Hub lists the most downloaded models per pipeline tag from a Hugging
// Face compatible API and maps them to raw records.
type Hub struct {
	cfg HubConfig
}

// NewHub creates a Hub provider. Zero values fall back to sane defaults.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Limit < 1 {
		cfg.Limit = 30
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Hub{cfg: cfg}
}

// Name implements Provider.
func (h *Hub) Name() string { return hubSourceName }

// Fetch lists every configured task concurrently. A failing task is logged
// and skipped; Fetch only fails when every task failed or nothing came back.
func (h *Hub) Fetch(ctx context.Context) ([]map[string]any, error) {
	if len(h.cfg.Tasks) == 0 {
		return nil, &Error{Source: hubSourceName, Op: "list models", Err: errors.New("no tasks configured")}
	}

	perTask := make([][]map[string]any, len(h.cfg.Tasks))
	errs := make([]error, len(h.cfg.Tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)
	for i, task := range h.cfg.Tasks {
		g.Go(func() error {
			items, err := h.listTask(gctx, task)
			if err != nil {
				h.cfg.Logger.Warn("hub task fetch failed", "task", task, "error", err)
				errs[i] = fmt.Errorf("%s: %w", task, err)
				return nil
			}
			h.cfg.Logger.Debug("hub task fetched", "task", task, "models", len(items))
			perTask[i] = items
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var records []map[string]any
	for i := range h.cfg.Tasks {
		if errs[i] != nil {
			failed++
			continue
		}
		records = append(records, perTask[i]...)
	}
	if failed == len(h.cfg.Tasks) {
		return nil, &Error{Source: hubSourceName, Op: "list models", Err: errors.Join(errs...)}
	}
	if len(records) == 0 {
		return nil, &Error{Source: hubSourceName, Op: "list models", Err: ErrNoRecords}
	}
	return records, nil
}

func (h *Hub) listTask(ctx context.Context, task string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("pipeline_tag", task)
	q.Set("sort", "downloads")
	q.Set("direction", "-1")
	q.Set("limit", strconv.Itoa(h.cfg.Limit))
	q.Set("full", "true")
	q.Set("cardData", "true")
	endpoint := h.cfg.BaseURL + "/models?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var items []map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxHubResponseBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, hubRecord(item, task))
	}
	return out, nil
}

// hubRecord maps one listing item to the canonical raw record shape.
func hubRecord(item map[string]any, task string) map[string]any {
	rec := map[string]any{}
	copyKey(rec, "id", item, "id", "modelId")
	copyKey(rec, "downloads", item, "downloads")
	copyKey(rec, "likes", item, "likes")
	copyKey(rec, "tags", item, "tags")
	copyKey(rec, "library_name", item, "library_name")
	copyKey(rec, "created_at", item, "createdAt")
	copyKey(rec, "last_modified", item, "lastModified")
	copyKey(rec, "evaluated_at", item, "lastModified")

	rec["pipeline_tag"] = task
	if tag, ok := item["pipeline_tag"].(string); ok && tag != "" {
		rec["pipeline_tag"] = tag
	}

	card, _ := item["cardData"].(map[string]any)
	if license, ok := card["license"].(string); ok {
		rec["license"] = license
	}

	var evals []any
	if list, ok := card["eval_results"].([]any); ok {
		evals = append(evals, cardEvalResults(list)...)
	}
	if list, ok := card["model-index"].([]any); ok {
		evals = append(evals, modelIndexResults(list)...)
	}
	if len(evals) > 0 {
		rec["evaluations"] = evals
	}
	return rec
}

func copyKey(dst map[string]any, to string, src map[string]any, from ...string) {
	for _, k := range from {
		if v, ok := src[k]; ok && v != nil {
			dst[to] = v
			return
		}
	}
}

// cardEvalResults flattens entries shaped as
// {dataset: {name, config, split}, metrics: [{name, type, value}]}.
func cardEvalResults(list []any) []any {
	var out []any
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, flattenMetrics(m)...)
	}
	return out
}

// modelIndexResults flattens the model-index card section:
// [{name, results: [{task, dataset, metrics}]}].
func modelIndexResults(list []any) []any {
	var out []any
	for _, model := range list {
		m, ok := model.(map[string]any)
		if !ok {
			continue
		}
		results, _ := m["results"].([]any)
		for _, r := range results {
			if rm, ok := r.(map[string]any); ok {
				out = append(out, flattenMetrics(rm)...)
			}
		}
	}
	return out
}

func flattenMetrics(result map[string]any) []any {
	ds, _ := result["dataset"].(map[string]any)
	dataset := firstString(ds, "name", "type")
	config := firstString(ds, "config")
	split := firstString(ds, "split")

	metrics, _ := result["metrics"].([]any)
	out := make([]any, 0, len(metrics))
	for _, metric := range metrics {
		mm, ok := metric.(map[string]any)
		if !ok {
			continue
		}
		name := strings.ToLower(firstString(mm, "name", "type"))
		ev := map[string]any{
			"metric":  name,
			"value":   mm["value"],
			"dataset": dataset,
		}
		if t := firstString(mm, "type"); t != "" {
			ev["metric_type"] = t
		}
		if config != "" {
			ev["dataset_config"] = config
		}
		if split != "" {
			ev["split"] = split
		}
		out = append(out, ev)
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
