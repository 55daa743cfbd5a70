package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// RawRecord is the loosely typed shape of a provider record after key
// canonicalization. Fields whose upstream type varies stay as any.
type RawRecord struct {
	ID           string          `mapstructure:"id"`
	Name         string          `mapstructure:"name"`
	Family       string          `mapstructure:"family"`
	Task         string          `mapstructure:"task"`
	PipelineTag  string          `mapstructure:"pipeline_tag"`
	Size         string          `mapstructure:"size"`
	Parameters   any             `mapstructure:"parameters"`
	Downloads    int64           `mapstructure:"downloads"`
	Likes        int64           `mapstructure:"likes"`
	CreatedAt    any             `mapstructure:"created_at"`
	LastModified any             `mapstructure:"last_modified"`
	EvaluatedAt  any             `mapstructure:"evaluated_at"`
	Library      string          `mapstructure:"library_name"`
	License      string          `mapstructure:"license"`
	Tags         []string        `mapstructure:"tags"`
	Evaluations  []RawEvaluation `mapstructure:"evaluations"`
}

// RawEvaluation is one loosely typed evaluation entry.
type RawEvaluation struct {
	Metric        string `mapstructure:"metric"`
	MetricType    string `mapstructure:"metric_type"`
	Value         any    `mapstructure:"value"`
	Dataset       string `mapstructure:"dataset"`
	DatasetConfig string `mapstructure:"dataset_config"`
	Split         string `mapstructure:"split"`
}

// recordAliases maps every accepted upstream key to its canonical name.
// The canonical key itself is listed first so it wins over an alias.
var recordAliases = map[string][]string{
	"id":            {"id", "model_id", "modelId"},
	"name":          {"name", "model_name"},
	"family":        {"family", "model_family"},
	"task":          {"task", "task_type"},
	"pipeline_tag":  {"pipeline_tag", "pipelineTag"},
	"size":          {"size", "model_size"},
	"parameters":    {"parameters", "parameter_count", "num_parameters", "params"},
	"downloads":     {"downloads"},
	"likes":         {"likes"},
	"created_at":    {"created_at", "createdAt"},
	"last_modified": {"last_modified", "lastModified"},
	"evaluated_at":  {"evaluated_at", "evaluation_date"},
	"library_name":  {"library_name", "library"},
	"license":       {"license"},
	"tags":          {"tags"},
	"evaluations":   {"evaluations", "evaluation_results", "eval_results"},
}

var evaluationAliases = map[string][]string{
	"metric":         {"metric", "metric_name", "name"},
	"metric_type":    {"metric_type", "type"},
	"value":          {"value"},
	"dataset":        {"dataset", "dataset_name"},
	"dataset_config": {"dataset_config", "config"},
	"split":          {"split", "dataset_split"},
}

// Canonicalize rewrites the keys of a provider record to their canonical
// names. Unknown keys are dropped. Null values are treated as absent.
func Canonicalize(raw map[string]any) map[string]any {
	out := canonicalKeys(raw, recordAliases)
	if evals, ok := out["evaluations"]; ok {
		out["evaluations"] = canonicalEvaluations(evals)
	}
	return out
}

func canonicalKeys(raw map[string]any, aliases map[string][]string) map[string]any {
	out := make(map[string]any, len(aliases))
	for canonical, keys := range aliases {
		for _, k := range keys {
			if v, ok := raw[k]; ok && v != nil {
				out[canonical] = v
				break
			}
		}
	}
	return out
}

// canonicalEvaluations leaves values it does not recognise as a list in
// place so the schema check reports them.
func canonicalEvaluations(v any) any {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []map[string]any:
		items = make([]any, len(list))
		for i, m := range list {
			items[i] = m
		}
	default:
		return v
	}
	out := make([]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			out[i] = canonicalKeys(m, evaluationAliases)
			continue
		}
		out[i] = item
	}
	return out
}

// decode converts a canonical map into a RawRecord.
func decode(canonical map[string]any) (RawRecord, error) {
	var rec RawRecord
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return RawRecord{}, fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(canonical); err != nil {
		return RawRecord{}, err
	}
	return rec, nil
}

var (
	recordStringFields     = []string{"name", "family", "task", "pipeline_tag", "size", "library_name", "license"}
	evaluationStringFields = []string{"metric_type", "dataset_config", "split"}
)

// sanitize coerces the fields of a canonical record in place so that it
// always decodes. Misshapen scalars are removed, counts become non-negative
// integers, tags keep only strings and evaluation entries that are not
// objects or lack a textual metric and dataset are removed.
func sanitize(rec map[string]any) {
	dropNonStrings(rec, recordStringFields)
	for _, k := range []string{"downloads", "likes"} {
		if v, ok := rec[k]; ok {
			rec[k] = parseCount(v)
		}
	}
	switch rec["parameters"].(type) {
	case nil, string, float64, float32, int, int32, int64, uint64:
	default:
		delete(rec, "parameters")
	}
	if v, ok := rec["tags"]; ok {
		rec["tags"] = stringItems(v)
	}
	if v, ok := rec["evaluations"]; ok {
		rec["evaluations"] = evaluationItems(v)
	}
}

func dropNonStrings(m map[string]any, keys []string) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if _, isString := v.(string); !isString {
				delete(m, k)
			}
		}
	}
}

// parseCount reads a download or like count. Thousands separators are
// accepted; anything unparsable or negative counts as zero.
func parseCount(v any) int64 {
	if s, ok := v.(string); ok {
		v = strings.ReplaceAll(s, ",", "")
	}
	f, ok := ParseValue(v)
	if !ok || f < 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func stringItems(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return strs
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func evaluationItems(v any) []any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		ev, ok := item.(map[string]any)
		if !ok {
			continue
		}
		metric, metricOK := ev["metric"].(string)
		dataset, datasetOK := ev["dataset"].(string)
		if !metricOK || !datasetOK || strings.TrimSpace(metric) == "" || strings.TrimSpace(dataset) == "" {
			continue
		}
		dropNonStrings(ev, evaluationStringFields)
		out = append(out, ev)
	}
	return out
}
