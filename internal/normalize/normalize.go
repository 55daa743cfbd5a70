// Package normalize turns loosely typed provider records into validated
// models.ModelRecord values. It is the only place inbound data is checked;
// everything downstream trusts its output.
package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mlbench/benchdash/internal/format"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/validation"
)

// DefaultSplit is used when an evaluation does not name its split.
const DefaultSplit = "test"

// ValidationError reports why a raw record was rejected.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("record %d: %s: %s", e.Index, e.Field, e.Reason)
}

// Result is the outcome of normalizing a batch. Dropped + len(Records)
// always equals the number of input records.
type Result struct {
	Records []models.ModelRecord
	Skipped []models.SkippedRecord
	Dropped int
}

// Normalize validates and converts a batch of raw records. Rejected records
// are reported in Skipped; a later record repeating an earlier id is dropped.
func Normalize(raws []map[string]any) Result {
	res := Result{Records: make([]models.ModelRecord, 0, len(raws))}
	seen := make(map[string]bool, len(raws))
	for i, raw := range raws {
		rec, err := NormalizeOne(i, raw)
		if err != nil {
			res.skip(i, idOf(raw), err.Error())
			continue
		}
		if seen[rec.ID] {
			res.skip(i, rec.ID, "duplicate id")
			continue
		}
		seen[rec.ID] = true
		res.Records = append(res.Records, rec)
	}
	return res
}

func (r *Result) skip(index int, id, reason string) {
	r.Dropped++
	r.Skipped = append(r.Skipped, models.SkippedRecord{Index: index, ID: id, Reason: reason})
}

func idOf(raw map[string]any) string {
	if v, ok := Canonicalize(raw)["id"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// NormalizeOne validates and converts a single raw record. Only a missing
// or malformed id rejects the record; any other field with the wrong shape
// falls back to its zero value and bad evaluation entries are skipped.
// index only labels the returned *ValidationError.
func NormalizeOne(index int, raw map[string]any) (models.ModelRecord, error) {
	if raw == nil {
		return models.ModelRecord{}, &ValidationError{Index: index, Reason: "record is null"}
	}
	canonical := Canonicalize(raw)

	id, err := recordID(index, canonical)
	if err != nil {
		return models.ModelRecord{}, err
	}
	if problems := validation.ValidateRawRecord(canonical); len(problems) > 0 {
		slog.Debug("repairing raw record", "index", index, "id", id, "problems", joinProblems(problems))
		sanitize(canonical)
	}
	rr, err := decode(canonical)
	if err != nil {
		return models.ModelRecord{}, &ValidationError{Index: index, Reason: err.Error()}
	}

	rec := models.ModelRecord{
		ID:           id,
		Name:         strings.TrimSpace(rr.Name),
		Downloads:    rr.Downloads,
		Likes:        rr.Likes,
		CreatedAt:    ParseTime(rr.CreatedAt),
		LastModified: ParseTime(rr.LastModified),
		EvaluatedAt:  ParseTime(rr.EvaluatedAt),
		Library:      rr.Library,
		License:      rr.License,
		PipelineTag:  rr.PipelineTag,
		Tags:         cleanTags(rr.Tags),
	}
	if rec.Name == "" {
		rec.Name = id
	}

	rec.Family = resolveFamily(rr.Family, id, rec.Tags)
	rec.Task = resolveTask(rr.Task, rr.PipelineTag)

	rec.Size = models.ParseModelSize(rr.Size)
	if rec.Size == models.SizeUnknown {
		rec.Size = InferSize(id, rec.Tags)
	}

	if rr.Parameters != nil {
		rec.ParameterCount = ParseParameters(rr.Parameters)
	} else {
		rec.ParameterCount = InferParameters(id)
	}

	rec.Evaluations = normalizeEvaluations(rr.Evaluations)
	return rec, nil
}

func recordID(index int, canonical map[string]any) (string, error) {
	v, ok := canonical["id"]
	if !ok {
		return "", &ValidationError{Index: index, Field: "id", Reason: "missing model id"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Index: index, Field: "id", Reason: fmt.Sprintf("model id must be a string, got %T", v)}
	}
	if s = strings.TrimSpace(s); s == "" {
		return "", &ValidationError{Index: index, Field: "id", Reason: "missing model id"}
	}
	return s, nil
}

func joinProblems(problems []validation.Problem) string {
	parts := make([]string, len(problems))
	for i, p := range problems {
		parts[i] = p.String()
	}
	return strings.Join(parts, "; ")
}

func resolveFamily(explicit, id string, tags []string) models.ModelFamily {
	if explicit != "" {
		if f, ok := models.ParseModelFamily(explicit); ok {
			return f
		}
	}
	return InferFamily(id, tags)
}

func resolveTask(task, pipelineTag string) models.TaskType {
	if t := models.ParseTaskType(task); t != models.TaskOther {
		return t
	}
	return models.ParseTaskType(pipelineTag)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeEvaluations drops incomplete entries and collapses duplicates on
// (lower-cased metric, dataset, split). The last duplicate's values win but
// the entry keeps the position of its first occurrence.
func normalizeEvaluations(raws []RawEvaluation) []models.EvaluationResult {
	out := make([]models.EvaluationResult, 0, len(raws))
	pos := make(map[string]int, len(raws))
	for _, re := range raws {
		name := strings.TrimSpace(re.Metric)
		dataset := strings.TrimSpace(re.Dataset)
		if name == "" || dataset == "" {
			continue
		}
		value, ok := ParseValue(re.Value)
		if !ok {
			continue
		}
		split := strings.TrimSpace(re.Split)
		if split == "" {
			split = DefaultSplit
		}
		kind := format.KindOf(re.MetricType)
		if kind == models.MetricOther {
			kind = format.KindOf(name)
		}
		ev := models.EvaluationResult{
			MetricName:    name,
			MetricKind:    kind,
			Value:         value,
			Dataset:       dataset,
			DatasetConfig: strings.TrimSpace(re.DatasetConfig),
			Split:         split,
		}
		key := ev.DedupeKey()
		if i, dup := pos[key]; dup {
			out[i] = ev
			continue
		}
		pos[key] = len(out)
		out = append(out, ev)
	}
	return out
}
