package dataset

import (
	"strconv"
	"strings"
)

// recordColumns are copied onto the model record. The first row of a model
// that fills a column wins.
var recordColumns = []string{
	"name", "family", "task", "pipeline_tag", "size", "parameters",
	"downloads", "likes", "created_at", "last_modified", "evaluated_at",
	"library_name", "license",
}

// evaluationColumns describe the evaluation carried by a row.
var evaluationColumns = []string{"metric", "metric_type", "value", "dataset", "dataset_config", "split"}

// numericColumns are converted to numbers when they parse as one. Cells
// that do not parse are kept as text so validation can report them.
var numericColumns = map[string]bool{"downloads": true, "likes": true, "value": true}

// Records folds rows into raw records keyed by the id (or model_id)
// column, preserving the order in which ids first appear. Rows without an
// id become records of their own so that they are reported downstream.
func Records(rows []Row) []map[string]any {
	var out []map[string]any
	index := map[string]int{}
	for _, row := range rows {
		id := row["id"]
		if id == "" {
			id = row["model_id"]
		}

		pos, seen := index[id]
		if !seen || id == "" {
			rec := map[string]any{}
			if id != "" {
				rec["id"] = id
				index[id] = len(out)
			}
			out = append(out, rec)
			pos = len(out) - 1
		}
		rec := out[pos]

		for _, col := range recordColumns {
			if _, done := rec[col]; done {
				continue
			}
			if v := cell(row, col); v != nil {
				rec[col] = v
			}
		}
		if _, done := rec["tags"]; !done && row["tags"] != "" {
			rec["tags"] = splitTags(row["tags"])
		}
		if ev := evaluation(row); ev != nil {
			evals, _ := rec["evaluations"].([]any)
			rec["evaluations"] = append(evals, ev)
		}
	}
	return out
}

func evaluation(row Row) map[string]any {
	if row["metric"] == "" && row["value"] == "" {
		return nil
	}
	ev := map[string]any{}
	for _, col := range evaluationColumns {
		if v := cell(row, col); v != nil {
			ev[col] = v
		}
	}
	return ev
}

func cell(row Row, col string) any {
	v := row[col]
	if v == "" {
		return nil
	}
	if numericColumns[col] {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

// splitTags accepts ";" or "|" separated lists.
func splitTags(s string) []any {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
