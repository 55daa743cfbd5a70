package models

import (
	"strings"
	"time"
)

// EvaluationResult is a single metric score of a model on a dataset.
type EvaluationResult struct {
	MetricName    string     `json:"metric_name"`
	MetricKind    MetricKind `json:"metric_type"`
	Value         float64    `json:"value"`
	Dataset       string     `json:"dataset_name"`
	DatasetConfig string     `json:"dataset_config,omitempty"`
	Split         string     `json:"dataset_split"`
}

// DedupeKey identifies results that describe the same measurement.
func (r EvaluationResult) DedupeKey() string {
	return strings.ToLower(r.MetricName) + "\x00" + r.Dataset + "\x00" + r.Split
}

// ModelRecord is one evaluated model after normalization.
type ModelRecord struct {
	ID             string             `json:"model_id"`
	Name           string             `json:"model_name"`
	Family         ModelFamily        `json:"model_family"`
	Task           TaskType           `json:"task_type"`
	Size           ModelSize          `json:"model_size,omitempty"`
	ParameterCount *int64             `json:"parameter_count,omitempty"`
	Downloads      int64              `json:"downloads"`
	Likes          int64              `json:"likes"`
	CreatedAt      *time.Time         `json:"created_at,omitempty"`
	LastModified   *time.Time         `json:"last_modified,omitempty"`
	EvaluatedAt    *time.Time         `json:"evaluated_at,omitempty"`
	Library        string             `json:"library_name,omitempty"`
	License        string             `json:"license,omitempty"`
	PipelineTag    string             `json:"pipeline_tag,omitempty"`
	Tags           []string           `json:"tags"`
	Evaluations    []EvaluationResult `json:"evaluation_results"`
}

// HasParameters reports whether a positive parameter count is known.
func (m *ModelRecord) HasParameters() bool {
	return m.ParameterCount != nil && *m.ParameterCount > 0
}

// ParametersInMillions returns the parameter count divided by one million.
// The boolean is false when the count is unknown or not positive.
func (m *ModelRecord) ParametersInMillions() (float64, bool) {
	if !m.HasParameters() {
		return 0, false
	}
	return float64(*m.ParameterCount) / 1_000_000, true
}

// HasTag reports whether the record carries the tag (case-insensitive).
func (m *ModelRecord) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
