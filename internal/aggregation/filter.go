package aggregation

import (
	"strings"

	"github.com/mlbench/benchdash/internal/models"
)

// Query selects a subset of records. Empty fields match everything.
type Query struct {
	Task         models.TaskType
	Family       models.ModelFamily
	Tag          string
	Search       string
	MinDownloads int64
}

// IsZero reports whether q matches every record.
func (q Query) IsZero() bool {
	return q == Query{}
}

// Match reports whether rec satisfies every set field of q. Search is a
// case-insensitive substring match on id and name.
func (q Query) Match(rec *models.ModelRecord) bool {
	if q.Task != "" && rec.Task != q.Task {
		return false
	}
	if q.Family != "" && rec.Family != q.Family {
		return false
	}
	if q.Tag != "" && !rec.HasTag(q.Tag) {
		return false
	}
	if rec.Downloads < q.MinDownloads {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		if !strings.Contains(strings.ToLower(rec.ID), s) && !strings.Contains(strings.ToLower(rec.Name), s) {
			return false
		}
	}
	return true
}

// Filter returns the records matching q in their original order. The
// records themselves are shared with the input.
func Filter(records []models.ModelRecord, q Query) []models.ModelRecord {
	out := make([]models.ModelRecord, 0, len(records))
	for i := range records {
		if q.Match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
