package webapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/models"
)

// paramError is a malformed query parameter.
type paramError struct {
	Name  string
	Value string
	Want  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s %q: want %s", e.Name, e.Value, e.Want)
}

// boolParam parses an optional boolean. Empty means false.
func boolParam(q url.Values, name string) (bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &paramError{Name: name, Value: v, Want: "true or false"}
	}
	return b, nil
}

// intParam parses an optional non-negative integer. Empty means 0.
func intParam(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &paramError{Name: name, Value: v, Want: "a non-negative integer"}
	}
	return n, nil
}

// taskParam parses an optional task type. Unknown names are rejected rather
// than mapped to "other".
func taskParam(q url.Values) (models.TaskType, error) {
	v := strings.TrimSpace(q.Get("task"))
	if v == "" {
		return "", nil
	}
	t := models.ParseTaskType(v)
	if t == models.TaskOther && !strings.EqualFold(v, string(models.TaskOther)) {
		return "", &paramError{Name: "task", Value: v, Want: "a known task type"}
	}
	return t, nil
}

// parseQuery reads the record filter of /api/aggregate.
func parseQuery(q url.Values) (aggregation.Query, error) {
	var out aggregation.Query

	task, err := taskParam(q)
	if err != nil {
		return out, err
	}
	out.Task = task

	if v := strings.TrimSpace(q.Get("family")); v != "" {
		f, ok := models.ParseModelFamily(v)
		if !ok && !strings.EqualFold(v, string(models.FamilyOther)) {
			return out, &paramError{Name: "family", Value: v, Want: "a known model family"}
		}
		out.Family = f
	}

	out.Tag = strings.TrimSpace(q.Get("tag"))
	out.Search = strings.TrimSpace(q.Get("q"))

	if v := strings.TrimSpace(q.Get("min_downloads")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return out, &paramError{Name: "min_downloads", Value: v, Want: "a non-negative integer"}
		}
		out.MinDownloads = n
	}
	return out, nil
}

// listParam splits a comma-separated parameter, dropping empty items.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, item := range strings.Split(q.Get(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
