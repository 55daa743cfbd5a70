// Package aggregation derives summary statistics, correlation matrices,
// leaderboards and trend series from normalized model records.
//
// Every function is pure: the same records and options always produce the
// same output, and the input slice is never modified. Output lists are
// sorted by their keys, so input order only affects tie-breaks.
package aggregation

import (
	"fmt"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/mlbench/benchdash/internal/models"
)

// ComputationError reports an internal fault while building a view. It
// signals a logic bug, never a data-quality problem.
type ComputationError struct {
	View  string
	Cause error
	Stack []byte
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("aggregation: computing %s: %v", e.View, e.Cause)
}

func (e *ComputationError) Unwrap() error { return e.Cause }

// guard runs fn and converts a panic into a *ComputationError.
func guard(view string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &ComputationError{View: view, Cause: cause, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// Aggregate builds a complete bundle from normalized records.
func Aggregate(records []models.ModelRecord, opts Options) (*models.Bundle, error) {
	opts = opts.withDefaults()
	now := opts.Now()

	b := &models.Bundle{
		Generation: opts.Generation(),
		ComputedAt: now,
		Records:    slices.Clone(records),
	}
	if b.Records == nil {
		b.Records = []models.ModelRecord{}
	}

	steps := []struct {
		view string
		fn   func()
	}{
		{"summary", func() { b.Summary = Summarize(records, opts) }},
		{"correlations", func() { b.Correlations = Correlations(records, opts.NotableThreshold) }},
		{"leaderboards", func() { b.Leaderboards = Leaderboards(records, opts) }},
	}
	for _, s := range steps {
		if err := guard(s.view, s.fn); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// BestMatching returns the highest-valued evaluation whose metric name
// contains category, case-insensitively. The first of equal values wins.
// ok is false when nothing matches.
func BestMatching(rec *models.ModelRecord, category string) (best models.EvaluationResult, ok bool) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return best, false
	}
	for _, ev := range rec.Evaluations {
		if !strings.Contains(strings.ToLower(ev.MetricName), category) {
			continue
		}
		if !ok || ev.Value > best.Value {
			best, ok = ev, true
		}
	}
	return best, ok
}

// TopN returns the first n items under less, keeping the input order of
// equal items. n larger than the input returns everything; n <= 0 returns
// nothing. The input is not modified.
func TopN[T any](items []T, n int, less func(a, b T) bool) []T {
	if n <= 0 || len(items) == 0 {
		return []T{}
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// stripEvaluations returns a copy of rec without its evaluation list, used
// where a view embeds model metadata next to specific results.
func stripEvaluations(rec models.ModelRecord) models.ModelRecord {
	rec.Evaluations = nil
	return rec
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
