package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mlbench/benchdash/internal/format"
	"github.com/mlbench/benchdash/internal/models"
)

// InterpretScore returns a plain-language label for a proportion metric
// (0–1). Other metrics have no absolute scale and get an empty label.
func InterpretScore(metricName string, score float64) string {
	if !format.IsPercentage(metricName) || score < 0 || score > 1 {
		return ""
	}
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretCorrelation describes the strength and sign of a Pearson
// coefficient.
func InterpretCorrelation(r float64) string {
	sign := "positive"
	if r < 0 {
		sign = "negative"
	}
	switch a := math.Abs(r); {
	case a >= 0.9:
		return "Very strong " + sign
	case a >= 0.7:
		return "Strong " + sign
	case a >= 0.4:
		return "Moderate " + sign
	case a >= 0.2:
		return "Weak " + sign
	default:
		return "Negligible"
	}
}

// InterpretDropped explains how many raw records were rejected.
func InterpretDropped(dropped, total int) string {
	if dropped == 0 {
		return "All fetched records passed validation."
	}
	pct := float64(dropped) / float64(total) * 100
	return fmt.Sprintf("%d of %d fetched records (%.0f%%) were dropped during validation.", dropped, total, pct)
}

// FormatSummaryReport produces a plain-text overview of a bundle for the
// terminal.
func FormatSummaryReport(b *models.Bundle) string {
	var sb strings.Builder
	s := b.Summary

	sb.WriteString("=== Benchmark Summary ===\n\n")
	fmt.Fprintf(&sb, "Generation:  %s\n", b.Generation)
	fmt.Fprintf(&sb, "Computed:    %s\n", b.ComputedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Models:      %s\n", format.FormatCount(int64(s.TotalModels)))
	fmt.Fprintf(&sb, "Datasets:    %s\n", format.FormatCount(int64(s.TotalDatasets)))
	fmt.Fprintf(&sb, "Validation:  %s\n", InterpretDropped(b.Dropped, len(b.Records)+b.Dropped))

	if len(s.TaskStats) > 0 {
		sb.WriteString("\nPer-Task:\n")
		for _, ts := range s.TaskStats {
			fmt.Fprintf(&sb, "  %s: %d models, %d datasets\n", format.TaskLabel(ts.Task), ts.ModelCount, ts.DatasetCount)
			if len(ts.TopModels) > 0 {
				fmt.Fprintf(&sb, "    Top: %s\n", strings.Join(ts.TopModels, ", "))
			}
		}
	}

	var notable []string
	for _, m := range b.Correlations {
		for _, n := range m.Notable {
			notable = append(notable, fmt.Sprintf("  %s: %s ~ %s r=%.2f (%s)",
				format.TaskLabel(m.Task), n.MetricA, n.MetricB, n.Coefficient, InterpretCorrelation(n.Coefficient)))
		}
	}
	if len(notable) > 0 {
		sb.WriteString("\nNotable Correlations:\n")
		sb.WriteString(strings.Join(notable, "\n"))
		sb.WriteString("\n")
	}

	return sb.String()
}
