package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mlbench/benchdash/internal/format"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	defaultTableWidth = 100
	minModelWidth     = 12
)

func newLeaderboardCommand(g *globalOptions) *cobra.Command {
	var (
		task    string
		dataset string
		metric  string
		rankBy  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print a leaderboard as a terminal table",
		Long: `Print the leaderboard for a task, dataset and metric.

When --dataset is omitted the first dataset with a leaderboard for the metric
is used. --rank-by efficiency orders models by score per million parameters
and leaves out models with an unknown size.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTaskFlag(task)
			if err != nil {
				return err
			}
			if rankBy != "value" && rankBy != "efficiency" {
				return fmt.Errorf("unsupported --rank-by %q (use value or efficiency)", rankBy)
			}

			b, err := computeBundle(cmd, g)
			if err != nil {
				return err
			}
			lb, err := selectLeaderboard(b, t, dataset, metric)
			if err != nil {
				return err
			}

			entries := lb.Entries
			if rankBy == "efficiency" {
				entries = lb.RankedByEfficiency()
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			writeLeaderboardTable(cmd.OutOrStdout(), lb, entries, tableWidth(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Task type, e.g. text-classification (required)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset name")
	cmd.Flags().StringVar(&metric, "metric", "accuracy", "Metric name")
	cmd.Flags().StringVar(&rankBy, "rank-by", "value", "Ranking: value or efficiency")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum rows to print (0 for all)")
	cmd.Flags().String("source", "", "Record source: hub, file or blob")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

func parseTaskFlag(s string) (models.TaskType, error) {
	t := models.ParseTaskType(s)
	if t == models.TaskOther && !strings.EqualFold(strings.TrimSpace(s), string(models.TaskOther)) {
		return "", fmt.Errorf("unknown task %q", s)
	}
	return t, nil
}

// selectLeaderboard finds the board for the triple. With an empty dataset
// the first board for task and metric wins.
func selectLeaderboard(b *models.Bundle, task models.TaskType, dataset, metric string) (*models.Leaderboard, error) {
	if dataset != "" {
		if lb, ok := b.FindLeaderboard(task, dataset, metric); ok {
			return lb, nil
		}
		return nil, fmt.Errorf("no leaderboard for %s / %s / %s", task, dataset, metric)
	}
	for i := range b.Leaderboards {
		lb := &b.Leaderboards[i]
		if lb.Task == task && strings.EqualFold(lb.MetricName, metric) {
			return lb, nil
		}
	}
	return nil, fmt.Errorf("no leaderboard for %s / %s", task, metric)
}

func tableWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultTableWidth
}

// writeLeaderboardTable prints entries in aligned columns. The model column
// absorbs whatever width the other columns leave.
func writeLeaderboardTable(w io.Writer, lb *models.Leaderboard, entries []models.LeaderboardEntry, width int) {
	direction := "higher is better"
	if lb.LowerIsBetter {
		direction = "lower is better"
	}
	fmt.Fprintf(w, "%s · %s · %s (%s)\n\n", //nolint:errcheck
		format.TaskLabel(lb.Task), lb.Dataset, format.MetricLabel(lb.MetricName), direction)

	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries.") //nolint:errcheck
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		params := "-"
		if e.Model.HasParameters() {
			params = format.FormatParams(*e.Model.ParameterCount)
		}
		eff := "-"
		if e.EfficiencyScore != nil {
			eff = fmt.Sprintf("%.4f", *e.EfficiencyScore)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Rank),
			e.Model.ID,
			format.FormatValue(e.Primary.MetricName, e.Primary.Value),
			params,
			eff,
		})
	}

	headers := []string{"#", "Model", "Score", "Params", "Score/M"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	// Shrink the model column to fit the terminal.
	fixed := 0
	for i, wd := range widths {
		if i != 1 {
			fixed += wd
		}
	}
	fixed += 2 * (len(widths) - 1)
	if avail := width - fixed; avail < widths[1] {
		widths[1] = max(avail, minModelWidth)
	}

	writeRow := func(cells []string) {
		var sb strings.Builder
		for i, c := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			c = runewidth.Truncate(c, widths[i], "…")
			if i == 0 || i >= 2 {
				sb.WriteString(padLeft(c, widths[i]))
			} else {
				sb.WriteString(padRight(c, widths[i]))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")) //nolint:errcheck
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = strings.Repeat("─", widths[i])
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}
