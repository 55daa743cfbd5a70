package reporting

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mlbench/benchdash/internal/format"
	"github.com/mlbench/benchdash/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Options controls the report content.
type Options struct {
	// Title defaults to "Benchmark Report".
	Title string
	// EntriesPerBoard limits each leaderboard table. Zero means 5.
	EntriesPerBoard int
	// MaxBoards limits the number of leaderboard tables. Zero means all.
	MaxBoards int
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Benchmark Report"
	}
	if o.EntriesPerBoard <= 0 {
		o.EntriesPerBoard = 5
	}
	return o
}

// Markdown renders a bundle as a GitHub-flavored Markdown report.
func Markdown(b *models.Bundle, opts Options) string {
	opts = opts.withDefaults()
	s := b.Summary
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", opts.Title)
	fmt.Fprintf(&sb, "Generated %s from %s models across %s datasets.\n\n",
		b.ComputedAt.UTC().Format(time.RFC1123),
		format.FormatCount(int64(s.TotalModels)),
		format.FormatCount(int64(s.TotalDatasets)))
	fmt.Fprintf(&sb, "%s\n\n", InterpretDropped(b.Dropped, len(b.Records)+b.Dropped))

	if len(s.TaskStats) > 0 {
		sb.WriteString("## Tasks\n\n")
		sb.WriteString("| Task | Models | Datasets | Top models |\n")
		sb.WriteString("|---|---:|---:|---|\n")
		for _, ts := range s.TaskStats {
			fmt.Fprintf(&sb, "| %s | %d | %d | %s |\n",
				cell(format.TaskLabel(ts.Task)), ts.ModelCount, ts.DatasetCount, cell(strings.Join(ts.TopModels, ", ")))
		}
		sb.WriteString("\n")
	}

	boards := b.Leaderboards
	if opts.MaxBoards > 0 && len(boards) > opts.MaxBoards {
		boards = boards[:opts.MaxBoards]
	}
	if len(boards) > 0 {
		sb.WriteString("## Leaderboards\n\n")
		for i := range boards {
			writeLeaderboard(&sb, &boards[i], opts.EntriesPerBoard)
		}
	}

	if len(s.ModelFamilyStats) > 0 {
		sb.WriteString("## Model Families\n\n")
		sb.WriteString("| Family | Architecture | Models | Avg. size | Tasks |\n")
		sb.WriteString("|---|---|---:|---:|---:|\n")
		for _, fs := range s.ModelFamilyStats {
			size := "n/a"
			if fs.AvgParameterCount != nil {
				size = format.FormatParams(int64(*fs.AvgParameterCount))
			}
			fmt.Fprintf(&sb, "| %s | %s | %d | %s | %d |\n",
				cell(format.FamilyLabel(fs.Family)), fs.Architecture, fs.ModelCount, size, len(fs.TaskDistribution))
		}
		sb.WriteString("\n")
	}

	var notable []string
	for _, m := range b.Correlations {
		for _, n := range m.Notable {
			notable = append(notable, fmt.Sprintf("- **%s**: %s and %s, r = %.2f over %d models (%s)",
				format.TaskLabel(m.Task), format.MetricLabel(n.MetricA), format.MetricLabel(n.MetricB),
				n.Coefficient, n.Samples, strings.ToLower(InterpretCorrelation(n.Coefficient))))
		}
	}
	if len(notable) > 0 {
		sb.WriteString("## Notable Correlations\n\n")
		sb.WriteString(strings.Join(notable, "\n"))
		sb.WriteString("\n\n")
	}

	if len(b.Skipped) > 0 {
		sb.WriteString("## Skipped Records\n\n")
		for _, sk := range b.Skipped {
			id := sk.ID
			if id == "" {
				id = "(no id)"
			}
			fmt.Fprintf(&sb, "- #%d %s: %s\n", sk.Index, cell(id), cell(sk.Reason))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeLeaderboard(sb *strings.Builder, lb *models.Leaderboard, n int) {
	direction := "higher is better"
	if lb.LowerIsBetter {
		direction = "lower is better"
	}
	fmt.Fprintf(sb, "### %s: %s on %s\n\n", format.TaskLabel(lb.Task), format.MetricLabel(lb.MetricName), cell(lb.Dataset))
	fmt.Fprintf(sb, "_%s_\n\n", direction)
	sb.WriteString("| Rank | Model | Value | Size | Efficiency |\n")
	sb.WriteString("|---:|---|---:|---:|---:|\n")
	for i, e := range lb.Entries {
		if i >= n {
			break
		}
		size, eff := "n/a", "n/a"
		if e.Model.ParameterCount != nil {
			size = format.FormatParams(*e.Model.ParameterCount)
		}
		if e.EfficiencyScore != nil {
			eff = fmt.Sprintf("%.4f", *e.EfficiencyScore)
		}
		value := format.FormatValue(e.Primary.MetricName, e.Primary.Value)
		if label := InterpretScore(e.Primary.MetricName, e.Primary.Value); label != "" && i == 0 {
			value += " " + label
		}
		fmt.Fprintf(sb, "| %d | %s | %s | %s | %s |\n", e.Rank, cell(e.Model.Name), value, size, eff)
	}
	sb.WriteString("\n")
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// HTML converts a Markdown report into a standalone HTML page.
func HTML(title, markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem}" +
		"table{border-collapse:collapse;margin-bottom:1rem}th,td{border:1px solid #ccc;padding:.25rem .5rem}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Render builds the report in the requested format, "md" or "html".
func Render(b *models.Bundle, outputFormat string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	md := Markdown(b, opts)
	switch outputFormat {
	case "", "md", "markdown":
		return []byte(md), nil
	case "html":
		return HTML(opts.Title, md)
	default:
		return nil, fmt.Errorf("unknown report format %q (want md or html)", outputFormat)
	}
}
