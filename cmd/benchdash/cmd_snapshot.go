package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mlbench/benchdash/internal/models"
	"github.com/mlbench/benchdash/internal/reporting"
	"github.com/mlbench/benchdash/internal/spinner"
	"github.com/spf13/cobra"
)

var sourceBindings = map[string]string{
	"source.kind": "source",
}

func newSnapshotCommand(g *globalOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch and aggregate benchmark records once",
		Long: `Fetch records from the configured source, compute every view and print
the result. The json format prints the same document GET /api/benchmarks
returns; the table format prints a readable summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "json" && outputFormat != "table" {
				return fmt.Errorf("unsupported format %q (use json or table)", outputFormat)
			}
			b, err := computeBundle(cmd, g)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputFormat == "table" {
				_, err := fmt.Fprint(out, reporting.FormatSummaryReport(b))
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Output format: json or table")
	cmd.Flags().String("source", "", "Record source: hub, file or blob")

	return cmd
}

// computeBundle loads the configuration and runs one fetch and aggregation
// pass, showing a spinner on stderr while it works.
func computeBundle(cmd *cobra.Command, g *globalOptions) (*models.Bundle, error) {
	cfg, err := g.loadConfig(cmd, sourceBindings)
	if err != nil {
		return nil, err
	}
	orch, err := newOrchestrator(cfg, slog.Default())
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stop := spinner.Start(cmd.ErrOrStderr(), "Fetching benchmark records from "+cfg.Source.Kind)
	res, err := orch.GetOrCompute(ctx, false)
	stop()
	if err != nil {
		return nil, err
	}
	return res.Bundle, nil
}
