package main

import (
	"fmt"
	"os"

	"github.com/mlbench/benchdash/internal/reporting"
	"github.com/spf13/cobra"
)

func newReportCommand(g *globalOptions) *cobra.Command {
	var (
		outputFormat string
		outPath      string
		title        string
		entries      int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a Markdown or HTML benchmark report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "md" && outputFormat != "html" {
				return fmt.Errorf("unsupported format %q (use md or html)", outputFormat)
			}
			b, err := computeBundle(cmd, g)
			if err != nil {
				return err
			}
			data, err := reporting.Render(b, outputFormat, reporting.Options{
				Title:           title,
				EntriesPerBoard: entries,
			})
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", outPath) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "md", "Output format: md or html")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "Report title")
	cmd.Flags().IntVar(&entries, "entries", 0, "Entries shown per leaderboard (default 5)")
	cmd.Flags().String("source", "", "Record source: hub, file or blob")

	return cmd
}
