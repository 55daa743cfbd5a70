package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mlbench/benchdash/internal/cache"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cache status of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := fetchStatus(ctx, &http.Client{Timeout: timeout}, serverURL)
			if err != nil {
				return err
			}
			writeStatus(cmd.OutOrStdout(), serverURL, st)
			if !st.HasData {
				return fmt.Errorf("%w: server has no data yet", cache.ErrUnavailable)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8000", "Base URL of the benchdash server")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")

	return cmd
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL string) (*cache.Status, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/api/cache-status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("querying %s: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(body)))
	}
	var st cache.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decoding cache status: %w", err)
	}
	return &st, nil
}

func writeStatus(w io.Writer, serverURL string, st *cache.Status) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Fprintf(w, "benchdash at %s\n", serverURL) //nolint:errcheck

	fmt.Fprint(w, "  Cache:        ") //nolint:errcheck
	switch {
	case !st.HasData:
		red.Fprintln(w, "empty") //nolint:errcheck
	case st.CacheValid:
		green.Fprintln(w, "valid") //nolint:errcheck
	default:
		yellow.Fprintln(w, "expired") //nolint:errcheck
	}

	if st.HasData {
		fmt.Fprintf(w, "  Models:       %d\n", st.DataCount) //nolint:errcheck
	}
	if st.LastUpdated != nil {
		fmt.Fprintf(w, "  Last updated: %s\n", st.LastUpdated.Format(time.RFC3339)) //nolint:errcheck
	}
	if st.AgeSeconds != nil {
		age := time.Duration(*st.AgeSeconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "  Age:          %s (TTL %dm)\n", age, st.TTLMinutes) //nolint:errcheck
	}
	if st.Generation != "" {
		fmt.Fprintf(w, "  Generation:   %s\n", st.Generation) //nolint:errcheck
	}
	if st.Refreshing {
		yellow.Fprintln(w, "  Refresh in progress") //nolint:errcheck
	}
	if st.LastRefreshError != "" {
		red.Fprintf(w, "  Last refresh failed: %s\n", st.LastRefreshError) //nolint:errcheck
	}
}
