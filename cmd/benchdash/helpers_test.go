package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixtureRecords is a small snapshot in the file source format.
var fixtureRecords = []map[string]any{
	{
		"id":         "bert-base-uncased",
		"task":       "text-classification",
		"parameters": 110_000_000,
		"created_at": "2023-01-15T00:00:00Z",
		"evaluations": []any{
			map[string]any{"metric": "accuracy", "value": 0.92, "dataset": "imdb"},
			map[string]any{"metric": "f1", "value": 0.91, "dataset": "imdb"},
		},
	},
	{
		"id":         "distilbert-base-uncased",
		"task":       "text-classification",
		"parameters": 66_000_000,
		"created_at": "2023-02-10T00:00:00Z",
		"evaluations": []any{
			map[string]any{"metric": "accuracy", "value": 0.88, "dataset": "imdb"},
			map[string]any{"metric": "f1", "value": 0.87, "dataset": "imdb"},
		},
	},
	{
		"id":   "t5-small",
		"task": "translation",
		"evaluations": []any{
			map[string]any{"metric": "bleu", "value": 27.5, "dataset": "wmt14"},
		},
	},
	{"task": "translation"},
}

// writeFixture writes the snapshot and a config file pointing at it, and
// returns the config path.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	data, err := json.Marshal(fixtureRecords)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "records.json"), data, 0o644))

	cfg := "source:\n  kind: file\n  path: records.json\n"
	path := filepath.Join(dir, ".benchdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
