package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mlbench/benchdash/internal/projectconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigShow(t *testing.T) {
	cfgPath := writeFixture(t)
	stdout, _, err := runCLI(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# loaded from "+cfgPath)

	var shown projectconfig.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, projectconfig.SourceFile, shown.Source.Kind)
	// relative snapshot paths resolve against the config file
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "records.json"), shown.Source.Path)
	assert.Equal(t, projectconfig.DefaultPort, shown.Server.Port)
}

func TestConfigShow_EnvOverride(t *testing.T) {
	cfgPath := writeFixture(t)
	t.Setenv("PORT", "9123")

	stdout, _, err := runCLI(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)

	var shown projectconfig.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, 9123, shown.Server.Port)
}

func TestConfigShow_EnvSourcePathStaysRelative(t *testing.T) {
	cfgPath := writeFixture(t)
	t.Setenv("BENCHDASH_SOURCE_PATH", "elsewhere/records.json")

	stdout, _, err := runCLI(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)

	var shown projectconfig.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, "elsewhere/records.json", shown.Source.Path)
}

func TestConfigInit_Defaults(t *testing.T) {
	out := filepath.Join(t.TempDir(), ".benchdash.yaml")

	stdout, _, err := runCLI(t, "config", "init", "--defaults", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+out)

	// The written file must load cleanly.
	cfg, err := projectconfig.Load(filepath.Dir(out), projectconfig.WithFile(out))
	require.NoError(t, err)
	assert.Equal(t, projectconfig.DefaultPort, cfg.Server.Port)
	assert.Equal(t, projectconfig.DefaultSourceKind, cfg.Source.Kind)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), ".benchdash.yaml")
	require.NoError(t, os.WriteFile(out, []byte("log:\n  level: debug\n"), 0o644))

	_, _, err := runCLI(t, "config", "init", "--defaults", "--out", out)
	require.ErrorContains(t, err, "already exists")

	_, _, err = runCLI(t, "config", "init", "--defaults", "--force", "--out", out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# benchdash configuration")
}
