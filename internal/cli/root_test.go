package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/cardformula/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = `
name: demo
properties:
  - name: Estimate
    type: number
  - name: Spent
    type: number
  - name: Remaining
    type: formula
    formula:
      subtract: [Estimate, Spent]
cards:
  - number: 1
    values: {Estimate: 5, Spent: 2}
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(project), 0600))
	return path
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "cardformula", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	for _, name := range []string{"check", "eval", "sql", "deps", "verify", "history", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "target", "project", "adapter", "database", "state", "date-format", "precision", "workers", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_Version(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cardformula v"+Version)
}

func TestRoot_Completion(t *testing.T) {
	stdout, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cardformula")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRoot_Eval(t *testing.T) {
	path := writeProject(t)

	stdout, _, err := run(t, "eval", "--project", path, "--state", "", "--output", "json")
	require.NoError(t, err)

	var out struct {
		Cards []struct {
			Number int            `json:"number"`
			Values map[string]any `json:"values"`
		} `json:"cards"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Cards, 1)
	assert.Equal(t, "3", out.Cards[0].Values["Remaining"])
}

func TestRoot_Verify(t *testing.T) {
	path := writeProject(t)

	stdout, _, err := run(t, "verify", "-p", path, "--state", "", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "## Verification against sqlite")
	assert.Contains(t, stdout, "All 1 values match")
}

func TestRoot_InvalidOutput(t *testing.T) {
	path := writeProject(t)

	_, _, err := run(t, "check", "-p", path, "--state", "", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml")
}

func TestRoot_MissingProject(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := run(t, "check", "-p", missing, "--state", "")
	require.Error(t, err)
}

func TestRoot_VerboseLogsToStderr(t *testing.T) {
	path := writeProject(t)

	_, stderr, err := run(t, "eval", "-p", path, "--state", "", "-o", "json", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "evaluation completed")
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, config.DefaultProject, cfg.Project)
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)
}
