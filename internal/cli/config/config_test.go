package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/cardformula/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/cardformula/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/cardformula/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cardformula.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project", "", "project file")
	flags.String("state", "", "state database")
	flags.String("database", "", "database")
	flags.String("adapter", "", "adapter type")
	flags.String("output", "", "output format")
	flags.String("date-format", "", "date format")
	flags.Int32("precision", 0, "precision")
	flags.Bool("verbose", false, "verbose")
	flags.Int("workers", 0, "workers")
	flags.String("config", "", "config file")
	flags.StringP("target", "t", "", "target environment")
	return flags
}

func TestDefaultSchemaForType(t *testing.T) {
	tests := []struct {
		dbType   string
		expected string
	}{
		{"duckdb", "main"},
		{"postgres", "public"},
		{"sqlite", "main"},
		{"unknown", "main"},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultSchemaForType(tt.dbType))
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CF_TEST_USER", "ana")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no vars", "plain", "plain"},
		{"set var", "${CF_TEST_USER}", "ana"},
		{"embedded", "user=${CF_TEST_USER};", "user=ana;"},
		{"unset var kept", "${CF_TEST_MISSING}", "${CF_TEST_MISSING}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{
		Type:     "postgres",
		Host:     "localhost",
		Port:     5432,
		Database: "cards",
		Options:  map[string]string{"sslmode": "disable"},
	}
	override := &TargetConfig{
		Host:    "db.internal",
		Schema:  "staging",
		Options: map[string]string{"sslmode": "require"},
		Params:  map[string]any{"threads": 4},
	}

	merged := MergeTargetConfig(base, override)
	assert.Equal(t, "postgres", merged.Type)
	assert.Equal(t, "db.internal", merged.Host)
	assert.Equal(t, 5432, merged.Port)
	assert.Equal(t, "cards", merged.Database)
	assert.Equal(t, "staging", merged.Schema)
	assert.Equal(t, "require", merged.Options["sslmode"])
	assert.Equal(t, 4, merged.Params["threads"])
	assert.Equal(t, "disable", base.Options["sslmode"], "base is not modified")

	assert.Same(t, override, MergeTargetConfig(nil, override))
	assert.Same(t, base, MergeTargetConfig(base, nil))
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "verbose: false\n")
	dir := filepath.Dir(path)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, DefaultProject), cfg.Project)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Database)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, "%d %b %Y", cfg.Display.DateFormat)
	assert.Equal(t, int32(2), cfg.Display.Precision)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `project: sprint.yaml
output: json
display:
  date_format: "%Y-%m-%d"
  precision: 0
target:
  type: DuckDB
  database: cards.duckdb
`)
	dir := filepath.Dir(path)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sprint.yaml"), cfg.Project)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "%Y-%m-%d", cfg.Display.DateFormat)
	assert.Equal(t, int32(0), cfg.Display.Precision)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, filepath.Join(dir, "cards.duckdb"), cfg.Target.Database)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoadConfig_InvalidTarget(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "target:\n  type: mysql\n")

	_, err := LoadConfig(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target configuration")
	assert.Contains(t, err.Error(), "mysql")
}

func TestLoadConfigWithTarget_Environments(t *testing.T) {
	content := `target:
  type: postgres
  host: localhost
  database: cards
  user: ${CF_TEST_PG_USER}
environments:
  dev:
    target:
      schema: dev
  prod:
    project: prod.yaml
    target:
      host: db.internal
      schema: prod
`
	t.Setenv("CF_TEST_PG_USER", "reporter")

	t.Run("default environment", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithTarget(writeConfig(t, content), "", nil)
		require.NoError(t, err)
		assert.Equal(t, "dev", cfg.Target.Schema)
		assert.Equal(t, "localhost", cfg.Target.Host)
		assert.Equal(t, 5432, cfg.Target.Port)
		assert.Equal(t, "reporter", cfg.Target.User)
		assert.Equal(t, "cards", cfg.Target.Database, "network database names are not paths")
	})

	t.Run("override", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, content)
		cfg, err := LoadConfigWithTarget(path, "prod", nil)
		require.NoError(t, err)
		assert.Equal(t, "prod", cfg.Target.Schema)
		assert.Equal(t, "db.internal", cfg.Target.Host)
		assert.Equal(t, filepath.Join(filepath.Dir(path), "prod.yaml"), cfg.Project)
	})

	t.Run("unknown environment", func(t *testing.T) {
		ResetConfig()
		_, err := LoadConfigWithTarget(writeConfig(t, content), "qa", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown target environment "qa"`)
	})
}

func TestLoadConfigWithTarget_FlagPrecedence(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "output: text\n")
	t.Setenv("CARDFORMULA_OUTPUT", "json")

	flags := newFlags()
	require.NoError(t, flags.Set("output", "markdown"))

	cfg, err := LoadConfigWithTarget(path, "", flags)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat, "flag value should override config file and env var")
}

func TestLoadConfigWithTarget_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "output: text\ntarget:\n  type: sqlite\n")
	t.Setenv("CARDFORMULA_OUTPUT", "json")
	t.Setenv("CARDFORMULA_TARGET__TYPE", "duckdb")

	cfg, err := LoadConfigWithTarget(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat, "env var should override config file")
	assert.Equal(t, "duckdb", cfg.Target.Type)
}

func TestLoadConfigWithTarget_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "output: text\n")
	t.Setenv("CARDFORMULA_OUTPUT", "json")

	cfg, err := LoadConfigWithTarget(path, "", newFlags())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat, "env var should be used when flag is not set")
}

func TestLoadConfigWithTarget_MappedFlags(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "")

	flags := newFlags()
	require.NoError(t, flags.Set("adapter", "duckdb"))
	require.NoError(t, flags.Set("precision", "4"))
	require.NoError(t, flags.Set("date-format", "%Y"))
	require.NoError(t, flags.Set("state", ""))
	require.NoError(t, flags.Set("database", ":memory:"))

	cfg, err := LoadConfigWithTarget(path, "", flags)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, int32(4), cfg.Display.Precision)
	assert.Equal(t, "%Y", cfg.Display.DateFormat)
	assert.Empty(t, cfg.StatePath, "an empty --state disables history")
	assert.Equal(t, ":memory:", cfg.Target.Database)
}

func TestLoadConfigWithTarget_SelectorFlags(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "environments:\n  prod:\n    target:\n      type: duckdb\n")

	flags := newFlags()
	require.NoError(t, flags.Set("config", path))
	require.NoError(t, flags.Set("target", "prod"))
	require.NoError(t, flags.Set("workers", "3"))

	cfg, err := LoadConfigWithTarget(path, "prod", flags)
	require.NoError(t, err, "--config and --target select the config and are not config keys")
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadConfigWithTarget_ProjectFlagIsRelativeToCWD(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "")

	flags := newFlags()
	require.NoError(t, flags.Set("project", "other.yaml"))

	cfg, err := LoadConfigWithTarget(path, "", flags)
	require.NoError(t, err)

	want, err := filepath.Abs("other.yaml")
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Project)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
