package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/cardformula/internal/cli/config"
	"github.com/leapstack-labs/cardformula/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/cardformula/internal/config"
	"github.com/leapstack-labs/cardformula/internal/engine"
	"github.com/leapstack-labs/cardformula/pkg/display"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't load the project.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		logger.Warn("ignoring output format", "error", err)
		mode = output.ModeAuto
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	target := &config.TargetConfig{
		Type:     getEnvOrDefault(config.EnvPrefix+"TARGET__TYPE", sharedcfg.DefaultTargetType),
		Database: os.Getenv(config.EnvPrefix + "DATABASE"),
	}
	sharedcfg.ApplyTargetDefaults(target)

	return &config.Config{
		Project:      getEnvOrDefault(config.EnvPrefix+"PROJECT", config.DefaultProject),
		StatePath:    getEnvOrDefault(config.EnvPrefix+"STATE_PATH", config.DefaultStateFile),
		Environment:  getEnvOrDefault(config.EnvPrefix+"ENVIRONMENT", config.DefaultEnv),
		Verbose:      os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
		OutputFormat: os.Getenv(config.EnvPrefix + "OUTPUT"),
		Target:       target,
		Display:      &config.DisplayConfig{Precision: sharedcfg.DefaultPrecision},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure state directory exists
	if cfg.StatePath != "" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, err
			}
		}
	}

	engineCfg := engine.Config{
		ProjectPath: cfg.Project,
		StatePath:   cfg.StatePath,
		Workers:     cfg.Workers,
		Logger:      logger,
	}
	if cfg.Target != nil {
		adapterConfig := cfg.Target.AdapterConfig()
		engineCfg.AdapterConfig = &adapterConfig
	}
	if cfg.Display != nil {
		engineCfg.Formatter = display.New(cfg.Display.DateFormat, cfg.Display.Precision)
	}

	return engine.New(engineCfg)
}
