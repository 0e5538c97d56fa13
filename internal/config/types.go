// Package config provides the configuration types shared by the CLI and the
// engine. It is decoupled from CLI concerns so other tools can load a project
// configuration without cobra.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/cardformula/pkg/adapter"
	"github.com/leapstack-labs/cardformula/pkg/dialect"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres

	// File-based databases (SQLite, DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options (SQLite pragmas, Postgres sslmode)
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions and settings)
	Params map[string]any `koanf:"params"`
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; if not found, returns "main" as fallback.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(dbType); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}

// Validate checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}

	return nil
}

// ApplyDefaults fills unset fields from the target type.
func (t *TargetConfig) ApplyDefaults() {
	ApplyTargetDefaults(t)
}

// AdapterConfig converts the target into the connection config adapters take.
// File databases are opened from Database.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// DisplayConfig controls how computed values are printed.
type DisplayConfig struct {
	// DateFormat is a strftime pattern.
	DateFormat string `koanf:"date_format"`
	// Precision is the number of decimal places numbers are rounded to.
	Precision int32 `koanf:"precision"`
}

// ProjectConfig holds the minimal project configuration needed outside the CLI.
// This is a subset of the full CLI Config.
type ProjectConfig struct {
	Project string         `koanf:"project"`
	Target  *TargetConfig  `koanf:"target"`
	Display *DisplayConfig `koanf:"display"`
}
