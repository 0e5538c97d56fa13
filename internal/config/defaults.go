package config

import (
	"github.com/leapstack-labs/cardformula/pkg/adapter"
	"github.com/leapstack-labs/cardformula/pkg/display"
)

// Default configuration values.
const (
	DefaultProjectFile = "cards.yaml"
	DefaultTargetType  = "sqlite"
	DefaultDatabase    = ":memory:"
	DefaultDateFormat  = display.DefaultDateFormat
	DefaultPrecision   = display.DefaultPrecision
)

// ApplyDefaults applies default values to a ProjectConfig.
func (c *ProjectConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.Project == "" {
		c.Project = DefaultProjectFile
	}
	if c.Target == nil {
		c.Target = &TargetConfig{Type: DefaultTargetType, Database: DefaultDatabase}
	}
	ApplyTargetDefaults(c.Target)
	if c.Display == nil {
		c.Display = &DisplayConfig{Precision: DefaultPrecision}
	}
	ApplyDisplayDefaults(c.Display)
}

// ApplyDisplayDefaults applies default values to a DisplayConfig.
func ApplyDisplayDefaults(d *DisplayConfig) {
	if d == nil {
		return
	}
	if d.DateFormat == "" {
		d.DateFormat = DefaultDateFormat
	}
	if d.Precision < 0 {
		d.Precision = DefaultPrecision
	}
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}

	if canonical, ok := adapter.Resolve(t.Type); ok {
		t.Type = canonical
	}

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
	case "sqlite", "duckdb":
		if t.Database == "" {
			t.Database = DefaultDatabase
		}
	}
}
