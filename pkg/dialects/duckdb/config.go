// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import "github.com/leapstack-labs/cardformula/pkg/core"

// Config is the DuckDB dialect configuration.
// This is pure data - accessible by both Adapter and the formula compiler.
//
// Numbers are DOUBLE like SQLite's REAL; a fixed-scale DECIMAL would truncate
// digits the in-memory decimals keep.
var Config = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	Types: core.ColumnTypes{
		Numeric: "DOUBLE",
		Integer: "INTEGER",
		Date:    "DATE",
		Text:    "VARCHAR",
	},
	Templates: core.ExprTemplates{
		NumericCast:      "CAST(%[1]s AS DOUBLE)",
		IntegerCast:      "CAST(%[1]s AS INTEGER)",
		Round:            "ROUND(%[1]s)",
		DateLiteral:      "DATE '%[1]s'",
		DateAddDays:      "(%[1]s + %[2]s)",
		DateSubtractDays: "(%[1]s - %[2]s)",
		DateDiffDays:     "date_diff('day', %[2]s, %[1]s)",
	},
}
