// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/leapstack-labs/cardformula/pkg/core"

// Config is the PostgreSQL dialect configuration.
// This is pure data - accessible by both Adapter and the formula compiler.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	Types: core.ColumnTypes{
		Numeric: "NUMERIC",
		Integer: "INTEGER",
		Date:    "DATE",
		Text:    "TEXT",
	},
	// date + integer and date - integer yield a date; date - date yields an integer.
	Templates: core.ExprTemplates{
		NumericCast:      "CAST(%[1]s AS NUMERIC)",
		IntegerCast:      "CAST(%[1]s AS INTEGER)",
		Round:            "ROUND(%[1]s)",
		DateLiteral:      "DATE '%[1]s'",
		DateAddDays:      "(%[1]s + %[2]s)",
		DateSubtractDays: "(%[1]s - %[2]s)",
		DateDiffDays:     "(%[1]s - %[2]s)",
	},
}
