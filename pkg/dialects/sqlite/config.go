// Package sqlite provides the SQLite SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package sqlite

import "github.com/leapstack-labs/cardformula/pkg/core"

// Config is the SQLite dialect configuration.
// This is pure data - accessible by both Adapter and the formula compiler.
//
// SQLite has no DATE type, so dates are stored as ISO-8601 TEXT and all date
// arithmetic goes through date() and julianday(). Day modifiers are built by
// concatenation so a NULL offset yields a NULL date.
var Config = &core.DialectConfig{
	Name:          "sqlite",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	Types: core.ColumnTypes{
		Numeric: "REAL",
		Integer: "INTEGER",
		Date:    "TEXT",
		Text:    "TEXT",
	},
	Templates: core.ExprTemplates{
		NumericCast:      "CAST(%[1]s AS REAL)",
		IntegerCast:      "CAST(%[1]s AS INTEGER)",
		Round:            "ROUND(%[1]s)",
		DateLiteral:      "date('%[1]s')",
		DateAddDays:      "date(%[1]s, (%[2]s) || ' days')",
		DateSubtractDays: "date(%[1]s, (-(%[2]s)) || ' days')",
		DateDiffDays:     "CAST(julianday(%[1]s) - julianday(%[2]s) AS INTEGER)",
	},
}
