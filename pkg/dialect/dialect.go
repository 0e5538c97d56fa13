// Package dialect provides SQL dialect rendering rules for formula SQL.
//
// This package contains the public contract for dialect definitions used by the formula
// compiler and the database adapters. Concrete dialect implementations are registered
// from pkg/dialects/*/ packages.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/cardformula/pkg/core"
)

// DefaultPrecision is the number of decimal places numeric literals are padded to.
const DefaultPrecision int32 = 2

// Dialect represents a SQL dialect configuration.
// A *Dialect satisfies formula.SQLDialect.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters

	Types     core.ColumnTypes
	templates core.ExprTemplates

	reservedWords map[string]struct{} // All keywords that need quoting as identifiers
	precision     int32
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	words := make([]string, 0, len(d.reservedWords))
	for w := range d.reservedWords {
		words = append(words, w)
	}
	return &core.DialectConfig{
		Name:          d.Name,
		Identifiers:   d.Identifiers,
		DefaultSchema: d.DefaultSchema,
		Placeholder:   d.Placeholder,
		Types:         d.Types,
		Templates:     d.templates,
		ReservedWords: words,
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// WithPrecision returns a copy of d that pads numeric literals to p decimal places.
func (d *Dialect) WithPrecision(p int32) *Dialect {
	c := *d
	c.precision = p
	return &c
}

// Precision is the number of decimal places numeric literals are padded to.
func (d *Dialect) Precision() int32 {
	return d.precision
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return strings.ToUpper(name)
	case core.NormLowercase, core.NormCaseInsensitive:
		return strings.ToLower(name)
	default: // NormCaseSensitive
		return name
	}
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToUpper(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// ---------- Expression rendering ----------

// CastNumeric casts sql to the dialect's decimal type.
func (d *Dialect) CastNumeric(sql string) string {
	return fmt.Sprintf(d.templates.NumericCast, sql)
}

// CastInteger casts sql to the dialect's integer type.
func (d *Dialect) CastInteger(sql string) string {
	return fmt.Sprintf(d.templates.IntegerCast, sql)
}

// Round rounds sql half away from zero to a whole number.
func (d *Dialect) Round(sql string) string {
	return fmt.Sprintf(d.templates.Round, sql)
}

// DateLiteral renders t as a date literal.
func (d *Dialect) DateLiteral(t time.Time) string {
	return fmt.Sprintf(d.templates.DateLiteral, t.Format("2006-01-02"))
}

// DateAddDays renders dateSQL shifted forward by daysSQL days.
func (d *Dialect) DateAddDays(dateSQL, daysSQL string) string {
	return fmt.Sprintf(d.templates.DateAddDays, dateSQL, daysSQL)
}

// DateSubtractDays renders dateSQL shifted back by daysSQL days.
func (d *Dialect) DateSubtractDays(dateSQL, daysSQL string) string {
	return fmt.Sprintf(d.templates.DateSubtractDays, dateSQL, daysSQL)
}

// DateDiffDays renders the number of days from rightSQL to leftSQL.
func (d *Dialect) DateDiffDays(leftSQL, rightSQL string) string {
	return fmt.Sprintf(d.templates.DateDiffDays, leftSQL, rightSQL)
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name and ANSI defaults.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			Types: core.ColumnTypes{
				Numeric: "NUMERIC",
				Integer: "INTEGER",
				Date:    "DATE",
				Text:    "VARCHAR",
			},
			templates:     ansiTemplates,
			reservedWords: make(map[string]struct{}),
			precision:     DefaultPrecision,
		},
	}
}

// New creates a dialect builder from a DialectConfig.
// Empty templates and column types fall back to the ANSI defaults.
func New(cfg *core.DialectConfig) *Builder {
	b := NewDialect(cfg.Name)
	if cfg.Identifiers.Quote != "" {
		b.dialect.Identifiers = cfg.Identifiers
	}
	b.dialect.DefaultSchema = cfg.DefaultSchema
	b.dialect.Placeholder = cfg.Placeholder
	b.ColumnTypes(cfg.Types)
	b.Templates(cfg.Templates)
	b.WithReservedWords(cfg.ReservedWords...)
	return b
}

// ansiTemplates are portable renderings; dialects override the date arithmetic.
var ansiTemplates = core.ExprTemplates{
	NumericCast:      "CAST(%[1]s AS NUMERIC)",
	IntegerCast:      "CAST(%[1]s AS INTEGER)",
	Round:            "ROUND(%[1]s)",
	DateLiteral:      "DATE '%[1]s'",
	DateAddDays:      "(%[1]s + %[2]s)",
	DateSubtractDays: "(%[1]s - %[2]s)",
	DateDiffDays:     "(%[1]s - %[2]s)",
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// ColumnTypes overrides the non-empty storage types in types.
func (b *Builder) ColumnTypes(types core.ColumnTypes) *Builder {
	t := &b.dialect.Types
	t.Numeric = firstNonEmpty(types.Numeric, t.Numeric)
	t.Integer = firstNonEmpty(types.Integer, t.Integer)
	t.Date = firstNonEmpty(types.Date, t.Date)
	t.Text = firstNonEmpty(types.Text, t.Text)
	return b
}

// Templates overrides the non-empty expression templates in tpl.
func (b *Builder) Templates(tpl core.ExprTemplates) *Builder {
	t := &b.dialect.templates
	t.NumericCast = firstNonEmpty(tpl.NumericCast, t.NumericCast)
	t.IntegerCast = firstNonEmpty(tpl.IntegerCast, t.IntegerCast)
	t.Round = firstNonEmpty(tpl.Round, t.Round)
	t.DateLiteral = firstNonEmpty(tpl.DateLiteral, t.DateLiteral)
	t.DateAddDays = firstNonEmpty(tpl.DateAddDays, t.DateAddDays)
	t.DateSubtractDays = firstNonEmpty(tpl.DateSubtractDays, t.DateSubtractDays)
	t.DateDiffDays = firstNonEmpty(tpl.DateDiffDays, t.DateDiffDays)
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets the query parameter placeholder style.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// Precision sets the default numeric literal precision.
func (b *Builder) Precision(p int32) *Builder {
	b.dialect.precision = p
	return b
}

// WithReservedWords adds words that must be quoted when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToUpper(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
