package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data; pkg/dialect.Dialect turns it into rendering behavior.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "sqlite", "postgres")
	Name string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// Column types used when card tables are created
	Types ColumnTypes

	// Templates render formula fragments. Each is a fmt format string.
	Templates ExprTemplates

	// ReservedWords need quoting when used as identifiers
	ReservedWords []string
}

// ColumnTypes names the storage type for each kind of card property.
type ColumnTypes struct {
	Numeric string // NUMERIC, REAL, DOUBLE
	Integer string // INTEGER, BIGINT
	Date    string // DATE (TEXT on SQLite)
	Text    string // TEXT, VARCHAR
}

// ExprTemplates are the fmt templates for dialect-specific expressions.
// Numbered verbs (%[1]s, %[2]s) address the operands.
type ExprTemplates struct {
	NumericCast      string // %[1]s = expression
	IntegerCast      string // %[1]s = expression
	Round            string // %[1]s = expression
	DateLiteral      string // %[1]s = YYYY-MM-DD
	DateAddDays      string // %[1]s = date, %[2]s = integer days
	DateSubtractDays string // %[1]s = date, %[2]s = integer days
	DateDiffDays     string // %[1]s = later date, %[2]s = earlier date
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake, Oracle).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly (MySQL, ClickHouse).
	NormCaseSensitive
	// NormCaseInsensitive normalizes to lowercase for comparison (SQLite, DuckDB).
	NormCaseInsensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote, ] for [)
	Escape        string                // Escape sequence: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}
