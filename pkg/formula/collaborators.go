package formula

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyDefinition describes a card property as seen by the formula engine.
// Implementations are compared by identity (map keys in Overrides), so they are
// expected to be pointer types.
type PropertyDefinition interface {
	// Name is the user-facing property name.
	Name() string
	// ColumnName is the storage column backing the property.
	ColumnName() string

	IsNumeric() bool
	IsDate() bool
	IsFormulaic() bool
	IsAggregate() bool
	IsPredefined() bool

	// ValueOf returns the raw value stored on the record. The second result is false
	// when the record holds no value for this property.
	ValueOf(rec Record) (any, bool)

	// ComponentPropertyDefinitions lists the properties this one is computed from.
	// Plain properties return nil.
	ComponentPropertyDefinitions() []PropertyDefinition
}

// PropertySchema resolves property names to definitions.
// Lookups are case-insensitive.
type PropertySchema interface {
	FindPropertyDefinition(name string) (PropertyDefinition, bool)
}

// Record is a single card a tree can be bound to.
type Record interface {
	PropertySchema
}

// SQLDialect renders the database-specific pieces of a formula.
type SQLDialect interface {
	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string
	// CastNumeric casts an expression to the dialect's decimal type.
	CastNumeric(sql string) string
	// CastInteger casts an expression to the dialect's integer type.
	CastInteger(sql string) string
	// Round rounds an expression to a whole number.
	Round(sql string) string
	// DateLiteral renders a calendar date literal.
	DateLiteral(t time.Time) string
	// DateAddDays renders date + days.
	DateAddDays(dateSQL, daysSQL string) string
	// DateSubtractDays renders date - days.
	DateSubtractDays(dateSQL, daysSQL string) string
	// DateDiffDays renders the whole number of days from right to left.
	DateDiffDays(leftSQL, rightSQL string) string
	// Precision is the number of decimal places numeric literals are padded to.
	Precision() int32
}

// DisplayFormatter formats computed values for display.
type DisplayFormatter interface {
	FormatNumber(d decimal.Decimal) string
	FormatDate(t time.Time) string
}
