package formula

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Primitive is a terminal value: NumericPrimitive, DatePrimitive or Null.
type Primitive interface {
	Expr
	Kind() Kind
}

// NumericPrimitive is a number.
type NumericPrimitive struct {
	value decimal.Decimal
}

// NewNumber wraps d.
func NewNumber(d decimal.Decimal) NumericPrimitive {
	return NumericPrimitive{value: d}
}

// NumberFromInt returns the numeric primitive for i.
func NumberFromInt(i int64) NumericPrimitive {
	return NumericPrimitive{value: decimal.NewFromInt(i)}
}

// ParseNumber parses a decimal literal such as "3", "-1.25" or "1e3".
func ParseNumber(s string) (NumericPrimitive, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return NumericPrimitive{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return NumericPrimitive{value: d}, nil
}

// Decimal returns the wrapped value.
func (n NumericPrimitive) Decimal() decimal.Decimal { return n.value }

// IsZero reports whether the number equals zero.
func (n NumericPrimitive) IsZero() bool { return n.value.IsZero() }

// Round returns the number rounded half away from zero to a whole number.
func (n NumericPrimitive) Round() NumericPrimitive {
	return NumericPrimitive{value: n.value.Round(0)}
}

// Kind implements Primitive.
func (n NumericPrimitive) Kind() Kind { return KindNumber }

// Value returns n.
func (n NumericPrimitive) Value() (Primitive, error) { return n, nil }

func (n NumericPrimitive) String() string { return n.value.String() }

// SQL renders n as a cast literal.
func (n NumericPrimitive) SQL(ctx SQLContext) (string, error) {
	if ctx.Dialect == nil {
		return "", ErrNoDialect
	}
	if ctx.CastToInteger {
		return ctx.Dialect.CastInteger(n.value.Round(0).String()), nil
	}
	return ctx.Dialect.CastNumeric(n.literal(ctx.Dialect.Precision())), nil
}

// literal pads to precision decimal places without dropping digits beyond it.
func (n NumericPrimitive) literal(precision int32) string {
	if -n.value.Exponent() > precision {
		return n.value.String()
	}
	return n.value.StringFixed(precision)
}

// OutputType is Number.
func (n NumericPrimitive) OutputType() Type { return NumberType{} }

// Undefined is always false for primitives.
func (n NumericPrimitive) Undefined() bool { return false }

// Accept visits n.
func (n NumericPrimitive) Accept(v Visitor) { Walk(v, n) }

func (NumericPrimitive) exprNode() {}

// DatePrimitive is a calendar date without time of day.
type DatePrimitive struct {
	t time.Time
}

// dateLayout is the ISO layout dates are written and parsed with.
const dateLayout = "2006-01-02"

// NewDate returns the date year-month-day.
func NewDate(year int, month time.Month, day int) DatePrimitive {
	return DatePrimitive{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateFromTime truncates t to its calendar date.
func DateFromTime(t time.Time) DatePrimitive {
	return NewDate(t.Date())
}

// ParseDate parses an ISO date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (DatePrimitive, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateFromTime(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return DatePrimitive{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateFromTime(t), nil
}

// Time returns the date at midnight UTC.
func (d DatePrimitive) Time() time.Time { return d.t }

// Kind implements Primitive.
func (d DatePrimitive) Kind() Kind { return KindDate }

// Value returns d.
func (d DatePrimitive) Value() (Primitive, error) { return d, nil }

func (d DatePrimitive) String() string { return "'" + d.t.Format(dateLayout) + "'" }

// SQL renders d as a date literal.
func (d DatePrimitive) SQL(ctx SQLContext) (string, error) {
	if ctx.Dialect == nil {
		return "", ErrNoDialect
	}
	return ctx.Dialect.DateLiteral(d.t), nil
}

// OutputType is Date.
func (d DatePrimitive) OutputType() Type { return DateType{} }

// Undefined is always false for primitives.
func (d DatePrimitive) Undefined() bool { return false }

// Accept visits d.
func (d DatePrimitive) Accept(v Visitor) { Walk(v, d) }

func (DatePrimitive) exprNode() {}

// addDays shifts d by n rounded to whole days.
func (d DatePrimitive) addDays(n NumericPrimitive) DatePrimitive {
	days := n.Round().value.IntPart()
	return DatePrimitive{t: d.t.AddDate(0, 0, int(days))}
}

// daysSince returns the whole days from other to d.
func (d DatePrimitive) daysSince(other DatePrimitive) NumericPrimitive {
	const secondsPerDay = 24 * 60 * 60
	return NumberFromInt((d.t.Unix() - other.t.Unix()) / secondsPerDay)
}

// Null is the absence of data on a card. It absorbs every arithmetic operation.
type Null struct{}

// Kind implements Primitive.
func (Null) Kind() Kind { return KindNull }

// Value returns Null.
func (n Null) Value() (Primitive, error) { return n, nil }

func (Null) String() string { return "NULL" }

// SQL renders the NULL literal.
func (Null) SQL(SQLContext) (string, error) { return "NULL", nil }

// OutputType is NullType.
func (Null) OutputType() Type { return NullType{} }

// Undefined is always false for primitives.
func (Null) Undefined() bool { return false }

// Accept visits n.
func (n Null) Accept(v Visitor) { Walk(v, n) }

func (Null) exprNode() {}

// IsNull reports whether p is the Null primitive.
func IsNull(p Primitive) bool {
	_, ok := p.(Null)
	return ok
}
