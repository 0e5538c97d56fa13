package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/cardformula/pkg/formula"
	"github.com/shopspring/decimal"
)

// floater is implemented by driver decimal types such as duckdb.Decimal.
type floater interface {
	Float64() float64
}

// matches compares an in-memory value with a value scanned from the database.
func (e *Engine) matches(expected formula.Primitive, actual any) bool {
	switch want := expected.(type) {
	case nil, formula.Null:
		return actual == nil
	case formula.NumericPrimitive:
		got, ok := toDecimal(actual)
		if !ok {
			return false
		}
		return withinTolerance(want.Decimal(), got, e.tolerance)
	case formula.DatePrimitive:
		got, ok := toDate(actual)
		if !ok {
			return false
		}
		return got.Time().Equal(want.Time())
	}
	return false
}

// withinTolerance reports whether a and b differ by at most tol relative to the
// larger magnitude, or absolutely below 1.
func withinTolerance(a, b, tol decimal.Decimal) bool {
	scale := decimal.Max(decimal.NewFromInt(1), a.Abs(), b.Abs())
	return a.Sub(b).Abs().LessThanOrEqual(tol.Mul(scale))
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case []byte:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	case decimal.Decimal:
		return x, true
	case floater:
		return decimal.NewFromFloat(x.Float64()), true
	}
	return decimal.Decimal{}, false
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	return d, err == nil
}

func toDate(v any) (formula.DatePrimitive, bool) {
	switch x := v.(type) {
	case time.Time:
		return formula.DateFromTime(x), true
	case []byte:
		return parseDate(string(x))
	case string:
		return parseDate(x)
	}
	return formula.DatePrimitive{}, false
}

// parseDate accepts YYYY-MM-DD with an optional time part.
func parseDate(s string) (formula.DatePrimitive, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := formula.ParseDate(s)
	return d, err == nil
}

func (e *Engine) formatExpected(v formula.Primitive) string {
	if v == nil || formula.IsNull(v) {
		return "NULL"
	}
	return e.formatter.Format(v)
}

// formatActual renders a scanned database value.
func formatActual(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateOnly)
	}
	return fmt.Sprint(v)
}
