package formula

import "fmt"

// Type describes the kind of value an expression produces. It is a rule set, not a
// value: it decides which operators are legal, how each operator renders as SQL and
// how results are displayed.
type Type interface {
	Name() string
	IsNumeric() bool
	IsDate() bool
	IsNull() bool

	AdditionSQL(ctx SQLContext, left, right Expr) (string, error)
	SubtractionSQL(ctx SQLContext, left, right Expr) (string, error)
	MultiplicationSQL(ctx SQLContext, left, right Expr) (string, error)
	DivisionSQL(ctx SQLContext, left, right Expr) (string, error)
	NegationSQL(ctx SQLContext, operand Expr) (string, error)

	// ValidOperationsAgainst lists the operators that accept this type on the left
	// and other on the right. Used to suggest alternatives in diagnostics.
	ValidOperationsAgainst(other Type) []Operation

	// ToOutputFormat formats a computed value for display.
	ToOutputFormat(v Primitive, f DisplayFormatter) string
}

// SameType reports whether a and b are the same type.
func SameType(a, b Type) bool {
	return a.Name() == b.Name()
}

var allArithmetic = []Operation{OpAddition, OpSubtraction, OpMultiplication, OpDivision}

// NumberType is the type of numeric expressions.
type NumberType struct{}

func (NumberType) Name() string    { return "Number" }
func (NumberType) IsNumeric() bool { return true }
func (NumberType) IsDate() bool    { return false }
func (NumberType) IsNull() bool    { return false }

func (t NumberType) AdditionSQL(ctx SQLContext, left, right Expr) (string, error) {
	return t.binary(ctx, "+", left, right)
}

// SubtractionSQL also renders date - date, whose result is a number of days.
func (t NumberType) SubtractionSQL(ctx SQLContext, left, right Expr) (string, error) {
	if left.OutputType().IsDate() && right.OutputType().IsDate() {
		if ctx.Dialect == nil {
			return "", ErrNoDialect
		}
		l, r, err := renderPair(ctx.integer(false), left, right)
		if err != nil {
			return "", err
		}
		return ctx.Dialect.DateDiffDays(l, r), nil
	}
	return t.binary(ctx, "-", left, right)
}

func (t NumberType) MultiplicationSQL(ctx SQLContext, left, right Expr) (string, error) {
	return t.binary(ctx, "*", left, right)
}

// DivisionSQL guards against division by zero, which yields NULL like the in-memory
// evaluation does.
func (t NumberType) DivisionSQL(ctx SQLContext, left, right Expr) (string, error) {
	l, r, err := renderPair(ctx.integer(false), left, right)
	if err != nil {
		return "", err
	}
	sql := fmt.Sprintf("CASE WHEN %s = 0 THEN NULL ELSE (%s / %s) END", r, l, r)
	return t.finish(ctx, sql), nil
}

func (t NumberType) NegationSQL(ctx SQLContext, operand Expr) (string, error) {
	s, err := operand.SQL(ctx.integer(false))
	if err != nil {
		return "", err
	}
	return t.finish(ctx, "(-"+s+")"), nil
}

func (NumberType) ValidOperationsAgainst(other Type) []Operation {
	switch {
	case other.IsNumeric():
		return allArithmetic
	case other.IsDate():
		return []Operation{OpAddition, OpSubtraction}
	}
	return nil
}

func (NumberType) ToOutputFormat(v Primitive, f DisplayFormatter) string {
	if n, ok := v.(NumericPrimitive); ok {
		return f.FormatNumber(n.value)
	}
	return ""
}

func (t NumberType) binary(ctx SQLContext, op string, left, right Expr) (string, error) {
	l, r, err := renderPair(ctx.integer(false), left, right)
	if err != nil {
		return "", err
	}
	return t.finish(ctx, "("+l+" "+op+" "+r+")"), nil
}

// finish applies the integer cast to a whole numeric expression, so rounding happens
// once on the result rather than on each operand.
func (NumberType) finish(ctx SQLContext, sql string) string {
	if ctx.CastToInteger && ctx.Dialect != nil {
		return ctx.Dialect.CastInteger(ctx.Dialect.Round(sql))
	}
	return sql
}

// DateType is the type of date expressions.
type DateType struct{}

func (DateType) Name() string    { return "Date" }
func (DateType) IsNumeric() bool { return false }
func (DateType) IsDate() bool    { return true }
func (DateType) IsNull() bool    { return false }

// AdditionSQL renders date + number in either operand order.
func (DateType) AdditionSQL(ctx SQLContext, left, right Expr) (string, error) {
	if ctx.Dialect == nil {
		return "", ErrNoDialect
	}
	date, days := left, right
	if !date.OutputType().IsDate() {
		date, days = right, left
	}
	d, n, err := renderDayOffset(ctx, date, days)
	if err != nil {
		return "", err
	}
	return ctx.Dialect.DateAddDays(d, n), nil
}

func (DateType) SubtractionSQL(ctx SQLContext, left, right Expr) (string, error) {
	if ctx.Dialect == nil {
		return "", ErrNoDialect
	}
	d, n, err := renderDayOffset(ctx, left, right)
	if err != nil {
		return "", err
	}
	return ctx.Dialect.DateSubtractDays(d, n), nil
}

func (DateType) MultiplicationSQL(SQLContext, Expr, Expr) (string, error) {
	return "", &UnsupportedOperationError{Op: OpMultiplication, Left: KindDate, Right: KindDate}
}

func (DateType) DivisionSQL(SQLContext, Expr, Expr) (string, error) {
	return "", &UnsupportedOperationError{Op: OpDivision, Left: KindDate, Right: KindDate}
}

func (DateType) NegationSQL(SQLContext, Expr) (string, error) {
	return "", &UnsupportedOperationError{Op: OpNegation, Left: KindDate, Unary: true}
}

func (DateType) ValidOperationsAgainst(other Type) []Operation {
	switch {
	case other.IsDate():
		return []Operation{OpSubtraction}
	case other.IsNumeric():
		return []Operation{OpAddition}
	}
	return nil
}

func (DateType) ToOutputFormat(v Primitive, f DisplayFormatter) string {
	switch p := v.(type) {
	case DatePrimitive:
		return f.FormatDate(p.t)
	case NumericPrimitive:
		return f.FormatNumber(p.value)
	}
	return ""
}

// renderDayOffset renders the date operand as is and the numeric operand as whole days.
func renderDayOffset(ctx SQLContext, date, days Expr) (string, string, error) {
	d, err := date.SQL(ctx.integer(false))
	if err != nil {
		return "", "", err
	}
	n, err := days.SQL(ctx.integer(true))
	if err != nil {
		return "", "", err
	}
	return d, n, nil
}

// NullType is the type of expressions whose result type cannot be determined.
// Every SQL template renders NULL.
type NullType struct{}

func (NullType) Name() string    { return "Null" }
func (NullType) IsNumeric() bool { return false }
func (NullType) IsDate() bool    { return false }
func (NullType) IsNull() bool    { return true }

func (NullType) AdditionSQL(SQLContext, Expr, Expr) (string, error)       { return "NULL", nil }
func (NullType) SubtractionSQL(SQLContext, Expr, Expr) (string, error)    { return "NULL", nil }
func (NullType) MultiplicationSQL(SQLContext, Expr, Expr) (string, error) { return "NULL", nil }
func (NullType) DivisionSQL(SQLContext, Expr, Expr) (string, error)       { return "NULL", nil }
func (NullType) NegationSQL(SQLContext, Expr) (string, error)             { return "NULL", nil }

// ValidOperationsAgainst names every arithmetic operator so that diagnostics can
// suggest plausible alternatives. It does not mean the operation evaluates.
func (NullType) ValidOperationsAgainst(Type) []Operation {
	return allArithmetic
}

func (NullType) ToOutputFormat(Primitive, DisplayFormatter) string { return "" }

func renderPair(ctx SQLContext, left, right Expr) (string, string, error) {
	l, err := left.SQL(ctx)
	if err != nil {
		return "", "", err
	}
	r, err := right.SQL(ctx)
	if err != nil {
		return "", "", err
	}
	return l, r, nil
}
