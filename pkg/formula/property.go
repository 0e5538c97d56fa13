package formula

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardPropertyValue is a leaf referencing a card property by name. It has no value
// until BindTo resolves it against a record.
type CardPropertyValue struct {
	schema     PropertySchema
	name       string
	nullIsZero bool

	def   PropertyDefinition
	bound Primitive
}

// NewCardPropertyValue returns a leaf for the named property. The schema resolves
// the property for type inference and SQL generation; it may be nil for trees that
// are only evaluated in memory.
//
// With nullIsZero an unset numeric property evaluates to 0 instead of Null, so one
// card without data does not null out a sum.
func NewCardPropertyValue(schema PropertySchema, name string, nullIsZero bool) *CardPropertyValue {
	return &CardPropertyValue{schema: schema, name: name, nullIsZero: nullIsZero}
}

// Name returns the referenced property name.
func (c *CardPropertyValue) Name() string { return c.name }

// NullIsZero reports whether unset numeric values evaluate to zero.
func (c *CardPropertyValue) NullIsZero() bool { return c.nullIsZero }

// PropertyDefinition resolves the referenced property.
func (c *CardPropertyValue) PropertyDefinition() (PropertyDefinition, bool) {
	if c.def != nil {
		return c.def, true
	}
	if c.schema == nil {
		return nil, false
	}
	def, ok := c.schema.FindPropertyDefinition(c.name)
	if ok {
		c.def = def
	}
	return def, ok
}

// BindTo resolves the property value on rec. Unset values bind to Null, or to zero
// when NullIsZero is set and the property is numeric.
func (c *CardPropertyValue) BindTo(rec Record) error {
	def, ok := rec.FindPropertyDefinition(c.name)
	if !ok {
		return &UnknownPropertyError{Name: c.name}
	}
	c.def = def

	var v Primitive = Null{}
	if raw, ok := def.ValueOf(rec); ok && raw != nil {
		p, err := toPrimitive(def, raw)
		if err != nil {
			return fmt.Errorf("binding %q: %w", c.name, err)
		}
		v = p
	}
	if IsNull(v) && c.nullIsZero && def.IsNumeric() {
		v = NumberFromInt(0)
	}
	c.bound = v
	return nil
}

// Bound reports whether BindTo has been called.
func (c *CardPropertyValue) Bound() bool { return c.bound != nil }

// Value returns the bound value.
func (c *CardPropertyValue) Value() (Primitive, error) {
	if c.bound == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, c.name)
	}
	return c.bound, nil
}

// OutputType follows the property definition. Unknown and non-arithmetic
// properties are NullType.
func (c *CardPropertyValue) OutputType() Type {
	def, ok := c.PropertyDefinition()
	switch {
	case !ok:
		return NullType{}
	case def.IsNumeric():
		return NumberType{}
	case def.IsDate():
		return DateType{}
	}
	return NullType{}
}

// Undefined is always false for leaves.
func (c *CardPropertyValue) Undefined() bool { return false }

// SQL renders the column reference, or the overriding literal when ctx has one for
// this property.
func (c *CardPropertyValue) SQL(ctx SQLContext) (string, error) {
	if ctx.Dialect == nil {
		return "", ErrNoDialect
	}
	def, ok := c.PropertyDefinition()
	if !ok {
		return "", &UnknownPropertyError{Name: c.name}
	}
	if p, ok := ctx.override(def); ok {
		if IsNull(p) && c.nullIsZero && def.IsNumeric() {
			p = NumberFromInt(0)
		}
		return p.SQL(ctx)
	}

	column := ctx.Dialect.QuoteIdentifier(def.ColumnName())
	if ctx.Table != "" {
		column = ctx.Dialect.QuoteIdentifier(ctx.Table) + "." + column
	}
	switch {
	case def.IsNumeric():
		sql := ctx.Dialect.CastNumeric(column)
		if c.nullIsZero {
			sql = "COALESCE(" + sql + ", 0)"
		}
		if ctx.CastToInteger {
			sql = ctx.Dialect.CastInteger(ctx.Dialect.Round(sql))
		}
		return sql, nil
	case def.IsDate():
		return column, nil
	}
	return "NULL", nil
}

// String returns the property name, quoted when it could be misread as anything
// other than a single property reference. Names holding only apostrophes use
// double quotes; names holding both quote kinds double the apostrophes.
func (c *CardPropertyValue) String() string {
	if !needsQuoting(c.name) {
		return c.name
	}
	switch {
	case !strings.Contains(c.name, "'"):
		return "'" + c.name + "'"
	case !strings.Contains(c.name, `"`):
		return `"` + c.name + `"`
	default:
		return "'" + strings.ReplaceAll(c.name, "'", "''") + "'"
	}
}

// RenameProperty renames the reference when it matches oldName case-insensitively.
// Ancestors keep memoized types; use the package-level RenameProperty on the root
// to invalidate them.
func (c *CardPropertyValue) RenameProperty(oldName, newName string) bool {
	if !strings.EqualFold(c.name, oldName) {
		return false
	}
	c.name = newName
	c.def = nil
	return true
}

// Accept visits c.
func (c *CardPropertyValue) Accept(v Visitor) { Walk(v, c) }

func (*CardPropertyValue) exprNode() {}

func needsQuoting(name string) bool {
	if name == "" || strings.ContainsAny(name, " \t'\"()+-*/") {
		return true
	}
	if name[0] >= '0' && name[0] <= '9' {
		return true
	}
	_, err := decimal.NewFromString(name)
	return err == nil
}

func toPrimitive(def PropertyDefinition, raw any) (Primitive, error) {
	switch {
	case def.IsNumeric():
		return ToPrimitive(raw, KindNumber)
	case def.IsDate():
		return ToPrimitive(raw, KindDate)
	}
	return Null{}, nil
}

// ToPrimitive converts a stored value to a primitive of the given kind. Nil, Null
// and blank strings convert to Null.
func ToPrimitive(raw any, kind Kind) (Primitive, error) {
	if raw == nil {
		return Null{}, nil
	}
	if _, ok := raw.(Null); ok {
		return Null{}, nil
	}
	switch kind {
	case KindNumber:
		d, ok, err := toDecimal(raw)
		if err != nil || !ok {
			return Null{}, err
		}
		return NumericPrimitive{value: d}, nil
	case KindDate:
		return toDate(raw)
	}
	return Null{}, nil
}

// toDecimal converts a stored numeric value. Blank strings count as unset.
func toDecimal(raw any) (decimal.Decimal, bool, error) {
	switch v := raw.(type) {
	case NumericPrimitive:
		return v.value, true, nil
	case decimal.Decimal:
		return v, true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case int32:
		return decimal.NewFromInt32(v), true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case float32:
		return decimal.NewFromFloat32(v), true, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Decimal{}, false, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, false, fmt.Errorf("invalid number %q", v)
		}
		return d, true, nil
	}
	return decimal.Decimal{}, false, fmt.Errorf("unsupported numeric value %T", raw)
}

func toDate(raw any) (Primitive, error) {
	switch v := raw.(type) {
	case DatePrimitive:
		return v, nil
	case time.Time:
		return DateFromTime(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return Null{}, nil
		}
		return ParseDate(v)
	}
	return nil, fmt.Errorf("unsupported date value %T", raw)
}
