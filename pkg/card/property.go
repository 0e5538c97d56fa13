package card

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/cardformula/pkg/formula"
)

type resolveState int

const (
	unresolved resolveState = iota
	resolving
	resolved
)

// PropertyDefinition is a property of a collection. It satisfies
// formula.PropertyDefinition.
type PropertyDefinition struct {
	name       string
	column     string
	kind       Kind
	predefined bool

	// formula properties
	expr formula.Expr

	// aggregate properties
	target string

	collection *Collection

	// result type of a formula property
	state      resolveState
	resultType formula.Type
}

var _ formula.PropertyDefinition = (*PropertyDefinition)(nil)

// Name returns the property name.
func (d *PropertyDefinition) Name() string { return d.name }

// Kind returns the storage kind.
func (d *PropertyDefinition) Kind() Kind { return d.kind }

// ColumnName returns the explicit column, or one derived from the name.
func (d *PropertyDefinition) ColumnName() string {
	if d.column != "" {
		return d.column
	}
	return columnFor(d.name)
}

// Formula returns the expression of a formula property.
func (d *PropertyDefinition) Formula() formula.Expr { return d.expr }

// Target returns the name of the property an aggregate sums.
func (d *PropertyDefinition) Target() string { return d.target }

func (d *PropertyDefinition) IsFormulaic() bool  { return d.kind == KindFormula }
func (d *PropertyDefinition) IsAggregate() bool  { return d.kind == KindAggregate }
func (d *PropertyDefinition) IsPredefined() bool { return d.predefined }

// IsNumeric reports whether the property holds numbers. Formula properties are
// numeric when their expression is.
func (d *PropertyDefinition) IsNumeric() bool {
	switch d.kind {
	case KindNumber, KindAggregate:
		return true
	case KindFormula:
		return d.formulaType().IsNumeric()
	}
	return false
}

// IsDate reports whether the property holds dates.
func (d *PropertyDefinition) IsDate() bool {
	switch d.kind {
	case KindDate:
		return true
	case KindFormula:
		return d.formulaType().IsDate()
	}
	return false
}

// formulaType infers the result type once. A formula that reaches itself while
// being inferred is NullType.
func (d *PropertyDefinition) formulaType() formula.Type {
	switch {
	case d.expr == nil:
		return formula.NullType{}
	case d.state == resolved:
		return d.resultType
	case d.state == resolving:
		return formula.NullType{}
	}
	d.state = resolving
	t := d.expr.OutputType()
	if d.expr.Undefined() {
		t = formula.NullType{}
	}
	d.resultType = t
	d.state = resolved
	return t
}

func (d *PropertyDefinition) invalidate() {
	d.state = unresolved
	d.resultType = nil
	if d.expr != nil {
		formula.ResetTypes(d.expr)
	}
}

// ValueOf returns the value stored on rec, which must be a *Card. Aggregate values
// live on the collection.
func (d *PropertyDefinition) ValueOf(rec formula.Record) (any, bool) {
	if d.kind == KindAggregate {
		if d.collection == nil {
			return nil, false
		}
		v, ok := d.collection.AggregateValue(d)
		return v, ok
	}
	c, ok := rec.(*Card)
	if !ok {
		return nil, false
	}
	return c.Value(d)
}

// ComponentPropertyDefinitions returns what the property is computed from: the
// references of a formula, or the target of an aggregate.
func (d *PropertyDefinition) ComponentPropertyDefinitions() []formula.PropertyDefinition {
	switch d.kind {
	case KindFormula:
		if d.expr == nil {
			return nil
		}
		return formula.DetectPropertyDefinitions(d.expr).DirectlyRelatedPropertyDefinitions()
	case KindAggregate:
		if d.collection == nil {
			return nil
		}
		if target, ok := d.collection.Property(d.target); ok {
			return []formula.PropertyDefinition{target}
		}
	}
	return nil
}

// Rename renames the property when its name matches oldName case-insensitively.
// Use Collection.RenameProperty to also update references.
func (d *PropertyDefinition) Rename(oldName, newName string) bool {
	if !strings.EqualFold(d.name, oldName) {
		return false
	}
	if d.column == "" {
		// keep the storage column stable
		d.column = columnFor(d.name)
	}
	d.name = newName
	return true
}

// columnFor derives a lower_snake column name.
func columnFor(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	col := strings.TrimRight(b.String(), "_")
	if col == "" || unicode.IsDigit(rune(col[0])) {
		col = "p_" + col
	}
	return col
}
