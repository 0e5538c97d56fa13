package formula

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// ValidFormulaVisitor collects the reasons a formula cannot be accepted. It never
// fails; callers check Valid and report Errors.
type ValidFormulaVisitor struct {
	formula PropertyDefinition

	unknownProperties    []string
	predefinedProperties []string
	invalidProperties    []string
	circularProperties   []string
	invalidOperations    []string
}

// NewValidFormulaVisitor returns a visitor for the formula property being defined.
// formula may be nil when the expression is not attached to a property yet; circular
// references are then not detected.
func NewValidFormulaVisitor(formula PropertyDefinition) *ValidFormulaVisitor {
	return &ValidFormulaVisitor{formula: formula}
}

// ValidateFormula walks expr with a new ValidFormulaVisitor.
func ValidateFormula(expr Expr, formula PropertyDefinition) *ValidFormulaVisitor {
	v := NewValidFormulaVisitor(formula)
	Walk(v, expr)
	return v
}

func (v *ValidFormulaVisitor) VisitNumericPrimitive(NumericPrimitive) {}
func (v *ValidFormulaVisitor) VisitDatePrimitive(DatePrimitive)       {}
func (v *ValidFormulaVisitor) VisitNull(Null)                         {}

func (v *ValidFormulaVisitor) VisitCardPropertyValue(c *CardPropertyValue) {
	def, ok := c.PropertyDefinition()
	if !ok {
		v.unknownProperties = appendUnique(v.unknownProperties, c.Name())
		return
	}
	name := def.Name()
	if def.IsPredefined() {
		v.predefinedProperties = appendUnique(v.predefinedProperties, name)
	}
	if !def.IsNumeric() && !def.IsDate() {
		v.invalidProperties = appendUnique(v.invalidProperties, name)
	}
	if v.dependsOnFormula(def) {
		v.circularProperties = appendUnique(v.circularProperties, name)
	}
}

func (v *ValidFormulaVisitor) VisitAddition(n *Addition, left, right Expr) {
	v.check(n, left.OutputType().IsDate() && right.OutputType().IsDate())
}

func (v *ValidFormulaVisitor) VisitSubtraction(n *Subtraction, left, right Expr) {
	v.check(n, left.OutputType().IsNumeric() && right.OutputType().IsDate())
}

func (v *ValidFormulaVisitor) VisitMultiplication(n *Multiplication, left, right Expr) {
	v.check(n, left.OutputType().IsDate() || right.OutputType().IsDate())
}

func (v *ValidFormulaVisitor) VisitDivision(n *Division, left, right Expr) {
	v.check(n, left.OutputType().IsDate() || right.OutputType().IsDate())
}

func (v *ValidFormulaVisitor) VisitNegation(n *Negation, operand Expr) {
	v.check(n, operand.OutputType().IsDate())
}

func (v *ValidFormulaVisitor) check(n Operator, invalid bool) {
	if invalid {
		v.invalidOperations = appendUnique(v.invalidOperations, n.InvalidOperationMessage())
	}
}

// dependsOnFormula reports whether def is the formula under validation or is
// computed from it, directly or through other formulas and aggregates.
func (v *ValidFormulaVisitor) dependsOnFormula(def PropertyDefinition) bool {
	if v.formula == nil {
		return false
	}
	if def == v.formula {
		return true
	}
	for _, component := range RelatedPropertyDefinitions(def.ComponentPropertyDefinitions()) {
		if component == v.formula {
			return true
		}
	}
	return false
}

// Valid reports whether no problem was found.
func (v *ValidFormulaVisitor) Valid() bool {
	return len(v.unknownProperties) == 0 &&
		len(v.predefinedProperties) == 0 &&
		len(v.invalidProperties) == 0 &&
		len(v.circularProperties) == 0 &&
		len(v.invalidOperations) == 0
}

// UnknownProperties lists referenced names with no property definition.
func (v *ValidFormulaVisitor) UnknownProperties() []string { return v.unknownProperties }

// PredefinedProperties lists referenced system properties.
func (v *ValidFormulaVisitor) PredefinedProperties() []string { return v.predefinedProperties }

// InvalidProperties lists referenced properties that are neither numeric nor dates.
func (v *ValidFormulaVisitor) InvalidProperties() []string { return v.invalidProperties }

// CircularProperties lists referenced properties that depend on the formula itself.
func (v *ValidFormulaVisitor) CircularProperties() []string { return v.circularProperties }

// InvalidOperations lists messages for operators whose operands cannot be combined.
func (v *ValidFormulaVisitor) InvalidOperations() []string { return v.invalidOperations }

// Errors renders every problem as a sentence.
func (v *ValidFormulaVisitor) Errors() []string {
	var errs []string
	if msg := propertySentence(v.unknownProperties, "does not exist", "do not exist"); msg != "" {
		errs = append(errs, msg)
	}
	if msg := propertySentence(v.predefinedProperties,
		"is predefined and cannot be used in formulas",
		"are predefined and cannot be used in formulas"); msg != "" {
		errs = append(errs, msg)
	}
	if msg := propertySentence(v.invalidProperties,
		"is not numeric or date",
		"are not numeric or date"); msg != "" {
		errs = append(errs, msg)
	}
	if msg := propertySentence(v.circularProperties,
		"cannot be used because it depends on this formula",
		"cannot be used because they depend on this formula"); msg != "" {
		errs = append(errs, msg)
	}
	return append(errs, v.invalidOperations...)
}

func propertySentence(names []string, singular, plural string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return "Property " + names[0] + " " + singular + "."
	}
	return inflection.Plural("Property") + " " + strings.Join(names, ", ") + " " + plural + "."
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
