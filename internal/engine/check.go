package engine

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/formula"
)

// Diagnostic lists the problems of one computed property.
type Diagnostic struct {
	Property string
	// Formula is the expression as text, or the summed property of an aggregate.
	Formula string
	Errors  []string
}

// InvalidFormulaError is returned when SQL is requested for a formula that does
// not validate.
type InvalidFormulaError struct {
	Property string
	Errors   []string
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("formula %s is invalid: %s", e.Property, strings.Join(e.Errors, " "))
}

// Check validates every formula and aggregate property. Valid properties are not
// reported.
func (e *Engine) Check() []Diagnostic {
	e.collection.ResolveTypes()

	var diags []Diagnostic
	for _, def := range e.collection.Properties() {
		if d, ok := e.diagnose(def); ok {
			diags = append(diags, d)
		}
	}
	return diags
}

// diagnose validates one computed property. The second result is false when
// there is nothing to report.
func (e *Engine) diagnose(def *card.PropertyDefinition) (Diagnostic, bool) {
	switch {
	case def.IsFormulaic():
		expr := def.Formula()
		if expr == nil {
			return Diagnostic{Property: def.Name(), Errors: []string{"Formula is empty."}}, true
		}
		v := formula.ValidateFormula(expr, def)
		if v.Valid() {
			return Diagnostic{}, false
		}
		return Diagnostic{Property: def.Name(), Formula: expr.String(), Errors: v.Errors()}, true

	case def.IsAggregate():
		var errs []string
		target, ok := e.collection.Property(def.Target())
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("Property %s does not exist.", def.Target()))
		case target.IsAggregate():
			errs = append(errs, fmt.Sprintf("Property %s is an aggregate and cannot be summed.", target.Name()))
		case !target.IsNumeric():
			errs = append(errs, fmt.Sprintf("Property %s is not numeric.", target.Name()))
		}
		if len(errs) == 0 {
			return Diagnostic{}, false
		}
		return Diagnostic{Property: def.Name(), Formula: "sum of " + def.Target(), Errors: errs}, true
	}
	return Diagnostic{}, false
}

// valid reports whether a computed property passes Check.
func (e *Engine) valid(def *card.PropertyDefinition) bool {
	_, bad := e.diagnose(def)
	return !bad
}
