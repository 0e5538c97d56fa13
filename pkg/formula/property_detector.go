package formula

// PropertyDefinitionDetector collects the properties a formula references.
type PropertyDefinitionDetector struct {
	BaseVisitor
	found []PropertyDefinition
}

// NewPropertyDefinitionDetector returns an empty detector.
func NewPropertyDefinitionDetector() *PropertyDefinitionDetector {
	return &PropertyDefinitionDetector{}
}

// DetectPropertyDefinitions walks expr with a new detector.
func DetectPropertyDefinitions(expr Expr) *PropertyDefinitionDetector {
	d := NewPropertyDefinitionDetector()
	Walk(d, expr)
	return d
}

// VisitCardPropertyValue records the referenced definition. Unknown names are
// skipped; ValidFormulaVisitor reports them.
func (d *PropertyDefinitionDetector) VisitCardPropertyValue(c *CardPropertyValue) {
	if def, ok := c.PropertyDefinition(); ok {
		d.found = append(d.found, def)
	}
}

// DirectlyRelatedPropertyDefinitions returns the referenced properties in order of
// first reference, without duplicates.
func (d *PropertyDefinitionDetector) DirectlyRelatedPropertyDefinitions() []PropertyDefinition {
	return dedupe(d.found)
}

// AllRelatedPropertyDefinitions adds the components of every referenced property,
// transitively, so formulas over formulas report their full dependency set.
func (d *PropertyDefinitionDetector) AllRelatedPropertyDefinitions() []PropertyDefinition {
	return RelatedPropertyDefinitions(d.found)
}

func dedupe(defs []PropertyDefinition) []PropertyDefinition {
	seen := make(map[PropertyDefinition]struct{}, len(defs))
	out := make([]PropertyDefinition, 0, len(defs))
	for _, def := range defs {
		if _, ok := seen[def]; ok {
			continue
		}
		seen[def] = struct{}{}
		out = append(out, def)
	}
	return out
}

// RelatedPropertyDefinitions returns defs and everything they are computed from,
// breadth first and without duplicates. Cycles terminate.
func RelatedPropertyDefinitions(defs []PropertyDefinition) []PropertyDefinition {
	seen := make(map[PropertyDefinition]struct{})
	var out []PropertyDefinition
	queue := append([]PropertyDefinition(nil), defs...)
	for len(queue) > 0 {
		def := queue[0]
		queue = queue[1:]
		if _, ok := seen[def]; ok {
			continue
		}
		seen[def] = struct{}{}
		out = append(out, def)
		queue = append(queue, def.ComponentPropertyDefinitions()...)
	}
	return out
}
