// Package loader reads card projects from YAML files.
//
// A project file declares a collection's properties and its cards:
//
//	name: sprint
//	properties:
//	  - name: Estimate
//	    type: number
//	  - name: Remaining
//	    type: formula
//	    formula:
//	      subtract: [Estimate, {property: {name: Spent, null_is_zero: true}}]
//	cards:
//	  - number: 1
//	    values: {Estimate: 8, Spent: 3}
package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/formula"
	"gopkg.in/yaml.v3"
)

// Project is a loaded project file.
type Project struct {
	Name       string
	Path       string
	Collection *card.Collection
}

// ParseError locates a problem in a project file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// projectYAML is the top level of a project file.
type projectYAML struct {
	Name       string      `yaml:"name"`
	Properties []yaml.Node `yaml:"properties"`
	Cards      []yaml.Node `yaml:"cards"`
}

type propertyYAML struct {
	Name       string    `yaml:"name"`
	Type       string    `yaml:"type"`
	Column     string    `yaml:"column"`
	Predefined bool      `yaml:"predefined"`
	Formula    yaml.Node `yaml:"formula"`
	Target     string    `yaml:"target"`
}

type cardYAML struct {
	Number int                  `yaml:"number"`
	Values map[string]yaml.Node `yaml:"values"`
}

// LoadFile reads and parses the project at path.
func LoadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	p, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	p.Path = path
	return p, nil
}

// Parse parses project YAML.
func Parse(data []byte) (*Project, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Project, error) {
	wrap := func(line int, err error) error {
		return &ParseError{Path: path, Line: line, Err: err}
	}

	var doc projectYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, wrap(0, err)
	}

	name := doc.Name
	if name == "" {
		name = "cards"
	}
	coll := card.NewCollection(name)

	// Properties are defined before any formula is built so that formulas may
	// reference properties declared after them.
	type pending struct {
		def  *card.PropertyDefinition
		node yaml.Node
		line int
	}
	var formulas []pending

	for i := range doc.Properties {
		node := &doc.Properties[i]
		var p propertyYAML
		if err := node.Decode(&p); err != nil {
			return nil, wrap(node.Line, err)
		}
		kind, err := card.ParseKind(p.Type)
		if err != nil {
			return nil, wrap(node.Line, fmt.Errorf("property %q: %w", p.Name, err))
		}
		hasFormula := p.Formula.Kind != 0
		if kind == card.KindFormula && !hasFormula {
			return nil, wrap(node.Line, fmt.Errorf("property %q: formula is required", p.Name))
		}
		if kind != card.KindFormula && hasFormula {
			return nil, wrap(p.Formula.Line, fmt.Errorf("property %q: only formula properties take a formula", p.Name))
		}
		def, err := coll.Define(card.PropertySpec{
			Name:       p.Name,
			Column:     p.Column,
			Kind:       kind,
			Predefined: p.Predefined,
			Target:     p.Target,
		})
		if err != nil {
			return nil, wrap(node.Line, err)
		}
		if hasFormula {
			formulas = append(formulas, pending{def: def, node: p.Formula, line: node.Line})
		}
	}

	for _, f := range formulas {
		expr, err := DecodeExpr(coll, &f.node)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Path = path
				return nil, fmt.Errorf("property %q: %w", f.def.Name(), pe)
			}
			return nil, wrap(f.line, fmt.Errorf("property %q: %w", f.def.Name(), err))
		}
		if err := coll.SetFormula(f.def, expr); err != nil {
			return nil, wrap(f.line, err)
		}
	}

	for _, def := range coll.Aggregates() {
		if _, ok := coll.Property(def.Target()); !ok {
			return nil, wrap(0, fmt.Errorf("aggregate %q: target %q does not exist", def.Name(), def.Target()))
		}
	}

	for i := range doc.Cards {
		node := &doc.Cards[i]
		var c cardYAML
		if err := node.Decode(&c); err != nil {
			return nil, wrap(node.Line, err)
		}
		if err := loadCard(coll, c); err != nil {
			return nil, wrap(node.Line, err)
		}
	}

	return &Project{Name: name, Collection: coll}, nil
}

func loadCard(coll *card.Collection, c cardYAML) error {
	if c.Number <= 0 {
		return fmt.Errorf("card number must be positive, got %d", c.Number)
	}
	cd, err := coll.AddCard(c.Number)
	if err != nil {
		return err
	}
	for name, node := range c.Values {
		def, ok := coll.Property(name)
		if !ok {
			return fmt.Errorf("card #%d: %w", c.Number, &formula.UnknownPropertyError{Name: name})
		}
		if def.IsFormulaic() || def.IsAggregate() {
			return fmt.Errorf("card #%d: %s property %q is computed and cannot be set", c.Number, def.Kind(), def.Name())
		}
		v, err := scalarValue(def, &node)
		if err != nil {
			return fmt.Errorf("card #%d, property %q: %w", c.Number, def.Name(), err)
		}
		cd.SetValue(def, v)
	}
	return nil
}

// scalarValue converts a card value to what the property stores: numbers and
// dates become primitives, text stays a string.
func scalarValue(def *card.PropertyDefinition, node *yaml.Node) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("expected a scalar value")
	}
	if node.Tag == "!!null" {
		return nil, nil
	}
	switch def.Kind() {
	case card.KindNumber:
		p, err := formula.ToPrimitive(node.Value, formula.KindNumber)
		if err != nil || formula.IsNull(p) {
			return nil, err
		}
		return p, nil
	case card.KindDate:
		p, err := formula.ToPrimitive(node.Value, formula.KindDate)
		if err != nil || formula.IsNull(p) {
			return nil, err
		}
		return p, nil
	}
	if strings.TrimSpace(node.Value) == "" {
		return nil, nil
	}
	return node.Value, nil
}
