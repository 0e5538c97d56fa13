// Package card provides an in-memory model of a card collection: property
// definitions, cards and their stored values. It implements the record and schema
// abstractions the formula engine consumes.
//
// A Collection is not safe for concurrent mutation. Concurrent reads are safe
// once ResolveTypes has run.
package card

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/cardformula/pkg/formula"
)

// ErrDuplicateProperty is returned when a property name is already taken.
var ErrDuplicateProperty = errors.New("property already exists")

// ErrDuplicateCard is returned when a card number is already taken.
var ErrDuplicateCard = errors.New("card already exists")

// PropertySpec describes a property to define.
type PropertySpec struct {
	Name       string
	Column     string
	Kind       Kind
	Predefined bool
	// Formula is the expression of a KindFormula property. It may be set later
	// with SetFormula.
	Formula formula.Expr
	// Target names the property a KindAggregate property sums.
	Target string
}

// Collection is a set of property definitions and the cards holding values for them.
type Collection struct {
	Name string

	properties []*PropertyDefinition
	byName     map[string]*PropertyDefinition

	cards    []*Card
	byNumber map[int]*Card

	aggregates map[*PropertyDefinition]formula.Primitive
}

var _ formula.PropertySchema = (*Collection)(nil)

// NewCollection returns an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{
		Name:       name,
		byName:     make(map[string]*PropertyDefinition),
		byNumber:   make(map[int]*Card),
		aggregates: make(map[*PropertyDefinition]formula.Primitive),
	}
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Define adds a property.
func (c *Collection) Define(spec PropertySpec) (*PropertyDefinition, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New("property name is required")
	}
	if _, ok := c.byName[key(spec.Name)]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateProperty, spec.Name)
	}
	switch spec.Kind {
	case KindAggregate:
		if spec.Target == "" {
			return nil, fmt.Errorf("aggregate property %s: target is required", spec.Name)
		}
	case KindFormula:
	default:
		if spec.Formula != nil {
			return nil, fmt.Errorf("property %s: only formula properties take an expression", spec.Name)
		}
	}

	def := &PropertyDefinition{
		name:       spec.Name,
		column:     spec.Column,
		kind:       spec.Kind,
		predefined: spec.Predefined,
		expr:       spec.Formula,
		target:     spec.Target,
		collection: c,
	}
	c.properties = append(c.properties, def)
	c.byName[key(def.name)] = def
	c.invalidateTypes()
	return def, nil
}

// MustDefine is Define for fixtures; it panics on error.
func (c *Collection) MustDefine(spec PropertySpec) *PropertyDefinition {
	def, err := c.Define(spec)
	if err != nil {
		panic(err)
	}
	return def
}

// SetFormula replaces the expression of a formula property.
func (c *Collection) SetFormula(def *PropertyDefinition, expr formula.Expr) error {
	if def.kind != KindFormula {
		return fmt.Errorf("property %s is not a formula", def.name)
	}
	def.expr = expr
	c.invalidateTypes()
	return nil
}

// Property finds a property by name, case-insensitively.
func (c *Collection) Property(name string) (*PropertyDefinition, bool) {
	def, ok := c.byName[key(name)]
	return def, ok
}

// FindPropertyDefinition implements formula.PropertySchema.
func (c *Collection) FindPropertyDefinition(name string) (formula.PropertyDefinition, bool) {
	def, ok := c.Property(name)
	if !ok {
		return nil, false
	}
	return def, true
}

// Properties returns the properties in definition order.
func (c *Collection) Properties() []*PropertyDefinition {
	return append([]*PropertyDefinition(nil), c.properties...)
}

// Formulas returns the formula properties in definition order.
func (c *Collection) Formulas() []*PropertyDefinition {
	return c.filter(func(d *PropertyDefinition) bool { return d.IsFormulaic() })
}

// Aggregates returns the aggregate properties in definition order.
func (c *Collection) Aggregates() []*PropertyDefinition {
	return c.filter(func(d *PropertyDefinition) bool { return d.IsAggregate() })
}

func (c *Collection) filter(keep func(*PropertyDefinition) bool) []*PropertyDefinition {
	var out []*PropertyDefinition
	for _, d := range c.properties {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// RenameProperty renames a property and every formula reference to it.
func (c *Collection) RenameProperty(oldName, newName string) error {
	def, ok := c.Property(oldName)
	if !ok {
		return &formula.UnknownPropertyError{Name: oldName}
	}
	if other, ok := c.Property(newName); ok && other != def {
		return fmt.Errorf("%w: %s", ErrDuplicateProperty, newName)
	}

	delete(c.byName, key(def.name))
	def.Rename(def.name, newName)
	c.byName[key(newName)] = def

	for _, d := range c.properties {
		if d.expr != nil {
			formula.RenameProperty(d.expr, oldName, newName)
		}
		if d.kind == KindAggregate && strings.EqualFold(d.target, oldName) {
			d.target = newName
		}
	}
	c.invalidateTypes()
	return nil
}

// ResolveTypes infers the result type of every formula property up front, so later
// reads do not mutate the definitions.
func (c *Collection) ResolveTypes() {
	for _, d := range c.properties {
		if d.kind == KindFormula {
			d.formulaType()
		}
	}
}

func (c *Collection) invalidateTypes() {
	for _, d := range c.properties {
		d.invalidate()
	}
}

// AddCard adds a card with the given number.
func (c *Collection) AddCard(number int) (*Card, error) {
	if _, ok := c.byNumber[number]; ok {
		return nil, fmt.Errorf("%w: #%d", ErrDuplicateCard, number)
	}
	card := &Card{Number: number, collection: c, values: make(map[*PropertyDefinition]any)}
	c.cards = append(c.cards, card)
	c.byNumber[number] = card
	return card, nil
}

// Card finds a card by number.
func (c *Collection) Card(number int) (*Card, bool) {
	card, ok := c.byNumber[number]
	return card, ok
}

// Cards returns the cards ordered by number.
func (c *Collection) Cards() []*Card {
	out := append([]*Card(nil), c.cards...)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Aggregate sums the target of an aggregate property over all cards. Cards without
// a value are skipped; a collection without any value sums to Null.
func (c *Collection) Aggregate(def *PropertyDefinition) (formula.Primitive, error) {
	if !def.IsAggregate() {
		return nil, fmt.Errorf("property %s is not an aggregate", def.name)
	}
	target, ok := c.Property(def.target)
	if !ok {
		return nil, &formula.UnknownPropertyError{Name: def.target}
	}
	if !target.IsNumeric() {
		return nil, fmt.Errorf("aggregate %s: target %s is not numeric", def.name, target.name)
	}

	var sum formula.Primitive = formula.Null{}
	for _, card := range c.Cards() {
		raw, ok := target.ValueOf(card)
		if !ok || raw == nil {
			continue
		}
		v, err := toNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s, card #%d: %w", def.name, card.Number, err)
		}
		if formula.IsNull(v) {
			continue
		}
		if formula.IsNull(sum) {
			sum = v
			continue
		}
		if sum, err = formula.Add(sum, v); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// SetAggregateValue stores the computed value of an aggregate property.
func (c *Collection) SetAggregateValue(def *PropertyDefinition, v formula.Primitive) {
	c.aggregates[def] = v
}

// AggregateValue returns the stored value of an aggregate property.
func (c *Collection) AggregateValue(def *PropertyDefinition) (formula.Primitive, bool) {
	v, ok := c.aggregates[def]
	if ok && formula.IsNull(v) {
		return nil, false
	}
	return v, ok
}

// toNumber converts a stored value through the formula engine's own coercion.
func toNumber(raw any) (formula.Primitive, error) {
	return formula.ToPrimitive(raw, formula.KindNumber)
}
