package card

import (
	"fmt"

	"github.com/leapstack-labs/cardformula/pkg/formula"
)

// Card is a single record of a collection. It satisfies formula.Record.
type Card struct {
	Number int

	collection *Collection
	values     map[*PropertyDefinition]any
}

var _ formula.Record = (*Card)(nil)

// Collection returns the owning collection.
func (c *Card) Collection() *Collection { return c.collection }

// FindPropertyDefinition implements formula.Record.
func (c *Card) FindPropertyDefinition(name string) (formula.PropertyDefinition, bool) {
	return c.collection.FindPropertyDefinition(name)
}

// Set stores a raw value for the named property. A nil value clears it.
func (c *Card) Set(name string, v any) error {
	def, ok := c.collection.Property(name)
	if !ok {
		return &formula.UnknownPropertyError{Name: name}
	}
	if def.IsAggregate() {
		return fmt.Errorf("property %s is an aggregate and cannot be set on a card", def.name)
	}
	c.SetValue(def, v)
	return nil
}

// SetValue stores a raw value for def. A nil value clears it.
func (c *Card) SetValue(def *PropertyDefinition, v any) {
	if v == nil {
		delete(c.values, def)
		return
	}
	c.values[def] = v
}

// Get returns the raw value of the named property.
func (c *Card) Get(name string) (any, bool) {
	def, ok := c.collection.Property(name)
	if !ok {
		return nil, false
	}
	return def.ValueOf(c)
}

// Value returns the raw value stored for def.
func (c *Card) Value(def *PropertyDefinition) (any, bool) {
	v, ok := c.values[def]
	return v, ok
}
