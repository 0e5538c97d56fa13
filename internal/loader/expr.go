package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/cardformula/pkg/formula"
	"gopkg.in/yaml.v3"
)

// Expression keys.
const (
	keyAdd      = "add"
	keySubtract = "subtract"
	keyMultiply = "multiply"
	keyDivide   = "divide"
	keyNegate   = "negate"
	keyProperty = "property"
	keyNumber   = "number"
	keyDate     = "date"
	keyNull     = "null"
)

type binaryConstructor func(left, right formula.Expr) formula.Expr

var binaryOperators = map[string]binaryConstructor{
	keyAdd:      func(l, r formula.Expr) formula.Expr { return formula.NewAddition(l, r) },
	keySubtract: func(l, r formula.Expr) formula.Expr { return formula.NewSubtraction(l, r) },
	keyMultiply: func(l, r formula.Expr) formula.Expr { return formula.NewMultiplication(l, r) },
	keyDivide:   func(l, r formula.Expr) formula.Expr { return formula.NewDivision(l, r) },
}

// DecodeExpr builds an expression tree from its YAML form. Property references
// resolve against schema.
//
// Scalars are shorthand: numbers are numeric literals, timestamps are date
// literals, null is Null and any other string names a property.
func DecodeExpr(schema formula.PropertySchema, node *yaml.Node) (formula.Expr, error) {
	d := exprDecoder{schema: schema}
	return d.decode(node)
}

// ParseExpr decodes an expression written as a standalone YAML document.
func ParseExpr(schema formula.PropertySchema, src string) (formula.Expr, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("empty expression")}
	}
	return DecodeExpr(schema, doc.Content[0])
}

type exprDecoder struct {
	schema formula.PropertySchema
}

func (d exprDecoder) fail(node *yaml.Node, format string, args ...any) error {
	return &ParseError{Line: node.Line, Err: fmt.Errorf(format, args...)}
}

func (d exprDecoder) decode(node *yaml.Node) (formula.Expr, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return d.scalar(node)
	case yaml.MappingNode:
		return d.mapping(node)
	case yaml.AliasNode:
		return d.decode(node.Alias)
	}
	return nil, d.fail(node, "expected an expression, got a sequence")
}

func (d exprDecoder) scalar(node *yaml.Node) (formula.Expr, error) {
	switch node.Tag {
	case "!!null":
		return formula.Null{}, nil
	case "!!int", "!!float":
		return d.number(node)
	case "!!timestamp":
		return d.date(node)
	case "!!str":
		if strings.TrimSpace(node.Value) == "" {
			return nil, d.fail(node, "empty property name")
		}
		return formula.NewCardPropertyValue(d.schema, node.Value, false), nil
	}
	return nil, d.fail(node, "unsupported literal %q", node.Value)
}

func (d exprDecoder) number(node *yaml.Node) (formula.Expr, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, d.fail(node, "number must be a scalar")
	}
	n, err := formula.ParseNumber(node.Value)
	if err != nil {
		return nil, d.fail(node, "%v", err)
	}
	return n, nil
}

func (d exprDecoder) date(node *yaml.Node) (formula.Expr, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, d.fail(node, "date must be a scalar")
	}
	v, err := formula.ParseDate(node.Value)
	if err != nil {
		return nil, d.fail(node, "%v", err)
	}
	return v, nil
}

func (d exprDecoder) mapping(node *yaml.Node) (formula.Expr, error) {
	if len(node.Content) != 2 {
		return nil, d.fail(node, "expression must have exactly one key, one of %s", strings.Join(exprKeys(), ", "))
	}
	key, value := node.Content[0], node.Content[1]

	if ctor, ok := binaryOperators[key.Value]; ok {
		if value.Kind != yaml.SequenceNode || len(value.Content) != 2 {
			return nil, d.fail(key, "%s takes a list of two operands", key.Value)
		}
		left, err := d.decode(value.Content[0])
		if err != nil {
			return nil, err
		}
		right, err := d.decode(value.Content[1])
		if err != nil {
			return nil, err
		}
		return ctor(left, right), nil
	}

	switch key.Value {
	case keyNegate:
		operand, err := d.decode(value)
		if err != nil {
			return nil, err
		}
		return formula.NewNegation(operand), nil
	case keyProperty:
		return d.property(value)
	case keyNumber:
		return d.number(value)
	case keyDate:
		return d.date(value)
	case keyNull:
		return formula.Null{}, nil
	}
	return nil, d.fail(key, "unknown expression %q, expected one of %s", key.Value, strings.Join(exprKeys(), ", "))
}

func (d exprDecoder) property(node *yaml.Node) (formula.Expr, error) {
	if node.Kind == yaml.ScalarNode {
		if strings.TrimSpace(node.Value) == "" {
			return nil, d.fail(node, "empty property name")
		}
		return formula.NewCardPropertyValue(d.schema, node.Value, false), nil
	}
	var ref struct {
		Name       string `yaml:"name"`
		NullIsZero bool   `yaml:"null_is_zero"`
	}
	if err := node.Decode(&ref); err != nil {
		return nil, d.fail(node, "%v", err)
	}
	if strings.TrimSpace(ref.Name) == "" {
		return nil, d.fail(node, "property name is required")
	}
	return formula.NewCardPropertyValue(d.schema, ref.Name, ref.NullIsZero), nil
}

func exprKeys() []string {
	keys := []string{keyNegate, keyProperty, keyNumber, keyDate, keyNull}
	for k := range binaryOperators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
