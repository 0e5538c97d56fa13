package formula

// Expr is a node of a formula expression tree.
//
// The set of implementations is closed: the primitives, *CardPropertyValue and the
// operator nodes. Walk relies on this to traverse trees exhaustively.
type Expr interface {
	// Value evaluates the node in memory. Leaves must be bound first.
	Value() (Primitive, error)
	// String reconstructs the expression text.
	String() string
	// SQL renders the node as a SQL expression.
	SQL(ctx SQLContext) (string, error)
	// OutputType is the statically inferred type of the node.
	OutputType() Type
	// Undefined reports whether the node's operand types cannot be combined.
	Undefined() bool
	// Accept walks the subtree rooted at this node in pre-order.
	Accept(v Visitor)

	exprNode()
}

// Kind tags the variants of Primitive.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Operation names an arithmetic operator.
type Operation int

const (
	OpAddition Operation = iota
	OpSubtraction
	OpMultiplication
	OpDivision
	OpNegation
)

func (o Operation) String() string {
	switch o {
	case OpAddition:
		return "addition"
	case OpSubtraction:
		return "subtraction"
	case OpMultiplication:
		return "multiplication"
	case OpDivision:
		return "division"
	case OpNegation:
		return "negation"
	default:
		return "unknown"
	}
}

// Overrides substitutes literal values for property columns during SQL generation.
// Keys are property definitions compared by identity.
type Overrides map[PropertyDefinition]Primitive

// SQLContext carries the options for rendering a tree as SQL.
type SQLContext struct {
	Dialect SQLDialect
	// Table qualifies column references. Empty leaves them unqualified.
	Table string
	// CastToInteger renders numeric results as rounded integers (day offsets).
	CastToInteger bool
	Overrides     Overrides
}

func (c SQLContext) integer(v bool) SQLContext {
	c.CastToInteger = v
	return c
}

func (c SQLContext) override(def PropertyDefinition) (Primitive, bool) {
	if c.Overrides == nil || def == nil {
		return nil, false
	}
	p, ok := c.Overrides[def]
	return p, ok
}

// Evaluate binds expr to rec and returns its value.
func Evaluate(expr Expr, rec Record) (Primitive, error) {
	if rec != nil {
		if err := Bind(expr, rec); err != nil {
			return nil, err
		}
	}
	return expr.Value()
}
