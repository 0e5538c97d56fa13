package formula

import "strings"

// Operator is an arithmetic node combining one or two operands.
type Operator interface {
	Expr
	Operation() Operation
	Operands() []Expr
	// ReasonOperationIsInvalid describes why the operand types cannot be combined.
	ReasonOperationIsInvalid() string
	// InvalidOperationMessage is the reason followed by the supported alternatives.
	InvalidOperationMessage() string

	resetTypes()
}

// inference is the memoized result of type checking an operator node.
type inference struct {
	undefined bool
	output    Type
	// sqlType selects the SQL templates. It differs from output only for a division
	// by a literal zero, which still renders the guarded CASE expression.
	sqlType Type
}

// typeMemo caches inference for an operator node. Nodes are immutable apart from
// property renames, which call reset through RenameProperty.
type typeMemo struct {
	done bool
	val  inference
}

func (m *typeMemo) get(compute func() inference) inference {
	if !m.done {
		m.val = compute()
		m.done = true
	}
	return m.val
}

func (m *typeMemo) reset() { m.done = false }

type binaryOperator struct {
	left, right Expr
	memo        typeMemo
}

// Left returns the first operand.
func (b *binaryOperator) Left() Expr { return b.left }

// Right returns the second operand.
func (b *binaryOperator) Right() Expr { return b.right }

// Operands returns both operands in order.
func (b *binaryOperator) Operands() []Expr { return []Expr{b.left, b.right} }

func (b *binaryOperator) resetTypes() { b.memo.reset() }

func (b *binaryOperator) operandTypes() (Type, Type) {
	return b.left.OutputType(), b.right.OutputType()
}

func (b *binaryOperator) anyUndefined() bool {
	return b.left.Undefined() || b.right.Undefined()
}

func (b *binaryOperator) values() (Primitive, Primitive, error) {
	l, err := b.left.Value()
	if err != nil {
		return nil, nil, err
	}
	r, err := b.right.Value()
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (b *binaryOperator) format(op string) string {
	return "(" + b.left.String() + " " + op + " " + b.right.String() + ")"
}

// infer applies the rules shared by every binary operator: an undefined node is
// NullType, and a NullType operand makes the node NullType.
func (b *binaryOperator) infer(undefined func(l, r Type) bool, result func(l, r Type) Type) inference {
	return b.memo.get(func() inference {
		l, r := b.operandTypes()
		if b.anyUndefined() || undefined(l, r) {
			return inference{undefined: true, output: NullType{}, sqlType: NullType{}}
		}
		if l.IsNull() || r.IsNull() {
			return inference{output: NullType{}, sqlType: NullType{}}
		}
		t := result(l, r)
		return inference{output: t, sqlType: t}
	})
}

// Addition is left + right.
type Addition struct{ binaryOperator }

// NewAddition returns left + right.
func NewAddition(left, right Expr) *Addition {
	return &Addition{binaryOperator{left: left, right: right}}
}

func (n *Addition) Operation() Operation { return OpAddition }

func (n *Addition) types() inference {
	return n.infer(
		func(l, r Type) bool { return l.IsDate() && r.IsDate() },
		func(l, r Type) Type {
			if l.IsNumeric() && r.IsNumeric() {
				return NumberType{}
			}
			return DateType{}
		})
}

func (n *Addition) OutputType() Type { return n.types().output }
func (n *Addition) Undefined() bool  { return n.types().undefined }

func (n *Addition) Value() (Primitive, error) {
	l, r, err := n.values()
	if err != nil {
		return nil, err
	}
	return Add(l, r)
}

func (n *Addition) SQL(ctx SQLContext) (string, error) {
	return n.types().sqlType.AdditionSQL(ctx, n.left, n.right)
}

func (n *Addition) String() string   { return n.format("+") }
func (n *Addition) Accept(v Visitor) { Walk(v, n) }
func (*Addition) exprNode()          {}

func (n *Addition) ReasonOperationIsInvalid() string {
	l, r := n.operandTypes()
	return article(r) + " cannot be added to " + article(l)
}

func (n *Addition) InvalidOperationMessage() string {
	return binaryMessage(n.ReasonOperationIsInvalid(), n.left, n.right)
}

// Subtraction is left - right.
type Subtraction struct{ binaryOperator }

// NewSubtraction returns left - right.
func NewSubtraction(left, right Expr) *Subtraction {
	return &Subtraction{binaryOperator{left: left, right: right}}
}

func (n *Subtraction) Operation() Operation { return OpSubtraction }

func (n *Subtraction) types() inference {
	return n.infer(
		func(l, r Type) bool { return l.IsNumeric() && r.IsDate() },
		func(l, r Type) Type {
			if l.IsDate() && r.IsNumeric() {
				return DateType{}
			}
			return NumberType{}
		})
}

func (n *Subtraction) OutputType() Type { return n.types().output }
func (n *Subtraction) Undefined() bool  { return n.types().undefined }

func (n *Subtraction) Value() (Primitive, error) {
	l, r, err := n.values()
	if err != nil {
		return nil, err
	}
	return Subtract(l, r)
}

func (n *Subtraction) SQL(ctx SQLContext) (string, error) {
	return n.types().sqlType.SubtractionSQL(ctx, n.left, n.right)
}

func (n *Subtraction) String() string   { return n.format("-") }
func (n *Subtraction) Accept(v Visitor) { Walk(v, n) }
func (*Subtraction) exprNode()          {}

func (n *Subtraction) ReasonOperationIsInvalid() string {
	l, r := n.operandTypes()
	return article(r) + " cannot be subtracted from " + article(l)
}

func (n *Subtraction) InvalidOperationMessage() string {
	return binaryMessage(n.ReasonOperationIsInvalid(), n.left, n.right)
}

// Multiplication is left * right.
type Multiplication struct{ binaryOperator }

// NewMultiplication returns left * right.
func NewMultiplication(left, right Expr) *Multiplication {
	return &Multiplication{binaryOperator{left: left, right: right}}
}

func (n *Multiplication) Operation() Operation { return OpMultiplication }

func (n *Multiplication) types() inference {
	return n.infer(
		func(l, r Type) bool { return l.IsDate() || r.IsDate() },
		func(Type, Type) Type { return NumberType{} })
}

func (n *Multiplication) OutputType() Type { return n.types().output }
func (n *Multiplication) Undefined() bool  { return n.types().undefined }

func (n *Multiplication) Value() (Primitive, error) {
	l, r, err := n.values()
	if err != nil {
		return nil, err
	}
	return Multiply(l, r)
}

func (n *Multiplication) SQL(ctx SQLContext) (string, error) {
	return n.types().sqlType.MultiplicationSQL(ctx, n.left, n.right)
}

func (n *Multiplication) String() string   { return n.format("*") }
func (n *Multiplication) Accept(v Visitor) { Walk(v, n) }
func (*Multiplication) exprNode()          {}

func (n *Multiplication) ReasonOperationIsInvalid() string {
	l, r := n.operandTypes()
	return article(l) + " cannot be multiplied by " + article(r)
}

func (n *Multiplication) InvalidOperationMessage() string {
	return binaryMessage(n.ReasonOperationIsInvalid(), n.left, n.right)
}

// Division is left / right.
type Division struct{ binaryOperator }

// NewDivision returns left / right.
func NewDivision(left, right Expr) *Division {
	return &Division{binaryOperator{left: left, right: right}}
}

func (n *Division) Operation() Operation { return OpDivision }

func (n *Division) types() inference {
	inf := n.infer(
		func(l, r Type) bool { return !SameType(l, r) || l.IsDate() || r.IsDate() },
		func(Type, Type) Type { return NumberType{} })
	if !inf.undefined && n.dividesByLiteralZero() {
		inf.output = NullType{}
	}
	return inf
}

// dividesByLiteralZero reports whether the divisor is the constant 0.
func (n *Division) dividesByLiteralZero() bool {
	p, ok := n.right.(NumericPrimitive)
	return ok && p.IsZero()
}

func (n *Division) OutputType() Type { return n.types().output }
func (n *Division) Undefined() bool  { return n.types().undefined }

func (n *Division) Value() (Primitive, error) {
	l, r, err := n.values()
	if err != nil {
		return nil, err
	}
	return Divide(l, r)
}

func (n *Division) SQL(ctx SQLContext) (string, error) {
	return n.types().sqlType.DivisionSQL(ctx, n.left, n.right)
}

func (n *Division) String() string   { return n.format("/") }
func (n *Division) Accept(v Visitor) { Walk(v, n) }
func (*Division) exprNode()          {}

func (n *Division) ReasonOperationIsInvalid() string {
	l, r := n.operandTypes()
	return article(l) + " cannot be divided by " + article(r)
}

func (n *Division) InvalidOperationMessage() string {
	return binaryMessage(n.ReasonOperationIsInvalid(), n.left, n.right)
}

// Negation is -operand.
type Negation struct {
	operand Expr
	memo    typeMemo
}

// NewNegation returns -operand.
func NewNegation(operand Expr) *Negation {
	return &Negation{operand: operand}
}

// Operand returns the negated expression.
func (n *Negation) Operand() Expr { return n.operand }

func (n *Negation) Operation() Operation { return OpNegation }
func (n *Negation) Operands() []Expr     { return []Expr{n.operand} }
func (n *Negation) resetTypes()          { n.memo.reset() }

func (n *Negation) types() inference {
	return n.memo.get(func() inference {
		t := n.operand.OutputType()
		if n.operand.Undefined() || t.IsDate() {
			return inference{undefined: true, output: NullType{}, sqlType: NullType{}}
		}
		if t.IsNull() {
			return inference{output: NullType{}, sqlType: NullType{}}
		}
		return inference{output: NumberType{}, sqlType: NumberType{}}
	})
}

func (n *Negation) OutputType() Type { return n.types().output }
func (n *Negation) Undefined() bool  { return n.types().undefined }

func (n *Negation) Value() (Primitive, error) {
	v, err := n.operand.Value()
	if err != nil {
		return nil, err
	}
	return Negate(v)
}

func (n *Negation) SQL(ctx SQLContext) (string, error) {
	return n.types().sqlType.NegationSQL(ctx, n.operand)
}

func (n *Negation) String() string {
	s := n.operand.String()
	if strings.HasPrefix(s, "-") {
		return "-(" + s + ")"
	}
	return "-" + s
}

func (n *Negation) Accept(v Visitor) { Walk(v, n) }
func (*Negation) exprNode()          {}

func (n *Negation) ReasonOperationIsInvalid() string {
	return article(n.operand.OutputType()) + " cannot be negated"
}

func (n *Negation) InvalidOperationMessage() string {
	return sentence(n.ReasonOperationIsInvalid())
}

var (
	_ Operator = (*Addition)(nil)
	_ Operator = (*Subtraction)(nil)
	_ Operator = (*Multiplication)(nil)
	_ Operator = (*Division)(nil)
	_ Operator = (*Negation)(nil)
)
