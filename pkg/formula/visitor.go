package formula

import "fmt"

// Visitor receives every node of a tree from Walk. Operator callbacks also receive
// the operands so visitors can inspect their types without a type switch.
type Visitor interface {
	VisitNumericPrimitive(n NumericPrimitive)
	VisitDatePrimitive(d DatePrimitive)
	VisitNull(n Null)
	VisitCardPropertyValue(c *CardPropertyValue)
	VisitAddition(n *Addition, left, right Expr)
	VisitSubtraction(n *Subtraction, left, right Expr)
	VisitMultiplication(n *Multiplication, left, right Expr)
	VisitDivision(n *Division, left, right Expr)
	VisitNegation(n *Negation, operand Expr)
}

// BaseVisitor implements Visitor with no-ops. Embed it to handle only some nodes.
type BaseVisitor struct{}

func (BaseVisitor) VisitNumericPrimitive(NumericPrimitive)          {}
func (BaseVisitor) VisitDatePrimitive(DatePrimitive)                {}
func (BaseVisitor) VisitNull(Null)                                  {}
func (BaseVisitor) VisitCardPropertyValue(*CardPropertyValue)       {}
func (BaseVisitor) VisitAddition(*Addition, Expr, Expr)             {}
func (BaseVisitor) VisitSubtraction(*Subtraction, Expr, Expr)       {}
func (BaseVisitor) VisitMultiplication(*Multiplication, Expr, Expr) {}
func (BaseVisitor) VisitDivision(*Division, Expr, Expr)             {}
func (BaseVisitor) VisitNegation(*Negation, Expr)                   {}

// Walk visits expr and then its operands, depth first.
func Walk(v Visitor, expr Expr) {
	switch n := expr.(type) {
	case nil:
		return
	case NumericPrimitive:
		v.VisitNumericPrimitive(n)
	case DatePrimitive:
		v.VisitDatePrimitive(n)
	case Null:
		v.VisitNull(n)
	case *CardPropertyValue:
		v.VisitCardPropertyValue(n)
	case *Addition:
		v.VisitAddition(n, n.left, n.right)
		Walk(v, n.left)
		Walk(v, n.right)
	case *Subtraction:
		v.VisitSubtraction(n, n.left, n.right)
		Walk(v, n.left)
		Walk(v, n.right)
	case *Multiplication:
		v.VisitMultiplication(n, n.left, n.right)
		Walk(v, n.left)
		Walk(v, n.right)
	case *Division:
		v.VisitDivision(n, n.left, n.right)
		Walk(v, n.left)
		Walk(v, n.right)
	case *Negation:
		v.VisitNegation(n, n.operand)
		Walk(v, n.operand)
	default:
		panic(fmt.Sprintf("formula: unexpected node %T", expr))
	}
}

type binder struct {
	BaseVisitor
	rec Record
	err error
}

func (b *binder) VisitCardPropertyValue(c *CardPropertyValue) {
	if b.err != nil {
		return
	}
	b.err = c.BindTo(b.rec)
}

// Bind binds every property leaf of expr to rec.
func Bind(expr Expr, rec Record) error {
	b := &binder{rec: rec}
	Walk(b, expr)
	return b.err
}

type renamer struct {
	oldName, newName string
	renamed          bool
}

func (r *renamer) VisitNumericPrimitive(NumericPrimitive) {}
func (r *renamer) VisitDatePrimitive(DatePrimitive)       {}
func (r *renamer) VisitNull(Null)                         {}

func (r *renamer) VisitCardPropertyValue(c *CardPropertyValue) {
	if c.RenameProperty(r.oldName, r.newName) {
		r.renamed = true
	}
}

func (r *renamer) VisitAddition(n *Addition, _, _ Expr)             { n.resetTypes() }
func (r *renamer) VisitSubtraction(n *Subtraction, _, _ Expr)       { n.resetTypes() }
func (r *renamer) VisitMultiplication(n *Multiplication, _, _ Expr) { n.resetTypes() }
func (r *renamer) VisitDivision(n *Division, _, _ Expr)             { n.resetTypes() }
func (r *renamer) VisitNegation(n *Negation, _ Expr)                { n.resetTypes() }

// RenameProperty renames every reference to oldName in the tree rooted at expr and
// discards memoized operator types, which may depend on the renamed property.
// It reports whether any reference was renamed.
func RenameProperty(expr Expr, oldName, newName string) bool {
	r := &renamer{oldName: oldName, newName: newName}
	Walk(r, expr)
	return r.renamed
}

type typeResetter struct{}

func (typeResetter) VisitNumericPrimitive(NumericPrimitive)           {}
func (typeResetter) VisitDatePrimitive(DatePrimitive)                 {}
func (typeResetter) VisitNull(Null)                                   {}
func (typeResetter) VisitCardPropertyValue(c *CardPropertyValue)      { c.def = nil }
func (typeResetter) VisitAddition(n *Addition, _, _ Expr)             { n.resetTypes() }
func (typeResetter) VisitSubtraction(n *Subtraction, _, _ Expr)       { n.resetTypes() }
func (typeResetter) VisitMultiplication(n *Multiplication, _, _ Expr) { n.resetTypes() }
func (typeResetter) VisitDivision(n *Division, _, _ Expr)             { n.resetTypes() }
func (typeResetter) VisitNegation(n *Negation, _ Expr)                { n.resetTypes() }

// ResetTypes discards every memoized operator type and resolved property definition
// in the tree rooted at expr. Call it after the schema the tree resolves against
// changes.
func ResetTypes(expr Expr) {
	Walk(typeResetter{}, expr)
}
