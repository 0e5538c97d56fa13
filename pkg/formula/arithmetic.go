package formula

// Add returns a + b.
func Add(a, b Primitive) (Primitive, error) {
	if IsNull(a) || IsNull(b) {
		return Null{}, nil
	}
	switch l := a.(type) {
	case NumericPrimitive:
		switch r := b.(type) {
		case NumericPrimitive:
			return NumericPrimitive{value: l.value.Add(r.value)}, nil
		case DatePrimitive:
			return r.addDays(l), nil
		}
	case DatePrimitive:
		if r, ok := b.(NumericPrimitive); ok {
			return l.addDays(r), nil
		}
	}
	return nil, unsupported(OpAddition, a, b)
}

// Subtract returns a - b.
func Subtract(a, b Primitive) (Primitive, error) {
	if IsNull(a) || IsNull(b) {
		return Null{}, nil
	}
	switch l := a.(type) {
	case NumericPrimitive:
		if r, ok := b.(NumericPrimitive); ok {
			return NumericPrimitive{value: l.value.Sub(r.value)}, nil
		}
	case DatePrimitive:
		switch r := b.(type) {
		case NumericPrimitive:
			return l.addDays(NumericPrimitive{value: r.value.Neg()}), nil
		case DatePrimitive:
			return l.daysSince(r), nil
		}
	}
	return nil, unsupported(OpSubtraction, a, b)
}

// Multiply returns a * b.
func Multiply(a, b Primitive) (Primitive, error) {
	if IsNull(a) || IsNull(b) {
		return Null{}, nil
	}
	l, lok := a.(NumericPrimitive)
	r, rok := b.(NumericPrimitive)
	if !lok || !rok {
		return nil, unsupported(OpMultiplication, a, b)
	}
	return NumericPrimitive{value: l.value.Mul(r.value)}, nil
}

// Divide returns a / b. Dividing by zero yields Null.
func Divide(a, b Primitive) (Primitive, error) {
	if IsNull(a) || IsNull(b) {
		return Null{}, nil
	}
	l, lok := a.(NumericPrimitive)
	r, rok := b.(NumericPrimitive)
	if !lok || !rok {
		return nil, unsupported(OpDivision, a, b)
	}
	if r.IsZero() {
		return Null{}, nil
	}
	return NumericPrimitive{value: l.value.Div(r.value)}, nil
}

// Negate returns -a.
func Negate(a Primitive) (Primitive, error) {
	switch v := a.(type) {
	case Null:
		return v, nil
	case NumericPrimitive:
		return NumericPrimitive{value: v.value.Neg()}, nil
	}
	return nil, &UnsupportedOperationError{Op: OpNegation, Left: a.Kind(), Unary: true}
}

func unsupported(op Operation, a, b Primitive) error {
	return &UnsupportedOperationError{Op: op, Left: a.Kind(), Right: b.Kind()}
}
