package formula

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is matched by every UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrNotBound is returned when a CardPropertyValue is evaluated before BindTo.
	ErrNotBound = errors.New("card property value must bind to a card first")
)

// UnsupportedOperationError is returned by primitive arithmetic when the operand
// kinds cannot be combined, such as multiplying two dates.
type UnsupportedOperationError struct {
	Op    Operation
	Left  Kind
	Right Kind // KindNull for unary operations
	Unary bool
}

func (e *UnsupportedOperationError) Error() string {
	if e.Unary {
		return fmt.Sprintf("unsupported operation: %s of %s", e.Op, e.Left)
	}
	return fmt.Sprintf("unsupported operation: %s of %s and %s", e.Op, e.Left, e.Right)
}

// Is reports whether target is ErrUnsupportedOperation.
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// UnknownPropertyError is returned when a leaf references a property the schema
// does not define.
type UnknownPropertyError struct {
	Name string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("property %q does not exist", e.Name)
}

// ErrNoDialect is returned when SQL is requested without a dialect.
var ErrNoDialect = errors.New("sql dialect is required")
