package dense

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/autograd/internal/autograd"
)

// Shape represents the dimensions of a tensor. It is the context type of
// dense values.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1 // Scalar has 1 element
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return errors.Wrapf(autograd.ErrInvalidArgument,
				"invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprint(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// StrictRules require operands of binary operators to have equal shapes.
// There is no broadcasting: a mismatch fails with autograd.ErrShapeMismatch
// when the operator is applied.
var StrictRules = &autograd.ContextRules[Shape]{
	Binary: func(a, b Shape) (Shape, error) {
		if !a.Equal(b) {
			return nil, errors.Wrapf(autograd.ErrShapeMismatch, "%s vs %s", a, b)
		}
		return a, nil
	},
}
