// Package dense implements a row-major dense tensor backend for the autograd engine.
//
// Tensors are generic over the float element type. Elementwise operators
// require equal shapes: broadcasting is left to the context rules, and
// StrictRules rejects mismatches before any kernel runs.
package dense

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/born-ml/autograd/internal/autograd"
	"github.com/born-ml/autograd/internal/parallel"
)

// Parallel configures how elementwise kernels are split across goroutines.
// It must not be changed while kernels run.
var Parallel = parallel.DefaultConfig()

// Tensor is a dense, row-major tensor.
type Tensor[T constraints.Float] struct {
	shape    Shape
	data     []T
	released bool
}

// Compile-time checks that tensors satisfy the data contract.
var (
	_ autograd.Data[*Tensor[float32]] = (*Tensor[float32])(nil)
	_ autograd.Data[*Tensor[float64]] = (*Tensor[float64])(nil)
	_ autograd.Releaser               = (*Tensor[float64])(nil)
)

// FromSlice creates a tensor from data. The slice is used without copying.
func FromSlice[T constraints.Float](data []T, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, errors.Wrapf(autograd.ErrInvalidArgument,
			"data has %d elements, shape %s needs %d", len(data), shape, shape.NumElements())
	}
	return &Tensor[T]{shape: shape.Clone(), data: data}, nil
}

// Full creates a tensor of the given shape filled with v.
func Full[T constraints.Float](shape Shape, v T) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	t := newLike[T](shape)
	for i := range t.data {
		t.data[i] = v
	}
	return t, nil
}

// Zeros creates a tensor of the given shape filled with zeros.
func Zeros[T constraints.Float](shape Shape) (*Tensor[T], error) {
	return Full[T](shape, 0)
}

func newLike[T constraints.Float](shape Shape) *Tensor[T] {
	return &Tensor[T]{shape: shape.Clone(), data: make([]T, shape.NumElements())}
}

// Shape returns the tensor shape.
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// Data returns the underlying slice. Mutating it mutates the tensor.
func (t *Tensor[T]) Data() []T {
	t.check()
	return t.data
}

// Released reports whether Release was called.
func (t *Tensor[T]) Released() bool {
	return t.released
}

// Release drops the buffer. Using the tensor afterwards panics.
func (t *Tensor[T]) Release() error {
	if t.released {
		return errors.Wrap(autograd.ErrInvalidState, "tensor released twice")
	}
	t.data, t.released = nil, true
	return nil
}

// NumBytes returns the size of the buffer in bytes.
func (t *Tensor[T]) NumBytes() int {
	var zero T
	return len(t.data) * int(unsafe.Sizeof(zero))
}

func (t *Tensor[T]) check() {
	if t.released {
		panic(errors.Wrapf(autograd.ErrInvalidState, "use of released tensor %s", t.shape))
	}
}

// zip applies fn elementwise to t and o into a new tensor.
func (t *Tensor[T]) zip(o *Tensor[T], fn func(a, b T) T) *Tensor[T] {
	t.check()
	o.check()
	if !t.shape.Equal(o.shape) {
		panic(errors.Wrapf(autograd.ErrShapeMismatch, "elementwise op on %s and %s", t.shape, o.shape))
	}
	out := newLike[T](t.shape)
	parallel.Range(len(out.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = fn(t.data[i], o.data[i])
		}
	}, Parallel)
	return out
}

// apply applies fn elementwise to t into a new tensor.
func (t *Tensor[T]) apply(fn func(a T) T) *Tensor[T] {
	t.check()
	out := newLike[T](t.shape)
	parallel.Range(len(out.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = fn(t.data[i])
		}
	}, Parallel)
	return out
}

// zipInPlace applies fn elementwise to t and o, storing into t.
func (t *Tensor[T]) zipInPlace(o *Tensor[T], fn func(a, b T) T) *Tensor[T] {
	t.check()
	o.check()
	if !t.shape.Equal(o.shape) {
		panic(errors.Wrapf(autograd.ErrShapeMismatch, "in-place op on %s and %s", t.shape, o.shape))
	}
	parallel.Range(len(t.data), func(start, end int) {
		for i := start; i < end; i++ {
			t.data[i] = fn(t.data[i], o.data[i])
		}
	}, Parallel)
	return t
}

func (t *Tensor[T]) Add(o *Tensor[T]) *Tensor[T] { return t.zip(o, func(a, b T) T { return a + b }) }
func (t *Tensor[T]) Sub(o *Tensor[T]) *Tensor[T] { return t.zip(o, func(a, b T) T { return a - b }) }
func (t *Tensor[T]) Mul(o *Tensor[T]) *Tensor[T] { return t.zip(o, func(a, b T) T { return a * b }) }
func (t *Tensor[T]) Div(o *Tensor[T]) *Tensor[T] { return t.zip(o, func(a, b T) T { return a / b }) }

func (t *Tensor[T]) AddScalar(s float64) *Tensor[T] {
	c := T(s)
	return t.apply(func(a T) T { return a + c })
}

func (t *Tensor[T]) SubScalar(s float64) *Tensor[T] {
	c := T(s)
	return t.apply(func(a T) T { return a - c })
}

func (t *Tensor[T]) MulScalar(s float64) *Tensor[T] {
	c := T(s)
	return t.apply(func(a T) T { return a * c })
}

func (t *Tensor[T]) DivScalar(s float64) *Tensor[T] {
	c := T(s)
	return t.apply(func(a T) T { return a / c })
}

// AddInPlace adds o into t and returns t.
func (t *Tensor[T]) AddInPlace(o *Tensor[T]) *Tensor[T] {
	return t.zipInPlace(o, func(a, b T) T { return a + b })
}

// SubInPlace subtracts o from t and returns t.
func (t *Tensor[T]) SubInPlace(o *Tensor[T]) *Tensor[T] {
	return t.zipInPlace(o, func(a, b T) T { return a - b })
}

func (t *Tensor[T]) Neg() *Tensor[T] { return t.apply(func(a T) T { return -a }) }

// Gt returns a 0/1 mask of t > s.
func (t *Tensor[T]) Gt(s float64) *Tensor[T] {
	c := T(s)
	return t.apply(func(a T) T { return mask[T](a > c) })
}

// Gte returns a 0/1 mask of t >= s.
func (t *Tensor[T]) Gte(s float64) *Tensor[T] {
	c := T(s)
	return t.apply(func(a T) T { return mask[T](a >= c) })
}

// Float64s returns a row-major copy of the values as float64.
func (t *Tensor[T]) Float64s() []float64 {
	t.check()
	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = float64(v)
	}
	return out
}

// FullLike returns a tensor of t's shape filled with v.
func (t *Tensor[T]) FullLike(v float64) *Tensor[T] {
	out := newLike[T](t.shape)
	c := T(v)
	for i := range out.data {
		out.data[i] = c
	}
	return out
}

func (t *Tensor[T]) String() string {
	if t.released {
		return fmt.Sprintf("Tensor%s<released>", t.shape)
	}
	return fmt.Sprintf("Tensor%s%v", t.shape, t.data)
}

func mask[T constraints.Float](b bool) T {
	if b {
		return 1
	}
	return 0
}
