// Package half implements a float16 storage backend for the autograd engine.
//
// Values are stored as IEEE 754 half precision and computed in float32, then
// rounded back. It exists to validate gradients at reduced precision, where
// results only match float64 references within a coarse tolerance.
package half

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/autograd/internal/autograd"
	"github.com/born-ml/autograd/internal/backend/dense"
)

// Tensor is a dense row-major float16 tensor.
type Tensor struct {
	shape    dense.Shape
	data     []float16.Float16
	released bool
}

var (
	_ autograd.Data[*Tensor] = (*Tensor)(nil)
	_ autograd.Releaser      = (*Tensor)(nil)
	_ autograd.Sizer         = (*Tensor)(nil)
)

// FromFloat32s creates a tensor rounding each value to half precision.
func FromFloat32s(values []float32, shape dense.Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(values) != shape.NumElements() {
		return nil, errors.Wrapf(autograd.ErrInvalidArgument,
			"data has %d elements, shape %s needs %d", len(values), shape, shape.NumElements())
	}
	t := newLike(shape)
	for i, v := range values {
		t.data[i] = float16.Fromfloat32(v)
	}
	return t, nil
}

func newLike(shape dense.Shape) *Tensor {
	return &Tensor{shape: shape.Clone(), data: make([]float16.Float16, shape.NumElements())}
}

// Shape returns the tensor shape.
func (t *Tensor) Shape() dense.Shape {
	return t.shape
}

// Float32s returns a copy of the values widened to float32.
func (t *Tensor) Float32s() []float32 {
	t.check()
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = v.Float32()
	}
	return out
}

// Release drops the buffer. Using the tensor afterwards panics.
func (t *Tensor) Release() error {
	if t.released {
		return errors.Wrap(autograd.ErrInvalidState, "tensor released twice")
	}
	t.data, t.released = nil, true
	return nil
}

// NumBytes returns the size of the buffer in bytes.
func (t *Tensor) NumBytes() int {
	return 2 * len(t.data)
}

func (t *Tensor) check() {
	if t.released {
		panic(errors.Wrapf(autograd.ErrInvalidState, "use of released tensor %s", t.shape))
	}
}

func (t *Tensor) zip(o *Tensor, fn func(a, b float32) float32) *Tensor {
	t.check()
	o.check()
	if !t.shape.Equal(o.shape) {
		panic(errors.Wrapf(autograd.ErrShapeMismatch, "elementwise op on %s and %s", t.shape, o.shape))
	}
	out := newLike(t.shape)
	for i := range out.data {
		out.data[i] = float16.Fromfloat32(fn(t.data[i].Float32(), o.data[i].Float32()))
	}
	return out
}

func (t *Tensor) apply(fn func(a float32) float32) *Tensor {
	t.check()
	out := newLike(t.shape)
	for i, v := range t.data {
		out.data[i] = float16.Fromfloat32(fn(v.Float32()))
	}
	return out
}

func (t *Tensor) zipInPlace(o *Tensor, fn func(a, b float32) float32) *Tensor {
	t.check()
	o.check()
	if !t.shape.Equal(o.shape) {
		panic(errors.Wrapf(autograd.ErrShapeMismatch, "in-place op on %s and %s", t.shape, o.shape))
	}
	for i := range t.data {
		t.data[i] = float16.Fromfloat32(fn(t.data[i].Float32(), o.data[i].Float32()))
	}
	return t
}

func (t *Tensor) Add(o *Tensor) *Tensor { return t.zip(o, func(a, b float32) float32 { return a + b }) }
func (t *Tensor) Sub(o *Tensor) *Tensor { return t.zip(o, func(a, b float32) float32 { return a - b }) }
func (t *Tensor) Mul(o *Tensor) *Tensor { return t.zip(o, func(a, b float32) float32 { return a * b }) }
func (t *Tensor) Div(o *Tensor) *Tensor { return t.zip(o, func(a, b float32) float32 { return a / b }) }

func (t *Tensor) AddScalar(s float64) *Tensor {
	c := float32(s)
	return t.apply(func(a float32) float32 { return a + c })
}

func (t *Tensor) SubScalar(s float64) *Tensor {
	c := float32(s)
	return t.apply(func(a float32) float32 { return a - c })
}

func (t *Tensor) MulScalar(s float64) *Tensor {
	c := float32(s)
	return t.apply(func(a float32) float32 { return a * c })
}

func (t *Tensor) DivScalar(s float64) *Tensor {
	c := float32(s)
	return t.apply(func(a float32) float32 { return a / c })
}

func (t *Tensor) AddInPlace(o *Tensor) *Tensor {
	return t.zipInPlace(o, func(a, b float32) float32 { return a + b })
}

func (t *Tensor) SubInPlace(o *Tensor) *Tensor {
	return t.zipInPlace(o, func(a, b float32) float32 { return a - b })
}

func (t *Tensor) Neg() *Tensor { return t.apply(func(a float32) float32 { return -a }) }

func (t *Tensor) Gt(s float64) *Tensor {
	c := float32(s)
	return t.apply(func(a float32) float32 { return mask(a > c) })
}

func (t *Tensor) Gte(s float64) *Tensor {
	c := float32(s)
	return t.apply(func(a float32) float32 { return mask(a >= c) })
}

// Float64s returns a row-major copy of the values as float64.
func (t *Tensor) Float64s() []float64 {
	t.check()
	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = float64(v.Float32())
	}
	return out
}

// FullLike returns a tensor of t's shape filled with v rounded to half.
func (t *Tensor) FullLike(v float64) *Tensor {
	out := newLike(t.shape)
	h := float16.Fromfloat32(float32(v))
	for i := range out.data {
		out.data[i] = h
	}
	return out
}

func (t *Tensor) String() string {
	if t.released {
		return fmt.Sprintf("Half%s<released>", t.shape)
	}
	return fmt.Sprintf("Half%s%v", t.shape, t.Float32s())
}

func mask(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
