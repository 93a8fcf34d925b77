// Package scalar implements a float64 scalar backend for the autograd engine.
//
// It is the smallest backend satisfying the data contract and is used to check
// the engine against hand-derived scalar gradients.
package scalar

import (
	"strconv"

	"github.com/born-ml/autograd/internal/autograd"
)

// Unit is the context of scalar values: there is no shape to track.
type Unit struct{}

// Scalar is a mutable float64 cell.
type Scalar struct {
	v float64
}

// Compile-time check that *Scalar satisfies the data contract.
var _ autograd.Data[*Scalar] = (*Scalar)(nil)

// New creates a scalar holding v.
func New(v float64) *Scalar {
	return &Scalar{v: v}
}

// Float64 returns the held value.
func (s *Scalar) Float64() float64 {
	return s.v
}

func (s *Scalar) Add(o *Scalar) *Scalar { return New(s.v + o.v) }
func (s *Scalar) Sub(o *Scalar) *Scalar { return New(s.v - o.v) }
func (s *Scalar) Mul(o *Scalar) *Scalar { return New(s.v * o.v) }
func (s *Scalar) Div(o *Scalar) *Scalar { return New(s.v / o.v) }

func (s *Scalar) AddScalar(c float64) *Scalar { return New(s.v + c) }
func (s *Scalar) SubScalar(c float64) *Scalar { return New(s.v - c) }
func (s *Scalar) MulScalar(c float64) *Scalar { return New(s.v * c) }
func (s *Scalar) DivScalar(c float64) *Scalar { return New(s.v / c) }

// AddInPlace adds o to s and returns s.
func (s *Scalar) AddInPlace(o *Scalar) *Scalar {
	s.v += o.v
	return s
}

// SubInPlace subtracts o from s and returns s.
func (s *Scalar) SubInPlace(o *Scalar) *Scalar {
	s.v -= o.v
	return s
}

func (s *Scalar) Neg() *Scalar { return New(-s.v) }

// Gt returns 1 if s > c, else 0.
func (s *Scalar) Gt(c float64) *Scalar { return New(mask(s.v > c)) }

// Gte returns 1 if s >= c, else 0.
func (s *Scalar) Gte(c float64) *Scalar { return New(mask(s.v >= c)) }

// Float64s returns the value as a one-element slice.
func (s *Scalar) Float64s() []float64 {
	return []float64{s.v}
}

// FullLike returns a new scalar holding v.
func (s *Scalar) FullLike(v float64) *Scalar {
	return New(v)
}

func (s *Scalar) String() string {
	return strconv.FormatFloat(s.v, 'g', -1, 64)
}

func mask(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
