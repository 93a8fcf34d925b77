package autograd

import "github.com/janpfeifer/must"

// Fluent operators. They panic with a wrapped error on failure, so that
// expressions can be chained; recover with Try.

func (v *Value[D, C]) binary(other *Value[D, C], kind OpKind, forward func(x, y D) D) *Value[D, C] {
	return must.M1(ApplyBinary(v, other, forward, Operator[D, C]{Kind: kind}, nil))
}

func (v *Value[D, C]) scalar(s float64, kind OpKind, forward func(x D) D) *Value[D, C] {
	return must.M1(ApplyUnary(v, forward, Operator[D, C]{Kind: kind, Scalar: s}, nil))
}

// Add returns v + other.
func (v *Value[D, C]) Add(other *Value[D, C]) *Value[D, C] {
	return v.binary(other, OpAdd, func(x, y D) D { return x.Add(y) })
}

// Sub returns v - other.
func (v *Value[D, C]) Sub(other *Value[D, C]) *Value[D, C] {
	return v.binary(other, OpSub, func(x, y D) D { return x.Sub(y) })
}

// Mul returns v * other, elementwise.
func (v *Value[D, C]) Mul(other *Value[D, C]) *Value[D, C] {
	return v.binary(other, OpMul, func(x, y D) D { return x.Mul(y) })
}

// Div returns v / other, elementwise.
func (v *Value[D, C]) Div(other *Value[D, C]) *Value[D, C] {
	return v.binary(other, OpDiv, func(x, y D) D { return x.Div(y) })
}

// Neg returns -v.
func (v *Value[D, C]) Neg() *Value[D, C] {
	return must.M1(ApplyUnary(v, func(x D) D { return x.Neg() }, Operator[D, C]{Kind: OpNeg}, nil))
}

// Square returns v * v.
func (v *Value[D, C]) Square() *Value[D, C] {
	return v.Mul(v)
}

// AddScalar returns v + s.
func (v *Value[D, C]) AddScalar(s float64) *Value[D, C] {
	return v.scalar(s, OpAddScalar, func(x D) D { return x.AddScalar(s) })
}

// SubScalar returns v - s.
func (v *Value[D, C]) SubScalar(s float64) *Value[D, C] {
	return v.scalar(s, OpSubScalar, func(x D) D { return x.SubScalar(s) })
}

// MulScalar returns v * s.
func (v *Value[D, C]) MulScalar(s float64) *Value[D, C] {
	return v.scalar(s, OpMulScalar, func(x D) D { return x.MulScalar(s) })
}

// DivScalar returns v / s.
func (v *Value[D, C]) DivScalar(s float64) *Value[D, C] {
	return v.scalar(s, OpDivScalar, func(x D) D { return x.DivScalar(s) })
}

// RSubScalar returns s - v.
func (v *Value[D, C]) RSubScalar(s float64) *Value[D, C] {
	return v.scalar(s, OpRSubScalar, func(x D) D { return x.Neg().AddScalar(s) })
}

// RDivScalar returns s / v.
func (v *Value[D, C]) RDivScalar(s float64) *Value[D, C] {
	return v.scalar(s, OpRDivScalar, func(x D) D { return fullLike(x, s).Div(x) })
}

// Gt returns the constant mask v > s.
func (v *Value[D, C]) Gt(s float64) *Value[D, C] {
	return v.scalar(s, OpGt, func(x D) D { return x.Gt(s) })
}

// Gte returns the constant mask v >= s.
func (v *Value[D, C]) Gte(s float64) *Value[D, C] {
	return v.scalar(s, OpGte, func(x D) D { return x.Gte(s) })
}

// ReLU returns max(v, 0), as v gated by the mask v > 0.
func (v *Value[D, C]) ReLU() *Value[D, C] {
	return v.Mul(v.Gt(0))
}

// AddInPlace adds other to v's data in place and returns v.
// The update is not recorded in the graph.
func (v *Value[D, C]) AddInPlace(other *Value[D, C]) *Value[D, C] {
	return must.M1(ApplyInlineBinary(v, other, func(x, y D) D { return x.AddInPlace(y) }, "add_"))
}

// SubInPlace subtracts other from v's data in place and returns v.
// The update is not recorded in the graph.
func (v *Value[D, C]) SubInPlace(other *Value[D, C]) *Value[D, C] {
	return must.M1(ApplyInlineBinary(v, other, func(x, y D) D { return x.SubInPlace(y) }, "sub_"))
}
