// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autograd provides a generic reverse-mode automatic differentiation engine.
//
// Values are built by applying operators to leaves; each operator records a
// node linked to its operands. Backward replays the graph from a terminal
// value and accumulates gradients into every value that requires them.
//
// Example:
//
//	import (
//	    "github.com/born-ml/autograd/autograd"
//	    "github.com/born-ml/autograd/backend/scalar"
//	)
//
//	func main() {
//	    x := scalar.Param(2, "x")
//	    y := x.Mul(x) // y = x²
//
//	    if err := y.Backward(autograd.BackwardConfig{}); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(scalar.GradFloat64(x)) // dy/dx = 2x = 4
//	}
package autograd

import (
	"github.com/born-ml/autograd/internal/autograd"
)

// Data is the contract numeric backends satisfy.
type Data[D any] = autograd.Data[D]

// Filler is implemented by data that can build a constant of its own shape.
type Filler[D any] = autograd.Filler[D]

// Releaser is implemented by data holding buffers released on close.
type Releaser = autograd.Releaser

// Sizer reports the number of bytes held by data.
type Sizer = autograd.Sizer

// Value is a differentiable value and its graph node.
type Value[D Data[D], C any] = autograd.Value[D, C]

// ValueNode holds the forward value and operator of a Value.
type ValueNode[D Data[D], C any] = autograd.ValueNode[D, C]

// GradNode accumulates the gradient of a Value.
type GradNode[D Data[D], C any] = autograd.GradNode[D, C]

// Properties configure leaf construction.
type Properties[C any] = autograd.Properties[C]

// ContextRules combine operand contexts.
type ContextRules[C any] = autograd.ContextRules[C]

// Operator describes how a node was produced.
type Operator[D Data[D], C any] = autograd.Operator[D, C]

// OpKind tags built-in operators.
type OpKind = autograd.OpKind

// Built-in operator kinds.
const (
	OpLeaf       = autograd.OpLeaf
	OpAdd        = autograd.OpAdd
	OpSub        = autograd.OpSub
	OpMul        = autograd.OpMul
	OpDiv        = autograd.OpDiv
	OpNeg        = autograd.OpNeg
	OpGt         = autograd.OpGt
	OpGte        = autograd.OpGte
	OpAddScalar  = autograd.OpAddScalar
	OpSubScalar  = autograd.OpSubScalar
	OpMulScalar  = autograd.OpMulScalar
	OpDivScalar  = autograd.OpDivScalar
	OpRSubScalar = autograd.OpRSubScalar
	OpRDivScalar = autograd.OpRDivScalar
	OpCustom     = autograd.OpCustom
)

// GradFunc computes the gradient of one operand of a custom operator.
type GradFunc[D Data[D], C any] = autograd.GradFunc[D, C]

// BackwardConfig configures a backward pass.
type BackwardConfig = autograd.BackwardConfig

// Errors.
var (
	ErrInvalidState    = autograd.ErrInvalidState
	ErrInvalidArgument = autograd.ErrInvalidArgument
	ErrGraphConsumed   = autograd.ErrGraphConsumed
	ErrShapeMismatch   = autograd.ErrShapeMismatch
)

// NewLeaf creates a leaf value owning data.
func NewLeaf[D Data[D], C any](data D, props Properties[C]) *Value[D, C] {
	return autograd.NewLeaf(data, props)
}

// NewLazy creates a leaf whose data is produced on first access.
func NewLazy[D Data[D], C any](thunk func() (D, error), props Properties[C]) *Value[D, C] {
	return autograd.NewLazy(thunk, props)
}

// NewConstant creates a leaf that never requires gradients.
func NewConstant[D Data[D], C any](data D, props Properties[C]) *Value[D, C] {
	return autograd.NewConstant(data, props)
}

// Custom returns a custom operator with one gradient function per operand.
func Custom[D Data[D], C any](label string, grads ...GradFunc[D, C]) Operator[D, C] {
	return autograd.Custom(label, grads...)
}

// ApplyBinary applies a differentiable binary operator.
func ApplyBinary[D Data[D], C any](a, b *Value[D, C], forward func(x, y D) D, op Operator[D, C],
	context func(x, y C) (C, error)) (*Value[D, C], error) {
	return autograd.ApplyBinary(a, b, forward, op, context)
}

// ApplyUnary applies a differentiable unary operator.
func ApplyUnary[D Data[D], C any](a *Value[D, C], forward func(x D) D, op Operator[D, C],
	context func(x C) (C, error)) (*Value[D, C], error) {
	return autograd.ApplyUnary(a, forward, op, context)
}

// ApplyInlineBinary updates a's data in place, outside of the graph.
func ApplyInlineBinary[D Data[D], C any](a, b *Value[D, C], forward func(x, y D) D, label string) (*Value[D, C], error) {
	return autograd.ApplyInlineBinary(a, b, forward, label)
}

// Try runs fn and returns the error a fluent operator panicked with.
func Try(fn func()) error {
	return autograd.Try(fn)
}
