package autograd

import (
	"fmt"

	"github.com/pkg/errors"
)

// OpKind tags how a node was produced.
type OpKind int

const (
	OpLeaf OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpGt
	OpGte
	OpAddScalar
	OpSubScalar
	OpMulScalar
	OpDivScalar
	OpRSubScalar
	OpRDivScalar
	OpCustom
)

var opKindNames = [...]string{
	OpLeaf:       "leaf",
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpDiv:        "div",
	OpNeg:        "neg",
	OpGt:         "gt",
	OpGte:        "gte",
	OpAddScalar:  "add_scalar",
	OpSubScalar:  "sub_scalar",
	OpMulScalar:  "mul_scalar",
	OpDivScalar:  "div_scalar",
	OpRSubScalar: "rsub_scalar",
	OpRDivScalar: "rdiv_scalar",
	OpCustom:     "custom",
}

func (k OpKind) String() string {
	if k < 0 || int(k) >= len(opKindNames) {
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
	return opKindNames[k]
}

// Differentiable reports whether gradients flow through operators of this kind.
// Comparison masks are constants: d(mask)/dx is zero everywhere it is defined,
// including at the boundary, by convention.
func (k OpKind) Differentiable() bool {
	return k != OpGt && k != OpGte
}

// GradFunc computes the gradient for one operand of a node, given the upstream
// gradient g and all operands of the node, in order.
type GradFunc[D Data[D], C any] func(g *Value[D, C], operands []*Value[D, C]) (*Value[D, C], error)

// Operator describes how a node was produced and how to differentiate it.
//
// Built-in kinds only carry their Scalar; their backward rules are resolved by
// kind. OpCustom carries one GradFunc per operand; a nil GradFunc means no
// gradient flows to that operand.
type Operator[D Data[D], C any] struct {
	Kind   OpKind
	Label  string
	Scalar float64
	Grads  []GradFunc[D, C]
}

// Custom returns a custom operator with one gradient function per operand.
func Custom[D Data[D], C any](label string, grads ...GradFunc[D, C]) Operator[D, C] {
	return Operator[D, C]{Kind: OpCustom, Label: label, Grads: grads}
}

func (op Operator[D, C]) String() string {
	if op.Label != "" {
		return op.Label
	}
	return op.Kind.String()
}

// grad returns the gradient for operand i, or nil if none flows to it.
func (op *Operator[D, C]) grad(g *Value[D, C], operands []*Value[D, C], i int) (grad *Value[D, C], err error) {
	if op.Kind == OpCustom {
		if i >= len(op.Grads) || op.Grads[i] == nil {
			return nil, nil
		}
		return op.Grads[i](g, operands)
	}
	err = Try(func() {
		grad = op.builtinGrad(g, operands, i)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "backward of %s", op)
	}
	return grad, nil
}

// builtinGrad holds the backward rules of the built-in operators. It panics on
// failure like the fluent operators it is written with.
func (op *Operator[D, C]) builtinGrad(g *Value[D, C], operands []*Value[D, C], i int) *Value[D, C] {
	switch op.Kind {
	case OpAdd, OpAddScalar, OpSubScalar:
		return g

	case OpSub:
		if i == 0 {
			return g
		}
		return g.Neg()

	case OpMul:
		// d(a*b)/da = b, d(a*b)/db = a
		return g.Mul(operands[1-i])

	case OpDiv:
		a, b := operands[0], operands[1]
		if i == 0 {
			return g.Div(b)
		}
		// d(a/b)/db = -a/b²
		return g.Mul(a).Div(b.Mul(b)).Neg()

	case OpNeg, OpRSubScalar:
		return g.Neg()

	case OpMulScalar:
		return g.MulScalar(op.Scalar)

	case OpDivScalar:
		return g.DivScalar(op.Scalar)

	case OpRDivScalar:
		// d(s/x)/dx = -s/x²
		x := operands[0]
		return g.Mul(x.Mul(x).RDivScalar(-op.Scalar))

	case OpGt, OpGte, OpLeaf:
		return nil

	default:
		panic(errors.Wrapf(ErrInvalidState, "no backward rule for operator %s", op))
	}
}
