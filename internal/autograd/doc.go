// Package autograd implements a generic reverse-mode automatic differentiation engine.
//
// The engine never knows the concrete numeric representation it differentiates.
// It is parameterized by a data type D satisfying the Data contract (elementwise
// arithmetic, comparison masks and a flat view) and an opaque context type C
// (shape or other metadata) that is combined alongside the data.
//
// Architecture:
//   - Value: user-facing handle; owns a ValueNode (data + operator) and, when it
//     requires gradients, a GradNode accumulator
//   - Operator: tagged descriptor recording how a node was produced; built-in
//     kinds resolve their backward rule by switch, Custom kinds carry functions
//   - Backward: reverse-topological sweep that accumulates the gradient of every
//     node from all of its consumers before propagating it to its operands
//   - Registry: session ledger used to release data buffers in bulk
//
// Usage:
//
//	a := autograd.NewLeaf(scalar.New(-4), autograd.Properties[scalar.Unit]{RequiresGrad: true})
//	b := autograd.NewLeaf(scalar.New(2), autograd.Properties[scalar.Unit]{RequiresGrad: true})
//	c := a.Mul(b).Add(a)
//	if err := c.Backward(autograd.BackwardConfig{}); err != nil {
//	    return err
//	}
//	ga, _ := a.Grad() // dc/da = b + 1 = 3
//
// Backward rules are themselves written with Value operators, so a graph
// retained with BackwardConfig.KeepGraph can be differentiated again
// (Hessian-vector products). Without KeepGraph, rules run on detached operands
// and every visited node is consumed: a second pass over it fails with
// ErrGraphConsumed.
//
// Operators are single-threaded and synchronous. Fluent operator methods
// (Add, Mul, ...) panic with a wrapped error on failure; use Try to recover it,
// or the Apply functions that return errors directly.
package autograd
