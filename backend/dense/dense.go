// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dense provides the dense row-major tensor backend.
//
// Example:
//
//	w := dense.Param(must.M1(dense.FromSlice([]float64{1, 2}, dense.Shape{2})), "w")
//	y := w.Mul(w)
package dense

import (
	"golang.org/x/exp/constraints"

	"github.com/born-ml/autograd/autograd"
	"github.com/born-ml/autograd/internal/backend/dense"
)

// Shape is the context of dense values.
type Shape = dense.Shape

// Tensor is a dense tensor satisfying the data contract.
type Tensor[T constraints.Float] = dense.Tensor[T]

// Value is a differentiable dense tensor.
type Value[T constraints.Float] = dense.Value[T]

// StrictRules reject binary operators on mismatched shapes.
var StrictRules = dense.StrictRules

// FromSlice creates a tensor from data without copying.
func FromSlice[T constraints.Float](data []T, shape Shape) (*Tensor[T], error) {
	return dense.FromSlice(data, shape)
}

// Full creates a tensor filled with v.
func Full[T constraints.Float](shape Shape, v T) (*Tensor[T], error) {
	return dense.Full(shape, v)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T constraints.Float](shape Shape) (*Tensor[T], error) {
	return dense.Zeros[T](shape)
}

// Props returns construction properties for t.
func Props[T constraints.Float](t *Tensor[T], requiresGrad bool, name string) autograd.Properties[Shape] {
	return dense.Props(t, requiresGrad, name)
}

// Param creates a leaf from t that requires gradients.
func Param[T constraints.Float](t *Tensor[T], name string) *Value[T] {
	return dense.Param(t, name)
}

// Const creates a constant leaf from t.
func Const[T constraints.Float](t *Tensor[T]) *Value[T] {
	return dense.Const(t)
}
