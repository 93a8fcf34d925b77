// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package scalar provides the float64 scalar backend.
package scalar

import (
	"github.com/born-ml/autograd/internal/backend/scalar"
	"github.com/born-ml/autograd/registry"
)

// Scalar is a mutable float64 cell satisfying the data contract.
type Scalar = scalar.Scalar

// Unit is the (empty) context of scalar values.
type Unit = scalar.Unit

// Value is a differentiable scalar.
type Value = scalar.Value

// New creates a scalar holding v.
func New(v float64) *Scalar {
	return scalar.New(v)
}

// Param creates a scalar leaf that requires gradients.
func Param(v float64, name string) *Value {
	return scalar.Param(v, name)
}

// ParamIn creates a scalar leaf tracked by r.
func ParamIn(r *registry.Registry, v float64, name string) *Value {
	return scalar.ParamIn(r, v, name)
}

// Const creates a scalar constant.
func Const(v float64) *Value {
	return scalar.Const(v)
}

// Float64 returns the value held by v.
func Float64(v *Value) (float64, error) {
	return scalar.Float64(v)
}

// GradFloat64 returns the gradient of v, zero if none was accumulated.
func GradFloat64(v *Value) (float64, error) {
	return scalar.GradFloat64(v)
}
