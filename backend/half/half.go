// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package half provides the float16 storage backend.
package half

import (
	"github.com/born-ml/autograd/backend/dense"
	"github.com/born-ml/autograd/internal/backend/half"
)

// Tensor is a float16 tensor satisfying the data contract.
type Tensor = half.Tensor

// Value is a differentiable half precision tensor.
type Value = half.Value

// FromFloat32s creates a tensor rounding values to half precision.
func FromFloat32s(values []float32, shape dense.Shape) (*Tensor, error) {
	return half.FromFloat32s(values, shape)
}

// Param creates a leaf from t that requires gradients.
func Param(t *Tensor, name string) *Value {
	return half.Param(t, name)
}
