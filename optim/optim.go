// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/autograd/autograd"
	"github.com/born-ml/autograd/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// SGD represents the SGD optimizer with optional momentum.
type SGD[D autograd.Data[D], C any] = optim.SGD[D, C]

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	w := scalar.Param(0.5, "w")
//	optimizer := optim.NewSGD([]*scalar.Value{w}, optim.SGDConfig{LR: 0.1})
func NewSGD[D autograd.Data[D], C any](params []*autograd.Value[D, C], config SGDConfig) *SGD[D, C] {
	return optim.NewSGD(params, config)
}
