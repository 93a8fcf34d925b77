// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides parameter updates driven by autograd gradients.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Optimizer interface for custom optimizers
//
// Updates are applied in place and are not recorded in the graph.
//
// # Basic Usage
//
//	opt := optim.NewSGD(params, optim.SGDConfig{LR: 0.01})
//	for range steps {
//	    err := registry.Scope("step", func(*registry.Registry) error {
//	        if err := loss(params).Backward(autograd.BackwardConfig{}); err != nil {
//	            return err
//	        }
//	        return opt.Step()
//	    })
//	    ...
//	    opt.ZeroGrad()
//	}
package optim
