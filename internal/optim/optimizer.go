// Package optim implements parameter updates driven by autograd gradients.
//
// Updates are applied with in-place operators, which are not recorded in the
// graph: the next forward pass builds a fresh graph from the updated leaves.
//
// Example usage:
//
//	opt := optim.NewSGD(params, optim.SGDConfig{LR: 0.01})
//	for step := range steps {
//	    loss := model(params)
//	    if err := loss.Backward(autograd.BackwardConfig{}); err != nil {
//	        return err
//	    }
//	    if err := opt.Step(); err != nil {
//	        return err
//	    }
//	    opt.ZeroGrad()
//	}
package optim

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	// Step applies one update to every parameter that has a gradient.
	Step() error

	// ZeroGrad clears the gradients of all parameters.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64
}
