package optim

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/autograd/internal/autograd"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD[D autograd.Data[D], C any] struct {
	params     []*autograd.Value[D, C]
	lr         float64
	momentum   float64
	velocities map[*autograd.Value[D, C]]D
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer over leaf parameters.
func NewSGD[D autograd.Data[D], C any](params []*autograd.Value[D, C], config SGDConfig) *SGD[D, C] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[D, C]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*autograd.Value[D, C]]D),
	}
}

// Step performs a single optimization step.
// Parameters with no gradient (not in the graph) are skipped.
func (s *SGD[D, C]) Step() error {
	for _, param := range s.params {
		grad, err := param.Grad()
		if err != nil {
			return errors.WithMessagef(err, "sgd: parameter %q", param.Name())
		}
		if grad == nil {
			klog.V(2).Infof("sgd: parameter %q has no gradient, skipped", param.Name())
			continue
		}
		g, err := grad.Data()
		if err != nil {
			return errors.WithMessagef(err, "sgd: gradient of %q", param.Name())
		}
		if s.momentum != 0 {
			if v, ok := s.velocities[param]; ok {
				g = v.MulScalar(s.momentum).Add(g)
				releaseData(v)
			} else {
				// Copy: the gradient buffer belongs to its node and is
				// released with the graph.
				g = g.MulScalar(1)
			}
			s.velocities[param] = g
		}
		update := autograd.NewConstant(g.MulScalar(s.lr), autograd.Properties[C]{
			Context: param.Context(),
			Rules:   param.Rules(),
		})
		err = autograd.Try(func() { param.SubInPlace(update) })
		if err != nil {
			return errors.WithMessagef(err, "sgd: updating %q", param.Name())
		}
	}
	return nil
}

// ZeroGrad clears all parameter gradients.
func (s *SGD[D, C]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the learning rate.
func (s *SGD[D, C]) GetLR() float64 {
	return s.lr
}

func releaseData(d any) {
	if r, ok := d.(autograd.Releaser); ok {
		if err := r.Release(); err != nil {
			klog.Warningf("sgd: failed to release velocity: %v", err)
		}
	}
}
