package scalar

import (
	"github.com/born-ml/autograd/internal/autograd"
	"github.com/born-ml/autograd/internal/registry"
)

// Value is a differentiable scalar.
type Value = autograd.Value[*Scalar, Unit]

// Param creates a scalar leaf that requires gradients.
func Param(v float64, name string) *Value {
	return autograd.NewLeaf(New(v), autograd.Properties[Unit]{RequiresGrad: true, Name: name})
}

// Const creates a scalar leaf that never requires gradients.
func Const(v float64) *Value {
	return autograd.NewConstant(New(v), autograd.Properties[Unit]{})
}

// ParamIn is like Param but tracks the value in r.
func ParamIn(r *registry.Registry, v float64, name string) *Value {
	return autograd.NewLeaf(New(v), autograd.Properties[Unit]{RequiresGrad: true, Name: name, Registry: r})
}

// Float64 returns the value held by v.
func Float64(v *Value) (float64, error) {
	d, err := v.Data()
	if err != nil {
		return 0, err
	}
	return d.Float64(), nil
}

// GradFloat64 returns the gradient of v as a float64. A value without any
// accumulated gradient reads as zero.
func GradFloat64(v *Value) (float64, error) {
	g, err := v.Grad()
	if err != nil || g == nil {
		return 0, err
	}
	return Float64(g)
}
