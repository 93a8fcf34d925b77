package dense

import (
	"golang.org/x/exp/constraints"

	"github.com/born-ml/autograd/internal/autograd"
)

// Value is a differentiable dense tensor.
type Value[T constraints.Float] = autograd.Value[*Tensor[T], Shape]

// Props returns construction properties for t: its shape as context and
// StrictRules for operators.
func Props[T constraints.Float](t *Tensor[T], requiresGrad bool, name string) autograd.Properties[Shape] {
	return autograd.Properties[Shape]{
		RequiresGrad: requiresGrad,
		Context:      t.Shape(),
		Name:         name,
		Rules:        StrictRules,
	}
}

// Param creates a leaf from t that requires gradients.
func Param[T constraints.Float](t *Tensor[T], name string) *Value[T] {
	return autograd.NewLeaf(t, Props(t, true, name))
}

// Const creates a constant leaf from t.
func Const[T constraints.Float](t *Tensor[T]) *Value[T] {
	return autograd.NewConstant(t, Props(t, false, ""))
}
